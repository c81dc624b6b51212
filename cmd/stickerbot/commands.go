package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m3rciful/stickerbot/core/buildinfo"
	corecmd "github.com/m3rciful/stickerbot/core/cmd"
	"github.com/m3rciful/stickerbot/internal/app"
	"github.com/m3rciful/stickerbot/internal/sticker"
	"github.com/m3rciful/stickerbot/internal/store"
)

const defaultConfigPath = "config.yaml"

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	serve := newServeCommand(opts)
	cmd := &cobra.Command{
		Use:           "stickerbot",
		Short:         "Telegram bot that turns images into sticker packs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to config.yaml (default $CONFIG_PATH or "+defaultConfigPath+")")

	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newPacksCommand(opts))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func (o *rootOptions) path() string {
	if o.configPath != "" {
		return o.configPath
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return defaultConfigPath
}

func (o *rootOptions) load() (*app.Config, error) {
	return app.Load(o.path())
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        opts.configPath,
				DefaultConfigPath: defaultConfigPath,
				LoadConfig:        app.LoadConfig,
				Bootstrap:         app.Bootstrap,
			})
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the storage schema for sqlite or postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg.StoreOptions(true))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.Storage.Driver)
			return st.Close()
		},
	}
}

func newPacksCommand(opts *rootOptions) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "Inspect or seed the pack index",
	}
	cmd.PersistentFlags().Int64Var(&userID, "user", 0, "telegram user id (default telegram.admin_id)")

	withStore := func(cmd *cobra.Command, fn func(ctx context.Context, cfg *app.Config, st store.Store, user int64) error) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		user := userID
		if user == 0 {
			user = cfg.Telegram.AdminID
		}
		st, err := store.Open(cmd.Context(), cfg.StoreOptions(true))
		if err != nil {
			return err
		}
		defer st.Close()
		return fn(cmd.Context(), cfg, st, user)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the packs known for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, _ *app.Config, st store.Store, user int64) error {
				names, err := st.PackNames(ctx, user)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", n, sticker.PackURL(n))
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Remember an existing pack created by this bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cfg *app.Config, st store.Store, user int64) error {
				name := strings.TrimSpace(args[0])
				if cfg.Telegram.BotName != "" && !sticker.OwnsPack(name, cfg.Telegram.BotName) {
					return fmt.Errorf("pack %q does not end with %s", name, sticker.PackSuffix(cfg.Telegram.BotName))
				}
				if err := st.AppendPackName(ctx, user, name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s for user %d\n", name, user)
				return nil
			})
		},
	})
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}
