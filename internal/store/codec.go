package store

import (
	"encoding/json"
	"fmt"

	"github.com/m3rciful/stickerbot/internal/sticker"
)

const codecVersion = 1

type envelope struct {
	Version int             `json:"v"`
	Kind    string          `json:"kind"`
	State   json.RawMessage `json:"state,omitempty"`
}

type sessionRecord struct {
	Target  string  `json:"target,omitempty"`
	OwnerID int64   `json:"owner_id,omitempty"`
	Name    string  `json:"name,omitempty"`
	Image   []byte  `json:"image,omitempty"`
	Emojis  string  `json:"emojis,omitempty"`
	Title   *string `json:"title,omitempty"`
}

func encodeSession(st sticker.State) ([]byte, error) {
	var rec sessionRecord
	switch s := st.(type) {
	case sticker.Idle:
	case sticker.AwaitingName:
		rec.Target = s.Target.String()
	case sticker.AwaitingSticker:
		rec.Target, rec.Name = s.Target.String(), s.Name
	case sticker.AwaitingEmojis:
		rec = sessionRecord{Target: s.Target.String(), Name: s.Name, Image: s.Image, Emojis: s.Emojis}
	case sticker.AwaitingTitle:
		title := s.Title
		rec = sessionRecord{Target: sticker.New.String(), Name: s.Name, Image: s.Image, Emojis: s.Emojis, Title: &title}
	case sticker.ReadyToPublish:
		rec = sessionRecord{
			Target:  s.Target.String(),
			OwnerID: s.OwnerID,
			Name:    s.Name,
			Image:   s.Image,
			Emojis:  s.Emojis,
			Title:   s.Title,
		}
	default:
		return nil, fmt.Errorf("store: encode: unknown state %T", st)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	return json.Marshal(envelope{Version: codecVersion, Kind: sticker.Kind(st), State: raw})
}

func decodeSession(data []byte) (sticker.State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version != codecVersion {
		return nil, fmt.Errorf("%w: version %d", ErrCorrupt, env.Version)
	}
	var rec sessionRecord
	if len(env.State) > 0 {
		if err := json.Unmarshal(env.State, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	target, err := parseTarget(rec.Target)
	if err != nil {
		return nil, err
	}
	switch env.Kind {
	case "idle":
		return sticker.Idle{}, nil
	case "awaiting_name":
		return sticker.AwaitingName{Target: target}, nil
	case "awaiting_sticker":
		return sticker.AwaitingSticker{Target: target, Name: rec.Name}, nil
	case "awaiting_emojis":
		return sticker.AwaitingEmojis{Target: target, Name: rec.Name, Image: rec.Image, Emojis: rec.Emojis}, nil
	case "awaiting_title":
		st := sticker.AwaitingTitle{Name: rec.Name, Image: rec.Image, Emojis: rec.Emojis}
		if rec.Title != nil {
			st.Title = *rec.Title
		}
		return st, nil
	case "ready_to_publish":
		return sticker.ReadyToPublish{
			Target:  target,
			OwnerID: rec.OwnerID,
			Name:    rec.Name,
			Image:   rec.Image,
			Emojis:  rec.Emojis,
			Title:   rec.Title,
		}, nil
	}
	return nil, fmt.Errorf("%w: kind %q", ErrCorrupt, env.Kind)
}

func parseTarget(s string) (sticker.Target, error) {
	switch s {
	case "", "new":
		return sticker.New, nil
	case "existing":
		return sticker.Existing, nil
	}
	return sticker.New, fmt.Errorf("%w: target %q", ErrCorrupt, s)
}

func encodeNames(names []string) ([]byte, error) {
	return json.Marshal(names)
}

func decodeNames(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("%w: pack index: %v", ErrCorrupt, err)
	}
	return names, nil
}
