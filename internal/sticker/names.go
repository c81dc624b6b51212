package sticker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxPackName is the Telegram limit for sticker set names, suffix included.
const MaxPackName = 64

// ErrInvalidName is returned when a pack name breaks Telegram naming rules.
var ErrInvalidName = errors.New("invalid pack name")

// PackSuffix is the suffix Telegram requires on sets created by a bot.
func PackSuffix(botName string) string {
	return "_by_" + strings.TrimPrefix(botName, "@")
}

// PackName turns user input into a set name owned by botName. The suffix is not
// repeated when the input already carries it.
func PackName(text, botName string) (string, error) {
	name := strings.TrimSpace(text)
	suffix := PackSuffix(botName)
	if !strings.HasSuffix(strings.ToLower(name), strings.ToLower(suffix)) {
		name += suffix
	}
	if err := validateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// OwnsPack reports whether set was created by botName.
func OwnsPack(set, botName string) bool {
	if set == "" || botName == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(set), strings.ToLower(PackSuffix(botName)))
}

// PackURL is the public link of a sticker set.
func PackURL(name string) string {
	return "https://t.me/addstickers/" + name
}

func validateName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > MaxPackName {
		return fmt.Errorf("%w: length must be 1..%d", ErrInvalidName, MaxPackName)
	}
	first, _ := utf8.DecodeRuneInString(name)
	if first > unicode.MaxASCII || !unicode.IsLetter(first) {
		return fmt.Errorf("%w: must start with a letter", ErrInvalidName)
	}
	for _, r := range name {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return fmt.Errorf("%w: only latin letters, digits and underscores", ErrInvalidName)
		}
	}
	if strings.Contains(name, "__") {
		return fmt.Errorf("%w: consecutive underscores", ErrInvalidName)
	}
	return nil
}
