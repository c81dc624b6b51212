package sticker

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// MaxEmojis is the most emoji Telegram accepts for a single sticker.
const MaxEmojis = 20

// SplitEmojis splits the text the user sent into one entry per emoji. Entries
// are extended grapheme clusters, so joiner sequences, flags, keycaps and
// modifiers stay whole. Whitespace and commas separate entries and are dropped.
// At most MaxEmojis entries are returned.
func SplitEmojis(text string) []string {
	var out []string
	g := uniseg.NewGraphemes(text)
	for len(out) < MaxEmojis && g.Next() {
		cluster := g.Str()
		if isSeparator(cluster) {
			continue
		}
		out = append(out, cluster)
	}
	return out
}

func isSeparator(cluster string) bool {
	for _, r := range cluster {
		if !unicode.IsSpace(r) && r != ',' {
			return false
		}
	}
	return true
}

// ValidEmojis reports whether text contains at least one emoji and no plain
// letters or digits.
func ValidEmojis(text string) bool {
	entries := SplitEmojis(text)
	if len(entries) == 0 {
		return false
	}
	for _, e := range entries {
		runes := []rune(e)
		if runes[0] <= unicode.MaxASCII && len(runes) == 1 {
			return false
		}
		if unicode.IsLetter(runes[0]) {
			return false
		}
	}
	return true
}
