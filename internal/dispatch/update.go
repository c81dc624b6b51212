package dispatch

import (
	"context"
	"strings"
	"unicode"
)

// Kind classifies inbound content.
type Kind int

const (
	KindOther Kind = iota
	KindText
	KindPhoto
	KindDocument
	KindSticker
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindDocument:
		return "document"
	case KindSticker:
		return "sticker"
	}
	return "other"
}

// Update is a transport-neutral inbound event.
type Update struct {
	ID     int
	UserID int64
	ChatID int64
	Kind   Kind
	Text   string
	// FileID references the photo, document or sticker file.
	FileID string
	// MIME is set for documents.
	MIME string
	// StickerSet is the set a forwarded sticker belongs to.
	StickerSet string
	// Animated marks animated or video stickers.
	Animated bool
}

// Reply is one outbound message.
type Reply struct {
	Text string
	// Keyboard lists reply buttons, one per row.
	Keyboard       []string
	RemoveKeyboard bool
}

// Responder delivers replies to the chat the update came from.
type Responder interface {
	Reply(ctx context.Context, r Reply) error
}

// Fetcher downloads the raw bytes of a file.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// Normalizer converts an arbitrary image into sticker-ready bytes.
type Normalizer interface {
	Normalize(ctx context.Context, raw []byte) ([]byte, error)
}

// Lanes runs work serially per user.
type Lanes interface {
	Enqueue(ctx context.Context, key int64, action string, run func(context.Context) error) error
}

func splitCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd = text
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		cmd, arg = text[:i], text[i:]
	}
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

func isImageMIME(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/")
}
