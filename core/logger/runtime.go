package logger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Request holds the correlation fields of one inbound update. Zero fields are
// left out of log lines.
type Request struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
	// State is the conversation state the update was handled in.
	State string
}

type requestKey struct{}

// NewRequest builds the correlation fields of an update with a rid derived from its ids.
func NewRequest(updateID int, chatID, userID int64) Request {
	return Request{
		RID:      BuildRID(updateID, chatID, userID),
		UpdateID: updateID,
		UserID:   userID,
		ChatID:   chatID,
	}
}

// WithRequest stores r in ctx, replacing any request stored earlier.
func WithRequest(ctx context.Context, r Request) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestKey{}, r)
}

// RequestFrom returns the request stored in ctx, or the zero Request.
func RequestFrom(ctx context.Context) Request {
	if ctx == nil {
		return Request{}
	}
	r, _ := ctx.Value(requestKey{}).(Request)
	return r
}

func amend(ctx context.Context, fn func(*Request)) context.Context {
	r := RequestFrom(ctx)
	fn(&r)
	return WithRequest(ctx, r)
}

// WithRID sets the correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return amend(ctx, func(r *Request) { r.RID = rid })
}

// WithUpdateMeta sets the update, user and chat ids.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return amend(ctx, func(r *Request) {
		r.UpdateID, r.UserID, r.ChatID = updateID, userID, chatID
	})
}

// WithHandler sets the name of the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return ctx
	}
	return amend(ctx, func(r *Request) { r.Handler = handler })
}

// WithSessionState records the conversation state the current update was handled in.
func WithSessionState(ctx context.Context, state string) context.Context {
	if state == "" {
		return ctx
	}
	return amend(ctx, func(r *Request) { r.State = state })
}

// Accessors for single fields of the stored Request.
func RIDFrom(ctx context.Context) string          { return RequestFrom(ctx).RID }
func HandlerFrom(ctx context.Context) string      { return RequestFrom(ctx).Handler }
func SessionStateFrom(ctx context.Context) string { return RequestFrom(ctx).State }
func UserIDFrom(ctx context.Context) int64        { return RequestFrom(ctx).UserID }
func ChatIDFrom(ctx context.Context) int64        { return RequestFrom(ctx).ChatID }
func UpdateIDFrom(ctx context.Context) int        { return RequestFrom(ctx).UpdateID }

// Sanitize drops control and format characters from s, keeping tabs and newlines.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit applies Sanitize and keeps at most max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	s = Sanitize(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// BuildRID returns a correlation identifier in the format updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID rewrites an updateID:chatID:userID rid as dot-separated base36
// numbers. Any other input is returned trimmed but otherwise unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
