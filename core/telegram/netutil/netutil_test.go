package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := map[string]error{
		"":         nil,
		"timeout":  fmt.Errorf("wrap: %w", context.DeadlineExceeded),
		"dns":      &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: &net.DNSError{Err: "no such host"}},
		"dial":     &net.OpError{Op: "dial", Err: errors.New("connection refused")},
		"http_4xx": errors.New("telegram: Bad Request: STICKERSET_INVALID (400)"),
		"http_5xx": errors.New("telegram: internal (502)"),
		"unknown":  errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Classify(err), "%v", err)
	}
	assert.Equal(t, "timeout", Classify(&url.Error{Op: "Get", Err: timeoutErr{}}))
}

func TestRedact(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/getMe": EOF`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/getMe": EOF`, Redact(err))
	assert.Empty(t, Redact(nil))
}

func TestMethod(t *testing.T) {
	assert.Equal(t, "getUpdates", Method("/bot1:abc/getUpdates"))
	assert.Equal(t, "createNewStickerSet", Method("/bot1:abc/createNewStickerSet"))
	assert.Equal(t, "file", Method("/file/bot1:abc/photos/file_1.jpg"))
	assert.True(t, Idempotent("getFile"))
	assert.True(t, Idempotent("file"))
	assert.False(t, Idempotent("addStickerToSet"))
	assert.False(t, Idempotent("sendMessage"))
}

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Err: errors.New("refused")}
	timeout := &url.Error{Op: "Post", Err: timeoutErr{}}

	assert.False(t, ShouldRetry("getUpdates", nil))
	assert.True(t, ShouldRetry("getUpdates", dial))
	assert.True(t, ShouldRetry("getFile", timeout))
	assert.True(t, ShouldRetry("addStickerToSet", dial))
	assert.True(t, ShouldRetry("sendMessage", &url.Error{Op: "Post", Err: &net.DNSError{Err: "no such host"}}))
	assert.False(t, ShouldRetry("createNewStickerSet", timeout))
	assert.False(t, ShouldRetry("getMe", errors.New("telegram: Forbidden (403)")))
}
