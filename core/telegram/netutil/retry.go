package netutil

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// safeMethods are Bot API calls that can be repeated without side effects.
var safeMethods = map[string]struct{}{
	"file":          {},
	"setMyCommands": {},
	"setWebhook":    {},
	"deleteWebhook": {},
}

// Method extracts the Bot API method from a request path such as
// /bot<token>/getFile. File downloads report "file".
func Method(path string) string {
	path = strings.Trim(path, "/")
	if strings.HasPrefix(path, "file/") {
		return "file"
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Idempotent reports whether method can be sent twice with the same outcome.
func Idempotent(method string) bool {
	if strings.HasPrefix(method, "get") {
		return true
	}
	_, ok := safeMethods[method]
	return ok
}

// ShouldRetry reports whether a failed call to method is worth sending again.
// Calls that change state, such as sending a message or adding a sticker, are
// retried only when the request never reached the server.
func ShouldRetry(method string, err error) bool {
	if err == nil {
		return false
	}
	if !Idempotent(method) {
		return notSent(err)
	}
	return notSent(err) || transient(err)
}

func notSent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func transient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if nested, ok := opErr.Err.(net.Error); ok && nested.Timeout() {
			return true
		}
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
