package cache

import (
	"net/http"
	"net/url"
)

// Key identifies a cached response: request method plus absolute URL.
// Requests to the same URL share an entry regardless of where they came from.
type Key string

// NewKey returns the cache key for a request.
// The second return value is false when the request may not be cached,
// only GET requests with an absolute URL produce a key.
func NewKey(method string, u *url.URL) (Key, bool) {
	if method != http.MethodGet || u == nil || !u.IsAbs() {
		return "", false
	}
	c := *u
	c.Fragment = ""
	c.RawFragment = ""

	return Key(method + " " + c.String()), true
}

// KeyForRequest returns the cache key of req
func KeyForRequest(req *http.Request) (Key, bool) {
	return NewKey(req.Method, req.URL)
}

// String returns the key as a string
func (k Key) String() string {
	return string(k)
}
