package worker

import (
	"net/url"
	"strings"
)

// Class is the caching class of a request
type Class int

const (
	// ClassPassthrough is a cross-origin request, never intercepted
	ClassPassthrough Class = iota
	// ClassAPI is served network first
	ClassAPI
	// ClassStatic is served cache first
	ClassStatic
	// ClassPage is served stale while revalidate
	ClassPage
)

func (c Class) String() string {
	switch c {
	case ClassPassthrough:
		return "passthrough"
	case ClassAPI:
		return "api"
	case ClassStatic:
		return "static"
	case ClassPage:
		return "page"
	default:
		return "unknown"
	}
}

// Classify maps a request URL to its class, relative to the worker origin
func Classify(u, origin *url.URL) Class {
	if !sameOrigin(u, origin) {
		return ClassPassthrough
	}

	switch {
	case strings.HasPrefix(u.Path, "/api/"):
		return ClassAPI
	case strings.HasPrefix(u.Path, "/static/"):
		return ClassStatic
	default:
		return ClassPage
	}
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
