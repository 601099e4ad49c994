package worker

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Config represents a worker config
type Config struct {
	// Origin is the origin controlled by the worker, e.g. http://localhost:8080
	Origin string `yaml:"origin"`

	// Prefix is shared by every cache generation of the application
	Prefix string `yaml:"prefix"`

	// Version tags the cache generations owned by this worker
	Version string `yaml:"version"`

	// Manifest lists the assets that must be cached for install to succeed
	Manifest []string `yaml:"manifest"`

	// Prewarm lists API URLs cached on a best effort basis during install
	Prewarm []string `yaml:"prewarm"`

	// HealthPath is the API path answered with an offline status when unreachable
	HealthPath string `yaml:"healthPath"`

	// SkipWaiting activates the worker as soon as install succeeds
	SkipWaiting bool `yaml:"skipWaiting"`

	// RevalidateTimeout bounds background page revalidation
	RevalidateTimeout time.Duration `yaml:"revalidateTimeout"`
}

// DefaultConfig returns the Number Trainer worker config
func DefaultConfig() Config {
	return Config{
		Origin:  "http://localhost:8080",
		Prefix:  "number-trainer-",
		Version: "v1.0.0",
		Manifest: []string{
			"/",
			"/static/css/style.css",
			"/static/js/app.js",
			"/static/icons/math_training_icon.svg",
			"/static/icons/icon-72.png",
			"/static/icons/icon-96.png",
			"/static/icons/icon-128.png",
			"/static/icons/icon-144.png",
			"/static/icons/icon-152.png",
			"/static/icons/icon-192.png",
			"/static/icons/icon-384.png",
			"/static/icons/icon-512.png",
			"/static/manifest.json",
		},
		Prewarm:           []string{"/api/health"},
		HealthPath:        "/api/health",
		SkipWaiting:       true,
		RevalidateTimeout: 30 * time.Second,
	}
}

// StaticCacheName returns the name of the static generation
func (c Config) StaticCacheName() string {
	return c.Prefix + "static-" + c.Version
}

// APICacheName returns the name of the API generation
func (c Config) APICacheName() string {
	return c.Prefix + "api-" + c.Version
}

// WithVersion returns a copy of the config tagged with another version
func (c Config) WithVersion(version string) Config {
	c.Version = version
	c.Manifest = append([]string(nil), c.Manifest...)
	c.Prewarm = append([]string(nil), c.Prewarm...)
	return c
}

func (c Config) validate() (*url.URL, error) {
	if c.Prefix == "" {
		return nil, errors.New("cache prefix is empty")
	}
	if c.Version == "" {
		return nil, errors.New("worker version is empty")
	}
	origin, err := url.Parse(c.Origin)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse worker origin")
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, errors.Errorf("worker origin %q is not absolute", c.Origin)
	}

	return origin, nil
}
