package server

import (
	"os"
	"time"

	"github.com/chrisvdg/trainerproxy/worker"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// BackendMemory keeps cache generations in memory
	BackendMemory = "memory"
	// BackendLevelDB persists cache generations in a leveldb database
	BackendLevelDB = "leveldb"
)

// Config represents a server config
type Config struct {
	ListenAddr    string     `yaml:"listenAddr"`
	TLSListenAddr string     `yaml:"tlsListenAddr"`
	TLSOnly       bool       `yaml:"tlsOnly"`
	TLS           *TLSConfig `yaml:"tls"`
	Verbose       bool       `yaml:"verbose"`

	// Backend selects the cache storage, memory or leveldb
	Backend string `yaml:"backend"`

	// CacheDir is the leveldb directory
	CacheDir string `yaml:"cacheDir"`

	// ProxyTarget is the base URL of the Number Trainer backend
	ProxyTarget string `yaml:"proxyTarget"`

	// FetchTimeout bounds a single backend request, zero means no timeout
	FetchTimeout time.Duration `yaml:"fetchTimeout"`

	// AllowCrossOrigin forwards absolute-form requests for other origins.
	// When false they are refused with 403.
	AllowCrossOrigin bool `yaml:"allowCrossOrigin"`

	Worker worker.Config `yaml:"worker"`
}

// TLSConfig represents a TLS configuration
type TLSConfig struct {
	KeyFile  string `yaml:"keyFile"`
	CertFile string `yaml:"certFile"`
}

// DefaultConfig returns a config with every default filled in
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:    ":8080",
		TLSListenAddr: ":8443",
		TLS:           &TLSConfig{},
		Backend:       BackendMemory,
		CacheDir:      "./data/cache",
		ProxyTarget:   "http://localhost:8000",
		Worker:        worker.DefaultConfig(),
	}
}

// LoadFile reads a yaml config file on top of c
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}
	err = yaml.Unmarshal(data, c)
	if err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}

	return nil
}

func (c *Config) validate() error {
	if c.ProxyTarget == "" {
		return errors.New("no proxy target provided")
	}
	if c.TLS == nil {
		c.TLS = &TLSConfig{}
	}
	switch c.Backend {
	case BackendMemory, BackendLevelDB:
	default:
		return errors.Errorf("backend %q not supported", c.Backend)
	}

	return nil
}
