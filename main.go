package main

import (
	"context"

	"github.com/chrisvdg/trainerproxy/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	c := server.DefaultConfig()

	configFile := pflag.StringP("config", "f", "", "yaml config file")
	listAddr := pflag.StringP("listenaddr", "l", c.ListenAddr, "http listen address")
	tlsListAddr := pflag.StringP("tlsaddr", "t", c.TLSListenAddr, "https listen address")
	tlsKey := pflag.StringP("tlskey", "k", "", "TLS private key file path")
	tlsCert := pflag.StringP("tlscert", "c", "", "TLS certificate file path")
	tlsOnly := pflag.BoolP("tlsonly", "s", false, "Only serve TLS")
	verbose := pflag.BoolP("verbose", "v", false, "Verbose output")
	target := pflag.StringP("target", "p", c.ProxyTarget, "Number Trainer backend URL")
	origin := pflag.StringP("origin", "o", c.Worker.Origin, "public origin controlled by the worker")
	version := pflag.String("cache-version", c.Worker.Version, "version tag of the cache generations")
	backend := pflag.StringP("backend", "b", c.Backend, "cache storage: memory or leveldb")
	cacheDir := pflag.StringP("cachedir", "d", c.CacheDir, "leveldb cache directory")
	fetchTimeout := pflag.Duration("fetch-timeout", c.FetchTimeout, "timeout of a single backend request, 0 for none")
	allowCrossOrigin := pflag.Bool("allow-cross-origin", c.AllowCrossOrigin, "forward absolute-form requests for other origins")
	pflag.Parse()

	if *configFile != "" {
		if err := c.LoadFile(*configFile); err != nil {
			log.Fatal(err)
		}
	}
	if c.TLS == nil {
		c.TLS = &server.TLSConfig{}
	}

	// flags given on the command line override the config file
	flags := pflag.CommandLine
	if flags.Changed("listenaddr") {
		c.ListenAddr = *listAddr
	}
	if flags.Changed("tlsaddr") {
		c.TLSListenAddr = *tlsListAddr
	}
	if flags.Changed("tlskey") {
		c.TLS.KeyFile = *tlsKey
	}
	if flags.Changed("tlscert") {
		c.TLS.CertFile = *tlsCert
	}
	if flags.Changed("tlsonly") {
		c.TLSOnly = *tlsOnly
	}
	if flags.Changed("verbose") {
		c.Verbose = *verbose
	}
	if flags.Changed("target") {
		c.ProxyTarget = *target
	}
	if flags.Changed("origin") {
		c.Worker.Origin = *origin
	}
	if flags.Changed("cache-version") {
		c.Worker.Version = *version
	}
	if flags.Changed("backend") {
		c.Backend = *backend
	}
	if flags.Changed("cachedir") {
		c.CacheDir = *cacheDir
	}
	if flags.Changed("fetch-timeout") {
		c.FetchTimeout = *fetchTimeout
	}
	if flags.Changed("allow-cross-origin") {
		c.AllowCrossOrigin = *allowCrossOrigin
	}

	if c.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	s, err := server.New(c)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	if err := s.Install(context.Background()); err != nil {
		log.Errorf("worker %s not installed, forwarding requests uncached: %s", c.Worker.Version, err)
	}

	s.ListenAndServe()
}
