// Package config loads the settings shared by the wikigraph commands.
//
// Settings come from built-in defaults, then an optional TOML file,
// then whatever flags the command line sets.
//
//	[paths]
//	dump  = "enwiki-latest-pages-articles-multistream.xml.bz2"
//	index = "enwiki-latest-pages-articles-multistream-index.txt.bz2"
//	spool = "wikigraph.spool"
//	graph = "wikigraph.bin"
//
//	[store]
//	backend = "sqlite"
//	dsn     = "wikigraph.db"
//
//	[compile]
//	workers  = 8
//	dangling = "sentinel"
package config

import (
	"runtime"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/dustin/go-wikigraph"
	"github.com/dustin/go-wikigraph/store"
)

// Paths of the files a build reads and writes.
type Paths struct {
	Dump  string `toml:"dump"`
	Index string `toml:"index"`
	Spool string `toml:"spool"`
	Graph string `toml:"graph"`
}

// Store selects the lookup/redirect store.
type Store struct {
	Backend  string `toml:"backend"`
	DSN      string `toml:"dsn"`
	Database string `toml:"database"`
	Bucket   string `toml:"bucket"`
}

// Compile tunes the second pass.
type Compile struct {
	Version    uint32 `toml:"version"`
	Workers    int    `toml:"workers"`
	Batch      int    `toml:"batch"`
	Dangling   string `toml:"dangling"`
	FlushEvery int    `toml:"flush_every"`
}

// Search addresses the index titles are published to.
type Search struct {
	URL   string `toml:"url"`
	Index string `toml:"index"`
}

// Config is the whole configuration file.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Store   Store   `toml:"store"`
	Compile Compile `toml:"compile"`
	Search  Search  `toml:"search"`
}

// Default gets the configuration used when no file is given.
func Default() Config {
	return Config{
		Paths: Paths{
			Spool: "wikigraph.spool",
			Graph: "wikigraph.bin",
		},
		Store: Store{
			Backend:  "sqlite",
			DSN:      "wikigraph.db",
			Database: "wikigraph",
			Bucket:   "wikigraph",
		},
		Compile: Compile{
			Version:    wikigraph.FormatVersion,
			Workers:    runtime.GOMAXPROCS(0),
			Batch:      4096,
			Dangling:   wikigraph.DanglingSentinel.String(),
			FlushEvery: 10000,
		},
		Search: Search{
			URL:   "http://localhost:9200",
			Index: "wikigraph",
		},
	}
}

// Load reads path over the defaults.  An empty path gets the
// defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return cfg, errors.Errorf("unknown config key %q in %s", undec[0].String(), path)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that can't work.
func (c Config) Validate() error {
	if !slices.Contains(store.Backends, c.Store.Backend) {
		return errors.Errorf("store.backend %q is not one of %v", c.Store.Backend, store.Backends)
	}
	if _, err := wikigraph.ParseDanglingPolicy(c.Compile.Dangling); err != nil {
		return errors.Wrap(err, "compile.dangling")
	}
	if c.Compile.Workers < 1 {
		return errors.Errorf("compile.workers must be positive, got %d", c.Compile.Workers)
	}
	if c.Compile.Batch < 1 {
		return errors.Errorf("compile.batch must be positive, got %d", c.Compile.Batch)
	}
	if c.Compile.Version == 0 {
		return errors.New("compile.version must not be zero")
	}
	return nil
}

// StoreConfig gets the store settings in the form store.Open takes.
func (c Config) StoreConfig() store.Config {
	return store.Config{
		Backend:  c.Store.Backend,
		DSN:      c.Store.DSN,
		Database: c.Store.Database,
		Bucket:   c.Store.Bucket,
	}
}

// CompileOptions gets the compile settings in the form
// wikigraph.Compile takes.  Validate must have passed.
func (c Config) CompileOptions() wikigraph.CompileOptions {
	policy, _ := wikigraph.ParseDanglingPolicy(c.Compile.Dangling)
	return wikigraph.CompileOptions{
		Version:    c.Compile.Version,
		Workers:    c.Compile.Workers,
		BatchSize:  c.Compile.Batch,
		Dangling:   policy,
		FlushEvery: c.Compile.FlushEvery,
	}
}
