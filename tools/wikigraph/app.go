package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dustin/go-wikigraph/config"
	"github.com/dustin/go-wikigraph/store"
)

// app holds what every command shares once flags are parsed.
type app struct {
	cfgPath string
	verbose bool
	stderr  io.Writer

	cfg    config.Config
	logger *log.Logger
}

func newApp() *app {
	return &app{stderr: os.Stderr}
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "wikigraph",
		Short:             "Compile a wikipedia dump into a binary link graph",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.cfgPath, "config", "c", "", "TOML config file")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	f.String("dump", "", "dump file (.xml or .xml.bz2)")
	f.String("index", "", "multistream index; enables parallel decoding")
	f.String("spool", "", "adjacency spool written by plan")
	f.String("graph", "", "compiled graph file")
	f.String("store", "", "store backend: memory, sqlite, mongo, couchbase, couchdb, redis")
	f.String("dsn", "", "store address")
	f.Int("workers", 0, "concurrent workers")
	f.String("dangling", "", "dangling link policy: sentinel or fatal")

	root.AddCommand(a.planCommand())
	root.AddCommand(a.compileCommand())
	root.AddCommand(a.buildCommand())
	root.AddCommand(a.pathCommand())
	root.AddCommand(a.publishCommand())
	root.AddCommand(a.indexCommand())
	return root
}

// setup loads the config file and lays the flags that were set over it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	a.logger = newLogger(a.stderr, level)

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func applyFlags(f *pflag.FlagSet, cfg *config.Config) {
	for name, dst := range map[string]*string{
		"dump":     &cfg.Paths.Dump,
		"index":    &cfg.Paths.Index,
		"spool":    &cfg.Paths.Spool,
		"graph":    &cfg.Paths.Graph,
		"store":    &cfg.Store.Backend,
		"dsn":      &cfg.Store.DSN,
		"dangling": &cfg.Compile.Dangling,
	} {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	if f.Changed("workers") {
		cfg.Compile.Workers, _ = f.GetInt("workers")
	}
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, a.cfg.StoreConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s store", a.cfg.Store.Backend)
	}
	return st, nil
}

// preload pulls a scannable store into memory.  Other stores are
// returned as they are and queried per lookup.
func (a *app) preload(ctx context.Context, st store.Store) (store.Reader, *store.Memory, error) {
	sc, ok := st.(store.Scanner)
	if !ok {
		a.logger.Warn("store can't be preloaded, resolving links one query at a time",
			"backend", a.cfg.Store.Backend)
		return st, nil, nil
	}
	p := newProgress(a.logger)
	mem, err := store.Preload(ctx, sc)
	if err != nil {
		return nil, nil, err
	}
	lookups, redirects := mem.Len()
	p.done("Preloaded " + plural(lookups, "title") + " and " + plural(redirects, "redirect"))
	return mem, mem, nil
}

// progress logs how long an operation took once it's done.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
