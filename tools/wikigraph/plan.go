package main

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dustin/go-wikigraph"
	"github.com/dustin/go-wikigraph/store"
)

var errStop = errors.New("stop")

func (a *app) planCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Read the dump, place every article, and write the spool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			_, err = a.plan(ctx, st, force)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "plan into a store that already holds entries")
	return cmd
}

// populated says whether st already holds a lookup entry.  Planning
// into such a store only finds duplicates.
func populated(ctx context.Context, st store.Store) (bool, error) {
	sc, ok := st.(store.Scanner)
	if !ok {
		return false, nil
	}
	err := sc.EachLookup(ctx, func(store.LookupEntry) error { return errStop })
	if errors.Is(err, errStop) {
		return true, nil
	}
	return false, err
}

func (a *app) pageSource() (wikigraph.PageSource, func() error, error) {
	paths := a.cfg.Paths
	if paths.Dump == "" {
		return nil, nil, errors.New("no dump given (--dump or [paths] dump)")
	}
	if paths.Index != "" {
		p, err := wikigraph.NewIndexedParser(paths.Index, paths.Dump, a.cfg.Compile.Workers)
		if err != nil {
			return nil, nil, errors.Wrap(err, "initializing multistream parser")
		}
		a.logger.Info("Got site info", "site", p.SiteInfo().SiteName, "workers", a.cfg.Compile.Workers)
		return p, p.Close, nil
	}

	r, err := wikigraph.OpenDump(paths.Dump)
	if err != nil {
		return nil, nil, err
	}
	p, err := wikigraph.NewParser(r)
	if err != nil {
		r.Close()
		return nil, nil, errors.Wrap(err, "setting up page parser")
	}
	a.logger.Info("Got site info", "site", p.SiteInfo().SiteName)
	return p, r.Close, nil
}

func (a *app) plan(ctx context.Context, st store.Store, force bool) (wikigraph.PlanManifest, error) {
	if !force {
		full, err := populated(ctx, st)
		if err != nil {
			return wikigraph.PlanManifest{}, err
		}
		if full {
			return wikigraph.PlanManifest{}, errors.Errorf(
				"%s store already holds a plan; point it somewhere empty or pass --force", a.cfg.Store.Backend)
		}
	}

	src, closeSrc, err := a.pageSource()
	if err != nil {
		return wikigraph.PlanManifest{}, err
	}
	defer closeSrc()

	f, err := os.Create(a.cfg.Paths.Spool)
	if err != nil {
		return wikigraph.PlanManifest{}, err
	}
	defer f.Close()

	rv, err := wikigraph.Plan(ctx, src, st, wikigraph.NewSpoolWriter(f), wikigraph.PlanOptions{Logger: a.logger})
	if err != nil {
		return wikigraph.PlanManifest{}, err
	}
	if err := f.Close(); err != nil {
		return wikigraph.PlanManifest{}, err
	}

	a.logger.Info("Planned",
		"pages", humanize.Comma(rv.Pages),
		"nodes", humanize.Comma(rv.Nodes),
		"links", humanize.Comma(rv.Links),
		"redirects", humanize.Comma(rv.Redirects),
		"filtered", humanize.Comma(rv.Filtered),
		"linkless", humanize.Comma(rv.Linkless),
		"duplicates", humanize.Comma(rv.Duplicates),
		"size", humanize.IBytes(rv.Cursor))

	m := wikigraph.NewPlanManifest(a.cfg.Paths.Dump, rv)
	if err := wikigraph.WriteManifest(wikigraph.ManifestPath(a.cfg.Paths.Spool), m); err != nil {
		return m, err
	}
	return m, nil
}
