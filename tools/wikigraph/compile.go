package main

import (
	"context"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dustin/go-wikigraph"
	"github.com/dustin/go-wikigraph/store"
)

func (a *app) compileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "Resolve the spool's links and write the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Store.Backend == "memory" {
				return errors.New("the memory store doesn't outlive plan; use build")
			}
			m, err := wikigraph.ReadPlanManifest(wikigraph.ManifestPath(a.cfg.Paths.Spool))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			return a.compile(ctx, st, m)
		},
	}
}

func (a *app) buildCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Plan and compile in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			m, err := a.plan(ctx, st, force)
			if err != nil {
				return err
			}
			return a.compile(ctx, st, m)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "plan into a store that already holds entries")
	return cmd
}

func (a *app) compile(ctx context.Context, st store.Store, m wikigraph.PlanManifest) error {
	if m.Nodes > math.MaxUint32 {
		return errors.Wrapf(wikigraph.ErrOffsetOverflow, "%d nodes", m.Nodes)
	}
	rd, _, err := a.preload(ctx, st)
	if err != nil {
		return err
	}

	opts := a.cfg.CompileOptions()
	opts.NodeCount = uint32(m.Nodes)
	opts.Logger = a.logger

	p := newProgress(a.logger)
	rv, err := wikigraph.CompileFile(ctx, a.cfg.Paths.Spool, a.cfg.Paths.Graph, wikigraph.NewResolver(rd), opts)
	if err != nil {
		return err
	}
	p.done("Compiled " + plural(int(rv.Nodes), "node") + " into " + a.cfg.Paths.Graph)

	if rv.Dangling > 0 {
		a.logger.Warn("Dangling links written as offset 0",
			"links", humanize.Comma(rv.Dangling),
			"nodes", humanize.Comma(int64(rv.DanglingNodes.GetCardinality())))
	}
	a.logger.Info("Compiled",
		"links", humanize.Comma(rv.Links),
		"size", humanize.IBytes(rv.Bytes),
		"plan", m.RunID)

	gm := wikigraph.NewGraphManifest(m, opts.Version, rv)
	return wikigraph.WriteManifest(wikigraph.ManifestPath(a.cfg.Paths.Graph), gm)
}

func plural(n int, what string) string {
	if n == 1 {
		return "1 " + what
	}
	return humanize.Comma(int64(n)) + " " + what + "s"
}
