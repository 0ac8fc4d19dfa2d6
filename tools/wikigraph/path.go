package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dustin/go-wikigraph"
)

func (a *app) pathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Print the shortest chain of links between two articles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			rd, mem, err := a.preload(ctx, st)
			if err != nil {
				return err
			}

			res := wikigraph.NewResolver(rd)
			var ends [2]uint32
			for i, title := range args {
				offset, ok, err := res.Resolve(ctx, title)
				if err != nil {
					return err
				}
				if !ok {
					return errors.Errorf("no article %q in the graph", title)
				}
				ends[i] = offset
			}

			f, err := os.Open(a.cfg.Paths.Graph)
			if err != nil {
				return err
			}
			defer f.Close()
			fi, err := f.Stat()
			if err != nil {
				return err
			}
			g, err := wikigraph.OpenGraph(f, fi.Size())
			if err != nil {
				return errors.Wrapf(err, "opening %s", a.cfg.Paths.Graph)
			}

			path, err := wikigraph.ShortestPath(g, ends[0], ends[1])
			if err != nil {
				return err
			}
			if path == nil {
				return errors.Errorf("no path from %q to %q", args[0], args[1])
			}

			var titles map[uint32]string
			if mem != nil {
				titles = mem.Titles()
			}
			out := cmd.OutOrStdout()
			for i, offset := range path {
				name, ok := titles[offset]
				if !ok {
					name = fmt.Sprintf("@%d", offset)
				}
				fmt.Fprintf(out, "%d\t%s\n", i, name)
			}
			return nil
		},
	}
}
