package main

import (
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dustin/go-wikigraph/search"
	"github.com/dustin/go-wikigraph/store"
)

func (a *app) publishCommand() *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Send the planned titles and offsets to ElasticSearch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			sc, ok := st.(store.Scanner)
			if !ok {
				return errors.Errorf("the %s store can't be scanned", a.cfg.Store.Backend)
			}

			p := newProgress(a.logger)
			n, err := search.Publish(ctx, sc, search.Options{
				URL:       a.cfg.Search.URL,
				Index:     a.cfg.Search.Index,
				BatchSize: batch,
				Logger:    a.logger,
			})
			if err != nil {
				return err
			}
			p.done("Published " + humanize.Comma(n) + " titles to " + a.cfg.Search.URL)
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 1000, "documents per bulk request")
	return cmd
}
