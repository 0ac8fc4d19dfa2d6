package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dustin/go-wikigraph"
)

func (a *app) indexCommand() *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "index [file]",
		Short: "Print a multistream index with corrected offsets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn := a.cfg.Paths.Index
			if len(args) > 0 {
				fn = args[0]
			}
			if fn == "" {
				return errors.New("no index given")
			}
			r, err := wikigraph.OpenDump(fn)
			if err != nil {
				return err
			}
			defer r.Close()

			w := bufio.NewWriter(cmd.OutOrStdout())
			if summary {
				err = printSummary(w, r)
			} else {
				err = printIndex(w, r)
			}
			if err != nil {
				return err
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print one offset and page count per stream")
	return cmd
}

func printIndex(w io.Writer, r io.Reader) error {
	ir := wikigraph.NewIndexReader(r)
	for {
		e, err := ir.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, e); err != nil {
			return err
		}
	}
}

func printSummary(w io.Writer, r io.Reader) error {
	isr, err := wikigraph.NewIndexSummaryReader(r)
	if err != nil {
		return err
	}
	for {
		offset, count, err := isr.Next()
		if err != nil && err != io.EOF {
			return err
		}
		if count > 0 {
			if _, werr := fmt.Fprintf(w, "%d\t%d\n", offset, count); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}
