package wikigraph

import (
	"context"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/dustin/go-wikigraph/store"
)

// Title fragments of pages that never become nodes.
var ignoredTitleFragments = []string{
	"Template:",
	"Wikipedia:",
	"File:",
	"WP:",
	"User:",
	"Help:",
	"Draft:",
	"MOS:",
	"Module:",
	"module:",
	"MediaWiki:",
	"mediawiki:",
	"main page/",
	"(disambiguation)",
}

// skipPage reports whether a page is left out of the graph entirely.
func skipPage(r PageRecord) bool {
	if r.Title == "" || r.Body == "" || len(r.Title) > 255 || len(r.Title) == 1 {
		return true
	}
	for _, frag := range ignoredTitleFragments {
		if strings.Contains(r.Title, frag) {
			return true
		}
	}
	return strings.Contains(r.Body, "{{disambiguation}}") ||
		strings.Contains(r.Body, "{{disambig")
}

// PlanOptions tune Plan.
type PlanOptions struct {
	Logger *log.Logger
	// Log progress every this many pages.  Zero means 100,000.
	ReportEvery int64
}

// PlanResult summarizes a planning pass.
type PlanResult struct {
	Pages      int64
	Nodes      int64
	Links      int64
	Redirects  int64
	Filtered   int64
	Linkless   int64
	Duplicates int64
	// Cursor is the offset just past the last planned node, i.e. the
	// size the compiled graph will have.
	Cursor uint64
}

// Plan is the first pass.  It reads every page from src, records
// where each article's node will sit in the graph file, and spools
// the article's links for Compile.
//
// Node placement is a running sum of node lengths, so pages are
// handled strictly one at a time in stream order.  A title that
// sanitizes to an already planned key is skipped without moving the
// cursor.  Any store failure other than a duplicate key is fatal.
func Plan(ctx context.Context, src PageSource, st store.Writer, spool *SpoolWriter, opts PlanOptions) (PlanResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	reportfreq := opts.ReportEvery
	if reportfreq <= 0 {
		reportfreq = 100000
	}

	rv := PlanResult{Cursor: FileHeaderSize}
	start := time.Now()
	prev := start
	for {
		if err := ctx.Err(); err != nil {
			return rv, err
		}
		page, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rv, errors.Wrapf(err, "reading page stream after %d pages", rv.Pages)
		}
		rv.Pages++
		if rv.Pages%reportfreq == 0 {
			now := time.Now()
			logger.Infof("Processed %s pages total (%.2f/s), %s nodes planned",
				humanize.Comma(rv.Pages), float64(reportfreq)/now.Sub(prev).Seconds(),
				humanize.Comma(rv.Nodes))
			prev = now
		}

		rec := page.Record()
		key := Sanitize(rec.Title)
		if skipPage(rec) || key == "" {
			rv.Filtered++
			continue
		}

		links := FindLinks(rec.Body)
		if len(links) == 0 {
			rv.Linkless++
			continue
		}

		if rec.Redirect {
			err := st.PutRedirect(ctx, store.RedirectEntry{From: key, To: links[0]})
			switch {
			case err == nil:
				rv.Redirects++
			case errors.Is(err, store.ErrDuplicateKey):
				rv.Duplicates++
			default:
				return rv, errors.Wrapf(err, "storing redirect %q", rec.Title)
			}
			continue
		}

		if err := planNode(ctx, &rv, key, links, st, spool, logger); err != nil {
			return rv, errors.Wrapf(err, "planning %q", rec.Title)
		}
	}

	if err := spool.Flush(); err != nil {
		return rv, errors.Wrap(err, "flushing spool")
	}
	logger.Infof("Planned %s nodes from %s pages in %v",
		humanize.Comma(rv.Nodes), humanize.Comma(rv.Pages), time.Since(start).Round(time.Millisecond))
	return rv, nil
}

// planNode places one article at the cursor.  The lookup insert,
// spool record, and cursor advance happen together or not at all.
func planNode(ctx context.Context, rv *PlanResult, key string, links []string,
	st store.Writer, spool *SpoolWriter, logger *log.Logger) error {

	length := NodeLength(len(links))
	if rv.Cursor > math.MaxUint32 || length > math.MaxUint32 {
		return errors.Wrapf(ErrOffsetOverflow, "cursor at %d", rv.Cursor)
	}
	offset := uint32(rv.Cursor)

	err := st.PutLookup(ctx, store.LookupEntry{Title: key, Offset: offset, Length: uint32(length)})
	if errors.Is(err, store.ErrDuplicateKey) {
		logger.Debug("duplicate title", "key", key)
		rv.Duplicates++
		return nil
	}
	if err != nil {
		return err
	}

	if err := spool.Write(SpoolRecord{Offset: offset, Links: links}); err != nil {
		return errors.Wrap(err, "writing spool")
	}
	rv.Cursor += length
	rv.Nodes++
	rv.Links += int64(len(links))
	return nil
}
