// Package search publishes the title -> node table of a planned graph
// to ElasticSearch, so titles can be looked up by prefix or fuzzily
// before walking the graph.
package search

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-elasticsearch"
	"github.com/dustin/go-humanize"

	"github.com/dustin/go-wikigraph/store"
)

// Options for Publish.
type Options struct {
	URL   string
	Index string
	// Documents per bulk request.  Zero means 1,000.
	BatchSize int
	Logger    *log.Logger
}

// bulk is the part of the bulk loader Publish drives.
type bulk struct {
	update func(*elasticsearch.UpdateInstruction)
	send   func()
	quit   func()
}

// Body is the document stored for one node.
func Body(e store.LookupEntry) map[string]interface{} {
	return map[string]interface{}{
		"title":  e.Title,
		"offset": e.Offset,
		"length": e.Length,
		"links":  (e.Length - 16) / 4,
	}
}

// Document builds the update instruction for one node.
func Document(index string, e store.LookupEntry) *elasticsearch.UpdateInstruction {
	return &elasticsearch.UpdateInstruction{
		Id:    e.Title,
		Index: index,
		Type:  "node",
		Body:  Body(e),
	}
}

// Publish sends every lookup entry in st to the index at opts.URL,
// returning how many were sent.
func Publish(ctx context.Context, st store.Scanner, opts Options) (int64, error) {
	es := elasticsearch.ElasticSearch{URL: opts.URL}
	bl := es.Bulk()
	return publish(ctx, st, bulk{
		update: func(ui *elasticsearch.UpdateInstruction) { bl.Update(ui) },
		send:   func() { bl.SendBatch() },
		quit:   func() { bl.Quit() },
	}, opts)
}

func publish(ctx context.Context, st store.Scanner, b bulk, opts Options) (int64, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	defer b.quit()

	docs := int64(0)
	prev := time.Now()
	err := st.EachLookup(ctx, func(e store.LookupEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.update(Document(opts.Index, e))
		docs++
		if docs%int64(opts.BatchSize) == 0 {
			b.send()
			now := time.Now()
			opts.Logger.Infof("Published %s titles total (%.2f/s)",
				humanize.Comma(docs), float64(opts.BatchSize)/now.Sub(prev).Seconds())
			prev = now
		}
		return nil
	})
	if err != nil {
		return docs, err
	}
	b.send()
	return docs, nil
}
