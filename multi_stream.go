package wikigraph

import (
	"compress/bzip2"
	"encoding/xml"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// A chunk is one compressed stream of a multistream dump.  Its result
// channel receives the decoded pages exactly once.
type chunk struct {
	offset int64
	count  int
	result chan chunkResult
}

type chunkResult struct {
	pages []*Page
	err   error
}

// multiStreamParser decodes streams in parallel but hands pages out
// in dump order: chunks are queued in index order and each one is
// awaited in turn.
type multiStreamParser struct {
	siteInfo SiteInfo

	work    chan *chunk
	ordered chan *chunk
	entries chan *Page
	done    chan struct{}

	mu  sync.Mutex
	err error
}

func (p *multiStreamParser) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *multiStreamParser) indexWorker(indexfn string) {
	defer close(p.work)
	defer close(p.ordered)

	r, err := OpenDump(indexfn)
	if err != nil {
		p.fail(err)
		return
	}
	defer r.Close()

	isr, err := NewIndexSummaryReader(r)
	if err != nil {
		p.fail(errors.Wrap(err, "reading index summary"))
		return
	}
	for {
		offset, count, err := isr.Next()
		if err != nil && err != io.EOF {
			p.fail(errors.Wrap(err, "reading index"))
			return
		}
		c := &chunk{offset: offset, count: count, result: make(chan chunkResult, 1)}
		select {
		case p.ordered <- c:
		case <-p.done:
			return
		}
		select {
		case p.work <- c:
		case <-p.done:
			return
		}
		if err == io.EOF {
			return
		}
	}
}

func (p *multiStreamParser) streamWorker(datafn string, wg *sync.WaitGroup) {
	defer wg.Done()

	r, err := os.Open(datafn)
	if err != nil {
		// Keep answering chunks so the emitter never waits forever.
		for c := range p.work {
			c.result <- chunkResult{err: err}
		}
		return
	}
	defer r.Close()

	for c := range p.work {
		c.result <- decodeChunk(r, c)
	}
}

func decodeChunk(r io.ReadSeeker, c *chunk) chunkResult {
	if _, err := r.Seek(c.offset, io.SeekStart); err != nil {
		return chunkResult{err: errors.Wrapf(err, "seeking to stream at %d", c.offset)}
	}
	d := xml.NewDecoder(bzip2.NewReader(r))

	pages := make([]*Page, 0, c.count)
	for i := 0; i < c.count; i++ {
		page := new(Page)
		err := d.Decode(page)
		if err == io.EOF {
			break
		}
		if err != nil {
			return chunkResult{err: errors.Wrapf(err, "decoding stream at %d", c.offset)}
		}
		pages = append(pages, page)
	}
	return chunkResult{pages: pages}
}

// emit forwards pages chunk by chunk in index order.
func (p *multiStreamParser) emit() {
	defer close(p.entries)
	for c := range p.ordered {
		var res chunkResult
		select {
		case res = <-c.result:
		case <-p.done:
			return
		}
		if res.err != nil {
			p.fail(res.err)
			return
		}
		for _, page := range res.pages {
			select {
			case p.entries <- page:
			case <-p.done:
				return
			}
		}
	}
}

// NewIndexedParser gets a parser over a multistream dump and its
// index.  Streams are decompressed by numWorkers goroutines, but
// pages are returned in the same order as a sequential read.
//
// Close releases the workers if the parser isn't read to the end.
func NewIndexedParser(indexfn, datafn string, numWorkers int) (*IndexedParser, error) {
	r, err := OpenDump(datafn)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	d := xml.NewDecoder(r)
	_, err = d.Token()
	if err != nil {
		return nil, err
	}

	si := SiteInfo{}
	err = d.Decode(&si)
	if err != nil {
		return nil, err
	}

	if numWorkers < 1 {
		numWorkers = 1
	}
	p := &multiStreamParser{
		siteInfo: si,
		work:     make(chan *chunk, numWorkers),
		ordered:  make(chan *chunk, 4*numWorkers),
		entries:  make(chan *Page, 1000),
		done:     make(chan struct{}),
	}

	wg := &sync.WaitGroup{}
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.streamWorker(datafn, wg)
	}
	go p.indexWorker(indexfn)
	go p.emit()

	return &IndexedParser{p: p, wg: wg}, nil
}

// An IndexedParser reads a multistream dump.
type IndexedParser struct {
	p    *multiStreamParser
	wg   *sync.WaitGroup
	once sync.Once
}

// Next gets the next page in dump order.
func (ip *IndexedParser) Next() (*Page, error) {
	page, ok := <-ip.p.entries
	if !ok {
		ip.p.mu.Lock()
		defer ip.p.mu.Unlock()
		if ip.p.err != nil {
			return nil, ip.p.err
		}
		return nil, io.EOF
	}
	return page, nil
}

func (ip *IndexedParser) SiteInfo() SiteInfo {
	return ip.p.siteInfo
}

// Close stops the workers and waits for them to exit.
func (ip *IndexedParser) Close() error {
	ip.once.Do(func() {
		close(ip.p.done)
		// Unblock any worker still waiting to be handed work.
		for range ip.p.work {
		}
		ip.wg.Wait()
	})
	return nil
}
