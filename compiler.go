package wikigraph

import (
	"bufio"
	"context"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// A DanglingPolicy says what to do with links that resolve to no node.
type DanglingPolicy int

const (
	// DanglingSentinel writes DanglingOffset and keeps going.
	DanglingSentinel DanglingPolicy = iota
	// DanglingFatal aborts the compile.
	DanglingFatal
)

func (p DanglingPolicy) String() string {
	if p == DanglingFatal {
		return "fatal"
	}
	return "sentinel"
}

// ParseDanglingPolicy parses "sentinel" or "fatal".
func ParseDanglingPolicy(s string) (DanglingPolicy, error) {
	switch s {
	case "sentinel", "":
		return DanglingSentinel, nil
	case "fatal":
		return DanglingFatal, nil
	}
	return 0, errors.Errorf("unknown dangling link policy %q", s)
}

// CompileOptions tune Compile.
type CompileOptions struct {
	Version uint32
	// NodeCount is written into the file header and must match the
	// number of spool records.
	NodeCount uint32
	// Workers resolving links concurrently.  Zero means GOMAXPROCS.
	Workers int
	// Records resolved per batch.  Zero means 4096.
	BatchSize int
	Dangling  DanglingPolicy
	// Flush the output every this many nodes.  Zero means 10,000.
	FlushEvery int
	Logger     *log.Logger
}

func (o *CompileOptions) setDefaults() {
	if o.Version == 0 {
		o.Version = FormatVersion
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 4096
	}
	if o.FlushEvery <= 0 {
		o.FlushEvery = 10000
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// CompileResult summarizes a compile.
type CompileResult struct {
	Nodes    int64
	Links    int64
	Dangling int64
	// DanglingNodes holds the offsets of nodes with at least one
	// dangling link.
	DanglingNodes *roaring.Bitmap
	Bytes         uint64
}

type resolvedNode struct {
	line     int
	rec      SpoolRecord
	offsets  []uint32
	dangling int
	missing  string
}

type compiler struct {
	ctx    context.Context
	res    *Resolver
	w      *bufio.Writer
	opts   CompileOptions
	cursor uint64
	buf    []byte
	rv     CompileResult
	prev   time.Time
}

// Compile is the second pass.  It replays the spool, resolves every
// link, and writes the binary graph to w.
//
// Links of a batch of records are resolved concurrently, then the
// nodes are written strictly in spool order.  Before each node is
// written, its planned offset is checked against the bytes written so
// far; any difference is an *OffsetMismatchError and the output must
// be thrown away.
func Compile(ctx context.Context, sr *SpoolReader, res *Resolver, w io.Writer, opts CompileOptions) (CompileResult, error) {
	opts.setDefaults()
	c := &compiler{
		ctx:  ctx,
		res:  res,
		w:    bufio.NewWriterSize(w, 1<<20),
		opts: opts,
		rv:   CompileResult{DanglingNodes: roaring.New()},
		prev: time.Now(),
	}

	if err := c.write(putWords(c.buf[:0], 0, 0, opts.Version, opts.NodeCount)); err != nil {
		return c.rv, errors.Wrap(err, "writing file header")
	}

	batch := make([]resolvedNode, 0, opts.BatchSize)
	for {
		rec, err := sr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return c.rv, err
		}
		batch = append(batch, resolvedNode{line: sr.Line(), rec: rec})
		if len(batch) == opts.BatchSize {
			if err := c.flushBatch(batch); err != nil {
				return c.rv, err
			}
			batch = batch[:0]
		}
	}
	if err := c.flushBatch(batch); err != nil {
		return c.rv, err
	}
	if err := c.w.Flush(); err != nil {
		return c.rv, err
	}

	if c.rv.Nodes != int64(opts.NodeCount) {
		return c.rv, errors.Wrapf(ErrNodeCountMismatch,
			"header declares %d nodes, spool has %d", opts.NodeCount, c.rv.Nodes)
	}
	c.rv.Bytes = c.cursor
	return c.rv, nil
}

func (c *compiler) write(b []byte) error {
	n, err := c.w.Write(b)
	c.cursor += uint64(n)
	return err
}

// resolveBatch fills in the offsets of every node in batch.
func (c *compiler) resolveBatch(batch []resolvedNode) error {
	g, ctx := errgroup.WithContext(c.ctx)
	g.SetLimit(c.opts.Workers)
	for i := range batch {
		n := &batch[i]
		g.Go(func() error {
			n.offsets = make([]uint32, len(n.rec.Links))
			for j, link := range n.rec.Links {
				offset, ok, err := c.res.ResolveKey(ctx, link)
				if err != nil {
					return errors.Wrapf(err, "spool line %d", n.line)
				}
				if !ok {
					if n.dangling == 0 {
						n.missing = link
					}
					n.dangling++
					offset = DanglingOffset
				}
				n.offsets[j] = offset
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *compiler) flushBatch(batch []resolvedNode) error {
	if len(batch) == 0 {
		return nil
	}
	if err := c.resolveBatch(batch); err != nil {
		return err
	}

	for i := range batch {
		n := &batch[i]
		if c.cursor != uint64(n.rec.Offset) {
			return &OffsetMismatchError{Line: n.line, Expected: n.rec.Offset, Actual: c.cursor}
		}
		if n.dangling > 0 {
			if c.opts.Dangling == DanglingFatal {
				return &DanglingReferenceError{Line: n.line, Target: n.missing}
			}
			c.rv.Dangling += int64(n.dangling)
			c.rv.DanglingNodes.Add(n.rec.Offset)
		}

		c.buf = putWords(c.buf[:0], 0, 0, 0, uint32(len(n.offsets)))
		c.buf = putWords(c.buf, n.offsets...)
		if err := c.write(c.buf); err != nil {
			return errors.Wrapf(err, "writing node at %d", n.rec.Offset)
		}
		c.rv.Nodes++
		c.rv.Links += int64(len(n.offsets))

		if c.rv.Nodes%int64(c.opts.FlushEvery) == 0 {
			if err := c.w.Flush(); err != nil {
				return err
			}
			now := time.Now()
			c.opts.Logger.Infof("Compiled %s nodes (%.2f/s)",
				humanize.Comma(c.rv.Nodes), float64(c.opts.FlushEvery)/now.Sub(c.prev).Seconds())
			c.prev = now
		}
	}
	return nil
}

// CompileFile compiles the spool at spoolPath into graphPath.
//
// The graph is written to a temporary file that replaces graphPath
// only once compilation succeeds; on failure it is removed, so a
// failed compile never leaves a graph behind.
func CompileFile(ctx context.Context, spoolPath, graphPath string, res *Resolver, opts CompileOptions) (rv CompileResult, err error) {
	in, err := os.Open(spoolPath)
	if err != nil {
		return rv, err
	}
	defer in.Close()

	tmp := graphPath + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return rv, err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmp)
		}
	}()

	rv, err = Compile(ctx, NewSpoolReader(in), res, out, opts)
	if err != nil {
		return rv, err
	}
	if err = out.Sync(); err != nil {
		return rv, err
	}
	if err = out.Close(); err != nil {
		return rv, err
	}
	err = os.Rename(tmp, graphPath)
	return rv, err
}
