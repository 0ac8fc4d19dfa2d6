package wikigraph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// An IndexEntry is one article line of a multistream index:
// stream offset, page id, and title.
type IndexEntry struct {
	StreamOffset int64
	PageID       uint64
	Title        string
}

func (i IndexEntry) String() string {
	return fmt.Sprintf("%d:%d:%s", i.StreamOffset, i.PageID, i.Title)
}

// An IndexReader reads a wikipedia multistream index.
type IndexReader struct {
	s *bufio.Scanner
	// Old dumps wrote offsets as signed 32-bit numbers.  Offsets only
	// ever grow, so a decrease means they wrapped.
	base int64
	prev int64
}

// NewIndexReader gets a wikipedia index reader.
func NewIndexReader(r io.Reader) *IndexReader {
	return &IndexReader{s: bufio.NewScanner(r)}
}

// Next gets the next entry from the index, or io.EOF at the end.
func (ir *IndexReader) Next() (IndexEntry, error) {
	if !ir.s.Scan() {
		if err := ir.s.Err(); err != nil {
			return IndexEntry{}, err
		}
		return IndexEntry{}, io.EOF
	}
	line := ir.s.Text()
	offs, rest, ok := strings.Cut(line, ":")
	id, title, ok2 := strings.Cut(rest, ":")
	if !ok || !ok2 {
		return IndexEntry{}, errors.Errorf("bad index line %q", line)
	}
	offset, err := strconv.ParseInt(offs, 10, 64)
	if err != nil {
		return IndexEntry{}, errors.Wrapf(err, "bad index offset in %q", line)
	}
	pageID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return IndexEntry{}, errors.Wrapf(err, "bad page id in %q", line)
	}

	if offset < ir.prev {
		ir.base += 1 << 32
	}
	ir.prev = offset
	return IndexEntry{StreamOffset: ir.base + offset, PageID: pageID, Title: title}, nil
}

// An IndexSummaryReader collapses an index into one (offset, count)
// pair per compressed stream.
type IndexSummaryReader struct {
	index  *IndexReader
	offset int64
	count  int
}

// NewIndexSummaryReader gets an IndexSummaryReader over the given
// index lines.
func NewIndexSummaryReader(r io.Reader) (*IndexSummaryReader, error) {
	isr := &IndexSummaryReader{index: NewIndexReader(r)}
	first, err := isr.index.Next()
	if err != nil {
		return nil, err
	}
	isr.offset = first.StreamOffset
	isr.count = 1
	return isr, nil
}

// Next gets the offset and page count of the next stream.
//
// The last stream is returned along with io.EOF; calls after that
// return a zero offset and count.
func (isr *IndexSummaryReader) Next() (offset int64, count int, err error) {
	for {
		e, err := isr.index.Next()
		if err != nil {
			offset, count = isr.offset, isr.count
			isr.offset, isr.count = 0, 0
			return offset, count, err
		}
		if e.StreamOffset != isr.offset {
			offset, count = isr.offset, isr.count
			isr.offset, isr.count = e.StreamOffset, 1
			return offset, count, nil
		}
		isr.count++
	}
}
