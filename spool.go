package wikigraph

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A SpoolRecord is one planned node: where it goes and what it links
// to, in order.
type SpoolRecord struct {
	Offset uint32
	Links  []string
}

func (r SpoolRecord) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(r.Offset), 10))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(len(r.Links)))
	for _, l := range r.Links {
		b.WriteByte('|')
		b.WriteString(l)
	}
	return b.String()
}

// A SpoolWriter appends records to the adjacency spool.
type SpoolWriter struct {
	w     *bufio.Writer
	count int
}

// NewSpoolWriter gets a spool writer.  The caller owns w and must
// call Flush (or Close on w after Flush) when done.
func NewSpoolWriter(w io.Writer) *SpoolWriter {
	return &SpoolWriter{w: bufio.NewWriterSize(w, 1<<20)}
}

// Write appends one record as a line.
func (sw *SpoolWriter) Write(r SpoolRecord) error {
	if _, err := sw.w.WriteString(r.String()); err != nil {
		return err
	}
	if err := sw.w.WriteByte('\n'); err != nil {
		return err
	}
	sw.count++
	return nil
}

// Count is the number of records written.
func (sw *SpoolWriter) Count() int {
	return sw.count
}

// Flush writes any buffered records.
func (sw *SpoolWriter) Flush() error {
	return sw.w.Flush()
}

// A SpoolReader replays a spool written by SpoolWriter.
type SpoolReader struct {
	r    *bufio.Scanner
	line int
}

// NewSpoolReader gets a spool reader.
func NewSpoolReader(r io.Reader) *SpoolReader {
	s := bufio.NewScanner(r)
	// Heavily linked articles make for long lines.
	s.Buffer(make([]byte, 0, 1<<16), 64<<20)
	return &SpoolReader{r: s}
}

// Line is the 1-based line number of the last record returned.
func (sr *SpoolReader) Line() int {
	return sr.line
}

// Next gets the next record, or io.EOF at the end of the spool.
func (sr *SpoolReader) Next() (SpoolRecord, error) {
	if !sr.r.Scan() {
		err := sr.r.Err()
		if err == nil {
			err = io.EOF
		}
		return SpoolRecord{}, err
	}
	sr.line++
	return parseSpoolLine(sr.r.Text(), sr.line)
}

func parseSpoolLine(text string, line int) (SpoolRecord, error) {
	parts := strings.Split(text, "|")
	if len(parts) < 2 {
		return SpoolRecord{}, errors.Wrapf(ErrMalformedSpool, "line %d: %q", line, text)
	}
	offset, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return SpoolRecord{}, errors.Wrapf(ErrMalformedSpool, "line %d: offset %q", line, parts[0])
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n != len(parts)-2 {
		return SpoolRecord{}, errors.Wrapf(ErrMalformedSpool,
			"line %d: link count %q with %d links", line, parts[1], len(parts)-2)
	}
	links := parts[2:]
	for _, l := range links {
		if l == "" {
			return SpoolRecord{}, errors.Wrapf(ErrMalformedSpool, "line %d: empty link", line)
		}
	}
	return SpoolRecord{Offset: uint32(offset), Links: links}, nil
}
