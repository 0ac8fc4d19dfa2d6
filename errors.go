package wikigraph

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedSpool is returned when a spool line can't be parsed.
	ErrMalformedSpool = errors.New("malformed spool record")

	// ErrOffsetOverflow is returned when the graph would grow past
	// what a 32-bit offset can address.
	ErrOffsetOverflow = errors.New("graph exceeds 32-bit offsets")

	// ErrNodeCountMismatch is returned when the spool holds a
	// different number of nodes than the file header declares.
	ErrNodeCountMismatch = errors.New("node count mismatch")

	// ErrInvalidGraph is returned when reading a file that isn't a
	// graph of a supported version.
	ErrInvalidGraph = errors.New("invalid graph file")

	// ErrInvalidOffset is returned when reading a node at an offset
	// that can't hold one.
	ErrInvalidOffset = errors.New("invalid node offset")
)

// An OffsetMismatchError means the planned offset of a spool record
// isn't where the compiler is about to write it.  The output is
// unusable and planning has to be rerun.
type OffsetMismatchError struct {
	Line     int
	Expected uint32
	Actual   uint64
}

func (e *OffsetMismatchError) Error() string {
	return fmt.Sprintf("byte offset mismatch on spool line %d: planned %d, writing at %d",
		e.Line, e.Expected, e.Actual)
}

// A DanglingReferenceError reports a link that resolves to no node,
// when dangling links are configured to be fatal.
type DanglingReferenceError struct {
	Line   int
	Target string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling link %q on spool line %d", e.Target, e.Line)
}
