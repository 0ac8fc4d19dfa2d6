package wikigraph

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Binary graph layout.  Every field is a little-endian uint32.
//
//	file header: reserved, reserved, version, node count
//	node header: reserved, reserved, reserved, link count
//	links:       link count absolute offsets of neighbor nodes
//
// Nodes follow the file header back to back, in spool order.
const (
	FileHeaderSize = 16
	NodeHeaderSize = 16
	LinkSize       = 4

	// FormatVersion is written into the file header.
	FormatVersion = 1

	// DanglingOffset is written for links that resolve to no node.
	// It falls inside the file header, so it never names a node.
	DanglingOffset uint32 = 0
)

// NodeLength is the number of bytes a node with n links occupies.
func NodeLength(n int) uint64 {
	return NodeHeaderSize + LinkSize*uint64(n)
}

func putWords(buf []byte, words ...uint32) []byte {
	for _, w := range words {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	return buf
}

// A Header is the decoded file header.
type Header struct {
	Version uint32
	Nodes   uint32
}

// A Graph reads nodes out of a compiled graph file.
type Graph struct {
	r    io.ReaderAt
	size int64
	hdr  Header
}

// OpenGraph validates the header of the size-byte graph in r.
func OpenGraph(r io.ReaderAt, size int64) (*Graph, error) {
	var buf [FileHeaderSize]byte
	if _, err := r.ReadAt(buf[:], 0); err != nil {
		return nil, errors.Wrap(ErrInvalidGraph, err.Error())
	}
	hdr := Header{
		Version: binary.LittleEndian.Uint32(buf[8:]),
		Nodes:   binary.LittleEndian.Uint32(buf[12:]),
	}
	if hdr.Version != FormatVersion {
		return nil, errors.Wrapf(ErrInvalidGraph, "version %d", hdr.Version)
	}
	return &Graph{r: r, size: size, hdr: hdr}, nil
}

// Header gets the file header.
func (g *Graph) Header() Header {
	return g.hdr
}

// Links gets the neighbor offsets of the node at offset.  Dangling
// links come back as DanglingOffset.
func (g *Graph) Links(offset uint32) ([]uint32, error) {
	if offset < FileHeaderSize || int64(offset)+NodeHeaderSize > g.size {
		return nil, errors.Wrapf(ErrInvalidOffset, "%d", offset)
	}
	var hdr [NodeHeaderSize]byte
	if _, err := g.r.ReadAt(hdr[:], int64(offset)); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[12:])
	end := int64(offset) + int64(NodeLength(int(n)))
	if end > g.size {
		return nil, errors.Wrapf(ErrInvalidOffset, "%d: %d links run past end of file", offset, n)
	}

	if n == 0 {
		return []uint32{}, nil
	}
	buf := make([]byte, LinkSize*int(n))
	if _, err := g.r.ReadAt(buf, int64(offset)+NodeHeaderSize); err != nil {
		return nil, err
	}
	links := make([]uint32, n)
	for i := range links {
		links[i] = binary.LittleEndian.Uint32(buf[i*LinkSize:])
	}
	return links, nil
}

// Each walks every node in file order.
func (g *Graph) Each(fn func(offset uint32, links []uint32) error) error {
	offset := uint64(FileHeaderSize)
	for i := uint32(0); i < g.hdr.Nodes; i++ {
		links, err := g.Links(uint32(offset))
		if err != nil {
			return errors.Wrapf(err, "node %d", i)
		}
		if err := fn(uint32(offset), links); err != nil {
			return err
		}
		offset += NodeLength(len(links))
	}
	return nil
}

// ShortestPath finds a shortest chain of links from one node to
// another by breadth-first search.  It returns nil if to can't be
// reached.
func ShortestPath(g *Graph, from, to uint32) ([]uint32, error) {
	if from == to {
		return []uint32{from}, nil
	}
	prev := map[uint32]uint32{from: from}
	queue := []uint32{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		links, err := g.Links(cur)
		if err != nil {
			return nil, err
		}
		for _, next := range links {
			if next == DanglingOffset {
				continue
			}
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				return walkBack(prev, from, to), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, nil
}

func walkBack(prev map[uint32]uint32, from, to uint32) []uint32 {
	path := []uint32{to}
	for n := to; n != from; {
		n = prev[n]
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
