package wikigraph

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dustin/go-wikigraph/store"
)

// build runs both passes over pages in memory.
func build(t *testing.T, opts CompileOptions, pages ...*Page) (*Graph, *store.Memory, CompileResult) {
	t.Helper()
	st := store.NewMemory()
	spool := &bytes.Buffer{}
	pr, err := Plan(context.Background(), &pageList{pages: pages}, st, NewSpoolWriter(spool), PlanOptions{})
	if err != nil {
		t.Fatalf("Error planning: %v", err)
	}

	opts.NodeCount = uint32(pr.Nodes)
	out := &bytes.Buffer{}
	cr, err := Compile(context.Background(), NewSpoolReader(spool), NewResolver(st), out, opts)
	if err != nil {
		t.Fatalf("Error compiling: %v", err)
	}
	if cr.Bytes != pr.Cursor || uint64(out.Len()) != pr.Cursor {
		t.Fatalf("Expected %d bytes, result says %d, wrote %d", pr.Cursor, cr.Bytes, out.Len())
	}

	g, err := OpenGraph(bytes.NewReader(out.Bytes()), int64(out.Len()))
	if err != nil {
		t.Fatalf("Error opening graph: %v", err)
	}
	return g, st, cr
}

func offsetOf(t *testing.T, st *store.Memory, key string) uint32 {
	t.Helper()
	e, err := st.Lookup(context.Background(), key)
	if err != nil {
		t.Fatalf("Error looking up %q: %v", key, err)
	}
	return e.Offset
}

func TestCompileTwoArticles(t *testing.T) {
	g, st, cr := build(t, CompileOptions{},
		article("A", "[[B]]"),
		article("B", "[[A]]"),
		article("C", "nothing"),
	)
	// Single character titles are filtered; use longer names.
	if g.Header().Nodes != 0 || cr.Nodes != 0 {
		t.Fatalf("Expected single letter titles to be filtered, got %+v", g.Header())
	}

	g, st, cr = build(t, CompileOptions{},
		article("Aa", "[[Bb]]"),
		article("Bb", "[[Aa]] and [[Cc]]"),
		article("Cc", "nothing"),
	)
	if exp := (Header{Version: FormatVersion, Nodes: 2}); g.Header() != exp {
		t.Fatalf("Expected header %+v, got %+v", exp, g.Header())
	}

	a, b := offsetOf(t, st, "aa"), offsetOf(t, st, "bb")
	if a != FileHeaderSize || b != FileHeaderSize+20 {
		t.Fatalf("Unexpected offsets a=%d b=%d", a, b)
	}
	links, err := g.Links(a)
	if err != nil {
		t.Fatalf("Error reading a: %v", err)
	}
	if !reflect.DeepEqual([]uint32{b}, links) {
		t.Errorf("Expected a -> [%d], got %v", b, links)
	}
	links, err = g.Links(b)
	if err != nil {
		t.Fatalf("Error reading b: %v", err)
	}
	if !reflect.DeepEqual([]uint32{a, DanglingOffset}, links) {
		t.Errorf("Expected b -> [%d 0], got %v", a, links)
	}

	if cr.Dangling != 1 || !cr.DanglingNodes.Contains(b) || cr.DanglingNodes.GetCardinality() != 1 {
		t.Errorf("Expected one dangling link from b, got %d %v", cr.Dangling, cr.DanglingNodes)
	}
}

func TestCompileFollowsRedirects(t *testing.T) {
	g, st, _ := build(t, CompileOptions{},
		article("Sponge", "Also called [[Porifera]], see [[Sea_sponge]]."),
		redirect("Porifera", "Sponge"),
		redirect("Sea sponge", "Porifera"),
	)
	sponge := offsetOf(t, st, "sponge")
	links, err := g.Links(sponge)
	if err != nil {
		t.Fatalf("Error reading node: %v", err)
	}
	// One hop only: sea sponge -> porifera is itself a redirect.
	if !reflect.DeepEqual([]uint32{sponge, DanglingOffset}, links) {
		t.Fatalf("Expected [%d 0], got %v", sponge, links)
	}
}

func TestCompileEveryNodeAtPlannedOffset(t *testing.T) {
	pages := []*Page{}
	for i := 0; i < 50; i++ {
		title := "Page " + strings.Repeat("x", i)
		body := strings.Repeat("[[Page "+strings.Repeat("x", (i*7)%50)+"]] ", i%5+1)
		pages = append(pages, article(title, body))
	}

	var want []byte
	for _, opts := range []CompileOptions{
		{BatchSize: 1, Workers: 1},
		{BatchSize: 3, Workers: 4},
		{BatchSize: 1000, Workers: 8, FlushEvery: 7},
	} {
		g, st, cr := build(t, opts, pages...)
		if cr.Nodes != 50 || cr.Dangling != 0 {
			t.Fatalf("Expected 50 nodes and no dangling links, got %+v", cr)
		}

		var got []byte
		err := g.Each(func(offset uint32, links []uint32) error {
			got = binary.LittleEndian.AppendUint32(got, offset)
			for _, l := range links {
				got = binary.LittleEndian.AppendUint32(got, l)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Error walking graph: %v", err)
		}

		st.EachLookup(context.Background(), func(e store.LookupEntry) error {
			links, err := g.Links(e.Offset)
			if err != nil {
				t.Errorf("Error reading %q at %d: %v", e.Title, e.Offset, err)
			} else if NodeLength(len(links)) != uint64(e.Length) {
				t.Errorf("Expected %q to be %d bytes, got %d links", e.Title, e.Length, len(links))
			}
			return nil
		})

		if want == nil {
			want = got
		} else if !bytes.Equal(want, got) {
			t.Fatalf("Output with %+v differs from the sequential one", opts)
		}
	}
}

func compileSpool(spool string, st store.Reader, opts CompileOptions) (CompileResult, error) {
	return Compile(context.Background(), NewSpoolReader(strings.NewReader(spool)),
		NewResolver(st), &bytes.Buffer{}, opts)
}

func TestCompileOffsetMismatch(t *testing.T) {
	_, err := compileSpool("16|1|a\n40|1|b\n", store.NewMemory(), CompileOptions{NodeCount: 2})
	var mismatch *OffsetMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected an offset mismatch, got %v", err)
	}
	exp := OffsetMismatchError{Line: 2, Expected: 40, Actual: 36}
	if *mismatch != exp {
		t.Fatalf("Expected %+v, got %+v", exp, *mismatch)
	}
}

func TestCompileDanglingFatal(t *testing.T) {
	st := store.NewMemory()
	st.PutLookup(context.Background(), store.LookupEntry{Title: "a", Offset: 16, Length: 24})
	_, err := compileSpool("16|2|a|nowhere\n", st, CompileOptions{NodeCount: 1, Dangling: DanglingFatal})
	var dangling *DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("Expected a dangling reference error, got %v", err)
	}
	if dangling.Line != 1 || dangling.Target != "nowhere" {
		t.Fatalf("Unexpected error %+v", dangling)
	}
}

func TestCompileNodeCountMismatch(t *testing.T) {
	_, err := compileSpool("16|1|a\n", store.NewMemory(), CompileOptions{NodeCount: 2})
	if !errors.Is(err, ErrNodeCountMismatch) {
		t.Fatalf("Expected a node count mismatch, got %v", err)
	}
}

func TestCompileMalformedSpool(t *testing.T) {
	_, err := compileSpool("16|1|a\n36|2|b\n", store.NewMemory(), CompileOptions{NodeCount: 2})
	if !errors.Is(err, ErrMalformedSpool) {
		t.Fatalf("Expected a malformed spool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected the error to name line 2, got %v", err)
	}
}

func TestCompileFileRemovesFailedOutput(t *testing.T) {
	dir := t.TempDir()
	spool := filepath.Join(dir, "spool.txt")
	graph := filepath.Join(dir, "graph.bin")
	if err := os.WriteFile(spool, []byte("16|1|a\n40|1|b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := CompileFile(context.Background(), spool, graph, NewResolver(store.NewMemory()),
		CompileOptions{NodeCount: 2})
	if err == nil {
		t.Fatalf("Expected compile to fail")
	}
	for _, p := range []string{graph, graph + ".tmp"} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("Expected %s not to exist, got %v", p, err)
		}
	}

	if err := os.WriteFile(spool, []byte("16|1|a\n36|1|b\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cr, err := CompileFile(context.Background(), spool, graph, NewResolver(store.NewMemory()),
		CompileOptions{NodeCount: 2})
	if err != nil {
		t.Fatalf("Error compiling: %v", err)
	}
	fi, err := os.Stat(graph)
	if err != nil {
		t.Fatalf("Expected graph to exist: %v", err)
	}
	if uint64(fi.Size()) != cr.Bytes || cr.Bytes != 56 {
		t.Fatalf("Expected 56 bytes, got %d on disk and %d reported", fi.Size(), cr.Bytes)
	}
}

func TestShortestPath(t *testing.T) {
	g, st, _ := build(t, CompileOptions{},
		article("Sponge", "[[Animal]] [[Phylum]]"),
		article("Animal", "[[Kingdom]]"),
		article("Phylum", "[[Taxonomy]]"),
		article("Taxonomy", "[[Kingdom]] [[Biology]]"),
		article("Kingdom", "[[Biology]]"),
		article("Biology", "[[Life]]"),
		article("Island", "[[Sponge]]"),
	)
	off := func(k string) uint32 { return offsetOf(t, st, k) }

	path, err := ShortestPath(g, off("sponge"), off("biology"))
	if err != nil {
		t.Fatalf("Error searching: %v", err)
	}
	exp := []uint32{off("sponge"), off("animal"), off("kingdom"), off("biology")}
	if !reflect.DeepEqual(exp, path) {
		t.Fatalf("Expected %v, got %v", exp, path)
	}

	path, err = ShortestPath(g, off("biology"), off("island"))
	if err != nil || path != nil {
		t.Fatalf("Expected no path, got %v, %v", path, err)
	}

	if _, err := g.Links(4); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("Expected an offset inside the header to be invalid, got %v", err)
	}
}

func TestOpenGraphRejectsVersion(t *testing.T) {
	hdr := putWords(nil, 0, 0, 99, 0)
	if _, err := OpenGraph(bytes.NewReader(hdr), int64(len(hdr))); !errors.Is(err, ErrInvalidGraph) {
		t.Fatalf("Expected an invalid graph error, got %v", err)
	}
}
