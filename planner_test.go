package wikigraph

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/dustin/go-wikigraph/store"
)

type pageList struct {
	pages []*Page
	err   error
}

func (pl *pageList) Next() (*Page, error) {
	if len(pl.pages) == 0 {
		if pl.err != nil {
			return nil, pl.err
		}
		return nil, io.EOF
	}
	p := pl.pages[0]
	pl.pages = pl.pages[1:]
	return p, nil
}

func article(title, text string) *Page {
	return &Page{Title: title, Revisions: []Revision{{Text: text}}}
}

func redirect(title, target string) *Page {
	p := article(title, "#REDIRECT [["+target+"]]")
	p.Redirect = &struct {
		Title string `xml:"title,attr"`
	}{target}
	return p
}

func plan(t *testing.T, st store.Writer, pages ...*Page) (PlanResult, []string) {
	t.Helper()
	buf := &bytes.Buffer{}
	rv, err := Plan(context.Background(), &pageList{pages: pages}, st, NewSpoolWriter(buf), PlanOptions{})
	if err != nil {
		t.Fatalf("Error planning: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if buf.Len() == 0 {
		lines = nil
	}
	return rv, lines
}

func TestSkipPage(t *testing.T) {
	long := strings.Repeat("x", 256)
	tests := []struct {
		rec  PageRecord
		skip bool
	}{
		{PageRecord{Title: "Sponge", Body: "[[animal]]"}, false},
		{PageRecord{Title: "", Body: "[[animal]]"}, true},
		{PageRecord{Title: "Sponge", Body: ""}, true},
		{PageRecord{Title: "X", Body: "[[animal]]"}, true},
		{PageRecord{Title: long, Body: "[[animal]]"}, true},
		{PageRecord{Title: long[:255], Body: "[[animal]]"}, false},
		{PageRecord{Title: "Template:Infobox", Body: "[[animal]]"}, true},
		{PageRecord{Title: "Wikipedia talk:Manual", Body: "[[animal]]"}, false},
		{PageRecord{Title: "User:Dustin", Body: "[[animal]]"}, true},
		{PageRecord{Title: "Module:Citation", Body: "[[animal]]"}, true},
		{PageRecord{Title: "MediaWiki:Common.css", Body: "[[animal]]"}, true},
		{PageRecord{Title: "Main Page/Sandbox", Body: "[[animal]]"}, false},
		{PageRecord{Title: "main page/sandbox", Body: "[[animal]]"}, true},
		{PageRecord{Title: "Mercury (disambiguation)", Body: "[[planet]]"}, true},
		{PageRecord{Title: "Mercury", Body: "{{disambiguation}} [[planet]]"}, true},
		{PageRecord{Title: "Mercury", Body: "[[planet]] {{disambig|geo}}"}, true},
	}

	for _, test := range tests {
		if got := skipPage(test.rec); got != test.skip {
			t.Errorf("skipPage(%q): expected %v, got %v", test.rec.Title, test.skip, got)
		}
	}
}

func TestPlan(t *testing.T) {
	st := store.NewMemory()
	rv, lines := plan(t, st,
		article("Alpha", "[[Beta]] and [[Gamma|the third]]"),
		article("Beta", "Back to [[alpha]]."),
		redirect("Bet", "Beta"),
		article("Gamma", "No links here."),
		article("Template:Cite", "[[Alpha]]"),
		article("alpha", "A second [[Beta]] with a clashing key."),
		redirect("Empty redirect", ""),
		article("Delta", "{{cite|[[Ignored]]}} [[Beta#History]]"),
	)

	expLines := []string{
		"16|2|beta|gamma",
		"40|1|alpha",
		"60|1|beta",
	}
	if !reflect.DeepEqual(expLines, lines) {
		t.Fatalf("Expected spool %#v, got %#v", expLines, lines)
	}

	exp := PlanResult{
		Pages:      8,
		Nodes:      3,
		Links:      4,
		Redirects:  1,
		Filtered:   1,
		Linkless:   2,
		Duplicates: 1,
		Cursor:     80,
	}
	if rv != exp {
		t.Fatalf("Expected %+v, got %+v", exp, rv)
	}

	ctx := context.Background()
	for key, exp := range map[string]store.LookupEntry{
		"alpha": {Title: "alpha", Offset: 16, Length: 24},
		"beta":  {Title: "beta", Offset: 40, Length: 20},
		"delta": {Title: "delta", Offset: 60, Length: 20},
	} {
		got, err := st.Lookup(ctx, key)
		if err != nil {
			t.Fatalf("Error looking up %q: %v", key, err)
		}
		if got != exp {
			t.Errorf("Expected %+v for %q, got %+v", exp, key, got)
		}
	}
	if _, err := st.Lookup(ctx, "gamma"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected linkless gamma to be absent, got %v", err)
	}
	if to, err := st.Redirect(ctx, "bet"); err != nil || to != "beta" {
		t.Errorf("Expected bet -> beta, got %q, %v", to, err)
	}
}

func TestPlanTwiceKeepsStore(t *testing.T) {
	pages := func() []*Page {
		return []*Page{
			article("Alpha", "[[Beta]]"),
			article("Beta", "[[Alpha]]"),
			redirect("Bet", "Beta"),
		}
	}
	st := store.NewMemory()
	ctx := context.Background()

	snapshot := func() []store.LookupEntry {
		var rv []store.LookupEntry
		st.EachLookup(ctx, func(e store.LookupEntry) error {
			rv = append(rv, e)
			return nil
		})
		return rv
	}

	first, _ := plan(t, st, pages()...)
	before := snapshot()
	second, lines := plan(t, st, pages()...)

	if !reflect.DeepEqual(before, snapshot()) {
		t.Fatalf("Expected store to be unchanged, had %v, now %v", before, snapshot())
	}
	if first.Nodes != 2 || second.Nodes != 0 || second.Duplicates != 3 {
		t.Fatalf("Expected 2 nodes then 3 duplicates, got %+v then %+v", first, second)
	}
	if len(lines) != 0 {
		t.Fatalf("Expected a fresh empty spool, got %v", lines)
	}
}

type failingStore struct {
	*store.Memory
}

var errDiskFull = errors.New("disk full")

func (failingStore) PutLookup(ctx context.Context, e store.LookupEntry) error {
	return errDiskFull
}

func TestPlanStoreFailure(t *testing.T) {
	st := failingStore{store.NewMemory()}
	_, err := Plan(context.Background(), &pageList{pages: []*Page{article("Alpha", "[[Beta]]")}},
		st, NewSpoolWriter(io.Discard), PlanOptions{})
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("Expected disk full, got %v", err)
	}
	if !strings.Contains(err.Error(), `"Alpha"`) {
		t.Errorf("Expected the error to name the page, got %v", err)
	}
}

func TestPlanMalformedStream(t *testing.T) {
	bad := errors.New("XML syntax error")
	src := &pageList{pages: []*Page{article("Alpha", "[[Beta]]")}, err: bad}
	rv, err := Plan(context.Background(), src, store.NewMemory(), NewSpoolWriter(io.Discard), PlanOptions{})
	if !errors.Is(err, bad) {
		t.Fatalf("Expected the stream error, got %v", err)
	}
	if rv.Pages != 1 {
		t.Errorf("Expected one page read before failing, got %v", rv.Pages)
	}
}

func TestPlanCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Plan(ctx, &pageList{pages: []*Page{article("Alpha", "[[Beta]]")}},
		store.NewMemory(), NewSpoolWriter(io.Discard), PlanOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
