package wikigraph

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestSpoolRoundTrip(t *testing.T) {
	recs := []SpoolRecord{
		{Offset: 16, Links: []string{"animal", "phylum", "animal"}},
		{Offset: 44, Links: []string{"tide pool"}},
	}
	buf := &bytes.Buffer{}
	sw := NewSpoolWriter(buf)
	for _, r := range recs {
		if err := sw.Write(r); err != nil {
			t.Fatalf("Error writing %v: %v", r, err)
		}
	}
	if err := sw.Flush(); err != nil {
		t.Fatal(err)
	}
	if sw.Count() != 2 {
		t.Errorf("Expected 2 records, got %v", sw.Count())
	}

	exp := "16|3|animal|phylum|animal\n44|1|tide pool\n"
	if buf.String() != exp {
		t.Fatalf("Expected %q, got %q", exp, buf.String())
	}

	sr := NewSpoolReader(buf)
	var got []SpoolRecord
	for {
		r, err := sr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Error reading line %d: %v", sr.Line(), err)
		}
		got = append(got, r)
	}
	if !reflect.DeepEqual(recs, got) {
		t.Fatalf("Expected %v, got %v", recs, got)
	}
	if sr.Line() != 2 {
		t.Errorf("Expected to end on line 2, got %v", sr.Line())
	}
}

func TestSpoolMalformed(t *testing.T) {
	tests := []string{
		"",
		"16",
		"x|1|animal",
		"-16|1|animal",
		"4294967296|1|animal",
		"16|two|animal|phylum",
		"16|2|animal",
		"16|1|animal|phylum",
		"16|2|animal|",
	}

	for _, test := range tests {
		sr := NewSpoolReader(strings.NewReader("16|1|ok\n" + test + "\n"))
		if _, err := sr.Next(); err != nil {
			t.Fatalf("Error reading the first line: %v", err)
		}
		_, err := sr.Next()
		if !errors.Is(err, ErrMalformedSpool) {
			t.Errorf("Expected %q to be malformed, got %v", test, err)
			continue
		}
		if !strings.Contains(err.Error(), "line 2") {
			t.Errorf("Expected the error for %q to name line 2, got %v", test, err)
		}
	}
}
