package wikigraph

import (
	"io"
	"strings"
	"testing"
)

const testIndex = `617:10:AccessibleComputing
617:12:Anarchism
617:13:AfghanistanHistory
617:14:AfghanistanGeography
617:15:AfghanistanPeople
617:18:AfghanistanCommunications
617:19:AfghanistanTransportations
617:20:AfghanistanMilitary
617:21:AfghanistanTransnationalIssues
617:23:AssistiveTechnology
2147418907:2638569:William Earl Brown
2147418907:2638570:Lebuhraya Persekutuan
2147418907:2638571:St Francis of Paola
2147418907:2638573:Francesco di Paula
2147418907:2638575:Arapahoe Community College
2147418907:2638583:Francesco Borgia
-2147469295:2638585:Philadelphia Bulletin
-2147469295:2638588:Zrínyi Miklós
-2147469295:2638602:Privatize
-2147469295:2638604:Ratio: a title with a colon
`

const wrappedOffset = 2147498001

func TestIndexReader(t *testing.T) {
	ir := NewIndexReader(strings.NewReader(testIndex))

	e, err := ir.Next()
	if err != nil {
		t.Fatalf("Error parsing first entry: %v", err)
	}
	if e.String() != "617:10:AccessibleComputing" {
		t.Errorf("Error stringing first entry, got %v", e)
	}

	for {
		var tmp IndexEntry
		tmp, err = ir.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Error reading stream:  %v", err)
		}
		e = tmp
	}
	if e.StreamOffset != wrappedOffset {
		t.Fatalf("Expected %v, got %v for the last stream offset",
			int64(wrappedOffset), e.StreamOffset)
	}
	if e.Title != "Ratio: a title with a colon" {
		t.Fatalf("Expected the title to keep its colon, got %q", e.Title)
	}
}

func TestIndexReaderBadLine(t *testing.T) {
	for _, line := range []string{"617", "617:x:Title", "x:10:Title"} {
		ir := NewIndexReader(strings.NewReader(line + "\n"))
		if _, err := ir.Next(); err == nil || err == io.EOF {
			t.Errorf("Expected an error for %q, got %v", line, err)
		}
	}
}

func TestIndexSummary(t *testing.T) {
	isr, err := NewIndexSummaryReader(strings.NewReader(testIndex))
	if err != nil {
		t.Fatalf("Error initializing IndexSummaryReader: %v", err)
	}

	expected := []struct {
		offset int64
		count  int
		err    error
	}{
		{617, 10, nil},
		{2147418907, 6, nil},
		{wrappedOffset, 4, io.EOF},
		{0, 0, io.EOF},
	}

	for _, e := range expected {
		offset, count, err := isr.Next()
		if offset != e.offset {
			t.Fatalf("Expected offset %v, got %v", e.offset, offset)
		}
		if count != e.count {
			t.Fatalf("Expected count %v, got %v", e.count, count)
		}
		if err != e.err {
			t.Fatalf("Expected err %v, got %v", e.err, err)
		}
	}
}
