package wikigraph

import (
	"compress/bzip2"
	"encoding/xml"
	"io"
	"os"
	"strings"
)

// The toplevel site info describing basic dump properties.
type SiteInfo struct {
	SiteName   string `xml:"sitename"`
	Base       string `xml:"base"`
	Generator  string `xml:"generator"`
	Case       string `xml:"case"`
	Namespaces []struct {
		Key   string `xml:"key,attr"`
		Case  string `xml:"case,attr"`
		Value string `xml:",chardata"`
	} `xml:"namespaces>namespace"`
}

// A user who contributed a revision.
type Contributor struct {
	ID       uint64 `xml:"id"`
	Username string `xml:"username"`
}

// A revision to a page.
type Revision struct {
	ID          uint64      `xml:"id"`
	Timestamp   string      `xml:"timestamp"`
	Contributor Contributor `xml:"contributor"`
	Comment     string      `xml:"comment"`
	Text        string      `xml:"text"`
}

// A wiki page.
type Page struct {
	Title    string `xml:"title"`
	NS       int    `xml:"ns"`
	ID       uint64 `xml:"id"`
	Redirect *struct {
		Title string `xml:"title,attr"`
	} `xml:"redirect"`
	Revisions []Revision `xml:"revision"`
}

// A PageRecord is the part of a page the graph is built from.
type PageRecord struct {
	Title    string
	Body     string
	Redirect bool
}

// Record gets the title, latest text, and redirect flag of the page.
func (p *Page) Record() PageRecord {
	rv := PageRecord{Title: p.Title, Redirect: p.Redirect != nil}
	if n := len(p.Revisions); n > 0 {
		rv.Body = p.Revisions[n-1].Text
	}
	return rv
}

// A PageSource emits pages in dump order, returning io.EOF after the
// last one.
type PageSource interface {
	Next() (*Page, error)
}

// That which emits wiki pages.
type Parser interface {
	PageSource
	// Get the toplevel site info from the stream.
	SiteInfo() SiteInfo
}

type singleStreamParser struct {
	siteInfo SiteInfo
	x        *xml.Decoder
}

// NewParser gets a wikipedia dump parser reading from the given reader.
func NewParser(r io.Reader) (Parser, error) {
	d := xml.NewDecoder(r)
	_, err := d.Token()
	if err != nil {
		return nil, err
	}

	si := SiteInfo{}
	err = d.Decode(&si)
	if err != nil {
		return nil, err
	}

	return &singleStreamParser{
		siteInfo: si,
		x:        d,
	}, nil
}

func (p *singleStreamParser) Next() (rv *Page, err error) {
	rv = new(Page)
	err = p.x.Decode(rv)
	if err != nil {
		return nil, err
	}
	return rv, nil
}

func (p *singleStreamParser) SiteInfo() SiteInfo {
	return p.siteInfo
}

type bzipFile struct {
	io.Reader
	f *os.File
}

func (b bzipFile) Close() error {
	return b.f.Close()
}

// OpenDump opens a dump file, decompressing it if it ends in .bz2.
func OpenDump(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".bz2") {
		return bzipFile{bzip2.NewReader(f), f}, nil
	}
	return f, nil
}
