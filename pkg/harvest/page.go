package harvest

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// XML namespaces of a zbMATH Open ListRecords response.
const (
	NamespaceOAI    = "http://www.openarchives.org/OAI/2.0/"
	NamespaceZBMath = "https://zbmath.org/zbmath/elements/1.0/"
)

// Page is a parsed ListRecords response.
type Page struct {
	doc  *etree.Document
	root *etree.Element
}

// Marker is the resumption token of a page together with the provider's
// progress counters.
type Marker struct {
	Token            string
	Cursor           int
	CompleteListSize int

	// HasProgress is false when cursor or completeListSize is missing or
	// not an integer.
	HasProgress bool
}

// Ratio returns Cursor/CompleteListSize, or 0 without progress information.
func (m Marker) Ratio() float64 {
	if !m.HasProgress || m.CompleteListSize == 0 {
		return 0
	}
	return float64(m.Cursor) / float64(m.CompleteListSize)
}

// ParsePage parses a raw response body. Empty, truncated or otherwise
// malformed bodies, and documents whose root is not OAI-PMH, yield a
// *ParseError.
func ParsePage(body string) (*Page, error) {
	if strings.TrimSpace(body) == "" {
		return nil, &ParseError{Err: errEmptyBody, Snippet: describeBody(body)}
	}
	if err := checkWellFormed(body); err != nil {
		return nil, &ParseError{Err: err, Snippet: describeBody(body)}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return nil, &ParseError{Err: err, Snippet: describeBody(body)}
	}
	root := doc.Root()
	if root == nil || !matches(root, NamespaceOAI, "OAI-PMH") {
		return nil, &ParseError{Err: errNotOAIPMH, Snippet: describeBody(body)}
	}

	return &Page{doc: doc, root: root}, nil
}

// checkWellFormed runs the body through a strict tokenizer so that unclosed
// elements at end of input are reported.
func checkWellFormed(body string) error {
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Records returns the record elements of the page in document order.
func (p *Page) Records() []*etree.Element {
	return findPath(p.root, NamespaceOAI, "ListRecords", "record")
}

// Resumption returns the page's resumption marker. It is nil when the page
// has no resumptionToken or the token is empty, both of which end a harvest.
func (p *Page) Resumption() *Marker {
	el := findChild(findChild(p.root, NamespaceOAI, "ListRecords"), NamespaceOAI, "resumptionToken")
	if el == nil {
		return nil
	}
	token := strings.TrimSpace(el.Text())
	if token == "" {
		return nil
	}

	m := &Marker{Token: token}
	cursor, errCursor := strconv.Atoi(strings.TrimSpace(el.SelectAttrValue("cursor", "")))
	size, errSize := strconv.Atoi(strings.TrimSpace(el.SelectAttrValue("completeListSize", "")))
	if errCursor == nil && errSize == nil && size > 0 {
		m.Cursor = cursor
		m.CompleteListSize = size
		m.HasProgress = true
	}
	return m
}

// ProtocolError returns the OAI-PMH error carried by the page, if any.
func (p *Page) ProtocolError() *ProtocolError {
	el := findChild(p.root, NamespaceOAI, "error")
	if el == nil {
		return nil
	}
	return &ProtocolError{
		Code:    el.SelectAttrValue("code", ""),
		Message: strings.TrimSpace(el.Text()),
	}
}
