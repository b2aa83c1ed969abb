package testutil

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Namespaces used by zbMATH Open ListRecords responses.
const (
	NamespaceOAI    = "http://www.openarchives.org/OAI/2.0/"
	NamespaceZBMath = "https://zbmath.org/zbmath/elements/1.0/"
	NamespacePrefix = "https://zbmath.org/OAI/2.0/oai_zb_preview/"
)

// Record describes one test record. The zero value renders a record without
// serial, references or classifications.
type Record struct {
	DocumentID string
	Year       string
	Serial     string
	Classes    []string

	// References holds the ref_classification codes of each reference.
	References [][]string

	// ReferencesText replaces the reference entries with free text, e.g. the
	// provider's invalid-marker notice.
	ReferencesText string

	OmitSerial      bool
	EmptySerial     bool
	OmitReferences  bool
	OmitDocumentID  bool
	OmitYear        bool
	Deleted         bool
	UnprefixedNames bool
}

// Token describes the resumptionToken element of a page.
type Token struct {
	Value            string
	Cursor           int
	CompleteListSize int
}

// Page renders a full OAI-PMH ListRecords response.
func Page(records []Record, token *Token) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<OAI-PMH xmlns="` + NamespaceOAI + `">`)
	b.WriteString(`<responseDate>2024-01-01T00:00:00Z</responseDate>`)
	b.WriteString(`<request verb="ListRecords" metadataPrefix="oai_zb_preview">https://oai.zbmath.org/v1/</request>`)
	b.WriteString(`<ListRecords>`)
	for i, r := range records {
		writeRecord(&b, i, r)
	}
	if token != nil {
		fmt.Fprintf(&b, `<resumptionToken cursor="%d" completeListSize="%d">%s</resumptionToken>`,
			token.Cursor, token.CompleteListSize, escape(token.Value))
	}
	b.WriteString(`</ListRecords></OAI-PMH>`)
	return b.String()
}

// ErrorPage renders an OAI-PMH error response.
func ErrorPage(code, message string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<OAI-PMH xmlns="` + NamespaceOAI + `">` +
		`<responseDate>2024-01-01T00:00:00Z</responseDate>` +
		`<request verb="ListRecords">https://oai.zbmath.org/v1/</request>` +
		`<error code="` + escape(code) + `">` + escape(message) + `</error>` +
		`</OAI-PMH>`
}

func writeRecord(b *strings.Builder, n int, r Record) {
	b.WriteString(`<record>`)
	if r.Deleted {
		fmt.Fprintf(b, `<header status="deleted"><identifier>oai:zbmath.org:%d</identifier></header>`, n)
		b.WriteString(`</record>`)
		return
	}
	fmt.Fprintf(b, `<header><identifier>oai:zbmath.org:%s</identifier><datestamp>2024-01-01T00:00:00Z</datestamp></header>`, escape(r.DocumentID))

	p := "zbmath:"
	if r.UnprefixedNames {
		p = ""
	}

	b.WriteString(`<metadata>`)
	b.WriteString(`<oai_zb_preview:zbmath xmlns:oai_zb_preview="` + NamespacePrefix + `" xmlns:zbmath="` + NamespaceZBMath + `">`)

	if len(r.Classes) > 0 {
		b.WriteString(`<` + p + `classifications>`)
		for _, c := range r.Classes {
			b.WriteString(`<` + p + `classification>` + escape(c) + `</` + p + `classification>`)
		}
		b.WriteString(`</` + p + `classifications>`)
	}
	if !r.OmitDocumentID {
		b.WriteString(`<` + p + `document_id>` + escape(r.DocumentID) + `</` + p + `document_id>`)
	}
	if !r.OmitYear {
		b.WriteString(`<` + p + `publication_year>` + escape(r.Year) + `</` + p + `publication_year>`)
	}
	if !r.OmitReferences {
		b.WriteString(`<` + p + `references>`)
		b.WriteString(escape(r.ReferencesText))
		for _, ref := range r.References {
			b.WriteString(`<` + p + `reference><` + p + `text>Some cited work</` + p + `text>`)
			if len(ref) > 0 {
				b.WriteString(`<` + p + `ref_classifications>`)
				for _, c := range ref {
					b.WriteString(`<` + p + `ref_classification>` + escape(c) + `</` + p + `ref_classification>`)
				}
				b.WriteString(`</` + p + `ref_classifications>`)
			}
			b.WriteString(`</` + p + `reference>`)
		}
		b.WriteString(`</` + p + `references>`)
	}
	switch {
	case r.OmitSerial:
	case r.EmptySerial:
		b.WriteString(`<` + p + `serial></` + p + `serial>`)
	default:
		b.WriteString(`<` + p + `serial><` + p + `serial_publisher>Elsevier</` + p + `serial_publisher>`)
		b.WriteString(`<` + p + `serial_title>` + escape(r.Serial) + `</` + p + `serial_title></` + p + `serial>`)
	}

	b.WriteString(`</oai_zb_preview:zbmath>`)
	b.WriteString(`</metadata></record>`)
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
