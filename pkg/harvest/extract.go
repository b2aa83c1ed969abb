// Package harvest turns OAI-PMH ListRecords pages into classification rows
// and drives a paginated harvest from the first page to the last.
package harvest

import (
	"errors"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// InvalidMarker is the text zbMATH puts in place of a field it may not
// redistribute.
const InvalidMarker = "zbMATH"

// FilterReason says why a record produced no row.
type FilterReason string

const (
	FilterNoSerial          FilterReason = "no_serial"
	FilterInvalidSerial     FilterReason = "invalid_serial"
	FilterOtherSerial       FilterReason = "other_serial"
	FilterNoReferences      FilterReason = "no_references"
	FilterInvalidReferences FilterReason = "invalid_references"
	FilterNoRefClasses      FilterReason = "no_ref_classifications"
)

// ExtractStats counts what happened to the records of one or more pages.
type ExtractStats struct {
	Records  int
	Emitted  int
	Filtered map[FilterReason]int
	Errors   []error
}

// FilteredTotal returns the number of filtered records across all reasons.
func (s ExtractStats) FilteredTotal() int {
	total := 0
	for _, n := range s.Filtered {
		total += n
	}
	return total
}

// Merge adds other into s.
func (s *ExtractStats) Merge(other ExtractStats) {
	s.Records += other.Records
	s.Emitted += other.Emitted
	for reason, n := range other.Filtered {
		s.filter(reason, n)
	}
	s.Errors = append(s.Errors, other.Errors...)
}

func (s *ExtractStats) filter(reason FilterReason, n int) {
	if s.Filtered == nil {
		s.Filtered = make(map[FilterReason]int)
	}
	s.Filtered[reason] += n
}

// Result is the outcome of extracting one page.
type Result struct {
	Rows       []Row
	Resumption *Marker
	Stats      ExtractStats
}

// Extract builds the rows of a page for the given target serial and returns
// them with the page's resumption marker. A record that cannot be turned into
// a row is skipped; the rest of the page is still processed.
func Extract(page *Page, targetSeries string) (Result, error) {
	if page == nil {
		return Result{}, errors.New("nil page")
	}

	var res Result
	for _, rec := range page.Records() {
		res.Stats.Records++
		row, reason, err := extractRecord(rec, targetSeries)
		switch {
		case err != nil:
			res.Stats.Errors = append(res.Stats.Errors, err)
		case reason != "":
			res.Stats.filter(reason, 1)
		default:
			res.Stats.Emitted++
			res.Rows = append(res.Rows, row)
		}
	}
	res.Resumption = page.Resumption()
	return res, nil
}

func extractRecord(rec *etree.Element, target string) (Row, FilterReason, error) {
	meta := metadataRoot(rec)
	if meta == nil {
		return Row{}, "", &ExtractionError{Identifier: recordIdentifier(rec), Field: "metadata"}
	}

	serial := findChild(meta, NamespaceZBMath, "serial")
	if serial == nil || len(serial.ChildElements()) == 0 {
		return Row{}, FilterNoSerial, nil
	}
	titleEl := findChild(serial, NamespaceZBMath, "serial_title")
	if titleEl == nil {
		return Row{}, FilterNoSerial, nil
	}
	title := titleEl.Text()
	if strings.Contains(title, InvalidMarker) {
		return Row{}, FilterInvalidSerial, nil
	}
	title = strings.Join(strings.Fields(title), " ")
	if title != target {
		return Row{}, FilterOtherSerial, nil
	}

	refs := findChild(meta, NamespaceZBMath, "references")
	if refs == nil {
		return Row{}, FilterNoReferences, nil
	}
	if strings.Contains(refs.Text(), InvalidMarker) {
		return Row{}, FilterInvalidReferences, nil
	}

	var refClasses []string
	for _, el := range findPath(refs, NamespaceZBMath, "reference", "ref_classifications", "ref_classification") {
		if code := strings.TrimSpace(el.Text()); code != "" {
			refClasses = append(refClasses, code)
		}
	}
	if len(refClasses) == 0 {
		return Row{}, FilterNoRefClasses, nil
	}

	classes := []string{}
	for _, el := range findPath(meta, NamespaceZBMath, "classifications", "classification") {
		classes = append(classes, el.Text())
	}

	idEl := findChild(meta, NamespaceZBMath, "document_id")
	if idEl == nil {
		return Row{}, "", &ExtractionError{Identifier: recordIdentifier(rec), Field: "document_id"}
	}
	yearEl := findChild(meta, NamespaceZBMath, "publication_year")
	if yearEl == nil {
		return Row{}, "", &ExtractionError{Identifier: recordIdentifier(rec), Field: "publication_year"}
	}

	sort.Strings(refClasses)
	return Row{
		ID:         strings.TrimSpace(idEl.Text()),
		Serial:     title,
		Year:       strings.TrimSpace(yearEl.Text()),
		Classes:    classes,
		RefClasses: refClasses,
	}, "", nil
}

// metadataRoot returns the format-specific root inside <metadata>.
func metadataRoot(rec *etree.Element) *etree.Element {
	md := findChild(rec, NamespaceOAI, "metadata")
	if md == nil {
		return nil
	}
	children := md.ChildElements()
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

func recordIdentifier(rec *etree.Element) string {
	id := findPath(rec, NamespaceOAI, "header", "identifier")
	if len(id) == 0 {
		return ""
	}
	return strings.TrimSpace(id[0].Text())
}
