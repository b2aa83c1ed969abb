package harvest

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nilaykumar/msc-viz/internal/testutil"
)

const target = "Advances in Mathematics"

func mustParse(t *testing.T, body string) *Page {
	t.Helper()
	page, err := ParsePage(body)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	return page
}

func qualifying() testutil.Record {
	return testutil.Record{
		DocumentID: "7654321",
		Year:       "2019",
		Serial:     target,
		Classes:    []string{"05C99"},
		References: [][]string{{"05C10"}, {"05C10", "11A41"}},
	}
}

func TestExtract_QualifyingRecord(t *testing.T) {
	page := mustParse(t, testutil.Page([]testutil.Record{qualifying()}, nil))

	res, err := Extract(page, target)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := []Row{{
		ID:         "7654321",
		Serial:     target,
		Year:       "2019",
		Classes:    []string{"05C99"},
		RefClasses: []string{"05C10", "05C10", "11A41"},
	}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Errorf("Rows = %+v, want %+v", res.Rows, want)
	}
	if res.Resumption != nil {
		t.Errorf("Resumption = %+v, want nil", res.Resumption)
	}
	if res.Stats.Records != 1 || res.Stats.Emitted != 1 || res.Stats.FilteredTotal() != 0 {
		t.Errorf("Stats = %+v", res.Stats)
	}
}

func TestExtract_Filters(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *testutil.Record)
		reason FilterReason
	}{
		{"other_serial", func(r *testutil.Record) { r.Serial = "Annals of Mathematics" }, FilterOtherSerial},
		{"serial_prefix_only", func(r *testutil.Record) { r.Serial = "Advances in Mathematics (New Series)" }, FilterOtherSerial},
		{"serial_missing", func(r *testutil.Record) { r.OmitSerial = true }, FilterNoSerial},
		{"serial_without_children", func(r *testutil.Record) { r.EmptySerial = true }, FilterNoSerial},
		{"serial_invalid_marker", func(r *testutil.Record) { r.Serial = "zbMATH Open Web Interface contents unavailable" }, FilterInvalidSerial},
		{"references_missing", func(r *testutil.Record) { r.OmitReferences = true }, FilterNoReferences},
		{"references_invalid_marker", func(r *testutil.Record) {
			r.References = nil
			r.ReferencesText = "zbMATH Open Web Interface contents unavailable due to conflicting licenses."
		}, FilterInvalidReferences},
		{"references_without_codes", func(r *testutil.Record) { r.References = [][]string{{}, {}} }, FilterNoRefClasses},
		{"references_blank_codes", func(r *testutil.Record) { r.References = [][]string{{" "}, {""}} }, FilterNoRefClasses},
		{"unnamespaced_fields", func(r *testutil.Record) { r.UnprefixedNames = true }, FilterNoSerial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := qualifying()
			tt.modify(&rec)
			page := mustParse(t, testutil.Page([]testutil.Record{rec}, nil))

			res, err := Extract(page, target)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if len(res.Rows) != 0 {
				t.Errorf("Rows = %+v, want none", res.Rows)
			}
			if got := res.Stats.Filtered[tt.reason]; got != 1 {
				t.Errorf("Filtered[%s] = %d, want 1 (stats %+v)", tt.reason, got, res.Stats)
			}
			if len(res.Stats.Errors) != 0 {
				t.Errorf("Errors = %v, want none", res.Stats.Errors)
			}
		})
	}
}

func TestExtract_SerialWhitespaceNormalized(t *testing.T) {
	rec := qualifying()
	rec.Serial = "  Advances in\n   Mathematics "
	page := mustParse(t, testutil.Page([]testutil.Record{rec}, nil))

	res, _ := Extract(page, target)
	if len(res.Rows) != 1 {
		t.Fatalf("Rows = %d, want 1", len(res.Rows))
	}
	if res.Rows[0].Serial != target {
		t.Errorf("Serial = %q, want %q", res.Rows[0].Serial, target)
	}
}

func TestExtract_ExtractionErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *testutil.Record)
		field  string
	}{
		{"deleted_record", func(r *testutil.Record) { r.Deleted = true }, "metadata"},
		{"document_id_missing", func(r *testutil.Record) { r.OmitDocumentID = true }, "document_id"},
		{"year_missing", func(r *testutil.Record) { r.OmitYear = true }, "publication_year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := qualifying()
			tt.modify(&bad)
			good := qualifying()
			good.DocumentID = "42"
			page := mustParse(t, testutil.Page([]testutil.Record{bad, good}, nil))

			res, err := Extract(page, target)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if len(res.Rows) != 1 || res.Rows[0].ID != "42" {
				t.Errorf("Rows = %+v, want only record 42", res.Rows)
			}
			if len(res.Stats.Errors) != 1 {
				t.Fatalf("Errors = %v, want one", res.Stats.Errors)
			}
			var ee *ExtractionError
			if !errors.As(res.Stats.Errors[0], &ee) {
				t.Fatalf("Expected *ExtractionError, got %T", res.Stats.Errors[0])
			}
			if ee.Field != tt.field {
				t.Errorf("Field = %q, want %q", ee.Field, tt.field)
			}
			if ee.Identifier == "" {
				t.Error("Identifier should be taken from the record header")
			}
		})
	}
}

func TestExtract_NoClassificationsYieldsEmptyList(t *testing.T) {
	rec := qualifying()
	rec.Classes = nil
	page := mustParse(t, testutil.Page([]testutil.Record{rec}, nil))

	res, _ := Extract(page, target)
	if len(res.Rows) != 1 {
		t.Fatalf("Rows = %d, want 1", len(res.Rows))
	}
	if res.Rows[0].Classes == nil || len(res.Rows[0].Classes) != 0 {
		t.Errorf("Classes = %#v, want empty non-nil slice", res.Rows[0].Classes)
	}
}

func TestExtract_ClassesKeepDocumentOrder(t *testing.T) {
	rec := qualifying()
	rec.Classes = []string{"11A41", "05C99", "05C10", "05C99"}
	rec.References = [][]string{{"68R10", "05C10"}, {"05C10"}}
	page := mustParse(t, testutil.Page([]testutil.Record{rec}, nil))

	res, _ := Extract(page, target)
	if len(res.Rows) != 1 {
		t.Fatalf("Rows = %d, want 1", len(res.Rows))
	}
	if want := []string{"11A41", "05C99", "05C10", "05C99"}; !reflect.DeepEqual(res.Rows[0].Classes, want) {
		t.Errorf("Classes = %v, want %v", res.Rows[0].Classes, want)
	}
	if want := []string{"05C10", "05C10", "68R10"}; !reflect.DeepEqual(res.Rows[0].RefClasses, want) {
		t.Errorf("RefClasses = %v, want %v", res.Rows[0].RefClasses, want)
	}
}

func TestExtract_EmptyPageKeepsMarker(t *testing.T) {
	rec := qualifying()
	rec.Serial = "Annals of Mathematics"
	page := mustParse(t, testutil.Page([]testutil.Record{rec}, &testutil.Token{Value: "next", Cursor: 1, CompleteListSize: 2}))

	res, _ := Extract(page, target)
	if len(res.Rows) != 0 {
		t.Errorf("Rows = %+v, want none", res.Rows)
	}
	if res.Resumption == nil || res.Resumption.Token != "next" {
		t.Errorf("Resumption = %+v, want token next", res.Resumption)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	records := []testutil.Record{qualifying(), qualifying(), qualifying()}
	records[1].DocumentID = "2"
	records[1].References = [][]string{{"35Q30", "05C10"}, {"11A41"}}
	records[2].Serial = "Annals of Mathematics"
	page := mustParse(t, testutil.Page(records, &testutil.Token{Value: "t", Cursor: 3, CompleteListSize: 9}))

	first, _ := Extract(page, target)
	second, _ := Extract(page, target)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Extract() not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestExtract_NilPage(t *testing.T) {
	if _, err := Extract(nil, target); err == nil {
		t.Error("Expected error for nil page")
	}
}

func TestExtractStats_Merge(t *testing.T) {
	var total ExtractStats
	total.Merge(ExtractStats{Records: 3, Emitted: 1, Filtered: map[FilterReason]int{FilterOtherSerial: 2}})
	total.Merge(ExtractStats{Records: 2, Filtered: map[FilterReason]int{FilterOtherSerial: 1}, Errors: []error{&ExtractionError{Field: "metadata"}}})

	if total.Records != 5 || total.Emitted != 1 {
		t.Errorf("Records/Emitted = %d/%d, want 5/1", total.Records, total.Emitted)
	}
	if total.Filtered[FilterOtherSerial] != 3 || total.FilteredTotal() != 3 {
		t.Errorf("Filtered = %v", total.Filtered)
	}
	if len(total.Errors) != 1 {
		t.Errorf("Errors = %v", total.Errors)
	}
}
