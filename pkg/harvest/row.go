package harvest

// Header is the column header of the output file.
var Header = []string{"id", "serial", "pub", "class", "refclass"}

// Row is one output row, emitted for a record of the target serial whose
// references carry at least one MSC code.
type Row struct {
	ID     string
	Serial string
	Year   string

	// Classes are the record's own MSC codes in document order.
	Classes []string

	// RefClasses are the MSC codes of all cited references, sorted, with
	// duplicates kept.
	RefClasses []string
}
