package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/nilaykumar/msc-viz/pkg/harvest"
)

// Format selects how rows are rendered.
type Format string

const (
	// FormatLegacy renders list cells as quoted Python-style list literals,
	// e.g. "['05C10', '11A41']". Cell contents are not escaped.
	FormatLegacy Format = "legacy"

	// FormatCSV renders RFC 4180 records with list cells joined by ';'.
	FormatCSV Format = "csv"
)

// ParseFormat returns the Format named by s. The empty string selects
// FormatLegacy.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatLegacy:
		return FormatLegacy, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// listSeparator joins list cells in FormatCSV.
const listSeparator = ";"

// HeaderLine returns the header line for the format, without newline.
func HeaderLine(f Format) string {
	if f == FormatCSV {
		return encodeCSV(harvest.Header)
	}
	return strings.Join(harvest.Header, ",")
}

// EncodeRow renders row in the given format, without newline.
func EncodeRow(f Format, row harvest.Row) string {
	if f == FormatCSV {
		return encodeCSV([]string{
			row.ID,
			row.Serial,
			row.Year,
			strings.Join(row.Classes, listSeparator),
			strings.Join(row.RefClasses, listSeparator),
		})
	}
	return fmt.Sprintf("%s,%s,%s,\"%s\",\"%s\"",
		row.ID, row.Serial, row.Year, pyList(row.Classes), pyList(row.RefClasses))
}

func encodeCSV(fields []string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_ = w.Write(fields)
	w.Flush()
	return strings.TrimSuffix(buf.String(), "\n")
}

// pyList renders items the way Python's str(list) does.
func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = pyRepr(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func pyRepr(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
