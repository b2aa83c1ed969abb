// Package output writes harvested rows to a flat file, one line per row.
package output

import (
	"bufio"
	"fmt"
	"os"

	"github.com/nilaykumar/msc-viz/pkg/harvest"
)

// CSVFile is a row sink backed by a file on disk. Every WriteRows call is
// flushed and synced before it returns.
type CSVFile struct {
	f       *os.File
	w       *bufio.Writer
	format  Format
	path    string
	written int
}

var _ harvest.Sink = (*CSVFile)(nil)

// Open opens path for writing rows. A fresh harvest (appendMode false)
// truncates the file and writes the header. In append mode the file is
// created if needed and the header is written only when the file is empty.
func Open(path string, appendMode bool, format Format) (*CSVFile, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	out := &CSVFile{f: f, w: bufio.NewWriter(f), format: format, path: path}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		if _, err := out.w.WriteString(HeaderLine(format) + "\n"); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := out.flush(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return out, nil
}

// WriteRows appends rows and makes them durable.
func (o *CSVFile) WriteRows(rows []harvest.Row) error {
	if o.f == nil {
		return fmt.Errorf("write %s: file closed", o.path)
	}
	for _, row := range rows {
		if _, err := o.w.WriteString(EncodeRow(o.format, row) + "\n"); err != nil {
			return fmt.Errorf("write row %s: %w", row.ID, err)
		}
	}
	if err := o.flush(); err != nil {
		return err
	}
	o.written += len(rows)
	return nil
}

func (o *CSVFile) flush() error {
	if err := o.w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", o.path, err)
	}
	if err := o.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", o.path, err)
	}
	return nil
}

// RowsWritten returns the number of rows written since Open.
func (o *CSVFile) RowsWritten() int {
	return o.written
}

// Path returns the file path.
func (o *CSVFile) Path() string {
	return o.path
}

// Close flushes and closes the file. Closing twice is a no-op.
func (o *CSVFile) Close() error {
	if o.f == nil {
		return nil
	}
	flushErr := o.w.Flush()
	closeErr := o.f.Close()
	o.f = nil
	if flushErr != nil {
		return fmt.Errorf("flush %s: %w", o.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", o.path, closeErr)
	}
	return nil
}
