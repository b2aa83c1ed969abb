package harvest

import (
	"fmt"
	"io"
	"os"
)

// Reporter receives human-facing progress events from the driver.
type Reporter interface {
	// Progress is called after each page that has a successor.
	Progress(m Marker)

	// ParseFailure is called for every malformed page before it is fetched again.
	ParseFailure(attempt int, err error)

	// Done is called once the last page has been written.
	Done(s Summary)
}

// ConsoleReporter prints progress lines to Out (stdout when nil).
type ConsoleReporter struct {
	Out io.Writer
}

func (r ConsoleReporter) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

// Progress implements Reporter.
func (r ConsoleReporter) Progress(m Marker) {
	if !m.HasProgress {
		fmt.Fprintf(r.out(), "? / ? \t %s\n", m.Token)
		return
	}
	fmt.Fprintf(r.out(), "%d / %d = %.2f%% \t %s\n", m.Cursor, m.CompleteListSize, m.Ratio()*100, m.Token)
}

// ParseFailure implements Reporter.
func (r ConsoleReporter) ParseFailure(attempt int, err error) {
	fmt.Fprintf(r.out(), "error while parsing page XML (attempt %d), retrying same page: %v\n", attempt, err)
}

// Done implements Reporter.
func (r ConsoleReporter) Done(Summary) {
	fmt.Fprintln(r.out(), "...done!")
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) Progress(Marker)         {}
func (NopReporter) ParseFailure(int, error) {}
func (NopReporter) Done(Summary)            {}
