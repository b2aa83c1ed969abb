package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nilaykumar/msc-viz/pkg/oai"
)

// Fetcher retrieves the raw body of one page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Sink receives the rows of each page. WriteRows must not return before the
// rows are durable.
type Sink interface {
	WriteRows(rows []Row) error
	Close() error
}

// Checkpoint is the harvest position after a page's rows were written.
type Checkpoint struct {
	RunID            string
	Token            string
	Cursor           int
	CompleteListSize int
	Rows             int
}

// Checkpointer persists harvest positions so that an interrupted harvest can
// be resumed.
type Checkpointer interface {
	Save(ctx context.Context, cp Checkpoint) error
	Complete(ctx context.Context) error
}

// Request describes one harvest.
type Request struct {
	// StartDate is the OAI-PMH from parameter, YYYY-MM-DD.
	StartDate string

	// TargetSeries is the serial title to keep.
	TargetSeries string

	// OutputPath names the output the sink writes to.
	OutputPath string

	// ResumeToken continues an earlier harvest when set.
	ResumeToken string
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if _, err := time.Parse("2006-01-02", r.StartDate); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidStartDate, r.StartDate)
	}
	if r.TargetSeries == "" {
		return ErrMissingTargetSeries
	}
	if r.OutputPath == "" {
		return ErrMissingOutputPath
	}
	return nil
}

// Summary describes a finished (or aborted) harvest.
type Summary struct {
	RunID        string
	Pages        int
	Rows         int
	ParseRetries int
	LastToken    string
	Records      ExtractStats
}

// Driver runs a harvest page by page, strictly sequentially.
type Driver struct {
	fetcher     Fetcher
	sink        Sink
	query       oai.Query
	retry       RetryPolicy
	reporter    Reporter
	checkpoints Checkpointer
	logger      zerolog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithRetryPolicy sets the policy for malformed pages.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(d *Driver) { d.retry = p }
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(d *Driver) { d.reporter = r }
}

// WithCheckpointer enables checkpoints after every page.
func WithCheckpointer(c Checkpointer) Option {
	return func(d *Driver) { d.checkpoints = c }
}

// WithLogger sets the driver's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithQuery sets the endpoint and metadata prefix. From and ResumptionToken
// are taken from each Request.
func WithQuery(q oai.Query) Option {
	return func(d *Driver) { d.query = q }
}

// NewDriver creates a driver that reads pages from fetcher and writes rows to
// sink. The driver owns sink and closes it when Run returns.
func NewDriver(fetcher Fetcher, sink Sink, opts ...Option) *Driver {
	d := &Driver{
		fetcher: fetcher,
		sink:    sink,
		query: oai.Query{
			BaseURL:        oai.DefaultBaseURL,
			MetadataPrefix: oai.DefaultMetadataPrefix,
		},
		retry:    DefaultRetryPolicy(),
		reporter: NopReporter{},
		logger:   log.With().Str("component", "harvest-driver").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run harvests from the request's start (or resume token) until the provider
// returns a page without a resumption token. Transport failures, protocol
// errors and exhausted parse retries abort the run; rows of pages already
// processed stay in the sink.
func (d *Driver) Run(ctx context.Context, req Request) (summary Summary, err error) {
	sinkClosed := false
	defer func() {
		if sinkClosed {
			return
		}
		if cerr := d.sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	if err := req.Validate(); err != nil {
		return summary, err
	}

	summary.RunID = uuid.NewString()
	summary.LastToken = req.ResumeToken
	logger := d.logger.With().Str("run_id", summary.RunID).Logger()

	query := d.query
	query.From = req.StartDate
	token := req.ResumeToken

	logger.Info().
		Str("from", req.StartDate).
		Str("series", req.TargetSeries).
		Str("output", req.OutputPath).
		Str("token", token).
		Msg("Harvest started")

	var last *Marker
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}

		pageURL := query.WithToken(token).URL()
		body, err := d.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return summary, fmt.Errorf("%w: %w", ErrContextCancelled, err)
			}
			logger.Error().Err(err).Str("url", pageURL).Msg("Page fetch failed")
			return summary, fmt.Errorf("fetch page: %w", err)
		}

		page, err := ParsePage(body)
		if err != nil {
			attempt++
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Attempt = attempt
			}
			harvestPagesTotal.WithLabelValues("parse_error").Inc()
			d.reporter.ParseFailure(attempt, err)
			logger.Warn().Err(err).Str("url", pageURL).Int("attempt", attempt).Msg("Malformed page")

			if d.retry.Exhausted(attempt) {
				harvestRetryExhaustedTotal.Inc()
				logger.Error().Str("url", pageURL).Int("attempt", attempt).Msg("Parse retries exhausted")
				return summary, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, err)
			}
			summary.ParseRetries++
			if err := d.retry.wait(ctx, attempt); err != nil {
				return summary, err
			}
			continue
		}
		if attempt > 0 {
			logger.Info().Int("attempt", attempt+1).Str("token", token).Msg("Page parsed after retry")
		}
		attempt = 0

		if perr := page.ProtocolError(); perr != nil {
			if perr.Code != CodeNoRecordsMatch {
				harvestPagesTotal.WithLabelValues("protocol_error").Inc()
				logger.Error().Str("code", perr.Code).Str("url", pageURL).Msg(perr.Message)
				return summary, fmt.Errorf("provider error: %w", perr)
			}
			harvestPagesTotal.WithLabelValues("no_records").Inc()
			summary.Pages++
			logger.Info().Str("token", token).Msg("Provider reports no matching records")
			sinkClosed = true
			return summary, d.finish(ctx, logger, summary)
		}

		result, err := Extract(page, req.TargetSeries)
		if err != nil {
			return summary, fmt.Errorf("extract page: %w", err)
		}
		for _, rerr := range result.Stats.Errors {
			logger.Warn().Err(rerr).Msg("Record dropped")
		}

		if err := d.sink.WriteRows(result.Rows); err != nil {
			return summary, fmt.Errorf("write rows: %w", err)
		}
		harvestPagesTotal.WithLabelValues("ok").Inc()
		harvestRowsWrittenTotal.Add(float64(len(result.Rows)))
		recordStatsMetrics(result.Stats)

		summary.Pages++
		summary.Rows += len(result.Rows)
		summary.Records.Merge(result.Stats)

		marker := result.Resumption
		logPage := logger.Info().Int("rows", len(result.Rows)).Int("records", result.Stats.Records)
		if marker == nil {
			logPage.Msg("Last page written")
			harvestProgressRatio.Set(1)
			sinkClosed = true
			return summary, d.finish(ctx, logger, summary)
		}
		logPage.Str("token", marker.Token).
			Int("cursor", marker.Cursor).
			Int("complete_list_size", marker.CompleteListSize).
			Msg("Page written")

		checkProgress(logger, last, marker)
		if marker.HasProgress {
			harvestProgressRatio.Set(marker.Ratio())
		}
		d.checkpoint(ctx, logger, summary, marker)

		last = marker
		token = marker.Token
		summary.LastToken = token
		d.reporter.Progress(*marker)
	}
}

// finish closes the sink, clears the checkpoint and reports completion.
func (d *Driver) finish(ctx context.Context, logger zerolog.Logger, summary Summary) error {
	if err := d.sink.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if d.checkpoints != nil {
		if err := d.checkpoints.Complete(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to clear checkpoint")
		}
	}
	logger.Info().
		Int("pages", summary.Pages).
		Int("rows", summary.Rows).
		Int("parse_retries", summary.ParseRetries).
		Msg("Harvest complete")
	d.reporter.Done(summary)
	return nil
}

func (d *Driver) checkpoint(ctx context.Context, logger zerolog.Logger, summary Summary, m *Marker) {
	if d.checkpoints == nil {
		return
	}
	cp := Checkpoint{
		RunID:            summary.RunID,
		Token:            m.Token,
		Cursor:           m.Cursor,
		CompleteListSize: m.CompleteListSize,
		Rows:             summary.Rows,
	}
	if err := d.checkpoints.Save(ctx, cp); err != nil {
		logger.Warn().Err(err).Str("token", m.Token).Msg("Failed to save checkpoint")
	}
}

// checkProgress warns when the provider's counters move backwards.
func checkProgress(logger zerolog.Logger, prev, next *Marker) {
	if prev == nil || !prev.HasProgress || !next.HasProgress {
		return
	}
	if next.Cursor < prev.Cursor {
		logger.Warn().
			Int("cursor", next.Cursor).
			Int("previous_cursor", prev.Cursor).
			Msg("Provider cursor moved backwards")
	}
	if next.CompleteListSize != prev.CompleteListSize {
		logger.Warn().
			Int("complete_list_size", next.CompleteListSize).
			Int("previous_complete_list_size", prev.CompleteListSize).
			Msg("Provider completeListSize changed")
	}
}
