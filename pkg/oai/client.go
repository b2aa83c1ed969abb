// Package oai provides the page fetcher for an OAI-PMH provider: it builds
// ListRecords request URLs and retrieves raw response bodies over HTTP GET.
// Responses are not parsed here, and no request is ever retried.
package oai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for OAI page requests.
var (
	oaiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oai_requests_total",
		Help: "Total OAI-PMH page requests by HTTP status",
	}, []string{"status"})

	oaiRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oai_request_duration_seconds",
		Help:    "OAI-PMH page request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	oaiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oai_errors_total",
		Help: "Total OAI-PMH transport errors by class",
	}, []string{"class"})
)

// Default provider settings.
const (
	DefaultBaseURL        = "https://oai.zbmath.org/v1/"
	DefaultMetadataPrefix = "oai_zb_preview"
	DefaultUserAgent      = "msc-viz/1.0"
)

// Config holds the fetcher configuration.
type Config struct {
	// BaseURL of the OAI-PMH endpoint.
	BaseURL string

	// MetadataPrefix requested from the provider.
	MetadataPrefix string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for a single page request, including reading the body.
	Timeout time.Duration
}

// DefaultConfig returns the zbMATH Open configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		MetadataPrefix: DefaultMetadataPrefix,
		UserAgent:      DefaultUserAgent,
		Timeout:        5 * time.Minute,
	}
}

// Client fetches raw ListRecords pages.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new page fetcher.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.MetadataPrefix == "" {
		return nil, fmt.Errorf("metadata prefix is required")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     log.With().Str("component", "oai-client").Logger(),
	}, nil
}

// Query returns the first-page query for a harvest starting at from.
func (c *Client) Query(from string) Query {
	return Query{
		BaseURL:        c.config.BaseURL,
		MetadataPrefix: c.config.MetadataPrefix,
		From:           from,
	}
}

// Fetch issues one GET request and returns the response body as text.
// Any network failure or non-2xx status is returned as a *TransportError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	startTime := time.Now()
	defer func() {
		oaiRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/xml, text/xml")

	c.logger.Debug().Str("url", rawURL).Msg("Fetching page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		oaiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		oaiRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("url", rawURL).Msg("HTTP request failed")
		return "", &TransportError{
			URL:        rawURL,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	oaiRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyStatus(resp.StatusCode)
		oaiErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Error().
			Str("url", rawURL).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("OAI request error")
		return "", &TransportError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		oaiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return "", &TransportError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	return string(body), nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
