// Command mscharvest harvests MSC classification data from the zbMATH Open
// OAI-PMH endpoint into a flat file.
//
// Usage:
//
//	mscharvest [-config file] [-from 2020-01-01] [-series "Advances in Mathematics"]
//	           [-output data.csv] [-token TOKEN | -resume] [flags]
//
// Settings are read from the defaults, then the YAML config file, then
// environment variables, then flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nilaykumar/msc-viz/internal/config"
	"github.com/nilaykumar/msc-viz/pkg/checkpoint"
	"github.com/nilaykumar/msc-viz/pkg/harvest"
	"github.com/nilaykumar/msc-viz/pkg/logging"
	"github.com/nilaykumar/msc-viz/pkg/metrics"
	"github.com/nilaykumar/msc-viz/pkg/oai"
	"github.com/nilaykumar/msc-viz/pkg/output"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitAborted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options are command line settings that are not part of the config file.
type options struct {
	resume bool
}

// parseArgs builds the effective configuration from defaults, config file,
// environment and flags, in that order of precedence.
func parseArgs(args []string, stderr io.Writer) (*config.Config, options, error) {
	var opts options

	fs := flag.NewFlagSet("mscharvest", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "YAML config file")
	baseURL := fs.String("base-url", "", "OAI-PMH endpoint")
	from := fs.String("from", "", "harvest records changed since this date (YYYY-MM-DD)")
	series := fs.String("series", "", "serial title to keep")
	out := fs.String("output", "", "output file")
	format := fs.String("format", "", "output format: legacy or csv")
	token := fs.String("token", "", "resumption token to continue a harvest from")
	maxRetries := fs.Int("max-retries", 0, "parse attempts per page, 0 retries forever")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	pretty := fs.Bool("pretty", false, "human readable logs")
	redisAddr := fs.String("redis", "", "Redis address for checkpoints")
	metricsAddr := fs.String("metrics-addr", "", "serve /metrics and /health on this address")
	fs.BoolVar(&opts.resume, "resume", false, "continue from the stored checkpoint (requires -redis)")

	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}
	if fs.NArg() > 0 {
		return nil, opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, opts, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base-url":
			cfg.Harvest.BaseURL = *baseURL
		case "from":
			cfg.Harvest.StartDate = *from
		case "series":
			cfg.Harvest.TargetSeries = *series
		case "output":
			cfg.Harvest.OutputPath = *out
		case "format":
			cfg.Harvest.Format = *format
		case "token":
			cfg.Harvest.ResumeToken = *token
		case "max-retries":
			cfg.Retry.MaxAttempts = *maxRetries
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "pretty":
			cfg.Logging.Pretty = *pretty
		case "redis":
			cfg.Redis.Addr = *redisAddr
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, opts, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = stderr
	logging.Setup(logCfg)
	logger := logging.NewLogger("mscharvest")

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("Serving metrics")
	}

	client, err := oai.New(cfg.OAIConfig())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create OAI client")
		return exitUsage
	}

	req := cfg.Request()
	driverOpts := []harvest.Option{
		harvest.WithQuery(client.Query("")),
		harvest.WithRetryPolicy(cfg.RetryPolicy()),
		harvest.WithReporter(harvest.ConsoleReporter{Out: stdout}),
		harvest.WithLogger(logging.NewLogger("harvest-driver")),
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		defer redisClient.Close()

		saver, token := setupCheckpoints(ctx, logger, redisClient, cfg, opts.resume)
		if saver != nil {
			driverOpts = append(driverOpts, harvest.WithCheckpointer(saver))
		}
		if token != "" {
			req.ResumeToken = token
		}
	} else if opts.resume {
		logger.Warn().Msg("-resume needs a Redis checkpoint store; starting from the beginning")
	}

	sink, err := output.Open(req.OutputPath, req.ResumeToken != "", cfg.OutputFormat())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open output")
		return exitFailed
	}

	driver := harvest.NewDriver(client, sink, driverOpts...)
	summary, err := driver.Run(ctx, req)
	if err != nil {
		logger.Error().
			Err(err).
			Int("pages", summary.Pages).
			Int("rows", summary.Rows).
			Str("token", summary.LastToken).
			Msg("Harvest failed")
		if summary.LastToken != "" {
			fmt.Fprintf(stderr, "harvest stopped: %v\nresume with: -token %s\n", err, summary.LastToken)
		} else {
			fmt.Fprintf(stderr, "harvest stopped: %v\n", err)
		}
		if errors.Is(err, harvest.ErrContextCancelled) {
			return exitAborted
		}
		return exitFailed
	}

	return exitOK
}

// setupCheckpoints connects the checkpoint store. When resume is set and no
// token was given explicitly, the stored token is returned. A store that
// cannot be reached disables checkpoints instead of failing the run.
func setupCheckpoints(ctx context.Context, logger zerolog.Logger, redisClient *redis.Client, cfg *config.Config, resume bool) (*checkpoint.Saver, string) {
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, checkpoints disabled")
		return nil, ""
	}

	manager := checkpoint.NewManager(redisClient)
	key := checkpoint.Key{
		BaseURL: cfg.Harvest.BaseURL,
		From:    cfg.Harvest.StartDate,
		Series:  cfg.Harvest.TargetSeries,
		Output:  cfg.Harvest.OutputPath,
	}

	var token string
	if resume && cfg.Harvest.ResumeToken == "" {
		entry, err := manager.Get(ctx, key)
		switch {
		case err == nil:
			token = entry.Token
			logger.Info().
				Str("token", entry.Token).
				Int("cursor", entry.Cursor).
				Int("complete_list_size", entry.CompleteListSize).
				Dur("age", entry.Age()).
				Msg("Resuming from checkpoint")
		case errors.Is(err, checkpoint.ErrNotFound):
			logger.Info().Str("key", key.String()).Msg("No checkpoint stored, starting from the beginning")
		default:
			logger.Warn().Err(err).Msg("Failed to load checkpoint, starting from the beginning")
		}
	}

	return manager.Saver(key), token
}
