package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/book-analyzer/config"
	"github.com/aluiziolira/book-analyzer/logging"
	"github.com/aluiziolira/book-analyzer/parser"
	"github.com/aluiziolira/book-analyzer/pipeline"
	"github.com/aluiziolira/book-analyzer/scraper"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	sink, err := logging.Open(logging.Options{Verbose: cfg.Verbose, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log sink: %v\n", err)
		os.Exit(1)
	}
	logger := sink.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := 0
	if err := run(ctx, cfg, logger); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Info("run interrupted by user, nothing exported")
		case errors.Is(err, errNoRecords):
			logger.Error("no data was collected")
		default:
			logger.Error("run failed", slog.Any("error", err))
			code = 1
		}
	}
	stop()

	if err := sink.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close log sink: %v\n", err)
	}
	os.Exit(code)
}

var errNoRecords = errors.New("no records collected")

func loadConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_PAGES: %w", err)
	} else if ok {
		cfg.Pages = value
	}
	if value, ok := config.EnvString("SCRAPER_BASE_URL"); ok {
		cfg.BaseURL = value
	}
	if value, ok := config.EnvString("SCRAPER_OUTPUT_DIR"); ok {
		cfg.OutputDir = value
	}
	if value, ok := config.EnvString("SCRAPER_LOG_FILE"); ok {
		cfg.LogFile = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok, err := config.EnvDuration("SCRAPER_REQUEST_DELAY"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_REQUEST_DELAY: %w", err)
	} else if ok {
		cfg.RequestDelay = value
	}
	if value, ok, err := config.EnvDuration("SCRAPER_PAGE_DELAY"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_PAGE_DELAY: %w", err)
	} else if ok {
		cfg.PageDelay = value
	}

	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Base URL of the catalog")
	fs.IntVar(&cfg.Pages, "pages", cfg.Pages, "Number of catalog pages to walk")
	fs.DurationVar(&cfg.RequestDelay, "delay", cfg.RequestDelay, "Delay before each page request")
	fs.DurationVar(&cfg.PageDelay, "page-delay", cfg.PageDelay, "Delay after each finished page")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout per page request")
	fs.BoolVar(&cfg.CheckRobots, "check-robots", cfg.CheckRobots, "Read robots.txt and log advisory findings")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for exported artifacts")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path (empty to disable)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.Pages),
		slog.Duration("request_delay", cfg.RequestDelay),
		slog.Duration("page_delay", cfg.PageDelay),
	)

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.NewFetcher(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("initialising fetcher: %w", err)
	}

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		logger.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	var opts []scraper.WalkerOption
	opts = append(opts, scraper.WithMetrics(metrics))
	if cfg.CheckRobots {
		advisor, err := scraper.NewRobotsAdvisor(fetcher, cfg, logger)
		if err != nil {
			return fmt.Errorf("initialising robots advisor: %w", err)
		}
		advisor.Check(ctx, cfg.BaseURL)
		opts = append(opts, scraper.WithAdvisor(advisor))
	}

	walker := scraper.NewWalker(cfg, fetcher, parser.NewExtractor(logger), logger, opts...)
	walked, err := walker.Walk(ctx, cfg.BaseURL, cfg.Pages)
	if err != nil {
		return fmt.Errorf("walk: %w", err)
	}
	if len(walked.Records) == 0 {
		return errNoRecords
	}

	agg := pipeline.NewAggregator(logger).Aggregate(walked.Records)

	// Leave without writing anything if the interrupt landed after the walk.
	if err := ctx.Err(); err != nil {
		return err
	}

	exported := pipeline.NewExporter(cfg.OutputDir, logger).Export(walked.Records, agg, pipeline.RunInfo{
		RunAt:   time.Now(),
		BaseURL: cfg.BaseURL,
		Pages:   cfg.Pages,
	})
	metrics.ObserveExport(exported)
	if err := pipeline.Verify(exported, len(walked.Records)); err != nil {
		logger.Error("output validation failed", slog.Any("error", err))
	}

	printReport(os.Stdout, walked, agg, exported)
	logger.Info("run complete", slog.Int("records", agg.TotalRecords), slog.String("run", exported.RunStamp))
	return nil
}
