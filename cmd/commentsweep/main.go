// commentsweep reads an xlsx workbook of submission links, fetches every
// submission's comment count from the reddit API through a bounded
// concurrency gate with rate limit aware retries, and writes the low
// engagement submissions to a categorized, traffic sorted report.
//
// Usage:
//
//	commentsweep [--config app.yaml] [--metrics-listen :9145] <input.xlsx> <output.xlsx>
//
// The platform credentials come from the environment (REDDIT_CLIENT_ID,
// REDDIT_CLIENT_SECRET, REDDIT_USER_AGENT) or the configuration file.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/osmank/commentsweep"
	"github.com/osmank/commentsweep/config"
	"github.com/osmank/commentsweep/gate"
	"github.com/osmank/commentsweep/metrics"
	"github.com/osmank/commentsweep/pace"
	"github.com/osmank/commentsweep/reddit"
	"github.com/osmank/commentsweep/retry"
	"github.com/osmank/commentsweep/sweep"
	"github.com/osmank/commentsweep/timeout"
	"github.com/osmank/commentsweep/xlsx"
)

func main() {
	os.Exit(run())
}

func run() int {
	app := newApp()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return 0
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "commentsweep",
		Usage:     "report low engagement submissions from a workbook of links",
		ArgsUsage: "<input.xlsx> <output.xlsx>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "metrics-listen",
				Usage: "address to serve prometheus metrics on, empty disables the endpoint",
			},
		},
		Action: runSweep,
	}
}

func runSweep(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return cli.Exit("usage: commentsweep [options] <input.xlsx> <output.xlsx>", 2)
	}
	inputPath, outputPath := cmd.Args().Get(0), cmd.Args().Get(1)

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLogger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLogger()

	recorder := metrics.Dummy
	if addr := cmd.String("metrics-listen"); addr != "" {
		reg := prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		go serveMetrics(addr, reg, logger)
	}

	client := reddit.NewClient(reddit.Config{
		Credentials: reddit.Credentials{
			ClientID:     cfg.Reddit.ClientID,
			ClientSecret: cfg.Reddit.ClientSecret,
			UserAgent:    cfg.Reddit.UserAgent,
		},
	})

	s, err := sweep.New(sweep.Config{
		Reader:  xlsx.NewReader(inputPath),
		Writer:  xlsx.NewWriter(outputPath),
		Fetcher: client,
		Runner:  newRunner(cfg.Limiter, recorder, logger),
		Logger:  logger,
		Metrics: recorder.WithID("sweep"),
	})
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.Run(ctx)
	logger.Info("total execution time", slog.Duration("elapsed", time.Since(start)))

	return err
}

// newRunner builds the resilience chain for the platform calls. The retry
// stays outside the gate so a backoff wait doesn't hold a concurrency
// slot, and the pacer and per attempt timeout only join when configured.
func newRunner(cfg config.LimiterConfig, rec metrics.Recorder, logger *slog.Logger) commentsweep.Runner {
	middlewares := []commentsweep.Middleware{
		retry.NewMiddleware(retry.Config{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: cfg.InitialDelay,
			Logger:       logger,
		}),
	}

	if cfg.AttemptTimeout > 0 {
		middlewares = append(middlewares, timeout.NewMiddleware(timeout.Config{
			Timeout: cfg.AttemptTimeout,
		}))
	}

	if cfg.RequestsPerSecond > 0 {
		middlewares = append(middlewares, pace.NewMiddleware(pace.Config{
			RequestsPerSecond: cfg.RequestsPerSecond,
		}))
	}

	middlewares = append(middlewares, gate.NewMiddleware(gate.Config{
		MaxConcurrent: cfg.MaxConcurrent,
	}))

	return metrics.NewMeasuredRunner("sweep", rec, commentsweep.RunnerChain(middlewares...))
}

func newLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}

	var w io.Writer = os.Stderr
	closeLogger := func() {}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		w = lj
		closeLogger = func() { lj.Close() }
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(handler), closeLogger, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics endpoint failed", slog.Any("error", err))
	}
}
