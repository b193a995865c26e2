package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/osmank/commentsweep"
	"github.com/osmank/commentsweep/gate"
	"github.com/osmank/commentsweep/metrics"
	"github.com/osmank/commentsweep/reddit"
	"github.com/osmank/commentsweep/retry"
)

// Report sheet names per engagement category.
const (
	SheetNoComments  = "No comments"
	SheetFewComments = "3 or less comments"
)

// fewCommentsMax is the highest comment count still reported as low
// engagement.
const fewCommentsMax = 3

// DataReader produces the input rows grouped by sheet name.
type DataReader interface {
	ReadData() (map[string][][]string, error)
}

// ReportWriter is the output workbook of the sweep.
type ReportWriter interface {
	Append(sheet, url string, comments int, traffic string) error
	SortByTraffic() error
	Save() error
}

// SubmissionFetcher knows how to fetch submission metadata from the
// discussion platform.
type SubmissionFetcher interface {
	Submission(ctx context.Context, url string) (*reddit.Submission, error)
}

// Config is the configuration of a Sweeper.
type Config struct {
	Reader  DataReader
	Writer  ReportWriter
	Fetcher SubmissionFetcher
	// Runner is the resilience chain every fetch goes through. Defaults
	// to a retry wrapping a gate, both with default settings. The retry
	// must stay outside the gate so a backoff wait doesn't hold a slot.
	Runner commentsweep.Runner
	// IncludeHeaderRows processes the first row of every input sheet
	// instead of skipping it.
	IncludeHeaderRows bool
	Logger            *slog.Logger
	Metrics           metrics.Recorder
}

func (c *Config) defaults() error {
	if c.Reader == nil {
		return errors.New("a data reader is required")
	}
	if c.Writer == nil {
		return errors.New("a report writer is required")
	}
	if c.Fetcher == nil {
		return errors.New("a submission fetcher is required")
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	if c.Runner == nil {
		c.Runner = commentsweep.RunnerChain(
			retry.NewMiddleware(retry.Config{Logger: c.Logger}),
			gate.NewMiddleware(gate.Config{}),
		)
	}

	if c.Metrics == nil {
		c.Metrics = metrics.Dummy
	}

	return nil
}

// Sweeper reads the input workbook, fetches every submission's comment
// count concurrently through the resilience chain, and records the low
// engagement ones in the categorized report.
type Sweeper struct {
	cfg Config
}

// New returns a new Sweeper.
func New(cfg Config) (*Sweeper, error) {
	if err := cfg.defaults(); err != nil {
		return nil, err
	}

	return &Sweeper{cfg: cfg}, nil
}

// Run executes the whole sweep. When the input can't be read it logs and
// stops without an error, there is no data to process. A fetch that
// exhausts its retries (or fails with a non retryable platform error)
// aborts the batch and its error is returned. Rows finish in no
// particular order.
func (s *Sweeper) Run(ctx context.Context) error {
	data, err := s.cfg.Reader.ReadData()
	if err != nil {
		s.cfg.Logger.Error("could not read input workbook", slog.Any("error", err))
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	queued := 0
	for sheetName, rows := range data {
		start := 0
		if !s.cfg.IncludeHeaderRows {
			start = 1
		}

		for i := start; i < len(rows); i++ {
			row := rows[i]
			if len(row) < 2 {
				s.cfg.Logger.Warn("malformed row, skipping",
					slog.String("sheet", sheetName),
					slog.Int("row", i))
				continue
			}

			url, traffic := row[0], row[1]
			s.cfg.Logger.Info("queued submission",
				slog.String("sheet", sheetName),
				slog.Int("row", i),
				slog.String("url", url))
			queued++

			g.Go(func() error {
				return s.process(ctx, url, traffic)
			})
		}
	}

	if queued == 0 {
		s.cfg.Logger.Warn("no data to process in file")
		return nil
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.cfg.Writer.SortByTraffic(); err != nil {
		return fmt.Errorf("sorting report: %w", err)
	}
	if err := s.cfg.Writer.Save(); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	s.cfg.Logger.Info("processing complete")

	return nil
}

// process fetches one submission and records it when its engagement is
// low. Invalid and unknown submissions are skipped without failing the
// batch, they are a data problem, not a platform one.
func (s *Sweeper) process(ctx context.Context, url, traffic string) error {
	if _, err := reddit.SubmissionID(url); err != nil {
		s.cfg.Logger.Warn("invalid submission url, skipping", slog.String("url", url))
		return nil
	}

	ctx = commentsweep.ContextWithTarget(ctx, url)

	var sub *reddit.Submission
	err := s.cfg.Runner.Run(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.cfg.Fetcher.Submission(ctx, url)
		return err
	})
	if err != nil {
		if errors.Is(err, reddit.ErrNotFound) {
			s.cfg.Logger.Warn("submission not found, skipping", slog.String("url", url))
			return nil
		}
		return err
	}

	s.cfg.Metrics.IncSubmissionProcessed()

	if sub.Locked || sub.Archived {
		return nil
	}

	s.cfg.Logger.Info("processed submission",
		slog.String("url", url),
		slog.Int("comments", sub.NumComments))

	sheet := ""
	switch {
	case sub.NumComments == 0:
		sheet = SheetNoComments
	case sub.NumComments <= fewCommentsMax:
		sheet = SheetFewComments
	default:
		return nil
	}

	if err := s.cfg.Writer.Append(sheet, url, sub.NumComments, traffic); err != nil {
		return fmt.Errorf("recording submission %s: %w", url, err)
	}
	s.cfg.Metrics.IncSubmissionReported(sheet)

	return nil
}
