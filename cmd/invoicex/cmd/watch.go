package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

func newWatchCommand(a *app) *cobra.Command {
	var (
		initialScan bool
		skipHidden  bool
		debounce    time.Duration
		workers     int
		timeout     time.Duration
	)
	c := &cobra.Command{
		Use:   "watch DIR...",
		Short: "Process invoices as they appear in the given directories",
		Long: `Watch directories (recursively) and extract every new or rewritten invoice.
Files whose content was already processed are skipped. Stops on SIGINT/SIGTERM
after the queued documents finish.

Examples:
  invoicex watch inbox/
  invoicex watch inbox/ --initial-scan --debounce 2s`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.newSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close(a.cfg.Metrics.Textfile, a.logger)

			seen := ingest.NewDeduper()
			handler := async.HandlerFunc(func(ctx context.Context, path string) error {
				hash, prev, dup, err := seen.Check(path)
				if err != nil {
					return err
				}
				if dup {
					a.logger.Info("skipping unchanged document", "path", path, "same_as", prev)
					return nil
				}
				if err := s.batch.Handle(ctx, path); err != nil {
					seen.Forget(hash)
					return err
				}
				return nil
			})
			q := async.NewProcessorQueue(handler, a.logger,
				async.WithWorkers(workers),
				async.WithProcessTimeout(timeout),
			)

			events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initialScan,
				SkipHidden:  skipHidden,
				Debounce:    debounce,
				Logger:      a.logger,
			})
			if err != nil {
				q.Shutdown(context.Background())
				return err
			}
			a.logger.Info("watching", "roots", args)

			for events != nil || errs != nil {
				select {
				case p, ok := <-events:
					if !ok {
						events = nil
						continue
					}
					if err := q.Enqueue(ctx, async.Job{Path: p, SubmittedAt: time.Now()}); err != nil {
						a.logger.Warn("enqueue failed", "path", p, "error", err)
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					a.logger.Warn("watch error", "error", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			q.Shutdown(shutdownCtx)
			if _, failed := q.Counts(); failed > 0 {
				return errDocumentsFailed
			}
			return nil
		},
	}
	f := c.Flags()
	f.BoolVar(&initialScan, "initial-scan", false, "process documents already present at startup")
	f.BoolVar(&skipHidden, "skip-hidden", true, "ignore dot files and dot directories")
	f.DurationVar(&debounce, "debounce", time.Second, "wait for writes to settle before processing")
	f.IntVar(&workers, "workers", 1, "documents processed concurrently")
	f.DurationVar(&timeout, "timeout", 3*time.Minute, "per-document processing timeout")
	return c
}
