package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

func newBatchCommand(a *app) *cobra.Command {
	var recursive, skipHidden bool
	c := &cobra.Command{
		Use:   "batch PATH...",
		Short: "Extract fields from every invoice under the given files and directories",
		Long: `Process documents one at a time. A document that fails (OCR error,
unsupported file, write error) is reported and skipped; the rest of the batch
continues. The exit status is non-zero when any document failed.

Supported formats: PDF, PNG, JPEG, TIFF

Examples:
  invoicex batch invoices/
  invoicex batch invoices/ --recursive --summary
  invoicex batch a.pdf b.png --output results/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, stats, err := ingest.Discover(args, recursive, skipHidden)
			if err != nil {
				return err
			}
			a.logger.Info("discovery complete",
				"documents", len(paths),
				"scanned", stats.Scanned,
				"matched", stats.Matched,
				"skipped", stats.Skipped,
				"failed", stats.Failed,
			)

			s, err := a.newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close(a.cfg.Metrics.Textfile, a.logger)

			rep := s.batch.Run(cmd.Context(), paths)
			printReport(cmd, rep)
			if len(rep.Failed) > 0 {
				return errDocumentsFailed
			}
			return nil
		},
	}
	f := c.Flags()
	f.BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	f.BoolVar(&skipHidden, "skip-hidden", true, "ignore dot files and dot directories")
	f.Bool("summary", false, "also write summary.xlsx with one row per document")
	f.Bool("xlsx", true, "write <name>.xlsx next to each JSON record")
	f.Bool("raw-text", false, "write the OCR text as <name>.txt")
	bindFlags(a.loader.Viper(), f, map[string]string{
		"output.summary":        "summary",
		"output.write_xlsx":     "xlsx",
		"output.write_raw_text": "raw-text",
	})
	return c
}

func printReport(cmd *cobra.Command, rep *pipeline.Report) {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Batch processing complete!\n")
	_, _ = fmt.Fprintf(w, "- Documents processed: %d\n", len(rep.Succeeded))
	_, _ = fmt.Fprintf(w, "- Failures: %d\n", len(rep.Failed))
	for _, f := range rep.Failed {
		_, _ = fmt.Fprintf(w, "  - %s: %v\n", f.Path, f.Err)
	}
	if rep.SummaryPath != "" {
		_, _ = fmt.Fprintf(w, "- Summary: %s\n", rep.SummaryPath)
	}
	_, _ = fmt.Fprintf(w, "- Elapsed: %s\n", rep.Duration.Round(time.Millisecond))
}
