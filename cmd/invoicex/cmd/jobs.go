package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

func newJobsCommand(a *app) *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "jobs",
		Short: "Check the job ledger and list recent extraction jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Store.Driver == "" {
				return common.NewAppError(common.CodeConfig, "no job ledger configured (set store.driver)", common.ErrInvalidInput)
			}
			ctx := cmd.Context()
			db, err := openStore(ctx, a.cfg.Store, a.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.HealthCheck(ctx, time.Second); err != nil {
				return fmt.Errorf("ledger health: %w", err)
			}
			a.logger.Info("ledger health OK", "driver", db.Dialect())

			jobs, err := repository.NewExtractJobRepository(db, a.logger).ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tPAGES\tCONFIDENCE\tSTARTED\tSOURCE")
			for _, j := range jobs {
				conf := "-"
				if j.MeanConfidence != nil {
					conf = fmt.Sprintf("%.3f", *j.MeanConfidence)
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
					j.ID, j.Status, j.Pages, conf, j.StartedAt.Format(time.RFC3339), j.SourcePath)
			}
			return tw.Flush()
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 20, "number of jobs to list")
	return c
}
