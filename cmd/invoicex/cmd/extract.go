package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newExtractCommand(a *app) *cobra.Command {
	var quiet bool
	c := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract fields from one invoice PDF or image",
		Long: `Run OCR on a single document, write <name>.json (and <name>.xlsx when
enabled) to the output directory, and print the record JSON to stdout.

Examples:
  invoicex extract invoice.pdf
  invoicex extract scan.png --output out/ --json-layout flat`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close(a.cfg.Metrics.Textfile, a.logger)

			rep := s.batch.Run(cmd.Context(), args)
			if len(rep.Failed) > 0 {
				return rep.Failed[0].Err
			}
			if quiet {
				return nil
			}
			out := rep.Succeeded[0]
			data, err := json.Marshal(out.Document.Record)
			if err != nil {
				return err
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, data, "", "    "); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
			return err
		},
	}
	c.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the record")
	return c
}
