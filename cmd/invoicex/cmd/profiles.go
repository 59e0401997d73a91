package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

func newProfilesCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "profiles",
		Short: "List, show and validate extraction profiles",
	}

	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List built-in profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tVERSION\tFIELDS\tDESCRIPTION")
			for _, name := range extract.BuiltinNames() {
				p, err := extract.Builtin(name)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.Name, p.Version, len(p.FieldNames()), p.Description)
			}
			return tw.Flush()
		},
	})

	c.AddCommand(&cobra.Command{
		Use:   "show [NAME]",
		Short: "Print a profile as YAML (the configured one when NAME is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cp  *extract.CompiledProfile
				err error
			)
			if len(args) == 1 {
				var p *extract.Profile
				if p, err = extract.Builtin(args[0]); err == nil {
					cp, err = extract.CompileProfile(p)
				}
			} else {
				cp, err = loadProfile(a.cfg.Extraction)
			}
			if err != nil {
				return err
			}
			data, err := cp.Profile().EncodeYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	c.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Check that a YAML profile loads and compiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := extract.LoadProfileFile(args[0])
			if err != nil {
				return err
			}
			cp, err := extract.CompileProfile(p)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "profile %q is valid: %d fields, %d derived\n",
				cp.Name(), len(p.Fields), len(cp.DerivedRules()))
			return err
		},
	})
	return c
}
