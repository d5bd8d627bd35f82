package main

import (
	"github.com/spf13/cobra"

	"github.com/pandahoho/importer/internal/targets"
)

func (a *app) checkCmd() *cobra.Command {
	var (
		format     string
		errorLimit int
	)

	cmd := &cobra.Command{
		Use:   "check <target> <file.csv>",
		Short: "Decode and validate a CSV without submitting it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := lookupTarget(targets.NewRegistry(nil), args[0])
			if err != nil {
				return err
			}
			raw, err := readCSVFile(args[1])
			if err != nil {
				return err
			}

			snap := target.Preview(raw, errorLimit)
			if err := writeSnapshot(cmd.OutOrStdout(), snap, format); err != nil {
				return err
			}
			if !snap.Submittable {
				return errNotReady
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, "format", "text", "Output format: text, json or yaml")
	f.IntVar(&errorLimit, "errors", 10, "Maximum error lines in the summary (0 shows all)")
	return cmd
}
