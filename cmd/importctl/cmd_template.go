package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pandahoho/importer/internal/targets"
)

func (a *app) templateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template <target>",
		Short: "Write the example CSV for a target",
		Long: "Writes a UTF-8 CSV with a byte order mark, a header row and one example\n" +
			"row. Without -o the file is named after the target; -o - prints to stdout.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := lookupTarget(targets.NewRegistry(nil), args[0])
			if err != nil {
				return err
			}
			data, err := target.TemplateCSV()
			if err != nil {
				return fmt.Errorf("render template: %w", err)
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "" {
				output = target.Info().TemplateFile
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path, or - for stdout")
	return cmd
}
