package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/pandahoho/importer/internal/bulkapi"
	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/targets"
)

func (a *app) importCmd() *cobra.Command {
	var baseURL, apiKey string

	cmd := &cobra.Command{
		Use:   "import <target> <file.csv>",
		Short: "Validate a CSV and submit it to the bulk API",
		Long: "Runs the same checks as 'importctl check'. Only a file without a single\n" +
			"error is submitted; the whole file is stored in one transaction.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if baseURL == "" {
				baseURL = a.cfg.BaseURL
			}
			if apiKey == "" {
				apiKey = a.cfg.APIKey
			}

			client := bulkapi.New(baseURL, apiKey, a.cfg.Timeout)
			target, err := lookupTarget(targets.NewRegistry(client), args[0])
			if err != nil {
				return err
			}
			raw, err := readCSVFile(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			session := target.NewSession(core.SessionOptions{SubmitTimeout: a.cfg.Timeout})
			defer session.Close()

			snap := session.SelectFile(raw)
			if !snap.Submittable {
				writeText(out, snap)
				return errNotReady
			}

			slog.Info("submitting import",
				"target", target.Info().Key,
				"records", snap.RecordCount,
				"base_url", baseURL,
			)
			report, err := session.Submit(cmd.Context())
			if err != nil {
				writeText(out, session.Snapshot())
				return fmt.Errorf("submit %s: %w", target.Info().Key, err)
			}

			fmt.Fprintf(out, "Imported %d %s from %s (%d created, %d updated) in %s\n",
				report.Result.Count, target.Info().Key, raw.Name,
				report.Result.Created, report.Result.Updated, report.Duration.Round(time.Millisecond))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&baseURL, "base-url", "", "Admin API root (default $IMPORTCTL_BASE_URL)")
	f.StringVar(&apiKey, "api-key", "", "Admin API key (default $IMPORTCTL_API_KEY)")
	return cmd
}
