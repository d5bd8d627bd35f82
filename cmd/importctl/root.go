// importctl runs the CSV import pipeline from a terminal.
//
// Usage:
//
//	importctl template <target> [-o file]
//	importctl check <target> <file.csv> [--format text|json|yaml]
//	importctl import <target> <file.csv> [--base-url URL] [--api-key KEY]
//
// check never leaves the machine. import posts the validated records to the
// admin bulk endpoint at IMPORTCTL_BASE_URL.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pandahoho/importer/internal/config"
	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// errNotReady is returned by check and import when the file has problems.
// The report has already been printed, so main only sets the exit code.
var errNotReady = errors.New("file is not ready to import")

// app carries state shared by the subcommands.
type app struct {
	cfg *config.ClientConfig
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "importctl",
		Short: "Check and import PandaHoHo content CSV files",
		Long: "importctl decodes, validates and transforms content CSV files the same\n" +
			"way the admin import dialog does, and can submit them to the bulk API.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			cfg, err := config.LoadClient()
			if err != nil {
				return err
			}
			logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			a.cfg = cfg
			return nil
		},
	}

	root.AddCommand(a.templateCmd())
	root.AddCommand(a.checkCmd())
	root.AddCommand(a.importCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errNotReady) {
			fmt.Fprintf(os.Stderr, "importctl: %s\n", describe(err))
		}
		stop()
		os.Exit(1)
	}
}

// describe prefers the user-facing mapping when one exists.
func describe(err error) string {
	if core.IsUserFacing(err) {
		return fmt.Sprintf("%s\n  (%v)", core.FormatUserError(err), err)
	}
	return err.Error()
}
