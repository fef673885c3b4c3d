// Command triagectl is the operator tool for the document triage service:
// it classifies local files, checks rule configuration and works the manual
// review queue.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kirillkom/document-triage/internal/config"
	"github.com/kirillkom/document-triage/internal/observability/logging"
)

var (
	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "triagectl",
		Short:         "Operate the document triage classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), "triagectl", level, "text"))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline stages to stderr")
	root.PersistentFlags().StringVar(&cfg.ClassifierConfigDir, "config-dir", cfg.ClassifierConfigDir, "directory holding industry_rules.yaml")
	root.PersistentFlags().StringVar(&cfg.FiletypesPath, "filetypes", cfg.FiletypesPath, "path to supported_filetypes.yaml")

	// Subcommands read cfg through the pointer so flag values are seen.
	root.AddCommand(
		newClassifyCmd(&cfg),
		newRulesCmd(&cfg),
		newFiletypesCmd(&cfg),
		newReviewsCmd(&cfg),
	)
	return root
}

func printSeparator(w io.Writer) {
	fmt.Fprintln(w, "----------------------------------------")
}
