package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-triage/internal/bootstrap"
	"github.com/kirillkom/document-triage/internal/config"
	"github.com/kirillkom/document-triage/internal/core/domain"
)

func newClassifyCmd(cfg *config.Config) *cobra.Command {
	var (
		asJSON bool
		record bool
	)

	cmd := &cobra.Command{
		Use:   "classify FILE...",
		Short: "Run files through the classification funnel",
		Long: `Classify local files the same way the API does.

Files that no stage can label are copied to the review storage. Audit records
and escalation events are only written with --record.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCfg := *cfg
			if !record {
				runCfg.PostgresDSN = ""
				runCfg.NATSURL = ""
			}
			app, err := bootstrap.New(cmd.Context(), runCfg)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				result, err := classifyPath(cmd, app, path)
				if err != nil {
					colorRed.Fprintf(out, "%s: %v\n", path, err)
					failed++
					continue
				}
				if asJSON {
					if err := writeResultJSON(out, path, result); err != nil {
						return err
					}
					continue
				}
				printResult(out, path, result)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be classified", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON result per line")
	cmd.Flags().BoolVar(&record, "record", false, "write audit records and escalation events when configured")
	return cmd
}

func classifyPath(cmd *cobra.Command, app *bootstrap.App, path string) (domain.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Result{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.Result{}, err
	}
	return app.Classifier.Classify(cmd.Context(), domain.Upload{
		Filename: filepath.Base(path),
		Size:     info.Size(),
		Content:  f,
	})
}

func printResult(w io.Writer, path string, result domain.Result) {
	if result.OK() {
		colorGreen.Fprintf(w, "%s: %s", path, result.Success.Label)
		fmt.Fprintf(w, " (step %d, %s %s, confidence %.2f)\n",
			result.Success.Step, result.Success.BasedOn, result.Success.MatchType, result.Success.Confidence)
		return
	}
	colorYellow.Fprintf(w, "%s: %s", path, result.Failure.Code)
	fmt.Fprintf(w, " %s\n", result.Failure.Message)
}

func writeResultJSON(w io.Writer, path string, result domain.Result) error {
	line := struct {
		File    string          `json:"file"`
		Success bool            `json:"success"`
		Data    *domain.Success `json:"data,omitempty"`
		Error   *domain.Failure `json:"error,omitempty"`
	}{File: path, Success: result.OK(), Data: result.Success, Error: result.Failure}
	return json.NewEncoder(w).Encode(line)
}
