package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/kirillkom/document-triage/internal/bootstrap"
	"github.com/kirillkom/document-triage/internal/config"
)

func newRulesCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the rule configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Compile rules and filetypes and report the first error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, sources, err := bootstrap.LoadEngine(*cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorGreen.Fprint(out, "OK ")
			fmt.Fprintf(out, "%d rules from %s, %d extensions from %s\n",
				len(engine.Rules), sources.Rules, len(engine.Filetypes), sources.Filetypes)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print rules in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, _, err := bootstrap.LoadEngine(*cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, rule := range engine.Rules {
				colorCyan.Fprintf(out, "%d. %s\n", i+1, rule.Label)
				fmt.Fprintf(out, "   filename:   %s\n", joinPatterns(rule.FilenamePatterns))
				fmt.Fprintf(out, "   fuzzy:      %s\n", strings.Join(rule.FuzzyKeywords, ", "))
				fmt.Fprintf(out, "   required:   %s\n", joinPatterns(rule.Content.Required))
				fmt.Fprintf(out, "   supporting: %s\n", joinPatterns(rule.Content.Supporting))
				fmt.Fprintf(out, "   negative:   %s\n", joinPatterns(rule.Content.Negative))
			}
			return nil
		},
	})
	return cmd
}

func newFiletypesCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filetypes",
		Short: "Inspect supported file types",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print accepted content types per extension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, _, err := bootstrap.LoadEngine(*cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, ext := range engine.Filetypes.Extensions() {
				fmt.Fprintf(out, "%-6s %s\n", ext, strings.Join(engine.Filetypes[ext], ", "))
			}
			return nil
		},
	})
	return cmd
}

// joinPatterns prints patterns as configured, without the case-insensitive
// flag the compiler adds.
func joinPatterns(patterns []*regexp.Regexp) string {
	if len(patterns) == 0 {
		return "-"
	}
	return strings.Join(lo.Map(patterns, func(re *regexp.Regexp, _ int) string {
		return strings.TrimPrefix(re.String(), "(?i)")
	}), ", ")
}
