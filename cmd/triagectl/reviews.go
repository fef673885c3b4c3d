package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-triage/internal/bootstrap"
	"github.com/kirillkom/document-triage/internal/config"
	"github.com/kirillkom/document-triage/internal/core/domain"
)

func newReviewsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Work the manual review queue",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List pending review items, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reviews, _, closeFn, err := bootstrap.OpenReviewQueue(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			items, err := reviews.ListPending(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				colorGreen.Fprintln(out, "Review queue is empty")
				return nil
			}
			for _, item := range items {
				printReview(out, item)
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "maximum number of items (default 50)")

	var output string
	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one review item and optionally export its document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviews, storage, closeFn, err := bootstrap.OpenReviewQueue(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			item, err := reviews.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printReview(out, *item)
			if output == "" {
				return nil
			}

			src, err := storage.Open(cmd.Context(), item.StorageKey)
			if err != nil {
				return err
			}
			defer src.Close()
			n, err := copyToFile(output, src)
			if err != nil {
				return err
			}
			colorGreen.Fprintf(out, "wrote %d bytes to %s\n", n, output)
			return nil
		},
	}
	get.Flags().StringVarP(&output, "output", "o", "", "copy the stored document to this path")

	cmd.AddCommand(list, get)
	return cmd
}

func printReview(w io.Writer, item domain.ReviewItem) {
	printSeparator(w)
	colorCyan.Fprintf(w, "%s\n", item.ID)
	fmt.Fprintf(w, "file:       %s\n", item.Filename)
	fmt.Fprintf(w, "stored as:  %s\n", item.StorageKey)
	fmt.Fprintf(w, "status:     %s\n", item.Status)
	if item.PredictedLabel != "" {
		fmt.Fprintf(w, "prediction: %s (%.2f, needs %.2f)\n", item.PredictedLabel, item.PredictedConfidence, item.MinConfidence)
	}
	fmt.Fprintf(w, "escalated:  %s\n", item.EscalatedAt.Format("2006-01-02 15:04:05Z07:00"))
}

func copyToFile(path string, src io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}
