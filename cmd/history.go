package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/crev/internal/models"
	"github.com/joescharf/crev/internal/review"
	"github.com/joescharf/crev/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"hist"},
	Short:   "List stored reviews",
	Long: `List reviews produced by the local review service, newest first.

Running bare 'crev history' is the same as 'crev history list'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun()
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored review (ID or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyShowRun(args[0])
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a stored review (ID or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyRmRun(args[0])
	},
}

func init() {
	historyCmd.PersistentFlags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum number of reviews to list (0 for all)")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyRmCmd)
	rootCmd.AddCommand(historyCmd)
}

func historyListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	reviews, err := s.ListReviews(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		ui.Info("No reviews found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Created", "Issues", "Model", "Code"})
	for _, r := range reviews {
		_ = table.Append([]string{
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", len(r.Issues)),
			r.Model,
			r.Preview(50),
		})
	}
	_ = table.Render()
	return nil
}

func historyShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	r, err := findReview(context.Background(), s, id)
	if err != nil {
		return err
	}

	ui.Info("Review %s", r.ID)
	ui.VerboseLog("Created %s by %s in %dms", r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Model, r.DurationMS)
	fmt.Fprintln(ui.Out)
	ui.Review(review.Normalize(r.Response()))
	return nil
}

func historyRmRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := findReview(ctx, s, id)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete review %s", r.ID)
		return nil
	}
	if err := s.DeleteReview(ctx, r.ID); err != nil {
		return err
	}
	ui.Success("Deleted review %s", shortID(r.ID))
	return nil
}

// findReview finds a review by full ID or prefix match.
func findReview(ctx context.Context, s store.Store, id string) (*models.Review, error) {
	// Try exact match first
	if r, err := s.GetReview(ctx, id); err == nil {
		return r, nil
	}

	upper := strings.ToUpper(id)
	reviews, err := s.ListReviews(ctx, 0)
	if err != nil {
		return nil, err
	}

	var matches []*models.Review
	for _, r := range reviews {
		if strings.HasPrefix(r.ID, upper) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("review not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous review ID %s: matches %d reviews", id, len(matches))
	}
}

// shortID returns a truncated ULID for display (first 12 chars).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
