package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bookapp/internal/activity"
)

var statKinds = map[string]activity.Kind{
	"added":      activity.KindAdded,
	"updated":    activity.KindUpdated,
	"deleted":    activity.KindDeleted,
	"favorited":  activity.KindFavorited,
	"downloaded": activity.KindDownloaded,
	"synced":     activity.KindSynced,
}

func (c *CLI) statsCommand() *cobra.Command {
	var (
		kind   string
		limit  int
		period time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the most active books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := statKinds[kind]
			if !ok {
				return fmt.Errorf("unknown activity %q", kind)
			}
			if limit <= 0 {
				return fmt.Errorf("limit must be positive")
			}

			var since time.Time
			if period > 0 {
				since = time.Now().Add(-period)
			}
			stats, err := c.app.Recorder().TopBooks(cmd.Context(), k, limit, since)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), kind, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(activity.KindFavorited), "activity to rank by")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of books to show")
	cmd.Flags().DurationVar(&period, "since", 0, "only count the last period, e.g. 720h")
	return cmd
}
