package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepcache/stepcache/pkg/output"
	"github.com/stepcache/stepcache/pkg/state"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorded builds",
	Long: `Displays recent stepcache builds recorded under ~/.stepcache.

Shows each run with its tag, duration, outcome and produced image,
newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Maximum number of runs to show")
}

func runStatus() error {
	printer := output.New()

	records, err := state.List()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading run records: %w", err)
	}

	if len(records) == 0 {
		printer.Info("No recorded builds")
		return nil
	}

	if statusLimit > 0 && len(records) > statusLimit {
		records = records[:statusLimit]
	}

	var runs []output.RunSummary
	for _, r := range records {
		status := "failed"
		if r.Success {
			status = "ok"
		}
		runs = append(runs, output.RunSummary{
			RunID:    r.RunID,
			Tag:      r.Tag,
			Started:  formatDuration(time.Since(r.StartedAt)),
			Duration: r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			Status:   status,
			ImageID:  r.ImageID,
		})
	}

	printer.Section("BUILDS")
	printer.Runs(runs)

	if latest := records[0]; latest.Success && len(latest.Segments) > 0 {
		printer.Section("LATEST RUN SEGMENTS")
		var segments []output.SegmentSummary
		for i, s := range latest.Segments {
			segments = append(segments, output.SegmentSummary{
				Step:    i + 1,
				Kind:    s.Kind,
				Tag:     s.Tag,
				ImageID: s.ImageID,
				Cached:  s.Cached,
			})
		}
		printer.Segments(segments)
	}

	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds ago", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	}
	return fmt.Sprintf("%d days ago", int(d.Hours()/24))
}
