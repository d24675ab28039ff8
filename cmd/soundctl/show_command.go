package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/aggregator"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/pipeline"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/record"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var start string
	var end string
	var columns string
	var rows int

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Summarize a previously exported table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			tbl, err := pipeline.NewImporter().Import(f, path)
			if err != nil {
				return err
			}

			if start != "" || end != "" {
				from, to, err := dayWindow(start, end)
				if err != nil {
					return err
				}
				if tbl, err = tbl.FilterByTime(from, to); err != nil {
					return err
				}
			}

			metrics := splitColumns(columns)
			if len(metrics) == 0 {
				metrics = aggregator.DefaultSelection(tbl.NumericColumns())
			}

			w := cmd.OutOrStdout()
			if tbl.Len() > 0 {
				fmt.Fprintln(w, renderPreview(tbl, metrics, rows))
			}
			sum, err := aggregator.Aggregate(tbl, metrics)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, describeRange(sum))
			if len(sum.Metrics) > 0 {
				fmt.Fprintln(w, renderSummary(sum))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First day to include (YYYY-MM-DD, JST)")
	cmd.Flags().StringVar(&end, "end", "", "Last day to include (YYYY-MM-DD, JST)")
	cmd.Flags().StringVar(&columns, "columns", "", "Comma separated metric columns")
	cmd.Flags().IntVar(&rows, "rows", 20, "Rows to preview (0 for all)")
	return cmd
}

// dayWindow turns two optional JST days into an inclusive time range.
func dayWindow(start, end string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Date(9999, 12, 31, 23, 59, 59, 0, record.JST)
	if start != "" {
		day, err := time.ParseInLocation(time.DateOnly, start, record.JST)
		if err != nil {
			return from, to, fmt.Errorf("invalid --start %q: %w", start, err)
		}
		from = day
	}
	if end != "" {
		day, err := time.ParseInLocation(time.DateOnly, end, record.JST)
		if err != nil {
			return from, to, fmt.Errorf("invalid --end %q: %w", end, err)
		}
		to = day.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("--end is before --start")
	}
	return from, to, nil
}

func splitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" && c != table.TimeColumn {
			out = append(out, c)
		}
	}
	return out
}
