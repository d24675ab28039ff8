package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/aggregator"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/dataset"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/pipeline"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var count int
	var sleepAfter int
	var soundID string
	var out string
	var rows int

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the videos that use a sound",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(soundID) == "" {
				soundID = cfg.DefaultSoundID
			}

			fetcher := pipeline.NewFetcher(ctx.platform(cfg), cfg.MaxFetchCount)
			tbl, err := fetcher.Fetch(cmd.Context(), pipeline.FetchParams{
				Count:      count,
				SleepAfter: sleepAfter,
				SoundID:    soundID,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Fetched %d videos for sound %s\n", tbl.Len(), soundID)
			if tbl.Len() > 0 {
				fmt.Fprintln(w, renderPreview(tbl, aggregator.DefaultSelection(tbl.NumericColumns()), rows))
			}

			if out == "" {
				return nil
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := dataset.Write(f, tbl, dataset.FormatFromName(out)); err != nil {
				_ = f.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(w, "Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of videos to fetch")
	cmd.Flags().IntVar(&sleepAfter, "sleep-after", 5, "Seconds to wait between platform requests")
	cmd.Flags().StringVar(&soundID, "sound-id", "", "Sound ID (defaults to DEFAULT_SOUND_ID)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the table to a .csv or .xlsx file")
	cmd.Flags().IntVar(&rows, "rows", 20, "Rows to preview (0 for all)")
	return cmd
}
