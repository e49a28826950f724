package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"calendar-service/internal/ics"
	"calendar-service/internal/storage"
)

var (
	exportStart string
	exportEnd   string
)

var exportCmd = &cobra.Command{
	Use:   "export <calendar-id>",
	Short: "Dump a calendar's events as ICS to stdout",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var id int64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil || id <= 0 {
			fmt.Fprintf(os.Stderr, "Invalid calendar id %q\n", args[0])
			os.Exit(1)
		}

		start, err := time.Parse(time.RFC3339, exportStart)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --start: %v\n", err)
			os.Exit(1)
		}
		end, err := time.Parse(time.RFC3339, exportEnd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --end: %v\n", err)
			os.Exit(1)
		}

		events, err := provider.ListEventsInRange(ctx, []int64{id}, start, end)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list events: %v\n", err)
			os.Exit(1)
		}

		var seriesIDs []int64
		for _, ev := range events {
			if ev.IsSeriesBase() {
				seriesIDs = append(seriesIDs, ev.ID)
			}
		}
		var exceptions []storage.Event
		if len(seriesIDs) > 0 {
			exceptions, err = provider.ListExceptions(ctx, seriesIDs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to list exceptions: %v\n", err)
				os.Exit(1)
			}
		}

		fmt.Print(ics.Export(events, exceptions))
	},
}

func init() {
	now := time.Now().UTC()
	exportCmd.Flags().StringVar(&exportStart, "start", now.AddDate(0, -1, 0).Format(time.RFC3339), "window start (RFC 3339)")
	exportCmd.Flags().StringVar(&exportEnd, "end", now.AddDate(1, 0, 0).Format(time.RFC3339), "window end (RFC 3339)")
	rootCmd.AddCommand(exportCmd)
}
