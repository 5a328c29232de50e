package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cablequest/lib/scrapers/plusd"
	"cablequest/lib/serviceutil"
	"cablequest/lib/textutil"
	"cablequest/services/archive"
	"cablequest/services/notify"
)

var fetchResults *string
var fetchCheckpoint *string
var fetchDb *string
var fetchOut *string
var fetchDelay *time.Duration
var fetchNotify *string

func init() {
	fetchResults = fetchCmd.Flags().String("results", "results.json", "The result list written by `search`.")
	fetchCheckpoint = fetchCmd.Flags().String("checkpoint", "checkpoint_1.json", "Where fetch progress is checkpointed.")
	fetchDb = fetchCmd.Flags().String("db", "", "Optional sqlite archive to mirror fetched cables into.")
	fetchOut = fetchCmd.Flags().String("out", "cables.json", "Where to write the fetched cables.")
	fetchDelay = fetchCmd.Flags().Duration("delay", 1500*time.Millisecond, "Pause between consecutive cable downloads.")
	fetchNotify = fetchCmd.Flags().String("notify", "", "Email address to notify when the run finishes.")
	rootCmd.AddCommand(fetchCmd)
}

// formatEstimate renders the expected wall time for count downloads,
// at roughly 7 seconds per cable including the politeness delay.
func formatEstimate(count int) string {
	total := time.Duration(count) * 7 * time.Second
	switch {
	case total >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(total.Hours()), int(total.Minutes())%60)
	case total >= time.Minute:
		return fmt.Sprintf("%dm %ds", int(total.Minutes()), int(total.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(total.Seconds()))
}

func reportFailed(cables []plusd.CableRecord) int {
	var failed []string
	for _, cable := range cables {
		if cable.FetchError != "" {
			failed = append(failed, cable.CableID)
		}
	}
	if len(failed) == 0 {
		return 0
	}

	fmt.Printf("%d cables failed to download:\n", len(failed))
	shown := failed
	if len(shown) > 20 {
		shown = shown[:20]
	}
	for _, id := range shown {
		fmt.Printf("  %s\n", id)
	}
	if len(failed) > len(shown) {
		fmt.Printf("  ... and %d more\n", len(failed)-len(shown))
	}
	fmt.Println("Rerunning fetch with the same checkpoint retries only these.")
	return len(failed)
}

func sendNotification(ctx context.Context, to string, run notify.Summary) {
	notifier := notify.NewNotifier(config.Smtp)
	if !notifier.Enabled() {
		slog.Warn("--notify given but no smtp config found, skipping notification")
		return
	}
	err := notifier.Send(ctx, to, run)
	if err != nil {
		slog.Warn("failed to send completion email", "err", err)
		return
	}
	slog.Info("sent completion email", "to", to)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--results <path>] [--checkpoint <path>]",
	Short: "Downloads the full text of every cable in a result list, resumably.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		run, err := readRunFile(*fetchResults)
		if err != nil {
			serviceutil.Fatal("failed to read result list", err)
		}
		terms, err := textutil.SplitTerms(run.Exclude)
		if err != nil {
			serviceutil.Fatal("failed to parse exclude terms", err)
		}

		database := openDatabase(*fetchDb)
		if database != nil {
			defer database.Close()
		}
		service := archive.NewService(archive.ServiceOptions{
			Client:   newPlusdClient(),
			Database: database,
			Delay:    *fetchDelay,
		})

		runId := notify.NewRunID()
		total := len(run.Records)
		fmt.Printf("Fetching %d cables (run %s), estimated time: %s\n", total, runId, formatEstimate(total))

		start := time.Now()
		cables, err := service.FetchAll(ctx, run.Query.Keyword, run.Records, *fetchCheckpoint, func(p archive.Progress) {
			if p.Cable.FetchError != "" {
				fmt.Printf("[%d/%d] %s FAILED: %s\n", p.Done, p.Total, p.Cable.CableID, p.Cable.FetchError)
				return
			}
			fmt.Printf("[%d/%d] %s %s\n", p.Done, p.Total, p.Cable.CableID, p.Cable.Title)
		})
		if err != nil {
			// The checkpoint survives, rerunning resumes where this
			// run stopped.
			serviceutil.Fatal("fetch run aborted", err)
		}
		elapsed := time.Since(start)
		failed := reportFailed(cables)

		if database != nil {
			// Cables already landed in the mirror during the loop, this
			// records the search run itself.
			err = service.StoreRun(ctx, run.Query.Keyword, cables)
			if err != nil {
				slog.Warn("failed to record run in the archive database", "err", err)
			}
		}

		kept := archive.FilterCablesByBody(cables, terms, archive.ExcludeScope(run.ExcludeScope))
		if len(kept) < len(cables) {
			fmt.Printf("Excluded %d cables by body text\n", len(cables)-len(kept))
		}
		kept = archive.FilterCablesByDate(kept, run.Query.DateFrom, run.Query.DateTo)

		contents, err := json.MarshalIndent(kept, "", "  ")
		if err != nil {
			serviceutil.Fatal("failed to encode fetched cables", err)
		}
		err = os.WriteFile(*fetchOut, contents, 0644)
		if err != nil {
			serviceutil.Fatal("failed to write fetched cables", err)
		}
		fmt.Printf("Fetched %d cables in %s, wrote %s\n", total, elapsed.Round(time.Second), *fetchOut)

		if *fetchNotify != "" {
			sendNotification(ctx, *fetchNotify, notify.Summary{
				RunID:      runId,
				Keyword:    run.Query.Keyword,
				Fetched:    len(cables) - failed,
				Failed:     failed,
				Elapsed:    elapsed,
				OutputFile: *fetchOut,
			})
		}
	},
}
