package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"cablequest/lib/scrapers/plusd"
	"cablequest/lib/serviceutil"
	"cablequest/services/archive"
	"cablequest/services/export"
)

var exportIn *[]string
var exportCheckpoints *[]string
var exportDb *string
var exportOutput *string
var exportKeywords *[]string

func init() {
	exportIn = exportCmd.Flags().StringArray("in", nil, "Fetched-cable files written by `fetch`.")
	exportCheckpoints = exportCmd.Flags().StringArray("checkpoint", nil, "Checkpoint files to export completed cables from.")
	exportDb = exportCmd.Flags().String("db", "", "Export every cable from this sqlite archive.")
	exportOutput = exportCmd.Flags().String("output", "", "The .xlsx path to write, derived from the keyword when empty.")
	exportKeywords = exportCmd.Flags().StringArray("keywords", nil, "Search keywords to list on the statistics sheet.")
	rootCmd.AddCommand(exportCmd)
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// deriveOutputName builds the workbook filename from the first search
// keyword, collapsing anything non-alphanumeric to underscores.
func deriveOutputName(keyword string) string {
	kw := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(keyword), "_"), "_")
	if kw == "" {
		return "cables_export.xlsx"
	}
	return fmt.Sprintf("cables_%s.xlsx", kw)
}

var checkpointName = regexp.MustCompile(`^checkpoint_\d+\.json$`)

// removeConsumedCheckpoints deletes the per-run checkpoint files a
// successful export consumed. Only auto-named checkpoint_<n>.json
// files go, anything custom-named stays.
func removeConsumedCheckpoints(paths []string) {
	for _, path := range paths {
		if !checkpointName.MatchString(filepath.Base(path)) {
			continue
		}
		err := os.Remove(path)
		if err != nil {
			slog.Warn("failed to remove consumed checkpoint", "path", path, "err", err)
			continue
		}
		slog.Info("removed consumed checkpoint", "path", path)
	}
}

func readCableFile(path string) ([]plusd.CableRecord, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cables []plusd.CableRecord
	err = json.Unmarshal(contents, &cables)
	if err != nil {
		return nil, fmt.Errorf("parse cable file %s: %w", path, err)
	}
	return cables, nil
}

// checkpointCables pulls the completed records out of a checkpoint in
// run order. Error records stay behind, they have no text to export.
func checkpointCables(checkpoint archive.Checkpoint) []plusd.CableRecord {
	cables := make([]plusd.CableRecord, 0, len(checkpoint.Completed))
	for _, id := range checkpoint.CableIDs {
		cable, ok := checkpoint.Completed[id]
		if !ok || cable.FetchError != "" {
			continue
		}
		cables = append(cables, cable)
	}
	return cables
}

func dedupeCables(cables []plusd.CableRecord) []plusd.CableRecord {
	seen := make(map[string]bool, len(cables))
	unique := make([]plusd.CableRecord, 0, len(cables))
	for _, cable := range cables {
		if seen[cable.CableID] {
			continue
		}
		seen[cable.CableID] = true
		unique = append(unique, cable)
	}
	return unique
}

var exportCmd = &cobra.Command{
	Use:   "export [--in <cables.json>] [--checkpoint <path>] [--db <path>]",
	Short: "Writes collected cables to an xlsx workbook with statistics.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		var cables []plusd.CableRecord
		keywords := *exportKeywords

		for _, path := range *exportIn {
			fromFile, err := readCableFile(path)
			if err != nil {
				serviceutil.Fatal("failed to read cable file", err)
			}
			cables = append(cables, fromFile...)
		}

		for _, path := range *exportCheckpoints {
			checkpoint, err := archive.LoadCheckpoint(path)
			if err != nil {
				serviceutil.Fatal("failed to read checkpoint", err)
			}
			cables = append(cables, checkpointCables(checkpoint)...)
			if checkpoint.Keyword != "" && len(*exportKeywords) == 0 {
				keywords = append(keywords, checkpoint.Keyword)
			}
		}

		if *exportDb != "" || (len(*exportIn) == 0 && len(*exportCheckpoints) == 0) {
			database := openDatabase(*exportDb)
			if database == nil {
				serviceutil.Fatal("no input given", fmt.Errorf("pass --in, --checkpoint or --db"))
			}
			defer database.Close()
			service := archive.NewService(archive.ServiceOptions{Database: database})
			stored, err := service.StoredCables(ctx)
			if err != nil {
				serviceutil.Fatal("failed to read the archive database", err)
			}
			cables = append(cables, stored...)
		}

		cables = dedupeCables(cables)
		if len(cables) == 0 {
			serviceutil.Fatal("nothing to export", fmt.Errorf("no cables found in the given inputs"))
		}

		output := *exportOutput
		if output == "" {
			keyword := ""
			if len(keywords) > 0 {
				keyword = keywords[0]
			}
			output = deriveOutputName(keyword)
		}

		count, err := export.ToExcel(ctx, cables, output, export.Options{Keywords: keywords})
		if err != nil {
			serviceutil.Fatal("export failed", err)
		}
		fmt.Printf("Exported %d cables to %s\n", count, output)

		removeConsumedCheckpoints(*exportCheckpoints)
	},
}
