package commands

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cablequest/cmd/cablequest/utils"
	"cablequest/lib/scrapers/plusd"
	"cablequest/lib/serviceutil"
	"cablequest/lib/textutil"
	"cablequest/services/archive"
)

var searchKeyword *string
var searchFrom *string
var searchTo *string
var searchProjects *[]string
var searchExclude *string
var searchExcludeScope *string
var searchLimitPreview *int
var searchOut *string

func init() {
	searchKeyword = searchCmd.Flags().String("keyword", "", "The keyword or phrase to search for.")
	searchFrom = searchCmd.Flags().String("from", "", "Earliest cable date, YYYY-MM-DD.")
	searchTo = searchCmd.Flags().String("to", "", "Latest cable date, YYYY-MM-DD.")
	searchProjects = searchCmd.Flags().StringArray(
		"projects", []string{plusd.ProjectCablegate},
		"Archive collections to search; 'all' expands to every collection.",
	)
	searchExclude = searchCmd.Flags().String("exclude", "", "Terms to exclude, quote multi-word phrases.")
	searchExcludeScope = searchCmd.Flags().String(
		"exclude-scope", string(archive.ExcludeBoth),
		"Where exclude terms apply: both, title or body.",
	)
	searchLimitPreview = searchCmd.Flags().Int("limit-preview", 10, "Number of results to preview.")
	searchOut = searchCmd.Flags().String("out", "results.json", "Where to write the result list.")
	searchCmd.MarkFlagRequired("keyword")
	rootCmd.AddCommand(searchCmd)
}

func expandProjects(projects []string) []string {
	if slices.Contains(projects, "all") {
		return plusd.AllProjects
	}
	return projects
}

var searchCmd = &cobra.Command{
	Use:   "search --keyword <phrase> [--from <date>] [--to <date>]",
	Short: "Searches the archive and writes the matching cable list to a file.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		terms, err := textutil.SplitTerms(*searchExclude)
		if err != nil {
			serviceutil.Fatal("failed to parse exclude terms", err)
		}
		scope := archive.ExcludeScope(*searchExcludeScope)

		query := plusd.SearchQuery{
			Keyword:  *searchKeyword,
			DateFrom: *searchFrom,
			DateTo:   *searchTo,
			Projects: expandProjects(*searchProjects),
		}

		client := newPlusdClient()
		records, err := client.Search(ctx, query, func(status string) {
			fmt.Println(status)
		})
		if err != nil {
			serviceutil.Fatal("search failed", err)
		}

		kept := archive.FilterResultsByTitle(records, terms, scope)
		if len(kept) < len(records) {
			fmt.Printf("Excluded %d cables by title\n", len(records)-len(kept))
		}

		preview := kept
		if len(preview) > *searchLimitPreview {
			preview = preview[:*searchLimitPreview]
		}
		t := utils.NewTable()
		t.AppendHeader(table.Row{"Cable ID", "Date", "Title"})
		for _, record := range preview {
			t.AppendRow(table.Row{record.CableID, record.Date, record.Title})
		}
		t.Render()
		fmt.Printf("%d cables matched in total\n", len(kept))

		err = writeRunFile(*searchOut, runFile{
			Query:        query,
			Exclude:      *searchExclude,
			ExcludeScope: string(scope),
			Records:      kept,
		})
		if err != nil {
			serviceutil.Fatal("failed to write result list", err)
		}
		slog.Info("wrote result list", "path", *searchOut, "cables", len(kept))
	},
}
