package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"cablequest/lib/scrapers/plusd"
)

// runFile carries a search's results from `search` to `fetch`, along
// with the query and filter settings that produced them so the fetch
// step can apply the body-scope filters.
type runFile struct {
	Query        plusd.SearchQuery    `json:"query"`
	Exclude      string               `json:"exclude,omitempty"`
	ExcludeScope string               `json:"exclude_scope,omitempty"`
	Records      []plusd.ResultRecord `json:"records"`
}

func writeRunFile(path string, run runFile) error {
	contents, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, contents, 0644)
}

func readRunFile(path string) (runFile, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return runFile{}, err
	}
	var run runFile
	err = json.Unmarshal(contents, &run)
	if err != nil {
		return runFile{}, fmt.Errorf("parse results file %s: %w", path, err)
	}
	return run, nil
}
