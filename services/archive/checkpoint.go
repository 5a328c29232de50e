package archive

import (
	"encoding/json"
	"fmt"
	"os"

	"cablequest/lib/scrapers/plusd"
)

// Checkpoint mirrors the resume file on disk. Completed maps cable id
// to its fetched record; error records stay in the map so a later run
// retries them while skipping everything that succeeded.
type Checkpoint struct {
	Keyword   string                       `json:"keyword"`
	CableIDs  []string                     `json:"cable_ids"`
	Completed map[string]plusd.CableRecord `json:"completed"`
}

// LoadCheckpoint reads the checkpoint at path. A missing file is a
// fresh start, not an error.
func LoadCheckpoint(path string) (Checkpoint, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Checkpoint{
			CableIDs:  []string{},
			Completed: map[string]plusd.CableRecord{},
		}, nil
	}
	if err != nil {
		return Checkpoint{}, err
	}

	var checkpoint Checkpoint
	err = json.Unmarshal(contents, &checkpoint)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("parse checkpoint %s: %w", path, err)
	}
	if checkpoint.CableIDs == nil {
		checkpoint.CableIDs = []string{}
	}
	if checkpoint.Completed == nil {
		checkpoint.Completed = map[string]plusd.CableRecord{}
	}
	return checkpoint, nil
}

// SaveCheckpoint writes through a temp file and renames it into place,
// a crash mid-write must not destroy the previous state.
func SaveCheckpoint(path string, checkpoint Checkpoint) error {
	contents, err := json.Marshal(checkpoint)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	err = os.WriteFile(tmp, contents, 0644)
	if err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
