package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"cablequest/lib/scrapers/plusd"
)

func TestLoadCheckpointMissing(t *testing.T) {
	checkpoint, err := LoadCheckpoint(filepath.Join(t.TempDir(), "checkpoint_1.json"))
	require.NoError(t, err)
	require.Equal(t, "", checkpoint.Keyword)
	require.NotNil(t, checkpoint.Completed)
	require.Empty(t, checkpoint.CableIDs)
}

func TestCheckpointRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint_1.json")

	saved := Checkpoint{
		Keyword:  "berlin wall",
		CableIDs: []string{"87BERLIN2212", "87BONN101"},
		Completed: map[string]plusd.CableRecord{
			"87BERLIN2212": {
				CableID:  "87BERLIN2212",
				Title:    "NEGOTIATIONS",
				Date:     "1987-12-19",
				FullText: "BODY",
				Origin:   "Germany Berlin",
			},
			"87BONN101": {
				CableID:    "87BONN101",
				Title:      "UNREACHABLE",
				FullText:   "[ERROR: Failed to fetch - http status 503 Service Unavailable]",
				FetchError: "http status 503 Service Unavailable",
			},
		},
	}
	require.NoError(t, SaveCheckpoint(path, saved))

	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	if diff := cmp.Diff(saved, loaded); diff != "" {
		t.Fatal(diff)
	}

	// No temp file should linger after a successful save.
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestCheckpointWireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint_1.json")

	require.NoError(t, SaveCheckpoint(path, Checkpoint{
		Keyword:  "kw",
		CableIDs: []string{"01A1"},
		Completed: map[string]plusd.CableRecord{
			"01A1": {CableID: "01A1", FullText: "x", FetchError: "boom"},
		},
	}))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(contents)
	require.Contains(t, text, `"cable_ids"`)
	require.Contains(t, text, `"completed"`)
	require.Contains(t, text, `"full_text"`)
	require.Contains(t, text, `"_fetch_error"`)
}

func TestCheckpointSurvivesCrashedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint_1.json")

	intact := Checkpoint{
		Keyword:  "intact",
		CableIDs: []string{"01A1"},
		Completed: map[string]plusd.CableRecord{
			"01A1": {CableID: "01A1", FullText: "BODY"},
		},
	}
	require.NoError(t, SaveCheckpoint(path, intact))

	// A crash between the temp write and the rename leaves a torn temp
	// file behind. The checkpoint itself must stay readable.
	require.NoError(t, os.WriteFile(path+".tmp", []byte(`{"keyword":"torn`), 0644))

	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	if diff := cmp.Diff(intact, loaded); diff != "" {
		t.Fatal(diff)
	}

	// The next save replaces the stale temp file and lands cleanly.
	require.NoError(t, SaveCheckpoint(path, Checkpoint{Keyword: "next"}))
	loaded, err = LoadCheckpoint(path)
	require.NoError(t, err)
	require.Equal(t, "next", loaded.Keyword)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestSaveCheckpointOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint_1.json")

	require.NoError(t, SaveCheckpoint(path, Checkpoint{Keyword: "first"}))
	require.NoError(t, SaveCheckpoint(path, Checkpoint{Keyword: "second"}))

	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	require.Equal(t, "second", loaded.Keyword)
}
