package archive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cablequest/lib/scrapers/plusd"
)

func TestFilterResultsByTitle(t *testing.T) {
	records := []plusd.ResultRecord{
		{CableID: "01A1", Title: "NUCLEAR TEST PREPARATIONS"},
		{CableID: "01A2", Title: "TRADE AGREEMENT"},
		{CableID: "01A3", Title: ""},
	}

	kept := FilterResultsByTitle(records, []string{"nuclear test"}, ExcludeBoth)
	require.Len(t, kept, 2)
	require.Equal(t, "01A2", kept[0].CableID)
	require.Equal(t, "01A3", kept[1].CableID)

	// body-only scope leaves titles alone
	kept = FilterResultsByTitle(records, []string{"nuclear test"}, ExcludeBody)
	require.Len(t, kept, 3)

	// no terms, no change
	kept = FilterResultsByTitle(records, nil, ExcludeBoth)
	require.Len(t, kept, 3)
}

func TestFilterCablesByBody(t *testing.T) {
	cables := []plusd.CableRecord{
		{CableID: "01A1", FullText: "The Weapons Program continues."},
		{CableID: "01A2", FullText: "Agricultural exports rose."},
	}

	kept := FilterCablesByBody(cables, []string{"weapons"}, ExcludeBoth)
	require.Len(t, kept, 1)
	require.Equal(t, "01A2", kept[0].CableID)

	kept = FilterCablesByBody(cables, []string{"weapons"}, ExcludeTitle)
	require.Len(t, kept, 2)
}

func TestFilterCablesByDate(t *testing.T) {
	cables := []plusd.CableRecord{
		{CableID: "01A1", Date: "1974-01-15"},
		{CableID: "01A2", Date: "1975-06-01"},
		{CableID: "01A3", Date: "1976-12-31"},
		{CableID: "01A4"}, // undated, always kept
	}

	kept := FilterCablesByDate(cables, "1975-01-01", "1975-12-31")
	require.Len(t, kept, 2)
	require.Equal(t, "01A2", kept[0].CableID)
	require.Equal(t, "01A4", kept[1].CableID)

	// boundaries are inclusive
	kept = FilterCablesByDate(cables, "1975-06-01", "1975-06-01")
	require.Len(t, kept, 2)

	// open ended ranges
	kept = FilterCablesByDate(cables, "1975-01-01", "")
	require.Len(t, kept, 3)
	kept = FilterCablesByDate(cables, "", "1974-12-31")
	require.Len(t, kept, 2)

	// no range, no change
	kept = FilterCablesByDate(cables, "", "")
	require.Len(t, kept, 4)
}
