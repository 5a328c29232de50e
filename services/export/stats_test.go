package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cablequest/lib/scrapers/plusd"
)

func TestCountryDistribution(t *testing.T) {
	cables := []plusd.CableRecord{
		{CableID: "1975MOSCOW1234", Date: "1975-06-01"},
		{CableID: "1976MOSCOW5678", Date: "1976-06-01"},
		{CableID: "1974BONN02212", Date: "1974-02-12"},
	}

	dist := countryDistribution(cables, LearnCountryMappings(cables))
	require.Equal(t, []labelCount{
		{"Soviet Union", 2},
		{"West Germany", 1},
	}, dist)
}

func TestYearDistribution(t *testing.T) {
	cables := []plusd.CableRecord{
		{CableID: "a", Date: "1975-06-01"},
		{CableID: "b", Date: "1975-12-31"},
		{CableID: "c", Date: "1987-12-19"},
		{CableID: "d"},
	}

	dist := yearDistribution(cables)
	require.Equal(t, []labelCount{
		{"1975", 2},
		{"1987", 1},
		{"Unknown", 1},
	}, dist)
}

func TestToExcelWritesWorkbook(t *testing.T) {
	cables := []plusd.CableRecord{
		{
			CableID:  "1974BONN02212",
			Title:    "NEGOTIATIONS",
			Date:     "1974-02-12",
			FullText: "LINE ONE\nLINE TWO\n\nPARA TWO",
		},
		{CableID: "1975MOSCOW1234", Title: "GRAIN DEAL", Date: "1975-06-01", FullText: "BODY"},
	}

	path := filepath.Join(t.TempDir(), "cables_test.xlsx")
	count, err := ToExcel(context.Background(), cables, path, Options{Keywords: []string{"test"}})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	require.ElementsMatch(t, []string{"Cables", "Statistics"}, f.GetSheetList())

	id, err := f.GetCellValue("Cables", "A2")
	require.NoError(t, err)
	require.Equal(t, "1974BONN02212", id)

	// Hard wraps reflow into one paragraph line.
	body, err := f.GetCellValue("Cables", "D2")
	require.NoError(t, err)
	require.Equal(t, "LINE ONE LINE TWO\n\nPARA TWO", body)

	url, err := f.GetCellValue("Cables", "E2")
	require.NoError(t, err)
	require.Equal(t, "https://wikileaks.org/plusd/cables/1974BONN02212.html", url)
}
