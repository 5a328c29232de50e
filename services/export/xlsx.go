package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cablequest/lib/scrapers/plusd"
	"cablequest/lib/telemetry"
	"cablequest/lib/textutil"
)

var tracer = telemetry.Tracer("services/export")

const (
	cablesSheet     = "Cables"
	statisticsSheet = "Statistics"
)

func cableUrl(cableId string) string {
	return fmt.Sprintf("https://wikileaks.org/plusd/cables/%s.html", cableId)
}

type Options struct {
	// Keywords end up on the statistics sheet for provenance.
	Keywords []string
}

// ToExcel writes cables to an xlsx workbook: a Cables sheet with one
// row per cable and a Statistics sheet with distribution tables.
// Returns the number of cables written.
func ToExcel(ctx context.Context, cables []plusd.CableRecord, filename string, options Options) (int, error) {
	_, span := tracer.Start(ctx, "ToExcel")
	defer span.End()
	span.SetAttributes(
		attribute.Int("cables", len(cables)),
		attribute.String("filename", filename),
	)

	f := excelize.NewFile()
	defer f.Close()

	err := writeCablesSheet(f, cables)
	if err == nil {
		err = writeStatisticsSheet(f, cables, options.Keywords)
	}
	if err == nil {
		err = f.SaveAs(filename)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		return 0, err
	}
	return len(cables), nil
}

// sheetWriter wraps excelize calls with a sticky error so sheet
// building code stays linear.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) setCell(cell string, value any) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellValue(w.sheet, cell, value)
}

func (w *sheetWriter) setStyle(topLeft, bottomRight string, styleId int) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellStyle(w.sheet, topLeft, bottomRight, styleId)
}

func (w *sheetWriter) setColWidth(start, end string, width float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(w.sheet, start, end, width)
}

func writeCablesSheet(f *excelize.File, cables []plusd.CableRecord) error {
	err := f.SetSheetName("Sheet1", cablesSheet)
	if err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}
	linkStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "0563C1", Underline: "single"},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	w := &sheetWriter{f: f, sheet: cablesSheet}

	headers := []string{"WikiLeaks ID", "Date", "Title", "Full Text", "URL"}
	for i, header := range headers {
		w.setCell(fmt.Sprintf("%c1", 'A'+i), header)
	}
	w.setStyle("A1", "E1", headerStyle)

	if w.err == nil {
		w.err = f.SetPanes(cablesSheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}

	for i, cable := range cables {
		row := i + 2
		w.setCell(fmt.Sprintf("A%d", row), cable.CableID)
		w.setCell(fmt.Sprintf("B%d", row), cable.Date)
		w.setCell(fmt.Sprintf("C%d", row), cable.Title)
		w.setCell(fmt.Sprintf("D%d", row), textutil.Reflow(cable.FullText))

		if cable.CableID != "" {
			url := cableUrl(cable.CableID)
			cell := fmt.Sprintf("E%d", row)
			w.setCell(cell, url)
			if w.err == nil {
				w.err = f.SetCellHyperLink(cablesSheet, cell, url, "External")
			}
		}
	}

	if len(cables) > 0 {
		lastRow := len(cables) + 1
		w.setStyle("A2", fmt.Sprintf("D%d", lastRow), bodyStyle)
		w.setStyle("E2", fmt.Sprintf("E%d", lastRow), linkStyle)
	}

	w.setColWidth("A", "A", 25)
	w.setColWidth("B", "B", 12)
	w.setColWidth("C", "C", 60)
	w.setColWidth("D", "D", 100)
	w.setColWidth("E", "E", 55)
	return w.err
}

func writeStatisticsSheet(f *excelize.File, cables []plusd.CableRecord, keywords []string) error {
	_, err := f.NewSheet(statisticsSheet)
	if err != nil {
		return err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return err
	}
	styles, err := newTableStyles(f)
	if err != nil {
		return err
	}

	w := &sheetWriter{f: f, sheet: statisticsSheet}

	w.setCell("A1", "Statistics")
	w.setStyle("A1", "A1", titleStyle)

	w.setCell("A3", fmt.Sprintf("Total cables: %d", len(cables)))

	var dates []string
	for _, cable := range cables {
		if cable.Date != "" {
			dates = append(dates, cable.Date)
		}
	}
	if len(dates) > 0 {
		sort.Strings(dates)
		w.setCell("A4", fmt.Sprintf("Date range: %s to %s", dates[0], dates[len(dates)-1]))
	} else {
		w.setCell("A4", "Date range: N/A")
	}
	if len(keywords) > 0 {
		w.setCell("A5", fmt.Sprintf("Search keywords: %s", strings.Join(keywords, ", ")))
	}

	// Origin metadata teaches the exporter post codes the static map
	// does not know before the country table is tallied.
	countryMap := LearnCountryMappings(cables)

	nextRow := writeAcademicTable(w, styles, academicTable{
		StartRow:    7,
		LabelHeader: "Country",
		CountHeader: "Cables",
		Data:        countryDistribution(cables, countryMap),
		Caption:     "Table 1: Distribution of cables by country of origin.",
	})
	writeAcademicTable(w, styles, academicTable{
		StartRow:    nextRow,
		LabelHeader: "Year",
		CountHeader: "Cables",
		Data:        yearDistribution(cables),
		Caption:     "Table 2: Distribution of cables by year.",
	})

	w.setColWidth("A", "A", 40)
	w.setColWidth("B", "B", 12)
	return w.err
}

type tableStyles struct {
	headerLabel int
	headerCount int
	count       int
	totalLabel  int
	totalCount  int
	caption     int
}

func newTableStyles(f *excelize.File) (tableStyles, error) {
	topBottom := []excelize.Border{
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}
	topOnly := []excelize.Border{
		{Type: "top", Style: 1, Color: "000000"},
	}
	right := &excelize.Alignment{Horizontal: "right"}
	bold := &excelize.Font{Bold: true}

	var styles tableStyles
	var err error

	styles.headerLabel, err = f.NewStyle(&excelize.Style{Font: bold, Border: topBottom})
	if err != nil {
		return styles, err
	}
	styles.headerCount, err = f.NewStyle(&excelize.Style{Font: bold, Border: topBottom, Alignment: right})
	if err != nil {
		return styles, err
	}
	styles.count, err = f.NewStyle(&excelize.Style{Alignment: right})
	if err != nil {
		return styles, err
	}
	styles.totalLabel, err = f.NewStyle(&excelize.Style{Font: bold, Border: topOnly})
	if err != nil {
		return styles, err
	}
	styles.totalCount, err = f.NewStyle(&excelize.Style{Font: bold, Border: topOnly, Alignment: right})
	if err != nil {
		return styles, err
	}
	styles.caption, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true, Size: 9}})
	return styles, err
}

type academicTable struct {
	StartRow    int
	LabelHeader string
	CountHeader string
	Data        []labelCount
	Caption     string
}

// writeAcademicTable renders the journal style: thin rules above and
// below the header, another above the totals row, an italic caption
// underneath. Returns the first free row after the caption and gap.
func writeAcademicTable(w *sheetWriter, styles tableStyles, table academicTable) int {
	row := table.StartRow

	w.setCell(fmt.Sprintf("A%d", row), table.LabelHeader)
	w.setCell(fmt.Sprintf("B%d", row), table.CountHeader)
	w.setStyle(fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.headerLabel)
	w.setStyle(fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), styles.headerCount)
	row++

	total := 0
	for _, entry := range table.Data {
		w.setCell(fmt.Sprintf("A%d", row), entry.Label)
		w.setCell(fmt.Sprintf("B%d", row), entry.Count)
		w.setStyle(fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), styles.count)
		total += entry.Count
		row++
	}

	w.setCell(fmt.Sprintf("A%d", row), "Total")
	w.setCell(fmt.Sprintf("B%d", row), total)
	w.setStyle(fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.totalLabel)
	w.setStyle(fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), styles.totalCount)
	row++

	w.setCell(fmt.Sprintf("A%d", row), table.Caption)
	w.setStyle(fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.caption)
	return row + 2
}
