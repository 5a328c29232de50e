package plusd

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cablequest/lib/htmlutil"
)

// ParseResultRows converts a result listing fragment into records. A
// result row is a tr whose id attribute starts with a digit; the
// listing's header and spacer rows carry no such id and are skipped.
// Works on full pages and on the bare fragments continuation responses
// return.
func ParseResultRows(fragment string) ([]ResultRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}

	var records []ResultRecord
	doc.Find("tr[id]").Each(func(_ int, row *goquery.Selection) {
		id := strings.TrimSpace(row.AttrOr("id", ""))
		if id == "" || id[0] < '0' || id[0] > '9' {
			return
		}

		var title, date string
		cells := row.Find("td")
		if cells.Length() >= 3 {
			date = NormalizeDate(htmlutil.StrippedText(cells.Get(1), ""))

			titleCell := cells.Eq(2)
			if link := titleCell.Find("a"); link.Length() > 0 {
				title = htmlutil.StrippedText(link.Get(0), "")
			} else {
				title = htmlutil.StrippedText(titleCell.Get(0), "")
			}
		}

		records = append(records, ResultRecord{
			CableID: id,
			Title:   title,
			Date:    date,
		})
	})
	return records, nil
}
