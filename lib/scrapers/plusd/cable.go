package plusd

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cablequest/lib/htmlutil"
)

// FetchCable downloads and parses one cable's detail page.
func (c *Client) FetchCable(ctx context.Context, cableId string) (CableRecord, error) {
	ctx, span := tracer.Start(ctx, "FetchCable")
	defer span.End()
	span.SetAttributes(attribute.String("cable_id", cableId))

	res, err := retryFetch(ctx, c.retry, c.sleep, func(ctx context.Context) (*resty.Response, error) {
		return c.get(ctx, c.requestTimeout, func(req *resty.Request) (*resty.Response, error) {
			return req.Get(fmt.Sprintf("/cables/%s.html", cableId))
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cable fetch failed")
		return CableRecord{}, err
	}

	record, err := ParseCablePage(cableId, res.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cable parse failed")
		return CableRecord{}, err
	}
	return record, nil
}

// ParseCablePage extracts title, date, origin and body from a cable
// detail page. Absent sections leave their fields empty rather than
// erroring, stub pages for withdrawn cables carry no synopsis at all.
func ParseCablePage(cableId, page string) (CableRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return CableRecord{}, err
	}

	record := CableRecord{CableID: cableId}

	synopsis := doc.Find("#synopsis").First()
	if synopsis.Length() > 0 {
		titleCell := synopsis.Find("td[colspan]").First()
		if titleCell.Length() == 0 {
			titleCell = synopsis.Find("tr td").First()
		}
		if titleCell.Length() > 0 {
			record.Title = htmlutil.StrippedText(titleCell.Get(0), "")
		}

		synopsis.Find("tr").Each(func(_ int, row *goquery.Selection) {
			keyDiv := row.Find("div.s_key").First()
			valDiv := row.Find("div.s_val").First()
			if keyDiv.Length() == 0 || valDiv.Length() == 0 {
				return
			}

			key := strings.ToLower(htmlutil.StrippedText(keyDiv.Get(0), ""))
			switch {
			case strings.Contains(key, "date") && record.Date == "":
				record.Date = NormalizeDate(htmlutil.StrippedText(valDiv.Get(0), ""))
			case strings.HasPrefix(key, "from"):
				record.Origin = htmlutil.StrippedText(valDiv.Get(0), "")
			}
		})
	}

	if tagged := doc.Find("#tagged-text").First(); tagged.Length() > 0 {
		record.FullText = htmlutil.StrippedText(tagged.Get(0), "\n")
	}

	return record, nil
}
