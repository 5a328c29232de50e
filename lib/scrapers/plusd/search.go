package plusd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// sphinxPageLimit is the archive's maximum page size. A continuation
// response shorter than this is the last page.
const sphinxPageLimit = 500

type sphinxPayload struct {
	Content string `json:"content"`
	Token   string `json:"token"`
	Length  int    `json:"length"`
}

// Search runs a full keyword search, following the continuation
// protocol until the archive reports a short page or stops returning a
// token. Failures mid-pagination keep whatever accumulated instead of
// erroring; only a failed or unparseable first page fails the search.
// progress receives human readable status lines and may be nil.
func (c *Client) Search(ctx context.Context, query SearchQuery, progress func(string)) ([]ResultRecord, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(attribute.String("keyword", query.Keyword))

	if query.Keyword == "" {
		return nil, errors.New("a search keyword must be provided")
	}
	report := func(message string) {
		if progress != nil {
			progress(message)
		}
	}

	report("Searching the PlusD archive...")
	page, err := c.fetchSearchPage(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search page fetch failed")
		return nil, fmt.Errorf("fetch search results: %w", err)
	}

	records, err := ParseResultRows(page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search page parse failed")
		return nil, fmt.Errorf("parse search results: %w", err)
	}
	report(fmt.Sprintf("Found %d initial results", len(records)))

	params, token, err := ExtractPageParameters(page)
	if err != nil {
		slog.WarnContext(ctx, "pagination state not found, keeping first page only", "err", err)
		report("Pagination info not found, returning initial results only")
		return dedupeRecords(records), nil
	}
	if token == "" {
		report("No pagination token, returning initial results only")
		return dedupeRecords(records), nil
	}

	pageNum := 1
	for {
		c.sleep(time.Second)
		if ctx.Err() != nil {
			break
		}

		payload, err := c.fetchContinuation(ctx, query, params, token)
		if err != nil {
			slog.WarnContext(ctx, "pagination request failed, keeping partial results", "err", err)
			report(fmt.Sprintf("Pagination failed on page %d, returning %d results", pageNum+1, len(records)))
			break
		}

		if payload.Content != "" {
			pageRecords, err := ParseResultRows(payload.Content)
			if err != nil {
				slog.WarnContext(ctx, "pagination response unparseable, keeping partial results", "err", err)
				break
			}
			records = append(records, pageRecords...)
			pageNum++
			report(fmt.Sprintf("Page %d: +%d results (total: %d)", pageNum, len(pageRecords), len(records)))
		}

		if payload.Length < sphinxPageLimit || payload.Token == "" {
			break
		}
		token = payload.Token
	}

	unique := dedupeRecords(records)
	span.SetAttributes(attribute.Int("results", len(unique)))
	report(fmt.Sprintf("Search complete: %d unique cables found", len(unique)))
	return unique, nil
}

// fetchContinuation asks the archive's sphinx endpoint for the next
// result page. The canonicalized query travels in params verbatim; the
// token identifies where the previous page stopped.
func (c *Client) fetchContinuation(
	ctx context.Context,
	query SearchQuery,
	params PageParameters,
	token string,
) (sphinxPayload, error) {
	project := params.Project
	if project == "" {
		project = "all_cables"
	}
	subp := params.Subp
	if subp == "" {
		subp = ProjectCablegate
	}

	queryParams := map[string]string{
		"format":          "html",
		"command":         "doc_list_from_query",
		"project":         project,
		"subp":            subp,
		"qcanonical":      params.QCanonical,
		"qcanonical_seal": params.QCanonicalSeal,
		"qsort":           "tasc",
		"qlimit":          strconv.Itoa(sphinxPageLimit),
		"token":           token,
	}
	if query.DateFrom != "" {
		queryParams["qtfrom"] = query.DateFrom
	}
	if query.DateTo != "" {
		queryParams["qtto"] = query.DateTo
	}
	if params.Session != "" {
		queryParams["s"] = params.Session
	}

	res, err := retryFetch(ctx, c.retry, c.sleep, func(ctx context.Context) (*resty.Response, error) {
		return c.get(ctx, c.requestTimeout, func(req *resty.Request) (*resty.Response, error) {
			return req.SetQueryParams(queryParams).Get("/sphinxer_do.php")
		})
	})
	if err != nil {
		return sphinxPayload{}, err
	}

	var payload sphinxPayload
	err = json.Unmarshal(res.Body(), &payload)
	if err != nil {
		return sphinxPayload{}, fmt.Errorf("decode continuation payload: %w", err)
	}
	return payload, nil
}

// dedupeRecords drops repeated cable ids, keeping first appearance
// order. Pages can overlap at their boundaries.
func dedupeRecords(records []ResultRecord) []ResultRecord {
	seen := make(map[string]bool, len(records))
	unique := make([]ResultRecord, 0, len(records))
	for _, record := range records {
		if seen[record.CableID] {
			continue
		}
		seen[record.CableID] = true
		unique = append(unique, record)
	}
	return unique
}
