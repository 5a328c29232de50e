package archive

import (
	"cablequest/lib/scrapers/plusd"
	"cablequest/lib/textutil"
)

// ExcludeScope says which fields an exclude filter inspects.
type ExcludeScope string

const (
	ExcludeBoth  ExcludeScope = "both"
	ExcludeTitle ExcludeScope = "title"
	ExcludeBody  ExcludeScope = "body"
)

// FilterResultsByTitle drops result rows whose title contains any of
// the excluded terms. Terms must already be lowercase, see
// textutil.SplitTerms. Runs before fetching so excluded cables never
// cost a request.
func FilterResultsByTitle(records []plusd.ResultRecord, terms []string, scope ExcludeScope) []plusd.ResultRecord {
	if len(terms) == 0 || (scope != ExcludeBoth && scope != ExcludeTitle) {
		return records
	}

	kept := make([]plusd.ResultRecord, 0, len(records))
	for _, record := range records {
		if textutil.ContainsAnyFold(record.Title, terms) {
			continue
		}
		kept = append(kept, record)
	}
	return kept
}

// FilterCablesByBody drops fetched cables whose full text contains any
// of the excluded terms.
func FilterCablesByBody(cables []plusd.CableRecord, terms []string, scope ExcludeScope) []plusd.CableRecord {
	if len(terms) == 0 || (scope != ExcludeBoth && scope != ExcludeBody) {
		return cables
	}

	kept := make([]plusd.CableRecord, 0, len(cables))
	for _, cable := range cables {
		if textutil.ContainsAnyFold(cable.FullText, terms) {
			continue
		}
		kept = append(kept, cable)
	}
	return kept
}

// FilterCablesByDate keeps cables dated inside [from, to], both ends
// inclusive. The archive sometimes returns results outside the
// requested window, this is the client side safety net. Undated cables
// always survive so they do not silently vanish.
func FilterCablesByDate(cables []plusd.CableRecord, dateFrom, dateTo string) []plusd.CableRecord {
	if dateFrom == "" && dateTo == "" {
		return cables
	}

	kept := make([]plusd.CableRecord, 0, len(cables))
	for _, cable := range cables {
		if cable.Date != "" {
			if dateFrom != "" && cable.Date < dateFrom {
				continue
			}
			if dateTo != "" && cable.Date > dateTo {
				continue
			}
		}
		kept = append(kept, cable)
	}
	return kept
}
