package plusd

import (
	"fmt"
	"regexp"
	"time"
)

var (
	// Detail pages spell dates "1987 December 19, 20:12 (Saturday)".
	detailDateRegex = regexp.MustCompile(`^(\d{4})\s+(\w+)\s+(\d{1,2})`)
	// Listing rows spell them "Sat, 19 Dec 1987".
	listingDateRegex = regexp.MustCompile(`^\w+,\s+(\d{1,2})\s+(\w+)\s+(\d{4})`)
	isoDateRegex     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// NormalizeDate canonicalizes the archive's date spellings to
// YYYY-MM-DD. Unparseable input yields "", read by callers as date
// unknown.
func NormalizeDate(raw string) string {
	if raw == "" {
		return ""
	}

	if m := detailDateRegex.FindStringSubmatch(raw); m != nil {
		t, err := time.Parse("2006 January 2", fmt.Sprintf("%s %s %s", m[1], m[2], m[3]))
		if err == nil {
			return t.Format("2006-01-02")
		}
	}
	if m := listingDateRegex.FindStringSubmatch(raw); m != nil {
		t, err := time.Parse("2 Jan 2006", fmt.Sprintf("%s %s %s", m[1], m[2], m[3]))
		if err == nil {
			return t.Format("2006-01-02")
		}
	}
	return isoDateRegex.FindString(raw)
}
