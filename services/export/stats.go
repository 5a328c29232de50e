package export

import (
	"sort"

	"cablequest/lib/scrapers/plusd"
)

type labelCount struct {
	Label string
	Count int
}

// countryDistribution tallies cables per country of origin, most
// common first. Ties break alphabetically so output is stable.
func countryDistribution(cables []plusd.CableRecord, countryMap map[string]string) []labelCount {
	counts := map[string]int{}
	for _, cable := range cables {
		code := ExtractOriginCode(cable.CableID)
		counts[ResolveCountry(code, cable.Date, countryMap)]++
	}

	out := make([]labelCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, labelCount{label, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// yearDistribution tallies cables per year, ascending. Undated cables
// land in an Unknown bucket, which sorts after every year.
func yearDistribution(cables []plusd.CableRecord) []labelCount {
	counts := map[string]int{}
	for _, cable := range cables {
		counts[extractYear(cable.Date)]++
	}

	out := make([]labelCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, labelCount{label, count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Label < out[j].Label
	})
	return out
}

func extractYear(date string) string {
	if len(date) >= 4 && isDigits(date[:4]) {
		return date[:4]
	}
	return "Unknown"
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
