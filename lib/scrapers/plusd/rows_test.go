package plusd

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseResultRows(t *testing.T) {
	listing := `<table class="search-results">
<tr class="header"><td>#</td><td>Date</td><td>Subject</td></tr>
<tr id="07MOSCOW1234"><td>1.</td><td>Sat, 19 Dec 1987</td><td><a href="/plusd/cables/07MOSCOW1234.html">TREATY TALKS</a> (released)</td></tr>
<tr id="ad_banner"><td>sponsored</td></tr>
<tr id="66BONN99"><td>2.</td></tr>
<tr id="75SAIGON42"><td>3.</td><td>1975-04-01</td><td>NO LINK TITLE</td></tr>
</table>`

	records, err := ParseResultRows(listing)
	require.NoError(t, err)

	diff := cmp.Diff([]ResultRecord{
		{CableID: "07MOSCOW1234", Title: "TREATY TALKS", Date: "1987-12-19"},
		{CableID: "66BONN99"},
		{CableID: "75SAIGON42", Title: "NO LINK TITLE", Date: "1975-04-01"},
	}, records)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseResultRowsEmpty(t *testing.T) {
	records, err := ParseResultRows(`<div>Your search produced no results.</div>`)
	require.NoError(t, err)
	require.Empty(t, records)
}
