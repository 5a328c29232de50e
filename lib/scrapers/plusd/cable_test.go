package plusd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"cablequest/lib/telemetry"
)

const cablePage = `<html><body><div id="content">
<table id="synopsis">
<tr><td colspan="3">NEGOTIATIONS ON BERLIN ACCESS</td></tr>
<tr><td><div class="s_key">Canonical ID:</div></td><td><div class="s_val">87BERLIN2212</div></td></tr>
<tr><td><div class="s_key">Date:</div></td><td><div class="s_val">1987 December 19, 20:12 (Saturday)</div></td></tr>
<tr><td><div class="s_key">Original Date:</div></td><td><div class="s_val">1960 January 1</div></td></tr>
<tr><td><div class="s_key">From:</div></td><td><div class="s_val">Germany Berlin</div></td></tr>
</table>
<div id="tagged-text"><p>PARA ONE</p><p>PARA TWO</p></div>
</div></body></html>`

func TestParseCablePage(t *testing.T) {
	record, err := ParseCablePage("87BERLIN2212", cablePage)
	require.NoError(t, err)

	diff := cmp.Diff(CableRecord{
		CableID:  "87BERLIN2212",
		Title:    "NEGOTIATIONS ON BERLIN ACCESS",
		Date:     "1987-12-19",
		FullText: "PARA ONE\nPARA TWO",
		Origin:   "Germany Berlin",
	}, record)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseCablePageStub(t *testing.T) {
	record, err := ParseCablePage("00STUB1", `<html><body><p>This cable has been withdrawn.</p></body></html>`)
	require.NoError(t, err)
	require.Equal(t, CableRecord{CableID: "00STUB1"}, record)
}

func TestParseCablePageTitleFallback(t *testing.T) {
	page := `<table id="synopsis">
<tr><td>UNSPANNED TITLE CELL</td></tr>
</table>`

	record, err := ParseCablePage("00TEST1", page)
	require.NoError(t, err)
	require.Equal(t, "UNSPANNED TITLE CELL", record.Title)
}

func TestFetchCableRetries(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/plusd")
	defer cleanup()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cables/87BERLIN2212.html", r.URL.Path)
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, cablePage)
	}))
	defer server.Close()

	var waits []time.Duration
	client, err := NewClient(ClientOptions{
		BaseUrl: server.URL,
		Retry:   DefaultRetryPolicy(),
		Sleep:   func(d time.Duration) { waits = append(waits, d) },
	})
	require.NoError(t, err)

	record, err := client.FetchCable(context.Background(), "87BERLIN2212")
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.Equal(t, []time.Duration{5 * time.Second}, waits)
	require.Equal(t, "NEGOTIATIONS ON BERLIN ACCESS", record.Title)
	require.Equal(t, "PARA ONE\nPARA TWO", record.FullText)
}

func TestFetchCableExhaustsRetries(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/plusd")
	defer cleanup()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{
		BaseUrl: server.URL,
		Retry:   DefaultRetryPolicy(),
		Sleep:   func(time.Duration) {},
	})
	require.NoError(t, err)

	_, err = client.FetchCable(context.Background(), "00GONE1")
	require.ErrorContains(t, err, "404")
	require.Equal(t, 3, attempts)
}
