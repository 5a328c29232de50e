package plusd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cablequest/lib/telemetry"
)

func resultRow(id, date, title string) string {
	return fmt.Sprintf(
		`<tr id=%q><td>#</td><td>%s</td><td><a href="/plusd/cables/%s.html">%s</a></td></tr>`,
		id, date, id, title,
	)
}

func searchPage(rows, script string) string {
	return fmt.Sprintf(
		`<html><body><table>%s</table><script>%s</script></body></html>`,
		rows, script,
	)
}

func newTestClient(t *testing.T, baseUrl string, retry RetryPolicy) *Client {
	t.Helper()
	client, err := NewClient(ClientOptions{
		BaseUrl: baseUrl,
		Retry:   retry,
		Sleep:   func(time.Duration) {},
	})
	require.NoError(t, err)
	return client
}

func TestSearchPagination(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/plusd")
	defer cleanup()

	firstPage := searchPage(
		resultRow("01TEST1", "Sat, 1 Dec 2001", "ONE")+
			resultRow("01TEST2", "Sun, 2 Dec 2001", "TWO"),
		`var page_parameters = {project: 'all_cables', subp: 'cg', qcanonical: 'berlin wall', qcanonical_seal: 'a1b2c3'};
var result_token = 'tok-1';`,
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			// The collection selector must keep its literal brackets.
			require.Contains(t, r.URL.RawQuery, "qproject[]=cg")
			require.Contains(t, r.URL.RawQuery, "q=berlin+wall")
			fmt.Fprint(w, firstPage)

		case "/sphinxer_do.php":
			query := r.URL.Query()
			require.Equal(t, "doc_list_from_query", query.Get("command"))
			require.Equal(t, "berlin wall", query.Get("qcanonical"))
			require.Equal(t, "500", query.Get("qlimit"))

			switch query.Get("token") {
			case "tok-1":
				json.NewEncoder(w).Encode(sphinxPayload{
					// 01TEST2 repeats at the page boundary.
					Content: resultRow("01TEST2", "Sun, 2 Dec 2001", "TWO") +
						resultRow("01TEST3", "Mon, 3 Dec 2001", "THREE"),
					Token:  "tok-2",
					Length: sphinxPageLimit,
				})
			case "tok-2":
				json.NewEncoder(w).Encode(sphinxPayload{
					Content: resultRow("01TEST4", "Tue, 4 Dec 2001", "FOUR"),
					Token:   "tok-3",
					Length:  1,
				})
			default:
				t.Errorf("unexpected continuation token %q", query.Get("token"))
			}

		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, RetryPolicy{MaxAttempts: 1})

	var progress []string
	records, err := client.Search(context.Background(), SearchQuery{Keyword: "berlin wall"}, func(message string) {
		progress = append(progress, message)
	})
	require.NoError(t, err)

	ids := make([]string, len(records))
	for i, record := range records {
		ids[i] = record.CableID
	}
	require.Equal(t, []string{"01TEST1", "01TEST2", "01TEST3", "01TEST4"}, ids)

	require.NotEmpty(t, progress)
	require.Equal(t, "Search complete: 4 unique cables found", progress[len(progress)-1])
}

func TestSearchNoToken(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/plusd")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("continuation requested despite missing token, path %q", r.URL.Path)
			return
		}
		fmt.Fprint(w, searchPage(
			resultRow("01TEST1", "Sat, 1 Dec 2001", "ONE"),
			`var page_parameters = {project: 'all_cables'};`,
		))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, RetryPolicy{MaxAttempts: 1})

	records, err := client.Search(context.Background(), SearchQuery{Keyword: "solo"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "01TEST1", records[0].CableID)
}

func TestSearchEmptyTokenEndsFullPage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/plusd")
	defer cleanup()

	continuations := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, searchPage(
				resultRow("01TEST1", "Sat, 1 Dec 2001", "ONE"),
				`var page_parameters = {project: 'all_cables'};
var result_token = 'tok-1';`,
			))
		case "/sphinxer_do.php":
			continuations++
			// A full page whose next token is empty is the archive's
			// normal last page, not an error.
			json.NewEncoder(w).Encode(sphinxPayload{
				Content: resultRow("01TEST2", "Sun, 2 Dec 2001", "TWO"),
				Token:   "",
				Length:  sphinxPageLimit,
			})
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, RetryPolicy{MaxAttempts: 1})

	records, err := client.Search(context.Background(), SearchQuery{Keyword: "last page"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 1, continuations)
}

func TestSearchPaginationFailureKeepsPartialResults(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/plusd")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, searchPage(
				resultRow("01TEST1", "Sat, 1 Dec 2001", "ONE")+
					resultRow("01TEST2", "Sun, 2 Dec 2001", "TWO"),
				`var page_parameters = {project: 'all_cables'};
var result_token = 'tok-1';`,
			))
		case "/sphinxer_do.php":
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, RetryPolicy{MaxAttempts: 1})

	records, err := client.Search(context.Background(), SearchQuery{Keyword: "partial"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestSearchInitialFetchRetries(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/plusd")
	defer cleanup()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, searchPage(
			resultRow("01TEST1", "Sat, 1 Dec 2001", "ONE"),
			`var page_parameters = {project: 'all_cables'};`,
		))
	}))
	defer server.Close()

	var waits []time.Duration
	client, err := NewClient(ClientOptions{
		BaseUrl: server.URL,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			Backoff:     []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second},
		},
		Sleep: func(d time.Duration) { waits = append(waits, d) },
	})
	require.NoError(t, err)

	records, err := client.Search(context.Background(), SearchQuery{Keyword: "flaky"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 3, attempts)
	require.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, waits)
}

func TestSearchEmptyKeyword(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1", RetryPolicy{MaxAttempts: 1})
	_, err := client.Search(context.Background(), SearchQuery{}, nil)
	require.ErrorContains(t, err, "keyword")
}
