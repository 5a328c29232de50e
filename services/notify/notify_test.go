package notify

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"cablequest/lib/telemetry"
)

func TestRunIDLength(t *testing.T) {
	id := NewRunID()
	require.Len(t, id, 8)
	require.NotEqual(t, NewRunID(), id)
}

func TestDisabledNotifierDoesNothing(t *testing.T) {
	n := NewNotifier(SmtpConfig{})
	require.False(t, n.Enabled())
	require.NoError(t, n.Send(context.Background(), "bob@email.com", Summary{}))
}

func TestSummaryBody(t *testing.T) {
	body := summaryBody(Summary{
		RunID:      "a1b2c3d4",
		Keyword:    "nuclear",
		Fetched:    120,
		Failed:     3,
		Elapsed:    14*time.Minute + 2*time.Second,
		OutputFile: "cables_nuclear.xlsx",
	})
	require.Contains(t, body, "a1b2c3d4")
	require.Contains(t, body, "Keyword: nuclear")
	require.Contains(t, body, "Cables fetched: 120")
	require.Contains(t, body, "Failed downloads: 3")
	require.Contains(t, body, "cables_nuclear.xlsx")

	clean := summaryBody(Summary{RunID: "a1b2c3d4", Keyword: "x", Fetched: 1})
	require.NotContains(t, clean, "Failed downloads")
	require.NotContains(t, clean, "Output:")
}

func TestSendThroughSmtp(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	cleanup := telemetry.SetupForTesting(t, "test:services/notify")
	t.Cleanup(cleanup)

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	smtpContainer, err := testcontainers.GenericContainer(
		context.Background(),
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "haravich/fake-smtp-server",
				ExposedPorts: []string{"1025:1025", "1090:1080"},
				WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
			},
		},
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		err := smtpContainer.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	})

	notifier := NewNotifier(SmtpConfig{
		Server:       "localhost",
		Port:         1025,
		EmailAddress: "alice@email.com",
		Password:     "default",
	})
	require.True(t, notifier.Enabled())

	err = notifier.Send(context.Background(), "bob@email.com", Summary{
		RunID:   "deadbeef",
		Keyword: "berlin wall",
		Fetched: 42,
		Elapsed: 5 * time.Minute,
	})
	require.NoError(t, err)

	res, err := resty.New().R().Get("http://127.0.0.1:1080/messages/1.plain")
	require.NoError(t, err)
	body := res.String()
	require.True(t, strings.Contains(body, "deadbeef"))
	require.True(t, strings.Contains(body, "berlin wall"))
}
