package plusd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"os/exec"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"cablequest/lib/restyutil"
)

// DefaultBaseUrl is the archive root every path below hangs off of.
const DefaultBaseUrl = "https://wikileaks.org/plusd"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// RetryPolicy bounds request attempts. Backoff holds the wait before
// each re-attempt, indexed by the number of failures so far; a request
// that fails with attempts left waits Backoff[failures-1] first.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: []time.Duration{
			5 * time.Second,
			10 * time.Second,
			20 * time.Second,
		},
	}
}

func (p RetryPolicy) wait(failures int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if failures >= len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[failures]
}

type ClientOptions struct {
	// BaseUrl overrides DefaultBaseUrl, for tests.
	BaseUrl string
	Retry   RetryPolicy
	// RequestTimeout caps continuation and detail requests, 30s when
	// zero. SearchTimeout caps the initial search page fetch, 60s when
	// zero; the first hit is the slowest since it runs the query.
	RequestTimeout time.Duration
	SearchTimeout  time.Duration
	// Sleep replaces time.Sleep so tests can run waits instantly.
	Sleep func(time.Duration)
	// UseCurl routes the initial search fetch through a curl
	// subprocess instead of the in-process client.
	UseCurl bool
}

// Client talks to the PlusD archive.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	retry          RetryPolicy
	requestTimeout time.Duration
	searchTimeout  time.Duration
	sleep          func(time.Duration)
	useCurl        bool
}

func NewClient(options ClientOptions) (*Client, error) {
	if options.BaseUrl == "" {
		options.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(options.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if options.Retry.MaxAttempts <= 0 {
		options.Retry = DefaultRetryPolicy()
	}
	if options.RequestTimeout == 0 {
		options.RequestTimeout = 30 * time.Second
	}
	if options.SearchTimeout == 0 {
		options.SearchTimeout = 60 * time.Second
	}
	if options.Sleep == nil {
		options.Sleep = time.Sleep
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(options.BaseUrl, "/"))
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", defaultUserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("accept-language", "en-US,en;q=0.5")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return &Client{
		BaseUrl:        baseUrl,
		Http:           client,
		retry:          options.Retry,
		requestTimeout: options.RequestTimeout,
		searchTimeout:  options.SearchTimeout,
		sleep:          options.Sleep,
		useCurl:        options.UseCurl,
	}, nil
}

// retryFetch runs fire until it succeeds or the policy is exhausted,
// returning the last error in that case.
func retryFetch[T any](
	ctx context.Context,
	policy RetryPolicy,
	sleep func(time.Duration),
	fire func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			sleep(policy.wait(attempt - 1))
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := fire(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		slog.WarnContext(
			ctx, "archive request failed",
			"attempt", attempt+1, "maxAttempts", policy.MaxAttempts, "err", err,
		)
	}
	return zero, lastErr
}

// get issues one GET through the shared client, treating a non-2xx
// status as a failure so the retry loop sees it.
func (c *Client) get(
	ctx context.Context,
	timeout time.Duration,
	configure func(req *resty.Request) (*resty.Response, error),
) (*resty.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := configure(c.Http.R().SetContext(attemptCtx))
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("http status %s", res.Status())
	}
	return res, nil
}

// searchUrl assembles the search listing URL by hand. The qproject[]
// brackets must stay literal: percent-encoding them sends the archive
// into a redirect loop that never reaches the listing.
func (c *Client) searchUrl(query SearchQuery) string {
	parts := []string{"q=" + url.QueryEscape(query.Keyword)}
	if query.DateFrom != "" {
		parts = append(parts, "qtfrom="+url.QueryEscape(query.DateFrom))
	}
	if query.DateTo != "" {
		parts = append(parts, "qtto="+url.QueryEscape(query.DateTo))
	}
	projects := query.Projects
	if len(projects) == 0 {
		projects = []string{ProjectCablegate}
	}
	for _, project := range projects {
		parts = append(parts, "qproject[]="+url.QueryEscape(project))
	}
	return strings.TrimSuffix(c.BaseUrl.String(), "/") + "/?" + strings.Join(parts, "&")
}

func (c *Client) fetchSearchPage(ctx context.Context, query SearchQuery) (string, error) {
	searchUrl := c.searchUrl(query)
	slog.DebugContext(ctx, "fetching search page", "url", searchUrl)

	page, err := retryFetch(ctx, c.retry, c.sleep, func(ctx context.Context) (string, error) {
		if c.useCurl {
			return curlFetch(ctx, searchUrl, c.searchTimeout)
		}
		res, err := c.get(ctx, c.searchTimeout, func(req *resty.Request) (*resty.Response, error) {
			return req.Get(searchUrl)
		})
		if err != nil {
			return "", err
		}
		return res.String(), nil
	})
	if err != nil {
		return "", err
	}
	if page == "" {
		return "", errors.New("search returned an empty page")
	}
	return page, nil
}

// curlFetch shells out for the initial search fetch. An external curl
// survives some anti-bot configurations the in-process client does
// not, so it stays available behind ClientOptions.UseCurl.
func curlFetch(ctx context.Context, rawUrl string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(
		ctx, "curl",
		"-s", "-S", "-L",
		"--max-redirs", "5",
		"-A", defaultUserAgent,
		rawUrl,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("curl timed out after %s", timeout)
	}
	if err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = err.Error()
		}
		return "", fmt.Errorf("curl failed: %s", message)
	}
	return stdout.String(), nil
}
