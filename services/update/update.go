package update

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"

	"cablequest/lib/telemetry"
)

var tracer = telemetry.Tracer("services/update")

// DefaultRepo is the GitHub repository releases are published to.
const DefaultRepo = "cablequest/cablequest"

const githubApi = "https://api.github.com"

type Options struct {
	// Repo is "owner/name", DefaultRepo when empty.
	Repo string
	// BaseUrl overrides the GitHub API root, for tests.
	BaseUrl string
	// Platform overrides runtime.GOOS, for tests.
	Platform string
}

// Release describes a newer build available for the current platform.
type Release struct {
	Version     string
	AssetName   string
	DownloadUrl string
}

type Checker struct {
	http     *resty.Client
	repo     string
	platform string
}

func NewChecker(options Options) Checker {
	if options.Repo == "" {
		options.Repo = DefaultRepo
	}
	if options.BaseUrl == "" {
		options.BaseUrl = githubApi
	}
	if options.Platform == "" {
		options.Platform = runtime.GOOS
	}

	client := resty.New()
	client.SetBaseURL(options.BaseUrl)
	client.SetTimeout(10 * time.Second)
	client.SetHeader("accept", "application/vnd.github.v3+json")

	return Checker{
		http:     client,
		repo:     options.Repo,
		platform: options.Platform,
	}
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadUrl string `json:"browser_download_url"`
}

type githubRelease struct {
	TagName string        `json:"tag_name"`
	Assets  []githubAsset `json:"assets"`
}

// platformSuffix returns the release tag suffix for the given GOOS.
// Platforms without packaged builds get "", which disables checking.
func platformSuffix(goos string) string {
	switch goos {
	case "windows":
		return "-windows"
	case "darwin":
		return "-mac"
	}
	return ""
}

// parseVersion turns a tag like "v2.2-windows" into its integer tuple.
// Malformed tags yield nil.
func parseVersion(tag string) []int {
	version := strings.TrimPrefix(tag, "v")
	for _, suffix := range []string{"-windows", "-mac"} {
		if strings.HasSuffix(version, suffix) {
			version = strings.TrimSuffix(version, suffix)
			break
		}
	}
	parts := strings.Split(version, ".")
	tuple := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil
		}
		tuple[i] = n
	}
	return tuple
}

func versionLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Check asks GitHub whether a newer build exists for the current
// platform. It returns nil when up to date, when the platform has no
// packaged builds, and on every error: update checking must never
// break the tool.
func (c Checker) Check(ctx context.Context, currentVersion string) *Release {
	ctx, span := tracer.Start(ctx, "Check")
	defer span.End()
	span.SetAttributes(attribute.String("current", currentVersion))

	suffix := platformSuffix(c.platform)
	if suffix == "" {
		return nil
	}
	current := parseVersion("v" + currentVersion + suffix)
	if current == nil {
		return nil
	}

	var releases []githubRelease
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&releases).
		Get(fmt.Sprintf("/repos/%s/releases", c.repo))
	if err != nil {
		slog.DebugContext(ctx, "update check failed", "err", err)
		return nil
	}
	if res.IsError() {
		slog.DebugContext(ctx, "update check failed", "status", res.Status())
		return nil
	}

	best := current
	var bestRelease *githubRelease
	for i, release := range releases {
		if !strings.HasSuffix(release.TagName, suffix) {
			continue
		}
		version := parseVersion(release.TagName)
		if version == nil || !versionLess(best, version) {
			continue
		}
		best = version
		bestRelease = &releases[i]
	}
	if bestRelease == nil || len(bestRelease.Assets) == 0 {
		return nil
	}

	parts := make([]string, len(best))
	for i, n := range best {
		parts[i] = strconv.Itoa(n)
	}
	asset := bestRelease.Assets[0]
	return &Release{
		Version:     strings.Join(parts, "."),
		AssetName:   asset.Name,
		DownloadUrl: asset.BrowserDownloadUrl,
	}
}

// Download fetches the release asset into the running executable's
// directory and returns the written path. The user swaps the binary in
// themselves, overwriting a running executable in place is not
// portable.
func (c Checker) Download(ctx context.Context, release *Release) (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", err
	}
	target := filepath.Join(filepath.Dir(executable), release.AssetName)

	res, err := c.http.R().
		SetContext(ctx).
		SetOutput(target).
		Get(release.DownloadUrl)
	if err != nil {
		return "", fmt.Errorf("download update: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("download update: http status %s", res.Status())
	}
	return target, nil
}
