// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cenk/backoff"
	"github.com/charmbracelet/log"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/onyxware/bao/pkg/bun"
)

const (
	// DefaultBaseURL is the public GitHub API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout bounds every single HTTP request.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxPages is the upper bound on pagination to avoid runaway requests.
	DefaultMaxPages = 10

	// defaultPerPage is the number of directory entries fetched per API page.
	defaultPerPage = 100

	// defaultBreakerThreshold is the number of consecutive manifest fetch
	// failures after which the remaining manifests are skipped.
	defaultBreakerThreshold = 3

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	maxJSONResponseBytes = 10 << 20

	// maxManifestBytes is the upper bound on a single manifest download (1 MB).
	maxManifestBytes = 1 << 20
)

type (
	// Client lists buns published in GitHub repositories.
	Client struct {
		httpClient       *http.Client
		baseURL          string
		token            string
		userAgent        string
		timeout          time.Duration
		maxPages         int
		retryInterval    time.Duration
		breakerThreshold int64
		logger           *log.Logger
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)

	// contentEntry is the JSON wire format of a repository contents item.
	contentEntry struct {
		Name        string `json:"name"`
		Path        string `json:"path"`
		Type        string `json:"type"`
		DownloadURL string `json:"download_url"`
	}

	// candidate is a pair of files sharing a base name.
	candidate struct {
		archive  *contentEntry
		manifest *contentEntry
	}
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets a GitHub token for authenticated requests.
func WithToken(token string) ClientOption {
	return func(cl *Client) {
		cl.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithTimeout bounds each HTTP request. Non-positive values keep the default.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithMaxPages bounds how many listing pages are followed. Non-positive values keep the default.
func WithMaxPages(n int) ClientOption {
	return func(cl *Client) {
		if n > 0 {
			cl.maxPages = n
		}
	}
}

// WithRetryInterval sets the wait before the single retry of a transient failure.
func WithRetryInterval(d time.Duration) ClientOption {
	return func(cl *Client) {
		cl.retryInterval = d
	}
}

// WithBreakerThreshold sets how many consecutive manifest failures open the
// circuit breaker for the rest of a listing.
func WithBreakerThreshold(n int) ClientOption {
	return func(cl *Client) {
		if n > 0 {
			cl.breakerThreshold = int64(n)
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a Client with defaults: the public GitHub API, a 15s
// per-request timeout and up to DefaultMaxPages listing pages.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:       http.DefaultClient,
		baseURL:          DefaultBaseURL,
		userAgent:        "bao/dev",
		timeout:          DefaultTimeout,
		maxPages:         DefaultMaxPages,
		retryInterval:    500 * time.Millisecond,
		breakerThreshold: defaultBreakerThreshold,
		logger:           log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List enumerates the buns in repo, given as "owner/name" optionally followed
// by a directory path. It fails only when the first listing page cannot be
// fetched or when nothing could be listed at all; other failures are recorded
// on the returned Listing.
func (c *Client) List(ctx context.Context, repo string) (*Listing, error) {
	pageURL, err := c.contentsURL(repo)
	if err != nil {
		return nil, err
	}

	listing := newListing(repo)
	var files []contentEntry
	for page := 0; page < c.maxPages && pageURL != ""; page++ {
		entries, next, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			c.logger.Warn("listing truncated", "page", page+1, "error", err)
			listing.fail(err)
			break
		}
		files = append(files, entries...)
		pageURL = next
	}

	breaker := circuit.NewConsecutiveBreaker(c.breakerThreshold)
	for _, name := range pairFiles(files, listing) {
		cand := listing.candidates[name]
		if breaker.Tripped() {
			listing.skip(name, "skipped after repeated manifest failures")
			continue
		}

		var data []byte
		err := breaker.Call(func() error {
			var fetchErr error
			data, fetchErr = c.get(ctx, cand.manifest.DownloadURL, maxManifestBytes)
			return fetchErr
		}, 0)
		if err != nil {
			if errors.Is(err, circuit.ErrBreakerOpen) {
				listing.skip(name, "skipped after repeated manifest failures")
				continue
			}
			listing.skip(name, "manifest unavailable")
			listing.fail(err)
			continue
		}

		m, err := bun.ParseManifest(data)
		if err != nil {
			listing.skip(name, fmt.Sprintf("malformed manifest: %v", err))
			continue
		}
		if m.Name != name {
			listing.skip(name, fmt.Sprintf("manifest describes %q", m.Name))
			continue
		}
		listing.entries[name] = m.Metadata
	}
	listing.candidates = nil

	if len(listing.entries) == 0 && len(listing.errs) > 0 {
		return nil, listing.Err()
	}
	c.logger.Debug("listed remote bakery", "repo", repo,
		"packages", len(listing.entries), "skipped", len(listing.skipped))
	return listing, nil
}

// contentsURL builds the first listing page URL for repo.
func (c *Client) contentsURL(repo string) (string, error) {
	parts := strings.Split(strings.Trim(repo, "/"), "/")
	if len(parts) < 2 || slices.Contains(parts, "") {
		return "", fmt.Errorf("%w: %q (want owner/name[/path])", ErrInvalidRepository, repo)
	}
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	owner, name, dir := escaped[0], escaped[1], strings.Join(escaped[2:], "/")
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s?per_page=%d",
		c.baseURL, owner, name, dir, defaultPerPage), nil
}

// fetchPage fetches one listing page and returns its entries and the next page URL.
func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]contentEntry, string, error) {
	var next string
	body, err := c.getWithHeader(ctx, pageURL, maxJSONResponseBytes, func(h http.Header) {
		next = parseLinkHeader(h.Get("Link"))
	})
	if err != nil {
		return nil, "", err
	}

	var entries []contentEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, "", &RemoteUnavailableError{URL: redactURL(pageURL), Err: fmt.Errorf("decoding listing: %w", err)}
	}
	return entries, next, nil
}

// pairFiles groups files into archive and manifest candidates and returns the
// sorted names that have both halves. Incomplete pairs are recorded as skipped.
func pairFiles(files []contentEntry, listing *Listing) []bun.Name {
	for i := range files {
		f := &files[i]
		if f.Type != "file" {
			continue
		}
		ext := strings.ToLower(pathExt(f.Name))
		if ext != bun.ArchiveExt && ext != bun.ManifestExt {
			continue
		}
		name := bun.Name(strings.TrimSuffix(f.Name, pathExt(f.Name)))
		cand := listing.candidates[name]
		if ext == bun.ArchiveExt {
			cand.archive = f
		} else {
			cand.manifest = f
		}
		listing.candidates[name] = cand
	}

	var names []bun.Name
	for name, cand := range listing.candidates {
		switch {
		case name.Validate() != nil:
			listing.skip(name, "not a valid bun name")
		case cand.manifest == nil:
			listing.skip(name, "manifest missing")
		case cand.archive == nil:
			listing.skip(name, "archive missing")
		case cand.manifest.DownloadURL == "":
			listing.skip(name, "manifest has no download URL")
		default:
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// get fetches reqURL, retrying once on transient failures.
func (c *Client) get(ctx context.Context, reqURL string, limit int64) ([]byte, error) {
	return c.getWithHeader(ctx, reqURL, limit, nil)
}

func (c *Client) getWithHeader(ctx context.Context, reqURL string, limit int64, onHeader func(http.Header)) ([]byte, error) {
	var (
		body      []byte
		permanent error
	)
	op := func() error {
		b, h, err := c.getOnce(ctx, reqURL, limit)
		if err != nil {
			if isTransient(ctx, err) {
				c.logger.Debug("transient remote failure", "url", redactURL(reqURL), "error", err)
				return err
			}
			permanent = err
			return nil
		}
		body = b
		if onHeader != nil {
			onHeader(h)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, 1), ctx))
	if err == nil {
		err = permanent
	}
	if err != nil {
		var unavailable *RemoteUnavailableError
		if errors.As(err, &unavailable) {
			return nil, unavailable
		}
		var se *statusError
		if errors.As(err, &se) {
			return nil, &RemoteUnavailableError{URL: redactURL(reqURL), StatusCode: se.code}
		}
		return nil, &RemoteUnavailableError{URL: redactURL(reqURL), Err: err}
	}
	return body, nil
}

// getOnce performs a single bounded GET request.
func (c *Client) getOnce(ctx context.Context, reqURL string, limit int64) ([]byte, http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	// Only attach the auth token when the request targets a known GitHub host.
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := checkRateLimit(resp); err != nil {
		return nil, nil, &RemoteUnavailableError{URL: redactURL(reqURL), StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	return body, resp.Header, nil
}

// isTransient reports whether err is worth one more attempt: transport
// failures, server errors and 429s. Cancellation of the caller's context is not.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
	}
	var unavailable *RemoteUnavailableError
	return !errors.As(err, &unavailable)
}

// checkRateLimit returns a RateLimitError when the X-RateLimit-Remaining
// header reports an exhausted quota.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}
	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil //nolint:nilerr // Non-numeric header is non-fatal.
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // Best-effort header parsing.
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // Best-effort header parsing.
	return &RateLimitError{Limit: limit, ResetAt: time.Unix(resetUnix, 0)}
}

// parseLinkHeader extracts the URL for the "next" page from a GitHub API Link header.
//
// Example header: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkHeader(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// isGitHubHost reports whether reqURL targets the configured API host or,
// for the public API, the raw content host that serves manifest downloads.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") &&
		strings.EqualFold(reqURL.Host, "raw.githubusercontent.com")
}

// redactURL strips query parameters and fragments for safe inclusion in errors.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func pathExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}
