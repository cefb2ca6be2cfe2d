// Package backend implements the BackendClient port against the DEVisible backend API.
package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ericfisherdev/devisible/internal/domain/model"
	"github.com/ericfisherdev/devisible/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BackendClient = (*Client)(nil)

// Backend API paths.
const (
	pathLogin    = "/userAPI/login"
	pathSignup   = "/userAPI/signup"
	pathAccount  = "/userAPI/account"
	pathUserInfo = "/webAPI/userInfo"
	pathDeps     = "/webAPI/deps"
	pathRepo     = "/webAPI/repo/"
)

// maxBodyBytes caps how much of a backend response body is read.
const maxBodyBytes = 8 << 20

// Options tunes the transport stack. Zero values fall back to defaults.
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Logger       *slog.Logger
}

// Client implements driven.BackendClient over HTTP with the following transport stack:
//  1. httpcache (ETag-based conditional GET caching, one cache per backend session)
//  2. go-retryablehttp (bounded retries on transport errors and 5xx)
//  3. net/http
type Client struct {
	baseURL *url.URL
	retry   http.RoundTripper
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	caches map[string]*http.Client // keyed by cookie fingerprint
	plain  *http.Client
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend URL %q must use http or https", baseURL)
	}

	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	rc.Logger = opts.Logger
	// Hand the final 5xx back to the caller instead of a "giving up" error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	retry := &retryablehttp.RoundTripper{Client: rc}

	return &Client{
		baseURL: u,
		retry:   retry,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		caches:  make(map[string]*http.Client),
		plain:   &http.Client{Transport: retry, Timeout: opts.Timeout},
	}, nil
}

// httpClientFor returns the caching client bound to a backend session. Cache
// entries are never shared between sessions because the backend keys
// responses on the cookie without sending Vary.
func (c *Client) httpClientFor(cookie string) *http.Client {
	if cookie == "" {
		return c.plain
	}

	key := fingerprint(cookie)

	c.mu.Lock()
	defer c.mu.Unlock()

	if hc, ok := c.caches[key]; ok {
		return hc
	}

	transport := httpcache.NewTransport(httpcache.NewMemoryCache())
	transport.Transport = c.retry
	transport.MarkCachedResponses = true

	hc := &http.Client{Transport: transport, Timeout: c.timeout}
	c.caches[key] = hc
	return hc
}

// ForgetSession drops the response cache held for a backend session.
func (c *Client) ForgetSession(cookie string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.caches, fingerprint(cookie))
}

// CachedSessions returns how many backend sessions currently hold a response cache.
func (c *Client) CachedSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.caches)
}

func fingerprint(cookie string) string {
	sum := sha256.Sum256([]byte(cookie))
	return hex.EncodeToString(sum[:])
}

// CurrentUser asks the backend which user the session cookie belongs to.
func (c *Client) CurrentUser(ctx context.Context, cookie string) (*model.User, error) {
	if cookie == "" {
		return nil, nil
	}

	var body sessionJSON
	resp, err := c.doJSON(ctx, http.MethodGet, pathLogin, cookie, nil, &body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("session check", resp.StatusCode)
	}

	return body.toUser(), nil
}

// Login authenticates with the backend and captures the session cookie it sets.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*driven.AuthResult, error) {
	return c.authenticate(ctx, pathLogin, creds)
}

// Register creates a backend account and captures the session cookie it sets.
func (c *Client) Register(ctx context.Context, creds model.Credentials) (*driven.AuthResult, error) {
	return c.authenticate(ctx, pathSignup, creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds model.Credentials) (*driven.AuthResult, error) {
	payload := credentialsJSON{Username: creds.Username, Password: creds.Password}

	var body sessionJSON
	resp, err := c.doJSON(ctx, http.MethodPost, path, "", payload, &body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return nil, driven.ErrInvalidCredentials
	case http.StatusConflict:
		return nil, driven.ErrUsernameTaken
	default:
		return nil, unexpectedStatus("authenticate", resp.StatusCode)
	}

	user := body.toUser()
	if user == nil {
		return nil, driven.ErrInvalidCredentials
	}

	return &driven.AuthResult{
		User:   *user,
		Cookie: cookieHeader(resp.Cookies()),
	}, nil
}

// Logout ends the backend session and drops its response cache.
func (c *Client) Logout(ctx context.Context, cookie string) error {
	defer c.ForgetSession(cookie)

	resp, err := c.doJSON(ctx, http.MethodDelete, pathLogin, cookie, nil, nil)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusUnauthorized:
		return nil
	default:
		return unexpectedStatus("logout", resp.StatusCode)
	}
}

// Account fetches the account page data.
func (c *Client) Account(ctx context.Context, cookie string) (*model.Account, error) {
	var body accountJSON
	if err := c.getJSON(ctx, pathAccount, cookie, &body); err != nil {
		return nil, err
	}
	return &model.Account{Username: body.Username, APIKey: body.APIKey}, nil
}

// ListRepos fetches every repository with its builds.
func (c *Client) ListRepos(ctx context.Context, cookie string) ([]model.Repository, error) {
	var body []repoJSON
	if err := c.getJSON(ctx, pathUserInfo, cookie, &body); err != nil {
		return nil, err
	}

	repos := make([]model.Repository, 0, len(body))
	for _, r := range body {
		repos = append(repos, r.toModel())
	}
	return repos, nil
}

// Dependencies fetches the preferred versions and per-repository dependency sets.
func (c *Client) Dependencies(ctx context.Context, cookie string) (*model.DependencyData, error) {
	var body depsJSON
	if err := c.getJSON(ctx, pathDeps, cookie, &body); err != nil {
		return nil, err
	}
	return body.toModel()
}

// DeleteRepo asks the backend to hard-delete a repository.
func (c *Client) DeleteRepo(ctx context.Context, cookie string, repoID int64) (int, error) {
	resp, err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("%s%d", pathRepo, repoID), cookie, nil, nil)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, driven.ErrUnauthenticated
	}

	if resp.StatusCode == http.StatusNoContent {
		// Cached listings are stale once a repository is gone.
		c.ForgetSession(cookie)
	}
	return resp.StatusCode, nil
}

// getJSON issues an authenticated GET and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, path, cookie string, out any) error {
	resp, err := c.doJSON(ctx, http.MethodGet, path, cookie, nil, out)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return driven.ErrUnauthenticated
	default:
		return unexpectedStatus("GET "+path, resp.StatusCode)
	}
}

// result holds the parts of an http.Response the client inspects after the body is consumed.
type result struct {
	StatusCode int
	header     http.Header
}

// Cookies parses the Set-Cookie headers of the response.
func (r *result) Cookies() []*http.Cookie {
	return (&http.Response{Header: r.header}).Cookies()
}

// doJSON sends an optional JSON payload and, for 2xx responses with a body,
// decodes the body into out. The response body is always drained and closed.
func (c *Client) doJSON(ctx context.Context, method, path, cookie string, payload, out any) (*result, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.httpClientFor(cookie).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.Header.Get(httpcache.XFromCache) != "" {
		c.logger.Debug("backend response served from cache", "path", path)
	}

	res := &result{StatusCode: resp.StatusCode, header: resp.Header}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", method, path, err)
	}

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", method, path, err)
		}
	}

	return res, nil
}

// cookieHeader serializes response cookies into a Cookie request header value.
func cookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		if ck.Value == "" || ck.MaxAge < 0 {
			continue
		}
		parts = append(parts, (&http.Cookie{Name: ck.Name, Value: ck.Value}).String())
	}
	return strings.Join(parts, "; ")
}

func unexpectedStatus(op string, status int) error {
	return fmt.Errorf("%s: unexpected backend status %d", op, status)
}
