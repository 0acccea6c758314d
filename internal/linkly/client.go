// Package linkly is a client for the v1 workspace API of the link-management
// service that supplies links and click counts.
package linkly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const dayLayout = "2006-01-02"

type AuthMode string

const (
	AuthBearer AuthMode = "bearer"
	AuthQuery  AuthMode = "query"
)

// Link is a tracked link as returned by the links endpoint.
type Link struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	FullURL     string `json:"full_url"`
	Country     string `json:"country"`
	Robot       bool   `json:"robot"`
	ClicksTotal int    `json:"clicks_total"`
	ClicksHuman int    `json:"clicks_human"`
}

type LinksPage struct {
	Links      []Link `json:"links"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	TotalPages int    `json:"total_pages"`
}

type ListOptions struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string // "name" or "clicks"
	SortDir string // "asc" or "desc"
}

// Bucket is one day of clicks.
type Bucket struct {
	Day    string `json:"t"`
	Clicks int    `json:"y"`
}

type ClicksOptions struct {
	LinkID int64
	Start  time.Time
	End    time.Time
	Bots   bool
	TZ     string
}

// APIError is a non-2xx answer from the upstream.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Fetcher is what the stats service needs from the upstream.
type Fetcher interface {
	ListLinks(ctx context.Context, opts ListOptions) (*LinksPage, error)
	Clicks(ctx context.Context, opts ClicksOptions) ([]Bucket, error)
}

type Options struct {
	BaseURL   string
	Workspace string
	APIKey    string
	AuthMode  AuthMode
	Timeout   time.Duration
	Logger    *log.Logger
	// Base is the transport under the auth layer. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper
}

type Client struct {
	baseURL   *url.URL
	workspace string
	apiKey    string
	queryAuth bool
	http      *http.Client
	logger    *log.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if opts.Workspace == "" {
		return nil, fmt.Errorf("workspace is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	transport := opts.Base
	if transport == nil {
		transport = http.DefaultTransport
	}

	c := &Client{
		baseURL:   base,
		workspace: opts.Workspace,
		apiKey:    opts.APIKey,
		logger:    opts.Logger,
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}

	switch opts.AuthMode {
	case AuthBearer, "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey})
		transport = &oauth2.Transport{Base: transport, Source: ts}
	case AuthQuery:
		c.queryAuth = true
	default:
		return nil, fmt.Errorf("unknown auth mode %q", opts.AuthMode)
	}

	c.http = &http.Client{Transport: transport, Timeout: opts.Timeout}
	return c, nil
}

// ListLinks fetches one page of links.
func (c *Client) ListLinks(ctx context.Context, opts ListOptions) (*LinksPage, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.SortBy != "" {
		q.Set("sort_by", opts.SortBy)
		if opts.SortDir != "" {
			q.Set("sort_dir", opts.SortDir)
		}
	}

	var page LinksPage
	if err := c.get(ctx, "links", q, &page); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return &page, nil
}

// ListAllLinks walks every page of the links listing.
func (c *Client) ListAllLinks(ctx context.Context, opts ListOptions) ([]Link, error) {
	return ListAll(ctx, c, opts)
}

// ListAll pages through f until the last page.
func ListAll(ctx context.Context, f Fetcher, opts ListOptions) ([]Link, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	var links []Link
	for {
		page, err := f.ListLinks(ctx, opts)
		if err != nil {
			return nil, err
		}
		links = append(links, page.Links...)
		if len(page.Links) == 0 || page.TotalPages <= opts.Page {
			break
		}
		opts.Page++
	}
	return links, nil
}

// Clicks fetches daily click buckets for one link. Days without clicks may
// be missing from the answer.
func (c *Client) Clicks(ctx context.Context, opts ClicksOptions) ([]Bucket, error) {
	q := url.Values{}
	q.Set("link_id", strconv.FormatInt(opts.LinkID, 10))
	q.Set("start", opts.Start.Format(dayLayout))
	q.Set("end", opts.End.Format(dayLayout))
	q.Set("frequency", "day")
	q.Set("bots", strconv.FormatBool(opts.Bots))
	if opts.TZ != "" {
		q.Set("tz", opts.TZ)
	}

	var body struct {
		Traffic []Bucket `json:"traffic"`
	}
	if err := c.get(ctx, "clicks", q, &body); err != nil {
		return nil, fmt.Errorf("clicks for link %d: %w", opts.LinkID, err)
	}
	return body.Traffic, nil
}

func (c *Client) get(ctx context.Context, resource string, q url.Values, out any) error {
	u := *c.baseURL
	u.Path = u.Path + "/api/v1/workspace/" + url.PathEscape(c.workspace) + "/" + resource
	if c.queryAuth {
		q.Set("api_key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.logger.Printf("linkly: GET %s -> %d (%s)", resource, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", resource, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := http.StatusText(resp.StatusCode)
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Error != "":
			msg = body.Error
		case body.Message != "":
			msg = body.Message
		}
	} else if s := strings.TrimSpace(string(raw)); s != "" {
		msg = s
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
