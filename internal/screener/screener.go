// Package screener provides a client for the rule-based market scanner.
//
// The scanner exposes a two-step protocol: a GET of the screener page
// yields an anti-forgery token in a meta tag, and a POST of the opaque
// scan clause with that token returns the matching symbols as JSON.
// Failure at either step is fatal for the pipeline run.
package screener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"sectorscope/internal/logging"
	"sectorscope/internal/models"
)

const defaultBaseURL = "https://chartink.com"

// Client queries the market scanner.
type Client struct {
	http    *http.Client
	baseURL string
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the scanner endpoint, used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a new scanner client. The cookie jar carries the
// session cookie from the token handshake into the process call.
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		http: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
		baseURL: defaultBaseURL,
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// processResponse is the scanner's JSON reply to a scan clause.
type processResponse struct {
	Data []hitRow `json:"data"`
}

type hitRow struct {
	NSECode   string  `json:"nsecode"`
	Name      string  `json:"name"`
	Close     float64 `json:"close"`
	PerChange float64 `json:"per_chg"`
	Volume    int64   `json:"volume"`
}

// Query runs the scan clause against the scanner and returns the hits
// in the order received. Any failure (network, missing token, malformed
// JSON) is returned as an error; the caller must treat it as fatal for
// the run.
func (c *Client) Query(ctx context.Context, scanClause string) ([]models.ScreenerHit, error) {
	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching anti-forgery token: %w", err)
	}

	form := url.Values{}
	form.Set("scan_clause", scanClause)

	endpoint := c.baseURL + "/screener/process"
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating process request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Csrf-Token", token)

	resp, err := c.http.Do(req)
	logging.LogAPICall(c.log, http.MethodPost, "/screener/process", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("querying screener: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screener returned status %d", resp.StatusCode)
	}

	var pr processResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decoding screener response: %w", err)
	}

	hits := make([]models.ScreenerHit, 0, len(pr.Data))
	for _, row := range pr.Data {
		if row.NSECode == "" {
			continue
		}
		hits = append(hits, models.ScreenerHit{
			Symbol:    row.NSECode,
			Name:      row.Name,
			Close:     row.Close,
			PerChange: row.PerChange,
			Volume:    row.Volume,
		})
	}

	c.log.Debug().Int("hits", len(hits)).Msg("Screener query completed")
	return hits, nil
}

// fetchToken GETs the screener page and extracts the csrf meta tag.
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	endpoint := c.baseURL + "/screener/"
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}

	resp, err := c.http.Do(req)
	logging.LogAPICall(c.log, http.MethodGet, "/screener/", time.Since(start), err)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("screener page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing screener page: %w", err)
	}

	token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	if !ok || token == "" {
		return "", fmt.Errorf("csrf token not found in screener page")
	}
	return token, nil
}
