package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sectorscope/internal/logging"
	"sectorscope/pkg/utils"
)

const nseBaseURL = "https://www.nseindia.com"

// NSEClient fetches equity quotes from the NSE public API. The API
// refuses requests without the cookies set by the landing page, so the
// client primes its cookie jar before the first quote call. Only a
// successful handshake is latched; a failed one is re-attempted on the
// next call so a transient landing-page outage does not poison the
// client for its lifetime.
type NSEClient struct {
	http    *http.Client
	baseURL string
	log     zerolog.Logger

	primeMu sync.Mutex
	primed  bool
}

// NSEOption configures an NSEClient.
type NSEOption func(*NSEClient)

// WithBaseURL overrides the NSE endpoint, used in tests.
func WithBaseURL(u string) NSEOption {
	return func(c *NSEClient) { c.baseURL = u }
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) NSEOption {
	return func(c *NSEClient) { c.http.Timeout = d }
}

// NewNSEClient creates a new NSE quote client.
func NewNSEClient(logger zerolog.Logger, opts ...NSEOption) *NSEClient {
	jar, _ := cookiejar.New(nil)
	c := &NSEClient{
		http: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
		baseURL: nseBaseURL,
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// quoteResponse mirrors the slice of the NSE quote-equity payload we
// care about.
type quoteResponse struct {
	PriceInfo struct {
		LastPrice     float64 `json:"lastPrice"`
		PreviousClose float64 `json:"previousClose"`
	} `json:"priceInfo"`
}

// Quote fetches the last price and previous close for a symbol. Any
// transport or shape error is returned to the caller; the aggregator
// maps it to an unavailable result.
func (c *NSEClient) Quote(ctx context.Context, symbol string) (float64, float64, error) {
	if err := c.prime(ctx); err != nil {
		return 0, 0, fmt.Errorf("priming NSE session: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/quote-equity?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("creating quote request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := c.http.Do(req)
	logging.LogAPICall(c.log, http.MethodGet, "/api/quote-equity", time.Since(start), err)
	if err != nil {
		return 0, 0, fmt.Errorf("fetching quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("quote for %s: unexpected status %d", symbol, resp.StatusCode)
	}

	var qr quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return 0, 0, fmt.Errorf("decoding quote for %s: %w", symbol, err)
	}
	if qr.PriceInfo.LastPrice == 0 && qr.PriceInfo.PreviousClose == 0 {
		return 0, 0, fmt.Errorf("quote for %s: empty price info", symbol)
	}

	return qr.PriceInfo.LastPrice, qr.PriceInfo.PreviousClose, nil
}

// prime performs the cookie handshake. Success is latched so the
// handshake runs once per healthy client; failure is not, and the next
// quote call tries again. The handshake is retried with backoff;
// per-symbol quote calls are not.
func (c *NSEClient) prime(ctx context.Context) error {
	c.primeMu.Lock()
	defer c.primeMu.Unlock()

	if c.primed {
		return nil
	}

	err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
		if err != nil {
			return err
		}
		setBrowserHeaders(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("landing page returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.primed = true
	return nil
}

// setBrowserHeaders makes the request look like a regular browser; the
// NSE API rejects default Go client headers.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// Ensure NSEClient implements Source.
var _ Source = (*NSEClient)(nil)
