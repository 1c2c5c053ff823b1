package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"

	"sectorscope/internal/config"
	"sectorscope/internal/logging"
	"sectorscope/internal/models"
)

const defaultBaseURL = "https://apiconnect.angelone.in"

const (
	loginPath  = "/rest/auth/angelbroking/user/v1/loginByPassword"
	searchPath = "/rest/secure/angelbroking/order/v1/searchScrip"
	quotePath  = "/rest/secure/angelbroking/market/v1/quote/"
)

// SmartClient implements Session against the SmartAPI HTTP endpoints.
type SmartClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	log     zerolog.Logger
}

// Option configures a SmartClient.
type Option func(*SmartClient)

// WithBaseURL overrides the broker endpoint, used in tests.
func WithBaseURL(u string) Option {
	return func(c *SmartClient) { c.baseURL = u }
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *SmartClient) { c.http.Timeout = d }
}

// NewSmartClient creates a new SmartAPI client.
func NewSmartClient(apiKey string, logger zerolog.Logger, opts ...Option) *SmartClient {
	c := &SmartClient{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiEnvelope is the common SmartAPI response wrapper.
type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type loginData struct {
	JWTToken     string `json:"jwtToken"`
	RefreshToken string `json:"refreshToken"`
	FeedToken    string `json:"feedToken"`
}

// Login derives the current one-time code from the shared seed and
// exchanges the credentials for session tokens. Any transport error or
// a non-success status is fatal for the run; no partial session is
// usable.
func (c *SmartClient) Login(ctx context.Context, creds config.BrokerCredentials) (models.Session, error) {
	code, err := totp.GenerateCode(creds.TOTPSeed, time.Now())
	if err != nil {
		return models.Session{}, fmt.Errorf("generating one-time code: %w", err)
	}

	payload := map[string]string{
		"clientcode": creds.ClientCode,
		"password":   creds.Password,
		"totp":       code,
	}

	var data loginData
	if err := c.post(ctx, loginPath, models.Session{}, payload, &data); err != nil {
		return models.Session{}, fmt.Errorf("broker login: %w", err)
	}
	if data.JWTToken == "" {
		return models.Session{}, fmt.Errorf("broker login: empty access token in response")
	}

	c.log.Info().Str("client_code", creds.ClientCode).Msg("Broker session established")
	return models.Session{
		ClientCode:   creds.ClientCode,
		AccessToken:  data.JWTToken,
		RefreshToken: data.RefreshToken,
		FeedToken:    data.FeedToken,
	}, nil
}

type scripRow struct {
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"tradingsymbol"`
	SymbolToken   string `json:"symboltoken"`
}

// ResolveSymbol looks up the broker instrument token for a symbol. The
// equity suffix convention applies: "RELIANCE" is searched as
// "RELIANCE-EQ" on NSE. Returns ErrNotFound when no candidate matches.
func (c *SmartClient) ResolveSymbol(ctx context.Context, session models.Session, exchange models.Exchange, symbol string) (models.Instrument, error) {
	search := symbol
	if exchange == models.NSE && !strings.Contains(symbol, "-") {
		search = symbol + "-EQ"
	}

	payload := map[string]string{
		"exchange":    string(exchange),
		"searchscrip": search,
	}

	var rows []scripRow
	if err := c.post(ctx, searchPath, session, payload, &rows); err != nil {
		return models.Instrument{}, fmt.Errorf("resolving %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return models.Instrument{}, fmt.Errorf("resolving %s: %w", symbol, ErrNotFound)
	}

	// Prefer the exact equity match, fall back to the first candidate.
	chosen := rows[0]
	for _, row := range rows {
		if row.TradingSymbol == search {
			chosen = row
			break
		}
	}
	if chosen.SymbolToken == "" {
		return models.Instrument{}, fmt.Errorf("resolving %s: %w", symbol, ErrNotFound)
	}

	return models.Instrument{
		Symbol:   symbol,
		Token:    chosen.SymbolToken,
		Exchange: exchange,
	}, nil
}

type quoteData struct {
	Fetched []struct {
		SymbolToken string  `json:"symbolToken"`
		LTP         float64 `json:"ltp"`
		High        float64 `json:"high"`
		Low         float64 `json:"low"`
		Open        float64 `json:"open"`
	} `json:"fetched"`
}

// FetchSnapshot retrieves the full-mode quote for an instrument token.
// Returns ErrUnavailable when the broker did not return data for the
// token; the caller decides whether that skips the hit.
func (c *SmartClient) FetchSnapshot(ctx context.Context, session models.Session, instrument models.Instrument) (models.MarketSnapshot, error) {
	payload := map[string]any{
		"mode": "FULL",
		"exchangeTokens": map[string][]string{
			string(instrument.Exchange): {instrument.Token},
		},
	}

	var data quoteData
	if err := c.post(ctx, quotePath, session, payload, &data); err != nil {
		return models.MarketSnapshot{}, fmt.Errorf("snapshot for %s: %w", instrument.Symbol, err)
	}
	if len(data.Fetched) == 0 {
		return models.MarketSnapshot{}, fmt.Errorf("snapshot for %s: %w", instrument.Symbol, ErrUnavailable)
	}

	f := data.Fetched[0]
	snap := models.MarketSnapshot{
		Token:     instrument.Token,
		LastPrice: f.LTP,
		High:      f.High,
		Low:       f.Low,
		Open:      f.Open,
	}
	// A zero last price means the field was absent; the evaluator must
	// not treat it as a real quote.
	snap.Complete = f.LTP > 0 && f.High > 0 && f.Low > 0
	return snap, nil
}

// post issues a SmartAPI JSON request and unwraps the envelope. A
// status=false envelope is an error carrying the broker's message.
func (c *SmartClient) post(ctx context.Context, path string, session models.Session, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-PrivateKey", c.apiKey)
	if session.Valid() {
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	}

	resp, err := c.http.Do(req)
	logging.LogAPICall(c.log, http.MethodPost, path, time.Since(start), err)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !envelope.Status {
		return fmt.Errorf("broker rejected request: %s", envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}

// Ensure SmartClient implements Session.
var _ Session = (*SmartClient)(nil)
