package screener

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const screenerPage = `<!DOCTYPE html>
<html>
<head>
<meta name="csrf-token" content="test-token-123"/>
<title>Screener</title>
</head>
<body></body>
</html>`

const processBody = `{
	"data": [
		{"nsecode": "RELIANCE", "name": "Reliance Industries", "close": 2850.5, "per_chg": 1.2, "volume": 4521000},
		{"nsecode": "TCS", "name": "Tata Consultancy", "close": 4100.0, "per_chg": 0.8, "volume": 1200000},
		{"nsecode": "", "name": "ignore me", "close": 1.0, "per_chg": 0.0, "volume": 0}
	]
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(zerolog.Nop(), WithBaseURL(srv.URL))
}

func TestQueryTwoStepProtocol(t *testing.T) {
	var gotToken, gotClause string

	mux := http.NewServeMux()
	mux.HandleFunc("/screener/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, screenerPage)
	})
	mux.HandleFunc("/screener/process", func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Csrf-Token")
		require.NoError(t, r.ParseForm())
		gotClause = r.PostForm.Get("scan_clause")
		fmt.Fprint(w, processBody)
	})

	client := newTestClient(t, mux)
	hits, err := client.Query(context.Background(), "( {cash} ( latest close > 100 ) )")
	require.NoError(t, err)

	assert.Equal(t, "test-token-123", gotToken)
	assert.Equal(t, "( {cash} ( latest close > 100 ) )", gotClause)

	// The empty-symbol row is dropped; the rest keep response order.
	require.Len(t, hits, 2)
	assert.Equal(t, "RELIANCE", hits[0].Symbol)
	assert.Equal(t, 2850.5, hits[0].Close)
	assert.Equal(t, int64(4521000), hits[0].Volume)
	assert.Equal(t, "TCS", hits[1].Symbol)
}

func TestQueryMissingTokenIsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/screener/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><head></head><body>no token here</body></html>")
	})

	client := newTestClient(t, mux)
	_, err := client.Query(context.Background(), "clause")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csrf token")
}

func TestQueryMalformedJSONIsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/screener/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, screenerPage)
	})
	mux.HandleFunc("/screener/process", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	})

	client := newTestClient(t, mux)
	_, err := client.Query(context.Background(), "clause")
	require.Error(t, err)
}

func TestQueryServerErrorIsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/screener/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, screenerPage)
	})
	mux.HandleFunc("/screener/process", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client := newTestClient(t, mux)
	_, err := client.Query(context.Background(), "clause")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestQueryEmptyDataYieldsNoHits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/screener/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, screenerPage)
	})
	mux.HandleFunc("/screener/process", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": []}`)
	})

	client := newTestClient(t, mux)
	hits, err := client.Query(context.Background(), "clause")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
