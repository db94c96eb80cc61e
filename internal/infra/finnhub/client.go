package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"equidify/internal/domain"
	"equidify/internal/infra"
)

const (
	// DefaultRestURL is the public REST base
	DefaultRestURL = "https://finnhub.io/api/v1"

	// SearchLimit caps the number of search results handed to callers
	SearchLimit = 5

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=finnhub_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Finnhub REST client.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
	metrics    *infra.Metrics
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMetrics records every request in m.
func WithMetrics(m *infra.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a REST client authenticating with token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultRestURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		metrics:    infra.NewMetrics(),
		logger:     slog.Default().With("module", "finnhub"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Quote fetches the latest quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.ErrInvalidSymbol
	}

	var resp quoteResponse
	if err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, err
	}

	return &domain.Quote{
		Symbol:        symbol,
		Price:         resp.Current,
		Change:        resp.Change,
		ChangePct:     resp.ChangePercent,
		Open:          resp.Open,
		High:          resp.High,
		Low:           resp.Low,
		PreviousClose: resp.PreviousClose,
		FetchedAt:     time.Now(),
	}, nil
}

// Profile fetches company metadata for symbol.
// Unknown symbols come back as an empty profile, not an error.
func (c *Client) Profile(ctx context.Context, symbol string) (*domain.Profile, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.ErrInvalidSymbol
	}

	var resp profileResponse
	if err := c.get(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, err
	}

	p := &domain.Profile{
		Symbol:    resp.Ticker,
		Name:      resp.Name,
		Exchange:  resp.Exchange,
		Industry:  resp.Industry,
		Country:   resp.Country,
		Currency:  resp.Currency,
		Logo:      resp.Logo,
		WebURL:    resp.WebURL,
		FetchedAt: time.Now(),
	}
	if p.Symbol == "" {
		p.Symbol = symbol
	}
	return p, nil
}

// Search looks up symbols matching query. At most SearchLimit results are returned.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var resp searchResponse
	if err := c.get(ctx, "/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, err
	}

	n := min(len(resp.Result), SearchLimit)
	results := make([]domain.SearchResult, 0, n)
	for _, r := range resp.Result[:n] {
		results = append(results, domain.SearchResult{
			Symbol:        r.Symbol,
			Description:   r.Description,
			DisplaySymbol: r.DisplaySymbol,
			Type:          r.Type,
		})
	}
	return results, nil
}

// get performs GET {base}{endpoint}?{params}&token=K and decodes the body into out
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) (err error) {
	defer func() {
		c.metrics.RecordRequest(err != nil)
	}()

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("token", c.token)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", infra.DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError("request "+endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		c.logger.Warn("Finnhub API error",
			slog.String("endpoint", endpoint),
			slog.Int("status", res.StatusCode),
		)
		return &domain.APIError{Endpoint: endpoint, StatusCode: res.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("decoding %s response: %w", endpoint, domain.ErrEmptyResponse)
		}
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}
