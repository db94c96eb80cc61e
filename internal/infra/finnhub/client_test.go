package finnhub_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"equidify/internal/domain"
	"equidify/internal/infra"
	"equidify/internal/infra/finnhub"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock HTTP client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "/api/v1/quote", req.URL.Path)
			require.Equal(t, "AAPL", req.URL.Query().Get("symbol"))
			require.Equal(t, "test-key", req.URL.Query().Get("token"))

			return jsonResponse(http.StatusOK,
				`{"c":150.25,"d":1.25,"dp":0.8389,"h":151,"l":148.5,"o":149,"pc":149,"t":1700000000}`), nil
		}).
		Times(1)

	metrics := infra.NewMetrics()
	client := finnhub.NewClient("test-key",
		finnhub.WithBaseURL("https://example.test/api/v1/"),
		finnhub.WithHTTPClient(httpClient),
		finnhub.WithMetrics(metrics),
	)

	// Act
	quote, err := client.Quote(t.Context(), " aapl ")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, quote)
	require.Equal(t, "AAPL", quote.Symbol)
	require.True(t, quote.Price.Equal(decimal.RequireFromString("150.25")))
	require.True(t, quote.PreviousClose.Equal(decimal.NewFromInt(149)))
	require.False(t, quote.FetchedAt.IsZero())

	snap := metrics.Snapshot()
	require.Equal(t, uint64(1), snap.RestRequests)
	require.Equal(t, uint64(0), snap.RestFailures)
}

func TestQuote_InvalidSymbol(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	client := finnhub.NewClient("k", finnhub.WithHTTPClient(httpClient))

	quote, err := client.Quote(t.Context(), "   ")
	require.ErrorIs(t, err, domain.ErrInvalidSymbol)
	require.Nil(t, quote)
}

func TestQuote_ErrUnexpectedStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		retriable bool
	}{
		{"unauthorized", http.StatusUnauthorized, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				Return(jsonResponse(tt.status, `{"error":"nope"}`), nil).
				Times(1)

			metrics := infra.NewMetrics()
			client := finnhub.NewClient("k", finnhub.WithHTTPClient(httpClient), finnhub.WithMetrics(metrics))

			quote, err := client.Quote(t.Context(), "AAPL")
			require.Nil(t, quote)

			var apiErr *domain.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, "/quote", apiErr.Endpoint)
			require.Contains(t, apiErr.Body, "nope")
			require.Equal(t, tt.retriable, domain.IsRetriable(err))
			require.Equal(t, uint64(1), metrics.Snapshot().RestFailures)
		})
	}
}

func TestQuote_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("connection reset")
		}).
		Times(1)

	client := finnhub.NewClient("k", finnhub.WithHTTPClient(httpClient))

	quote, err := client.Quote(t.Context(), "AAPL")
	require.Nil(t, quote)

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.True(t, domain.IsRetriable(err))
}

func TestQuote_ErrDecodingResponse(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, "invalid json"), nil).
		Times(1)

	client := finnhub.NewClient("k", finnhub.WithHTTPClient(httpClient))

	quote, err := client.Quote(t.Context(), "AAPL")
	require.Error(t, err)
	require.Nil(t, quote)
}

func TestQuote_EmptyBody(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, ""), nil).
		Times(1)

	client := finnhub.NewClient("k", finnhub.WithHTTPClient(httpClient))

	_, err := client.Quote(t.Context(), "AAPL")
	require.True(t, errors.Is(err, domain.ErrEmptyResponse))
}

func TestProfile(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/api/v1/stock/profile2", req.URL.Path)
			require.Equal(t, "MSFT", req.URL.Query().Get("symbol"))
			return jsonResponse(http.StatusOK, `{
				"country":"US","currency":"USD","exchange":"NASDAQ NMS - GLOBAL MARKET",
				"finnhubIndustry":"Technology","logo":"https://static.finnhub.io/logo/msft.png",
				"name":"Microsoft Corp","ticker":"MSFT","weburl":"https://www.microsoft.com/"
			}`), nil
		}).
		Times(1)

	client := finnhub.NewClient("k", finnhub.WithBaseURL("https://example.test/api/v1"), finnhub.WithHTTPClient(httpClient))

	profile, err := client.Profile(t.Context(), "msft")
	require.NoError(t, err)
	require.Equal(t, "MSFT", profile.Symbol)
	require.Equal(t, "Microsoft Corp", profile.Name)
	require.Equal(t, "Technology", profile.Industry)
	require.Equal(t, "https://static.finnhub.io/logo/msft.png", profile.Logo)
}

func TestProfile_UnknownSymbol(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, `{}`), nil).
		Times(1)

	client := finnhub.NewClient("k", finnhub.WithHTTPClient(httpClient))

	profile, err := client.Profile(t.Context(), "ZZZZ")
	require.NoError(t, err)
	require.Equal(t, "ZZZZ", profile.Symbol)
	require.Empty(t, profile.Name)
}

func TestSearch_LimitsResults(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/api/v1/search", req.URL.Path)
			require.Equal(t, "apple", req.URL.Query().Get("q"))

			body := `{"count":7,"result":[`
			for i := 0; i < 7; i++ {
				if i > 0 {
					body += ","
				}
				body += fmt.Sprintf(`{"symbol":"S%d","description":"Result %d","displaySymbol":"S%d","type":"Common Stock"}`, i, i, i)
			}
			body += `]}`
			return jsonResponse(http.StatusOK, body), nil
		}).
		Times(1)

	client := finnhub.NewClient("k", finnhub.WithBaseURL("https://example.test/api/v1"), finnhub.WithHTTPClient(httpClient))

	results, err := client.Search(t.Context(), "apple")
	require.NoError(t, err)
	require.Len(t, results, finnhub.SearchLimit)
	require.Equal(t, "S0", results[0].Symbol)
	require.Equal(t, "Result 4", results[4].Description)
}

func TestSearch_EmptyQuery(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	client := finnhub.NewClient("k", finnhub.WithHTTPClient(httpClient))

	results, err := client.Search(t.Context(), "  ")
	require.NoError(t, err)
	require.Empty(t, results)
}
