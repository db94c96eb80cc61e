package finnhub

import (
	"github.com/shopspring/decimal"
)

// quoteResponse represents the /quote payload
// Reference: https://finnhub.io/docs/api/quote
type quoteResponse struct {
	Current       decimal.Decimal `json:"c"`  // 현재가
	Change        decimal.Decimal `json:"d"`  // 전일 대비
	ChangePercent decimal.Decimal `json:"dp"` // 전일 대비 (%)
	High          decimal.Decimal `json:"h"`
	Low           decimal.Decimal `json:"l"`
	Open          decimal.Decimal `json:"o"`
	PreviousClose decimal.Decimal `json:"pc"`
	Timestamp     int64           `json:"t"` // unix seconds
}

// searchResponse represents the /search payload
type searchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Symbol        string `json:"symbol"`
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

// profileResponse represents the /stock/profile2 payload
type profileResponse struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Industry string `json:"finnhubIndustry"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
	Logo     string `json:"logo"`
	WebURL   string `json:"weburl"`
}

// streamMessage is an inbound websocket frame.
// Types seen in practice: "trade", "ping", "error".
type streamMessage struct {
	Type string  `json:"type"`
	Data []trade `json:"data"`
	Msg  string  `json:"msg,omitempty"`
}

type trade struct {
	Symbol    string          `json:"s"`
	Price     decimal.Decimal `json:"p"`
	Timestamp int64           `json:"t"` // unix milliseconds
	Volume    decimal.Decimal `json:"v"`
}

// directive is an outbound subscribe/unsubscribe frame
type directive struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

const (
	directiveSubscribe   = "subscribe"
	directiveUnsubscribe = "unsubscribe"
)
