package domain

import (
	"time"
	_ "time/tzdata" // America/New_York on hosts without a zoneinfo database
)

// MarketStatus is the US equity session state.
type MarketStatus string

const (
	MarketOpen       MarketStatus = "open"
	MarketClosed     MarketStatus = "closed"
	MarketPreMarket  MarketStatus = "pre-market"
	MarketAfterHours MarketStatus = "after-hours"
)

// Label returns the human-readable status text.
func (s MarketStatus) Label() string {
	switch s {
	case MarketOpen:
		return "Market Open"
	case MarketClosed:
		return "Market Closed"
	case MarketPreMarket:
		return "Pre-Market"
	case MarketAfterHours:
		return "After Hours"
	default:
		return "Unknown"
	}
}

var marketLocation = loadMarketLocation()

func loadMarketLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// MarketStatusAt derives the session from the wall clock only. Holidays are
// not considered.
// - Saturday/Sunday: closed
// - 04:00-09:30 ET: pre-market
// - 09:30-16:00 ET: open
// - otherwise: after-hours
func MarketStatusAt(t time.Time) MarketStatus {
	et := t.In(marketLocation)

	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return MarketClosed
	}

	minutes := et.Hour()*60 + et.Minute()
	switch {
	case minutes >= 9*60+30 && minutes < 16*60:
		return MarketOpen
	case minutes >= 4*60 && minutes < 9*60+30:
		return MarketPreMarket
	default:
		return MarketAfterHours
	}
}
