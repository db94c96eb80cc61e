package domain

import (
	"fmt"
	"strings"
)

// Side is a trade direction. Trading itself is not implemented; the side
// only feeds the placeholder notice.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts "buy"/"sell" in any case. Empty defaults to buy.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}
