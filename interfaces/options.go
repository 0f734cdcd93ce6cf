package interfaces

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OptionSide is the right of an option contract
type OptionSide string

const (
	Call OptionSide = "call"
	Put  OptionSide = "put"
)

// ParseOptionSide accepts "call"/"put" and their one-letter forms
func ParseOptionSide(s string) (OptionSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option side %q", s)
}

// OptionQuote is one strike of one side of one expiration
type OptionQuote struct {
	Symbol       string          `json:"symbol"` // OCC symbol (e.g., "AAPL250117C00150000")
	Strike       decimal.Decimal `json:"strike"`
	Side         OptionSide      `json:"side"`
	Delta        float64         `json:"delta"` // magnitude, normalized by the chain provider
	Bid          decimal.Decimal `json:"bid"`
	Ask          decimal.Decimal `json:"ask"`
	OpenInterest int64           `json:"open_interest"`
	Expiration   time.Time       `json:"expiration"`
}

// Spread is ask minus bid
func (q OptionQuote) Spread() decimal.Decimal {
	return q.Ask.Sub(q.Bid)
}

// ValidSpread reports whether the quote has a usable, non-crossed market.
// A quote without an offer (ask <= 0) has no defined spread.
func (q OptionQuote) ValidSpread() bool {
	if q.Bid.IsNegative() || !q.Ask.IsPositive() {
		return false
	}
	return !q.Spread().IsNegative()
}

// ExpirationGroup holds every quote for a single expiration date
type ExpirationGroup struct {
	Expiration time.Time     `json:"expiration"`
	DTE        int           `json:"dte"`
	Quotes     []OptionQuote `json:"quotes"`
}

// OptionsChain is a point-in-time snapshot of all listed options for an underlying
type OptionsChain struct {
	Underlying     string             `json:"underlying"`
	EvaluationTime time.Time          `json:"evaluation_time"`
	SpotPrice      decimal.Decimal    `json:"spot_price"`
	Expirations    []*ExpirationGroup `json:"expirations"`
}

// ChainProvider fetches a fresh options chain snapshot.
// Implementations normalize put deltas to their magnitude before returning.
type ChainProvider interface {
	FetchChain(ctx context.Context, underlying string, asOf time.Time) (*OptionsChain, error)
}

// DaysToExpiration counts calendar days from the evaluation date to the expiration date
func DaysToExpiration(asOf, expiration time.Time) int {
	from := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(expiration.Year(), expiration.Month(), expiration.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
