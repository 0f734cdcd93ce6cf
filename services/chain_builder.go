package services

import (
	"crowned-trader/interfaces"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BuildChain assembles provider quotes into a chain snapshot. This is the
// ingestion boundary: deltas become magnitudes, expirations become UTC dates,
// and already-expired groups are dropped.
func BuildChain(underlying string, spot decimal.Decimal, asOf time.Time, quotes []interfaces.OptionQuote) (*interfaces.OptionsChain, error) {
	if !spot.IsPositive() {
		return nil, fmt.Errorf("spot price for %s must be positive, got %s", underlying, spot)
	}

	byDate := make(map[time.Time]*interfaces.ExpirationGroup)
	for _, q := range quotes {
		q.Expiration = dateOnly(q.Expiration)
		q.Delta = math.Abs(q.Delta)

		dte := interfaces.DaysToExpiration(asOf, q.Expiration)
		if dte < 0 {
			continue
		}

		g, ok := byDate[q.Expiration]
		if !ok {
			g = &interfaces.ExpirationGroup{Expiration: q.Expiration, DTE: dte}
			byDate[q.Expiration] = g
		}
		g.Quotes = append(g.Quotes, q)
	}

	chain := &interfaces.OptionsChain{
		Underlying:     strings.ToUpper(underlying),
		EvaluationTime: asOf,
		SpotPrice:      spot,
		Expirations:    make([]*interfaces.ExpirationGroup, 0, len(byDate)),
	}
	for _, g := range byDate {
		sort.Slice(g.Quotes, func(i, j int) bool {
			a, b := g.Quotes[i], g.Quotes[j]
			if a.Side != b.Side {
				return a.Side < b.Side
			}
			if c := a.Strike.Cmp(b.Strike); c != 0 {
				return c < 0
			}
			return a.Symbol < b.Symbol
		})
		chain.Expirations = append(chain.Expirations, g)
	}
	sort.Slice(chain.Expirations, func(i, j int) bool {
		return chain.Expirations[i].Expiration.Before(chain.Expirations[j].Expiration)
	})

	return chain, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
