package selector

import (
	"crowned-trader/interfaces"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var evalTime = time.Date(2025, time.January, 6, 15, 30, 0, 0, time.UTC)

func expiry(dte int) time.Time {
	return time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC).AddDate(0, 0, dte)
}

// quote builds a quote with the symbol and expiration left for group to fill in.
func quote(side interfaces.OptionSide, strike string, delta float64, bid, ask string, oi int64) interfaces.OptionQuote {
	return interfaces.OptionQuote{
		Strike:       decimal.RequireFromString(strike),
		Side:         side,
		Delta:        delta,
		Bid:          decimal.RequireFromString(bid),
		Ask:          decimal.RequireFromString(ask),
		OpenInterest: oi,
	}
}

func call(strike string, delta float64, bid, ask string, oi int64) interfaces.OptionQuote {
	return quote(interfaces.Call, strike, delta, bid, ask, oi)
}

func put(strike string, delta float64, bid, ask string, oi int64) interfaces.OptionQuote {
	return quote(interfaces.Put, strike, delta, bid, ask, oi)
}

func group(dte int, quotes ...interfaces.OptionQuote) *interfaces.ExpirationGroup {
	exp := expiry(dte)
	for i := range quotes {
		q := &quotes[i]
		q.Expiration = exp
		right := "C"
		if q.Side == interfaces.Put {
			right = "P"
		}
		q.Symbol = fmt.Sprintf("AAPL%s%s%08d", exp.Format("060102"), right, q.Strike.Mul(decimal.NewFromInt(1000)).IntPart())
	}
	return &interfaces.ExpirationGroup{Expiration: exp, DTE: dte, Quotes: quotes}
}

func chain(spot string, groups ...*interfaces.ExpirationGroup) *interfaces.OptionsChain {
	return &interfaces.OptionsChain{
		Underlying:     "AAPL",
		EvaluationTime: evalTime,
		SpotPrice:      decimal.RequireFromString(spot),
		Expirations:    groups,
	}
}

func mustPolicy(s interfaces.Strategy) Policy {
	p, err := PolicyFor(s)
	if err != nil {
		panic(err)
	}
	return p
}
