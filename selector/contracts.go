package selector

import (
	"cmp"
	"crowned-trader/interfaces"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Candidate is a contract chosen from one expiration
type Candidate struct {
	Quote interfaces.OptionQuote
	// BiasRelaxed is set when no strike sat inside the ATM band and the
	// band was dropped for this expiration.
	BiasRelaxed bool
}

type quoteFilter struct {
	category Category
	keep     func(q interfaces.OptionQuote, p Policy) bool
}

// hardFilters run in order; a quote is tallied against the first filter it fails.
var hardFilters = []quoteFilter{
	{category: CategorySpread, keep: withinSpread},
	{category: CategoryLiquidity, keep: liquid},
	{category: CategoryDelta, keep: inDeltaBand},
}

func withinSpread(q interfaces.OptionQuote, p Policy) bool {
	return q.ValidSpread() && q.Spread().LessThanOrEqual(p.MaxSpread)
}

func liquid(q interfaces.OptionQuote, p Policy) bool {
	return q.OpenInterest >= p.MinOpenInterest
}

func inDeltaBand(q interfaces.OptionQuote, p Policy) bool {
	d := math.Abs(q.Delta)
	return d >= p.DeltaMin && d <= p.DeltaMax
}

// SelectContract picks the best quote of side in group under policy. The
// returned tally counts the quotes each hard constraint eliminated, and is
// filled in whether or not a contract was found.
func SelectContract(group *interfaces.ExpirationGroup, side interfaces.OptionSide, spot decimal.Decimal, policy Policy) (Candidate, Tally, error) {
	tally := Tally{}

	var survivors []interfaces.OptionQuote
quotes:
	for _, q := range group.Quotes {
		if q.Side != side {
			continue
		}
		for _, f := range hardFilters {
			if !f.keep(q, policy) {
				tally[f.category]++
				continue quotes
			}
		}
		survivors = append(survivors, q)
	}
	if len(survivors) == 0 {
		return Candidate{}, tally, ErrNotFound
	}

	relaxed := false
	if policy.Ranking == RankByStrike && policy.ATMTolerance.IsPositive() {
		banded := slices.DeleteFunc(slices.Clone(survivors), func(q interfaces.OptionQuote) bool {
			return !inATMBand(q, side, spot, policy.ATMTolerance)
		})
		if len(banded) > 0 {
			survivors = banded
		} else {
			relaxed = true
		}
	}

	ranked := make([]rankedQuote, len(survivors))
	for i, q := range survivors {
		ranked[i] = newRankedQuote(q, side, spot, policy)
	}
	if policy.Ranking == RankByStrike {
		slices.SortFunc(ranked, compareByStrike)
	} else {
		slices.SortFunc(ranked, compareByDelta)
	}
	return Candidate{Quote: ranked[0].quote, BiasRelaxed: relaxed}, tally, nil
}

// onBiasSide reports whether the strike is on the OTM side of spot for side.
func onBiasSide(strike decimal.Decimal, side interfaces.OptionSide, spot decimal.Decimal) bool {
	if side == interfaces.Put {
		return strike.LessThanOrEqual(spot)
	}
	return strike.GreaterThanOrEqual(spot)
}

func inATMBand(q interfaces.OptionQuote, side interfaces.OptionSide, spot, tolerance decimal.Decimal) bool {
	if !onBiasSide(q.Strike, side, spot) {
		return false
	}
	return q.Strike.Sub(spot).Abs().LessThanOrEqual(spot.Mul(tolerance))
}

type rankedQuote struct {
	quote      interfaces.OptionQuote
	spread     decimal.Decimal
	deltaDist  decimal.Decimal
	strikeDist decimal.Decimal
	biasSide   bool
}

// newRankedQuote precomputes sort keys. Delta distances are taken in decimal
// so that 0.45 and 0.55 compare as exactly equidistant from 0.50.
func newRankedQuote(q interfaces.OptionQuote, side interfaces.OptionSide, spot decimal.Decimal, p Policy) rankedQuote {
	target := p.TargetDelta
	if p.Ranking == RankByStrike {
		target = p.DeltaMidpoint()
	}
	return rankedQuote{
		quote:      q,
		spread:     q.Spread(),
		deltaDist:  decimal.NewFromFloat(math.Abs(q.Delta)).Sub(decimal.NewFromFloat(target)).Abs(),
		strikeDist: q.Strike.Sub(spot).Abs(),
		biasSide:   onBiasSide(q.Strike, side, spot),
	}
}

// compareByDelta: delta distance, open interest desc, spread, strike, symbol.
func compareByDelta(a, b rankedQuote) int {
	if c := a.deltaDist.Cmp(b.deltaDist); c != 0 {
		return c
	}
	return compareTail(a, b)
}

// compareByStrike: bias side first, strike distance, delta distance, then the common tail.
func compareByStrike(a, b rankedQuote) int {
	if a.biasSide != b.biasSide {
		if a.biasSide {
			return -1
		}
		return 1
	}
	if c := a.strikeDist.Cmp(b.strikeDist); c != 0 {
		return c
	}
	if c := a.deltaDist.Cmp(b.deltaDist); c != 0 {
		return c
	}
	return compareTail(a, b)
}

func compareTail(a, b rankedQuote) int {
	if c := cmp.Compare(b.quote.OpenInterest, a.quote.OpenInterest); c != 0 {
		return c
	}
	if c := a.spread.Cmp(b.spread); c != 0 {
		return c
	}
	if c := a.quote.Strike.Cmp(b.quote.Strike); c != 0 {
		return c
	}
	return strings.Compare(a.quote.Symbol, b.quote.Symbol)
}
