package selector

import (
	"crowned-trader/interfaces"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ranking selects the comparator used to order surviving contracts
type Ranking int

const (
	// RankByDelta orders by closeness of delta to TargetDelta
	RankByDelta Ranking = iota
	// RankByStrike orders by closeness of strike to spot, honoring the OTM bias
	RankByStrike
)

// DTERange is an inclusive days-to-expiration range
type DTERange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Contains reports whether dte falls inside the range
func (r DTERange) Contains(dte int) bool {
	return dte >= r.Low && dte <= r.High
}

// Policy is the immutable selection configuration of one strategy
type Policy struct {
	Strategy        interfaces.Strategy `json:"strategy"`
	DeltaMin        float64             `json:"delta_min"`
	DeltaMax        float64             `json:"delta_max"`
	MinOpenInterest int64               `json:"min_open_interest"`
	MaxSpread       decimal.Decimal     `json:"max_spread"`

	// Widening searches every expiration from the nearest outwards
	// and ignores DTEMin/DTEMax.
	Widening     bool       `json:"widening"`
	DTEMin       int        `json:"dte_min"`
	DTEMax       int        `json:"dte_max"`
	PreferredDTE []DTERange `json:"preferred_dte,omitempty"`
	TargetDTE    int        `json:"target_dte,omitempty"` // 0 ranks by tier midpoint

	ATMTolerance decimal.Decimal `json:"atm_tolerance"`          // fraction of spot, zero disables the ATM band
	TargetDelta  float64         `json:"target_delta,omitempty"` // RankByDelta only
	Ranking      Ranking         `json:"ranking"`
}

var policies = map[interfaces.Strategy]Policy{
	interfaces.Scalp: {
		Strategy:        interfaces.Scalp,
		DeltaMin:        0.35,
		DeltaMax:        0.60,
		MinOpenInterest: 500,
		MaxSpread:       decimal.RequireFromString("0.10"),
		Widening:        true,
		TargetDelta:     0.50,
		Ranking:         RankByDelta,
	},
	interfaces.Swing: {
		Strategy:        interfaces.Swing,
		DeltaMin:        0.40,
		DeltaMax:        0.60,
		MinOpenInterest: 1000,
		MaxSpread:       decimal.RequireFromString("0.05"),
		DTEMin:          6,
		DTEMax:          45,
		PreferredDTE:    []DTERange{{Low: 13, High: 25}, {Low: 6, High: 15}},
		ATMTolerance:    decimal.RequireFromString("0.02"),
		Ranking:         RankByStrike,
	},
	interfaces.LEAP: {
		Strategy:        interfaces.LEAP,
		DeltaMin:        0.50,
		DeltaMax:        0.80,
		MinOpenInterest: 500,
		MaxSpread:       decimal.RequireFromString("0.05"),
		DTEMin:          330,
		DTEMax:          395,
		TargetDTE:       365,
		ATMTolerance:    decimal.RequireFromString("0.02"),
		Ranking:         RankByStrike,
	},
}

// PolicyFor returns a copy of the policy for strategy
func PolicyFor(strategy interfaces.Strategy) (Policy, error) {
	p, ok := policies[strategy]
	if !ok {
		return Policy{}, fmt.Errorf("%w: unknown strategy %q", ErrInvalidSignal, strategy)
	}
	return p.clone(), nil
}

// Policies lists every policy in table order
func Policies() []Policy {
	return []Policy{
		policies[interfaces.Scalp].clone(),
		policies[interfaces.Swing].clone(),
		policies[interfaces.LEAP].clone(),
	}
}

func (p Policy) clone() Policy {
	if p.PreferredDTE != nil {
		p.PreferredDTE = append([]DTERange(nil), p.PreferredDTE...)
	}
	return p
}

// DeltaMidpoint is the center of the accepted delta band
func (p Policy) DeltaMidpoint() float64 {
	return (p.DeltaMin + p.DeltaMax) / 2
}

// Validate checks the policy invariants
func (p Policy) Validate() error {
	if p.DeltaMin >= p.DeltaMax {
		return fmt.Errorf("%s policy: delta_min %.2f must be below delta_max %.2f", p.Strategy, p.DeltaMin, p.DeltaMax)
	}
	if p.MinOpenInterest < 0 {
		return fmt.Errorf("%s policy: negative min_open_interest", p.Strategy)
	}
	if p.MaxSpread.IsNegative() {
		return fmt.Errorf("%s policy: negative max_spread", p.Strategy)
	}
	if p.Widening {
		return nil
	}
	if p.DTEMin < 0 || p.DTEMin > p.DTEMax {
		return fmt.Errorf("%s policy: invalid DTE window [%d, %d]", p.Strategy, p.DTEMin, p.DTEMax)
	}
	for _, r := range p.PreferredDTE {
		if r.Low > r.High || r.Low < p.DTEMin || r.High > p.DTEMax {
			return fmt.Errorf("%s policy: preferred range [%d, %d] outside window [%d, %d]",
				p.Strategy, r.Low, r.High, p.DTEMin, p.DTEMax)
		}
	}
	return nil
}
