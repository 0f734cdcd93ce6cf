package selector

import (
	"crowned-trader/interfaces"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SelectedContract is the outcome of a successful selection
type SelectedContract struct {
	Underlying  string                 `json:"underlying"`
	Strategy    interfaces.Strategy    `json:"strategy"`
	Side        interfaces.OptionSide  `json:"side"`
	Quote       interfaces.OptionQuote `json:"quote"`
	Expiration  time.Time              `json:"expiration"`
	DTE         int                    `json:"dte"`
	SpotPrice   decimal.Decimal        `json:"spot_price"`
	BiasRelaxed bool                   `json:"bias_relaxed"`
	Attempts    int                    `json:"attempted_expirations"`
}

// Pipeline turns a signal and a chain snapshot into one contract.
// It holds only configuration and is safe for concurrent use.
type Pipeline struct {
	maxAge time.Duration
	now    func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithMaxChainAge rejects chains whose evaluation time is older than maxAge.
// A zero maxAge disables the check.
func WithMaxChainAge(maxAge time.Duration) Option {
	return func(p *Pipeline) {
		p.maxAge = maxAge
	}
}

// WithClock replaces time.Now for the staleness check
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates a selection pipeline
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Select runs the pipeline. On exhaustion the error is a *SelectionFailure
// wrapping ErrNotFound or ErrNoExpirationInWindow.
func (p *Pipeline) Select(signal interfaces.Signal, chain *interfaces.OptionsChain) (*SelectedContract, error) {
	if err := signal.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignal, err)
	}
	policy, err := PolicyFor(signal.Strategy)
	if err != nil {
		return nil, err
	}
	if err := ValidateChain(chain); err != nil {
		return nil, err
	}
	if !strings.EqualFold(chain.Underlying, signal.Underlying) {
		return nil, fmt.Errorf("%w: chain is for %s, signal is for %s", ErrInvalidChain, chain.Underlying, signal.Underlying)
	}
	if p.maxAge > 0 {
		if age := p.now().Sub(chain.EvaluationTime); age > p.maxAge {
			return nil, fmt.Errorf("%w: %s chain is %s old", ErrStaleChain, chain.Underlying, age.Round(time.Second))
		}
	}

	failure := &SelectionFailure{
		Reason:     ErrNotFound,
		Strategy:   signal.Strategy,
		Underlying: chain.Underlying,
		Eliminated: Tally{},
	}

	side := signal.Direction.Side()
	candidates, err := SelectExpirations(chain, policy)
	if err != nil {
		failure.Reason = err
		failure.Category = CategoryWindow
		failure.Eliminated[CategoryWindow] = countSide(chain, side)
		return nil, failure
	}

	for group := range candidates {
		failure.Attempted++
		cand, tally, err := SelectContract(group, side, chain.SpotPrice, policy)
		failure.Eliminated.add(tally)
		if err != nil {
			continue
		}
		return &SelectedContract{
			Underlying:  chain.Underlying,
			Strategy:    signal.Strategy,
			Side:        side,
			Quote:       cand.Quote,
			Expiration:  group.Expiration,
			DTE:         group.DTE,
			SpotPrice:   chain.SpotPrice,
			BiasRelaxed: cand.BiasRelaxed,
			Attempts:    failure.Attempted,
		}, nil
	}

	if failure.Attempted == 0 {
		failure.Category = CategoryWindow
	} else {
		failure.Category = failure.Eliminated.Dominant()
	}
	return nil, failure
}

// ValidateChain checks the structural invariants of a chain snapshot
func ValidateChain(chain *interfaces.OptionsChain) error {
	if chain == nil {
		return fmt.Errorf("%w: nil chain", ErrInvalidChain)
	}
	if !chain.SpotPrice.IsPositive() {
		return fmt.Errorf("%w: spot price %s must be positive", ErrInvalidChain, chain.SpotPrice)
	}
	seen := make(map[string]struct{}, len(chain.Expirations))
	for _, g := range chain.Expirations {
		if g == nil {
			return fmt.Errorf("%w: nil expiration group", ErrInvalidChain)
		}
		day := g.Expiration.Format("2006-01-02")
		if _, dup := seen[day]; dup {
			return fmt.Errorf("%w: duplicate expiration %s", ErrInvalidChain, day)
		}
		seen[day] = struct{}{}
		if g.DTE < 0 {
			return fmt.Errorf("%w: expiration %s has negative DTE %d", ErrInvalidChain, day, g.DTE)
		}
		for _, q := range g.Quotes {
			if q.Expiration.Format("2006-01-02") != day {
				return fmt.Errorf("%w: quote %s expires %s, group is %s",
					ErrInvalidChain, q.Symbol, q.Expiration.Format("2006-01-02"), day)
			}
		}
	}
	return nil
}

// countSide counts the quotes of side across every expiration
func countSide(chain *interfaces.OptionsChain, side interfaces.OptionSide) int {
	n := 0
	for _, g := range chain.Expirations {
		for _, q := range g.Quotes {
			if q.Side == side {
				n++
			}
		}
	}
	return n
}
