package selector

import (
	"crowned-trader/interfaces"
	"errors"
	"fmt"
)

var (
	ErrInvalidSignal        = errors.New("invalid signal")
	ErrInvalidChain         = errors.New("invalid options chain")
	ErrProvider             = errors.New("chain provider error")
	ErrStaleChain           = errors.New("options chain is stale")
	ErrNoExpirationInWindow = errors.New("no expiration in DTE window")
	ErrNotFound             = errors.New("no contract satisfied constraints")
)

// Category is a class of constraint that can eliminate a candidate
type Category string

const (
	CategoryNone      Category = ""
	CategoryWindow    Category = "window"
	CategorySpread    Category = "spread"
	CategoryLiquidity Category = "liquidity"
	CategoryDelta     Category = "delta"
)

// categoryOrder breaks ties when two categories eliminated the same number of candidates
var categoryOrder = []Category{CategoryWindow, CategorySpread, CategoryLiquidity, CategoryDelta}

// Tally counts eliminated quotes of the signal's side per constraint category.
// Window is filled in only when no expiration falls inside the DTE window and
// then counts every quote of that side in the chain; the other categories count
// quotes in the expirations that were attempted.
type Tally map[Category]int

func (t Tally) add(other Tally) {
	for c, n := range other {
		t[c] += n
	}
}

// Dominant returns the category that eliminated the most candidates
func (t Tally) Dominant() Category {
	best, bestN := CategoryNone, 0
	for _, c := range categoryOrder {
		if n := t[c]; n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

// SelectionFailure is the terminal failure of a selection run
type SelectionFailure struct {
	Reason     error               `json:"-"`
	Strategy   interfaces.Strategy `json:"strategy"`
	Underlying string              `json:"underlying"`
	Category   Category            `json:"category"`
	Eliminated Tally               `json:"eliminated"`
	Attempted  int                 `json:"attempted_expirations"`
}

func (f *SelectionFailure) Error() string {
	msg := fmt.Sprintf("%s %s: %v", f.Underlying, f.Strategy, f.Reason)
	if f.Category != CategoryNone {
		msg += fmt.Sprintf(" (mostly eliminated by %s, %d expirations tried)", f.Category, f.Attempted)
	}
	return msg
}

func (f *SelectionFailure) Unwrap() error {
	return f.Reason
}
