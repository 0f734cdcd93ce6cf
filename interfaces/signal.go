package interfaces

import (
	"fmt"
	"strings"
)

// Direction is the trade direction carried by a signal
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// ParseDirection accepts "buy"/"sell" in any case
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Side maps a direction to the option side to buy: Buy -> Call, Sell -> Put
func (d Direction) Side() OptionSide {
	if d == Sell {
		return Put
	}
	return Call
}

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == Buy || d == Sell
}

// Strategy is the holding horizon a signal targets
type Strategy string

const (
	Scalp Strategy = "scalp"
	Swing Strategy = "swing"
	LEAP  Strategy = "leap"
)

// ParseStrategy accepts "scalp", "swing" or "leap" in any case
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalp":
		return Scalp, nil
	case "swing":
		return Swing, nil
	case "leap", "leaps":
		return LEAP, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// Valid reports whether s is a known strategy
func (s Strategy) Valid() bool {
	return s == Scalp || s == Swing || s == LEAP
}

// Signal is a trading signal to be turned into a single option contract
type Signal struct {
	Underlying string    `json:"underlying"`
	Direction  Direction `json:"direction"`
	Strategy   Strategy  `json:"strategy"`
}

// Validate checks that the signal names an underlying, a direction and a strategy
func (s Signal) Validate() error {
	if strings.TrimSpace(s.Underlying) == "" {
		return fmt.Errorf("underlying is required")
	}
	if !s.Direction.Valid() {
		return fmt.Errorf("unknown direction %q", s.Direction)
	}
	if !s.Strategy.Valid() {
		return fmt.Errorf("unknown strategy %q", s.Strategy)
	}
	return nil
}
