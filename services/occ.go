package services

import (
	"crowned-trader/interfaces"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OCCSymbol is a parsed OCC option symbol
type OCCSymbol struct {
	Root       string
	Expiration time.Time
	Side       interfaces.OptionSide
	Strike     decimal.Decimal
}

// ParseOCCSymbol parses symbols like "AAPL250117C00150000" (Polygon's "O:" prefix is accepted)
func ParseOCCSymbol(symbol string) (OCCSymbol, error) {
	s := strings.TrimPrefix(strings.TrimSpace(symbol), "O:")
	if len(s) < 16 {
		return OCCSymbol{}, fmt.Errorf("option symbol %q too short", symbol)
	}

	tail := s[len(s)-15:]
	root := strings.TrimSpace(s[:len(s)-15])
	if root == "" {
		return OCCSymbol{}, fmt.Errorf("option symbol %q has no root", symbol)
	}

	exp, err := time.Parse("060102", tail[:6])
	if err != nil {
		return OCCSymbol{}, fmt.Errorf("option symbol %q: bad expiration: %w", symbol, err)
	}

	side, err := interfaces.ParseOptionSide(tail[6:7])
	if err != nil {
		return OCCSymbol{}, fmt.Errorf("option symbol %q: %w", symbol, err)
	}

	strike, err := decimal.NewFromString(tail[7:])
	if err != nil {
		return OCCSymbol{}, fmt.Errorf("option symbol %q: bad strike: %w", symbol, err)
	}

	return OCCSymbol{
		Root:       root,
		Expiration: exp,
		Side:       side,
		Strike:     strike.Shift(-3),
	}, nil
}

// String formats the symbol back into OCC form
func (o OCCSymbol) String() string {
	right := "C"
	if o.Side == interfaces.Put {
		right = "P"
	}
	return fmt.Sprintf("%s%s%s%08d", o.Root, o.Expiration.Format("060102"), right, o.Strike.Shift(3).IntPart())
}
