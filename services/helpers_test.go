package services

import (
	"context"
	"crowned-trader/interfaces"
	"crowned-trader/models"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Monday 2025-01-06, US market hours
var asOf = time.Date(2025, time.January, 6, 15, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func optionQuote(symbol string, delta float64, bid, ask string, oi int64) interfaces.OptionQuote {
	occ, err := ParseOCCSymbol(symbol)
	if err != nil {
		panic(err)
	}
	return interfaces.OptionQuote{
		Symbol:       symbol,
		Strike:       occ.Strike,
		Side:         occ.Side,
		Delta:        delta,
		Bid:          dec(bid),
		Ask:          dec(ask),
		OpenInterest: oi,
		Expiration:   occ.Expiration,
	}
}

type fakeProvider struct {
	mu     sync.Mutex
	chains map[string]*interfaces.OptionsChain
	err    error
	calls  int
	block  bool // wait for ctx instead of answering
}

func (p *fakeProvider) FetchChain(ctx context.Context, underlying string, asOf time.Time) (*interfaces.OptionsChain, error) {
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	chain, ok := p.chains[underlying]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return chain, nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved []*models.DBSelection
	err   error
}

func (s *fakeStore) SaveSelection(selection *models.DBSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, selection)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*SelectionResult
}

func (n *fakeNotifier) NotifySelection(result *SelectionResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, result)
	return nil
}
