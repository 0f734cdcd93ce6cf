package services

import (
	"context"
	"crowned-trader/interfaces"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// optionSnapshotClient is the part of the Alpaca market data client we use
type optionSnapshotClient interface {
	GetOptionChain(underlyingSymbol string, req marketdata.GetOptionChainRequest) (map[string]marketdata.OptionSnapshot, error)
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// AlpacaOptionsDataService fetches options chains from Alpaca.
// Quotes and greeks come from the market data snapshot endpoint; open
// interest is only published on the trading API contracts endpoint.
type AlpacaOptionsDataService struct {
	apiKey     string
	secretKey  string
	tradingURL string
	data       optionSnapshotClient
	logger     *logrus.Logger
	client     *http.Client
}

// NewAlpacaOptionsDataService creates a new Alpaca options data service.
// timeout bounds every HTTP request, including those made by the market data SDK.
func NewAlpacaOptionsDataService(apiKey, secretKey, tradingURL string, timeout time.Duration) *AlpacaOptionsDataService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if tradingURL == "" {
		tradingURL = "https://paper-api.alpaca.markets"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	return &AlpacaOptionsDataService{
		apiKey:     apiKey,
		secretKey:  secretKey,
		tradingURL: strings.TrimRight(tradingURL, "/"),
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:     apiKey,
			APISecret:  secretKey,
			HTTPClient: client,
		}),
		logger: logger,
		client: client,
	}
}

// AlpacaOptionChainResponse represents the option contracts response
type AlpacaOptionChainResponse struct {
	OptionContracts []AlpacaOptionChainContract `json:"option_contracts"`
	NextPageToken   *string                     `json:"next_page_token"`
}

// AlpacaOptionChainContract represents contract metadata
type AlpacaOptionChainContract struct {
	Symbol           string              `json:"symbol"`
	UnderlyingSymbol string              `json:"underlying_symbol"`
	ExpirationDate   string              `json:"expiration_date"`
	StrikePrice      decimal.Decimal     `json:"strike_price"`
	Type             string              `json:"type"` // "call" or "put"
	OpenInterest     decimal.NullDecimal `json:"open_interest"`
}

// FetchChain implements interfaces.ChainProvider
func (s *AlpacaOptionsDataService) FetchChain(ctx context.Context, underlying string, asOf time.Time) (*interfaces.OptionsChain, error) {
	underlying = strings.ToUpper(strings.TrimSpace(underlying))

	s.logger.WithFields(logrus.Fields{
		"underlying": underlying,
		"as_of":      asOf.Format(time.RFC3339),
	}).Debug("Fetching option chain")

	trade, err := callWithContext(ctx, func() (*marketdata.Trade, error) {
		return s.data.GetLatestTrade(underlying, marketdata.GetLatestTradeRequest{})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest trade for %s: %w", underlying, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("no latest trade for %s", underlying)
	}

	snapshots, err := callWithContext(ctx, func() (map[string]marketdata.OptionSnapshot, error) {
		return s.data.GetOptionChain(underlying, marketdata.GetOptionChainRequest{})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch option snapshots for %s: %w", underlying, err)
	}

	openInterest, err := s.fetchOpenInterest(ctx, underlying, asOf)
	if err != nil {
		return nil, err
	}

	quotes := make([]interfaces.OptionQuote, 0, len(snapshots))
	skipped := 0
	for symbol, snap := range snapshots {
		occ, err := ParseOCCSymbol(symbol)
		if err != nil || snap.LatestQuote == nil {
			skipped++
			continue
		}
		q := interfaces.OptionQuote{
			Symbol:       symbol,
			Strike:       occ.Strike,
			Side:         occ.Side,
			Bid:          decimal.NewFromFloat(snap.LatestQuote.BidPrice),
			Ask:          decimal.NewFromFloat(snap.LatestQuote.AskPrice),
			OpenInterest: openInterest[symbol],
			Expiration:   occ.Expiration,
		}
		if snap.Greeks != nil {
			q.Delta = snap.Greeks.Delta
		}
		quotes = append(quotes, q)
	}

	chain, err := BuildChain(underlying, decimal.NewFromFloat(trade.Price), asOf, quotes)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"underlying":  underlying,
		"quotes":      len(quotes),
		"skipped":     skipped,
		"expirations": len(chain.Expirations),
	}).Debug("Fetched option chain")
	return chain, nil
}

// fetchOpenInterest pages through the contracts endpoint and returns open interest by symbol
func (s *AlpacaOptionsDataService) fetchOpenInterest(ctx context.Context, underlying string, asOf time.Time) (map[string]int64, error) {
	out := make(map[string]int64)
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("underlying_symbols", underlying)
		params.Set("expiration_date_gte", asOf.Format("2006-01-02"))
		params.Set("limit", "10000")
		if pageToken != "" {
			params.Set("page_token", pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, "GET", s.tradingURL+"/v2/options/contracts?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("APCA-API-KEY-ID", s.apiKey)
		req.Header.Set("APCA-API-SECRET-KEY", s.secretKey)

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch option contracts: %w", err)
		}

		var page AlpacaOptionChainResponse
		err = decodeAlpacaResponse(resp, &page)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		for _, c := range page.OptionContracts {
			if c.OpenInterest.Valid {
				out[c.Symbol] = c.OpenInterest.Decimal.IntPart()
			}
		}

		if page.NextPageToken == nil || *page.NextPageToken == "" {
			return out, nil
		}
		pageToken = *page.NextPageToken
	}
}

// callWithContext runs an SDK call that takes no context and returns early
// when ctx is done. The abandoned call is bounded by the HTTP client timeout.
func callWithContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func decodeAlpacaResponse(resp *http.Response, v any) error {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode option contracts: %w", err)
	}
	return nil
}
