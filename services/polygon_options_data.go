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

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PolygonOptionsDataService fetches options chains from the Polygon snapshot API
type PolygonOptionsDataService struct {
	apiKey   string
	baseURL  string
	maxPages int
	logger   *logrus.Logger
	client   *http.Client
}

// polygonMaxPages bounds next_url paging at 250 contracts per page
const polygonMaxPages = 40

// NewPolygonOptionsDataService creates a new Polygon options data service
func NewPolygonOptionsDataService(apiKey string) *PolygonOptionsDataService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &PolygonOptionsDataService{
		apiKey:   apiKey,
		baseURL:  "https://api.polygon.io",
		maxPages: polygonMaxPages,
		logger:   logger,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// PolygonChainSnapshotResponse is one page of /v3/snapshot/options/{underlying}
type PolygonChainSnapshotResponse struct {
	Status  string                  `json:"status"`
	Results []PolygonOptionSnapshot `json:"results"`
	NextURL string                  `json:"next_url"`
}

// PolygonOptionSnapshot is a single contract in a chain snapshot
type PolygonOptionSnapshot struct {
	Details struct {
		ContractType   string          `json:"contract_type"`
		ExpirationDate string          `json:"expiration_date"`
		StrikePrice    decimal.Decimal `json:"strike_price"`
		Ticker         string          `json:"ticker"`
	} `json:"details"`
	Greeks struct {
		Delta float64 `json:"delta"`
	} `json:"greeks"`
	LastQuote struct {
		Bid decimal.Decimal `json:"bid"`
		Ask decimal.Decimal `json:"ask"`
	} `json:"last_quote"`
	OpenInterest    int64 `json:"open_interest"`
	UnderlyingAsset struct {
		Price decimal.Decimal `json:"price"`
	} `json:"underlying_asset"`
}

// FetchChain implements interfaces.ChainProvider
func (s *PolygonOptionsDataService) FetchChain(ctx context.Context, underlying string, asOf time.Time) (*interfaces.OptionsChain, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("polygon api key is not configured")
	}
	underlying = strings.ToUpper(strings.TrimSpace(underlying))

	params := url.Values{}
	params.Set("expiration_date.gte", asOf.Format("2006-01-02"))
	params.Set("limit", "250")
	next := fmt.Sprintf("%s/v3/snapshot/options/%s?%s", s.baseURL, url.PathEscape(underlying), params.Encode())

	var (
		quotes []interfaces.OptionQuote
		spot   decimal.Decimal
		pages  int
	)
	seen := make(map[string]bool)
	for next != "" {
		if pages >= s.maxPages {
			return nil, fmt.Errorf("polygon snapshot for %s exceeded %d pages", underlying, s.maxPages)
		}
		if seen[next] {
			return nil, fmt.Errorf("polygon snapshot for %s repeated page %s", underlying, next)
		}
		seen[next] = true

		page, err := s.getPage(ctx, next)
		if err != nil {
			return nil, err
		}
		pages++

		for _, r := range page.Results {
			side, err := interfaces.ParseOptionSide(r.Details.ContractType)
			if err != nil {
				continue
			}
			exp, err := time.Parse("2006-01-02", r.Details.ExpirationDate)
			if err != nil {
				continue
			}
			if r.UnderlyingAsset.Price.IsPositive() {
				spot = r.UnderlyingAsset.Price
			}
			quotes = append(quotes, interfaces.OptionQuote{
				Symbol:       strings.TrimPrefix(r.Details.Ticker, "O:"),
				Strike:       r.Details.StrikePrice,
				Side:         side,
				Delta:        r.Greeks.Delta,
				Bid:          r.LastQuote.Bid,
				Ask:          r.LastQuote.Ask,
				OpenInterest: r.OpenInterest,
				Expiration:   exp,
			})
		}
		next = page.NextURL
	}

	s.logger.WithFields(logrus.Fields{
		"underlying": underlying,
		"quotes":     len(quotes),
		"pages":      pages,
	}).Debug("Fetched option chain")

	return BuildChain(underlying, spot, asOf, quotes)
}

func (s *PolygonOptionsDataService) getPage(ctx context.Context, rawURL string) (*PolygonChainSnapshotResponse, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("bad polygon url: %w", err)
	}
	q := u.Query()
	q.Set("apiKey", s.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch option snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var page PolygonChainSnapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode option snapshot: %w", err)
	}
	if page.Status != "" && page.Status != "OK" {
		return nil, fmt.Errorf("polygon snapshot status %s", page.Status)
	}
	return &page, nil
}
