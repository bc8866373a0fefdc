package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-engine/internal/domain"
)

// ErrNoResult signals that Yahoo returned no chart data for a symbol
var ErrNoResult = errors.New("yahoo: no result")

type cachedQuote struct {
	quote   domain.Quote
	fetched time.Time
}

// YahooClient fetches quotes, historical closes and FX rates from the Yahoo
// Finance v8 chart API. Live quotes are cached with a short TTL.
type YahooClient struct {
	cli   *http.Client
	ttl   time.Duration
	mu    sync.RWMutex
	cache map[string]cachedQuote
}

// NewYahooClient creates a new Yahoo Finance client
func NewYahooClient(timeout time.Duration) *YahooClient {
	return &YahooClient{
		cli:   &http.Client{Timeout: timeout},
		ttl:   60 * time.Second,
		cache: make(map[string]cachedQuote),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

func (c *YahooClient) chart(ctx context.Context, symbol, interval, dateRange string) (*chartResponse, error) {
	url := fmt.Sprintf("https://query2.finance.yahoo.com/v8/finance/chart/%s?interval=%s&range=%s",
		symbol, interval, dateRange)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "portfolio-engine/1.0")

	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo http %d", resp.StatusCode)
	}

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw.Chart.Result) == 0 {
		return nil, ErrNoResult
	}

	return &raw, nil
}

// GetQuotes retrieves live quotes keyed by symbol. Symbols Yahoo cannot price
// are absent from the result; the fetch only fails as a whole on a malformed
// request.
func (c *YahooClient) GetQuotes(ctx context.Context, assets []domain.UniqueAsset) (map[string]domain.Quote, error) {
	quotes := make(map[string]domain.Quote, len(assets))

	for _, asset := range assets {
		symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if symbol == "" {
			continue
		}

		c.mu.RLock()
		cached, ok := c.cache[symbol]
		c.mu.RUnlock()
		if ok && time.Since(cached.fetched) < c.ttl {
			quotes[asset.Symbol] = cached.quote
			continue
		}

		raw, err := c.chart(ctx, symbol, "1m", "1d")
		if err != nil {
			continue
		}

		r := raw.Chart.Result[0]
		price := r.Meta.RegularMarketPrice

		// Fallback: last non-zero close if meta is missing.
		if price <= 0 && len(r.Timestamp) > 0 && len(r.Indicators.Quote) > 0 &&
			len(r.Indicators.Quote[0].Close) == len(r.Timestamp) {
			for i := len(r.Timestamp) - 1; i >= 0; i-- {
				if closePrice := r.Indicators.Quote[0].Close[i]; closePrice > 0 {
					price = closePrice
					break
				}
			}
		}

		if price <= 0 {
			continue
		}

		quote := domain.Quote{
			MarketPrice: decimal.NewFromFloat(price),
			Currency:    r.Meta.Currency,
		}

		c.mu.Lock()
		c.cache[symbol] = cachedQuote{quote: quote, fetched: time.Now()}
		c.mu.Unlock()

		quotes[asset.Symbol] = quote
	}

	return quotes, nil
}

// GetHistorical retrieves daily closes keyed by symbol, then by day at
// midnight UTC. Days without a close are absent.
func (c *YahooClient) GetHistorical(ctx context.Context, assets []domain.UniqueAsset, from, to time.Time) (map[string]map[time.Time]decimal.Decimal, error) {
	histories := make(map[string]map[time.Time]decimal.Decimal, len(assets))

	for _, asset := range assets {
		symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if symbol == "" {
			continue
		}

		url := fmt.Sprintf(
			"https://query2.finance.yahoo.com/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
			symbol, from.Unix(), to.AddDate(0, 0, 1).Unix())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "portfolio-engine/1.0")

		resp, err := c.cli.Do(req)
		if err != nil {
			continue
		}

		var raw chartResponse
		err = json.NewDecoder(resp.Body).Decode(&raw)
		resp.Body.Close()
		if err != nil || len(raw.Chart.Result) == 0 {
			continue
		}

		r := raw.Chart.Result[0]
		if len(r.Indicators.Quote) == 0 || len(r.Indicators.Quote[0].Close) != len(r.Timestamp) {
			continue
		}

		history := make(map[time.Time]decimal.Decimal, len(r.Timestamp))
		for i, ts := range r.Timestamp {
			if closePrice := r.Indicators.Quote[0].Close[i]; closePrice > 0 {
				day := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
				history[day] = decimal.NewFromFloat(closePrice)
			}
		}

		if len(history) > 0 {
			histories[asset.Symbol] = history
		}
	}

	return histories, nil
}

// Rate returns how many 'to' units one 'from' unit buys, via the FROMTO=X
// pair chart (e.g. EURUSD=X)
func (c *YahooClient) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return decimal.Zero, fmt.Errorf("invalid currency pair %q/%q", from, to)
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	raw, err := c.chart(ctx, from+to+"=X", "1h", "1d")
	if err != nil {
		return decimal.Zero, err
	}

	rate := raw.Chart.Result[0].Meta.RegularMarketPrice
	if rate <= 0 {
		return decimal.Zero, fmt.Errorf("invalid fx rate for %s%s", from, to)
	}

	return decimal.NewFromFloat(rate), nil
}
