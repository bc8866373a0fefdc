package valuation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/portfolio-engine/internal/domain"
)

// DateQuery describes which valuations are requested. A nil To (or a To at or
// beyond the current day) includes "now", triggering the live-quote path; any
// range of past days triggers the historical path. Both may apply at once.
type DateQuery struct {
	From *time.Time
	To   *time.Time
}

// GetValueParams are the inputs of a valuation request.
// Currencies maps each symbol to the currency its values should be expressed
// in; symbols without an entry stay in the provider's native currency.
type GetValueParams struct {
	Assets     []domain.UniqueAsset
	DateQuery  DateQuery
	Currencies map[string]string
}

// GetValueObject is one valuation: a symbol's market price on a given day.
// A zero Date marks a live ("now") quote.
type GetValueObject struct {
	Symbol      string
	Date        time.Time
	MarketPrice decimal.Decimal
}

// Service resolves market values for a set of symbols, fanning out to the
// live-quote and historical providers and converting results into the
// requested currencies. A provider failure degrades to missing data; it never
// fails the request or the other fetch path.
type Service struct {
	Quotes     domain.QuoteProvider
	Historical domain.HistoricalProvider
	Converter  domain.CurrencyConverter

	log zerolog.Logger
	now func() time.Time
}

// NewService creates a new valuation Service
func NewService(
	quotes domain.QuoteProvider,
	historical domain.HistoricalProvider,
	converter domain.CurrencyConverter,
	log zerolog.Logger,
) *Service {
	return &Service{
		Quotes:     quotes,
		Historical: historical,
		Converter:  converter,
		log:        log.With().Str("service", "valuation").Logger(),
		now:        time.Now,
	}
}

// GetValues fetches the requested valuations. When the date query includes
// "now" it fetches live quotes; for past dates it fetches historical daily
// closes. Both paths run concurrently and their results are concatenated
// without de-duplication: the caller selects which value answers which
// question. A missing symbol or date is simply absent from the result.
func (s *Service) GetValues(ctx context.Context, params GetValueParams) ([]GetValueObject, error) {
	if len(params.Assets) == 0 {
		return nil, nil
	}

	var (
		mu     sync.Mutex
		values []GetValueObject
	)

	today := startOfDay(s.now())
	includesNow := params.DateQuery.To == nil || !params.DateQuery.To.Before(today)

	var historicalTo time.Time
	wantsHistory := false
	if params.DateQuery.From != nil {
		from := startOfDay(*params.DateQuery.From)
		historicalTo = today
		if params.DateQuery.To != nil && params.DateQuery.To.Before(today) {
			historicalTo = startOfDay(*params.DateQuery.To)
		}
		wantsHistory = from.Before(today)
	}

	g, gctx := errgroup.WithContext(ctx)

	if includesNow {
		g.Go(func() error {
			quotes, err := s.Quotes.GetQuotes(gctx, params.Assets)
			if err != nil {
				// Missing-data hole, not a failure of the request.
				s.log.Warn().Err(err).Msg("Live quote fetch failed")
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, asset := range params.Assets {
				quote, ok := quotes[asset.Symbol]
				if !ok {
					continue
				}
				values = append(values, GetValueObject{
					Symbol:      asset.Symbol,
					MarketPrice: s.convert(quote.MarketPrice, quote.Currency, params.Currencies[asset.Symbol]),
				})
			}
			return nil
		})
	}

	if wantsHistory {
		from := startOfDay(*params.DateQuery.From)
		to := historicalTo
		g.Go(func() error {
			histories, err := s.Historical.GetHistorical(gctx, params.Assets, from, to)
			if err != nil {
				s.log.Warn().Err(err).Msg("Historical price fetch failed")
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, asset := range params.Assets {
				history, ok := histories[asset.Symbol]
				if !ok {
					continue
				}
				for day, price := range history {
					// Historical closes are already in the symbol's native
					// currency.
					values = append(values, GetValueObject{
						Symbol:      asset.Symbol,
						Date:        day,
						MarketPrice: price,
					})
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return values, nil
}

func (s *Service) convert(value decimal.Decimal, from, to string) decimal.Decimal {
	if to == "" || from == "" || from == to {
		return value
	}
	return s.Converter.Convert(value, from, to)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
