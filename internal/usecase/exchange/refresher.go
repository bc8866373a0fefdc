package exchange

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateSource fetches a single exchange rate from an external provider
type RateSource interface {
	// Rate returns how many 'to' units one 'from' unit buys
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Refresher periodically rebuilds the converter's rates table from a rate
// source. Each refresh assembles a complete new table before publishing it,
// honoring the converter's atomic-swap contract.
type Refresher struct {
	source     RateSource
	converter  *Converter
	currencies []string
	cron       *cron.Cron
	log        zerolog.Logger
}

// NewRefresher creates a refresher covering all ordered pairs of the given
// currency set
func NewRefresher(source RateSource, converter *Converter, currencies []string, log zerolog.Logger) *Refresher {
	return &Refresher{
		source:     source,
		converter:  converter,
		currencies: currencies,
		log:        log.With().Str("service", "rates_refresher").Logger(),
	}
}

// Refresh fetches every pairwise rate and swaps the assembled table into the
// converter. Partial fetch failures are logged and skipped; if no rate at all
// could be fetched the previous table is kept and an error is returned.
func (r *Refresher) Refresh(ctx context.Context) error {
	rates := make(map[string]decimal.Decimal)
	failures := 0

	for _, from := range r.currencies {
		for _, to := range r.currencies {
			if from == to {
				continue
			}

			rate, err := r.source.Rate(ctx, from, to)
			if err != nil {
				r.log.Warn().
					Err(err).
					Str("from", from).
					Str("to", to).
					Msg("Failed to fetch exchange rate")
				failures++
				continue
			}

			rates[from+to] = rate
		}
	}

	if len(rates) == 0 {
		return fmt.Errorf("all %d rate fetches failed", failures)
	}

	r.converter.SetTable(NewRatesTable(rates))

	r.log.Info().
		Int("rates", len(rates)).
		Int("failures", failures).
		Msg("Exchange rates refreshed")

	return nil
}

// Start schedules periodic refreshes using a cron expression and runs one
// refresh immediately
func (r *Refresher) Start(ctx context.Context, schedule string) error {
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn().Err(err).Msg("Initial rates refresh failed")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := r.Refresh(context.Background()); err != nil {
			r.log.Error().Err(err).Msg("Scheduled rates refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	c.Start()
	r.cron = c
	return nil
}

// Stop halts the refresh schedule
func (r *Refresher) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}
