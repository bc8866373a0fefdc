package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-engine/internal/domain"
)

// CurrencyClusterRiskCurrentInvestment flags portfolios whose single biggest
// currency holds more than a threshold share of the total investment
type CurrencyClusterRiskCurrentInvestment struct {
	positions []domain.CurrentPosition
	converter domain.CurrencyConverter
	threshold decimal.Decimal
}

// NewCurrencyClusterRiskCurrentInvestment creates the rule with the given
// threshold expressed as a fraction of total investment
func NewCurrencyClusterRiskCurrentInvestment(
	positions []domain.CurrentPosition,
	converter domain.CurrencyConverter,
	threshold decimal.Decimal,
) *CurrencyClusterRiskCurrentInvestment {
	return &CurrencyClusterRiskCurrentInvestment{
		positions: positions,
		converter: converter,
		threshold: threshold,
	}
}

func (r *CurrencyClusterRiskCurrentInvestment) Name() string {
	return "Investment: Clusters (Currency)"
}

func (r *CurrencyClusterRiskCurrentInvestment) Settings(user UserSettings) Settings {
	return Settings{
		BaseCurrency: user.BaseCurrency,
		Threshold:    r.threshold,
	}
}

func (r *CurrencyClusterRiskCurrentInvestment) Evaluate(settings Settings) EvaluationResult {
	buckets := GroupPositionsBy(r.positions, func(p domain.CurrentPosition) string {
		return p.Currency
	}, r.converter, settings.BaseCurrency)

	currency, maxBucket, total := maxInvestmentBucket(buckets)
	if !total.IsPositive() {
		return EvaluationResult{
			Value:      true,
			Evaluation: "No current investment",
		}
	}

	share := maxBucket.Investment.Div(total)
	thresholdPct := settings.Threshold.Mul(decimal.NewFromInt(100))

	if share.GreaterThan(settings.Threshold) {
		return EvaluationResult{
			Value: false,
			Evaluation: fmt.Sprintf(
				"Over %s%% of your current investment is in %s (%s%%)",
				thresholdPct.String(), currency, share.Mul(decimal.NewFromInt(100)).StringFixed(2)),
		}
	}

	return EvaluationResult{
		Value: true,
		Evaluation: fmt.Sprintf(
			"The major part of your current investment is in %s (%s%%) and is below %s%%",
			currency, share.Mul(decimal.NewFromInt(100)).StringFixed(2), thresholdPct.String()),
	}
}

// CurrencyClusterRiskBaseCurrencyCurrentInvestment checks that the currency
// carrying the biggest share of the investment is the user's base currency
type CurrencyClusterRiskBaseCurrencyCurrentInvestment struct {
	positions []domain.CurrentPosition
	converter domain.CurrencyConverter
}

// NewCurrencyClusterRiskBaseCurrencyCurrentInvestment creates the rule
func NewCurrencyClusterRiskBaseCurrencyCurrentInvestment(
	positions []domain.CurrentPosition,
	converter domain.CurrencyConverter,
) *CurrencyClusterRiskBaseCurrencyCurrentInvestment {
	return &CurrencyClusterRiskBaseCurrencyCurrentInvestment{
		positions: positions,
		converter: converter,
	}
}

func (r *CurrencyClusterRiskBaseCurrencyCurrentInvestment) Name() string {
	return "Investment: Base Currency"
}

func (r *CurrencyClusterRiskBaseCurrencyCurrentInvestment) Settings(user UserSettings) Settings {
	return Settings{BaseCurrency: user.BaseCurrency}
}

func (r *CurrencyClusterRiskBaseCurrencyCurrentInvestment) Evaluate(settings Settings) EvaluationResult {
	buckets := GroupPositionsBy(r.positions, func(p domain.CurrentPosition) string {
		return p.Currency
	}, r.converter, settings.BaseCurrency)

	currency, _, total := maxInvestmentBucket(buckets)
	if !total.IsPositive() {
		return EvaluationResult{
			Value:      true,
			Evaluation: "No current investment",
		}
	}

	if currency != settings.BaseCurrency {
		return EvaluationResult{
			Value: false,
			Evaluation: fmt.Sprintf(
				"The major part of your current investment is in %s and not in your base currency %s",
				currency, settings.BaseCurrency),
		}
	}

	return EvaluationResult{
		Value: true,
		Evaluation: fmt.Sprintf(
			"The major part of your current investment is in your base currency %s",
			settings.BaseCurrency),
	}
}
