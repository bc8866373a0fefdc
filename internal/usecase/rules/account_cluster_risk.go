package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-engine/internal/domain"
)

// AccountClusterRiskCurrentInvestment flags portfolios whose single biggest
// account holds more than a threshold share of the total investment. The share
// may sit exactly at the threshold; only strictly exceeding it violates the
// rule.
type AccountClusterRiskCurrentInvestment struct {
	positions []domain.CurrentPosition
	converter domain.CurrencyConverter
	threshold decimal.Decimal
}

// NewAccountClusterRiskCurrentInvestment creates the rule with the given
// threshold expressed as a fraction of total investment
func NewAccountClusterRiskCurrentInvestment(
	positions []domain.CurrentPosition,
	converter domain.CurrencyConverter,
	threshold decimal.Decimal,
) *AccountClusterRiskCurrentInvestment {
	return &AccountClusterRiskCurrentInvestment{
		positions: positions,
		converter: converter,
		threshold: threshold,
	}
}

func (r *AccountClusterRiskCurrentInvestment) Name() string {
	return "Investment: Clusters (Account)"
}

func (r *AccountClusterRiskCurrentInvestment) Settings(user UserSettings) Settings {
	return Settings{
		BaseCurrency: user.BaseCurrency,
		Threshold:    r.threshold,
	}
}

func (r *AccountClusterRiskCurrentInvestment) Evaluate(settings Settings) EvaluationResult {
	buckets := GroupPositionsBy(r.positions, func(p domain.CurrentPosition) string {
		return p.AccountID.String()
	}, r.converter, settings.BaseCurrency)

	_, maxBucket, total := maxInvestmentBucket(buckets)
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
				"Over %s%% of your current investment is at one account (%s%%)",
				thresholdPct.String(), share.Mul(decimal.NewFromInt(100)).StringFixed(2)),
		}
	}

	return EvaluationResult{
		Value: true,
		Evaluation: fmt.Sprintf(
			"The major part of your current investment at one account (%s%%) is below %s%%",
			share.Mul(decimal.NewFromInt(100)).StringFixed(2), thresholdPct.String()),
	}
}

// AccountClusterRiskSingleAccount flags portfolios held entirely at a single
// account
type AccountClusterRiskSingleAccount struct {
	positions []domain.CurrentPosition
}

// NewAccountClusterRiskSingleAccount creates the rule
func NewAccountClusterRiskSingleAccount(positions []domain.CurrentPosition) *AccountClusterRiskSingleAccount {
	return &AccountClusterRiskSingleAccount{positions: positions}
}

func (r *AccountClusterRiskSingleAccount) Name() string {
	return "Investment: Single Account"
}

func (r *AccountClusterRiskSingleAccount) Settings(user UserSettings) Settings {
	return Settings{BaseCurrency: user.BaseCurrency}
}

func (r *AccountClusterRiskSingleAccount) Evaluate(Settings) EvaluationResult {
	accounts := make(map[string]struct{})
	for _, position := range r.positions {
		accounts[position.AccountID.String()] = struct{}{}
	}

	if len(accounts) == 1 {
		return EvaluationResult{
			Value:      false,
			Evaluation: "All your investment is at one account",
		}
	}

	return EvaluationResult{
		Value:      true,
		Evaluation: fmt.Sprintf("Your investment is spread across %d accounts", len(accounts)),
	}
}
