package rules

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-engine/internal/domain"
)

// UserSettings carries the user-level preferences rules derive their own
// settings from
type UserSettings struct {
	BaseCurrency string
}

// Settings parameterizes a single rule evaluation
type Settings struct {
	BaseCurrency string
	Threshold    decimal.Decimal
}

// EvaluationResult is the outcome of one rule evaluation: Value is false when
// the policy is violated, and Evaluation carries the human-readable verdict.
type EvaluationResult struct {
	Value      bool
	Evaluation string
}

// Rule is the capability every concentration-risk rule implements. Rules are
// pure, side-effect-free functions of (positions, settings): independently
// evaluable, in any order, in parallel.
type Rule interface {
	// Name identifies the rule
	Name() string

	// Settings derives the rule's settings from user-level preferences
	Settings(user UserSettings) Settings

	// Evaluate scores the rule against its positions
	Evaluate(settings Settings) EvaluationResult
}

// Bucket accumulates the cost basis and converted market value of the
// positions sharing one attribute value
type Bucket struct {
	Investment decimal.Decimal
	Value      decimal.Decimal
}

// GroupPositionsBy buckets positions by an attribute and sums, per bucket,
// the investment (cost basis) and the market value converted into the base
// currency
func GroupPositionsBy(
	positions []domain.CurrentPosition,
	attribute func(domain.CurrentPosition) string,
	converter domain.CurrencyConverter,
	baseCurrency string,
) map[string]Bucket {
	buckets := make(map[string]Bucket)

	for _, position := range positions {
		key := attribute(position)
		bucket := buckets[key]

		bucket.Investment = bucket.Investment.Add(
			converter.Convert(position.Investment, position.Currency, baseCurrency))
		bucket.Value = bucket.Value.Add(
			converter.Convert(position.Quantity.Mul(position.MarketPrice), position.Currency, baseCurrency))

		buckets[key] = bucket
	}

	return buckets
}

// maxInvestmentBucket returns the key and bucket with the highest investment,
// along with the summed investment across all buckets
func maxInvestmentBucket(buckets map[string]Bucket) (string, Bucket, decimal.Decimal) {
	var (
		maxKey    string
		maxBucket Bucket
		total     = decimal.Zero
		found     bool
	)

	for key, bucket := range buckets {
		total = total.Add(bucket.Investment)
		if !found || bucket.Investment.GreaterThan(maxBucket.Investment) {
			maxKey = key
			maxBucket = bucket
			found = true
		}
	}

	return maxKey, maxBucket, total
}

// Evaluate runs every rule with its derived settings. Rules run concurrently;
// results preserve the input order.
func Evaluate(rules []Rule, user UserSettings) []EvaluationResult {
	results := make([]EvaluationResult, len(rules))

	var wg sync.WaitGroup
	for i, rule := range rules {
		wg.Add(1)
		go func(i int, rule Rule) {
			defer wg.Done()
			results[i] = rule.Evaluate(rule.Settings(user))
		}(i, rule)
	}
	wg.Wait()

	return results
}
