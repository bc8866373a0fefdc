package valuation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/portfolio-engine/internal/domain"
)

// MockQuoteProvider is a mock implementation of QuoteProvider for testing
type MockQuoteProvider struct {
	mock.Mock
}

func (m *MockQuoteProvider) GetQuotes(ctx context.Context, assets []domain.UniqueAsset) (map[string]domain.Quote, error) {
	args := m.Called(ctx, assets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Quote), args.Error(1)
}

// MockHistoricalProvider is a mock implementation of HistoricalProvider for testing
type MockHistoricalProvider struct {
	mock.Mock
}

func (m *MockHistoricalProvider) GetHistorical(ctx context.Context, assets []domain.UniqueAsset, from, to time.Time) (map[string]map[time.Time]decimal.Decimal, error) {
	args := m.Called(ctx, assets, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]map[time.Time]decimal.Decimal), args.Error(1)
}

// identityConverter passes values through unchanged
type identityConverter struct{}

func (identityConverter) Convert(value decimal.Decimal, from, to string) decimal.Decimal {
	return value
}

// doublingConverter marks conversions by doubling, making them observable
type doublingConverter struct{}

func (doublingConverter) Convert(value decimal.Decimal, from, to string) decimal.Decimal {
	return value.Mul(decimal.NewFromInt(2))
}

var testNow = time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)

func newTestService(quotes domain.QuoteProvider, historical domain.HistoricalProvider, converter domain.CurrencyConverter) *Service {
	s := NewService(quotes, historical, converter, zerolog.New(nil).Level(zerolog.Disabled))
	s.now = func() time.Time { return testNow }
	return s
}

func asset(symbol string) domain.UniqueAsset {
	return domain.UniqueAsset{Symbol: symbol, DataSource: "YAHOO"}
}

func TestGetValues_NowOnlyFetchesQuotes(t *testing.T) {
	quotes := new(MockQuoteProvider)
	historical := new(MockHistoricalProvider)
	service := newTestService(quotes, historical, identityConverter{})

	assets := []domain.UniqueAsset{asset("AAPL")}
	quotes.On("GetQuotes", mock.Anything, assets).Return(map[string]domain.Quote{
		"AAPL": {MarketPrice: decimal.NewFromFloat(148.9), Currency: "USD"},
	}, nil)

	values, err := service.GetValues(context.Background(), GetValueParams{
		Assets: assets,
	})

	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "AAPL", values[0].Symbol)
	assert.True(t, values[0].Date.IsZero())
	assert.True(t, values[0].MarketPrice.Equal(decimal.NewFromFloat(148.9)))

	quotes.AssertExpectations(t)
	historical.AssertNotCalled(t, "GetHistorical")
}

func TestGetValues_PastRangeFetchesHistoricalOnly(t *testing.T) {
	quotes := new(MockQuoteProvider)
	historical := new(MockHistoricalProvider)
	service := newTestService(quotes, historical, identityConverter{})

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	assets := []domain.UniqueAsset{asset("MSFT")}
	historical.On("GetHistorical", mock.Anything, assets, from, to).Return(
		map[string]map[time.Time]decimal.Decimal{
			"MSFT": {day: decimal.NewFromInt(410)},
		}, nil)

	values, err := service.GetValues(context.Background(), GetValueParams{
		Assets:    assets,
		DateQuery: DateQuery{From: &from, To: &to},
	})

	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, day, values[0].Date)
	assert.True(t, values[0].MarketPrice.Equal(decimal.NewFromInt(410)))

	historical.AssertExpectations(t)
	quotes.AssertNotCalled(t, "GetQuotes")
}

func TestGetValues_RangeIncludingNowRunsBothPaths(t *testing.T) {
	quotes := new(MockQuoteProvider)
	historical := new(MockHistoricalProvider)
	service := newTestService(quotes, historical, identityConverter{})

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	assets := []domain.UniqueAsset{asset("AAPL")}
	quotes.On("GetQuotes", mock.Anything, assets).Return(map[string]domain.Quote{
		"AAPL": {MarketPrice: decimal.NewFromFloat(190.5), Currency: "USD"},
	}, nil)
	historical.On("GetHistorical", mock.Anything, assets, from, mock.Anything).Return(
		map[string]map[time.Time]decimal.Decimal{
			"AAPL": {day: decimal.NewFromInt(185)},
		}, nil)

	values, err := service.GetValues(context.Background(), GetValueParams{
		Assets:    assets,
		DateQuery: DateQuery{From: &from},
	})

	require.NoError(t, err)
	// Both results are concatenated without de-duplication.
	require.Len(t, values, 2)

	quotes.AssertExpectations(t)
	historical.AssertExpectations(t)
}

func TestGetValues_QuoteFailureDegradesToMissingData(t *testing.T) {
	quotes := new(MockQuoteProvider)
	historical := new(MockHistoricalProvider)
	service := newTestService(quotes, historical, identityConverter{})

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	assets := []domain.UniqueAsset{asset("AAPL")}
	quotes.On("GetQuotes", mock.Anything, assets).Return(nil, errors.New("provider timeout"))
	historical.On("GetHistorical", mock.Anything, assets, from, mock.Anything).Return(
		map[string]map[time.Time]decimal.Decimal{
			"AAPL": {day: decimal.NewFromInt(185)},
		}, nil)

	values, err := service.GetValues(context.Background(), GetValueParams{
		Assets:    assets,
		DateQuery: DateQuery{From: &from},
	})

	// The quote failure is a data hole; the historical path still answers.
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, day, values[0].Date)
}

func TestGetValues_MissingSymbolIsAbsent(t *testing.T) {
	quotes := new(MockQuoteProvider)
	historical := new(MockHistoricalProvider)
	service := newTestService(quotes, historical, identityConverter{})

	assets := []domain.UniqueAsset{asset("AAPL"), asset("UNKNOWN")}
	quotes.On("GetQuotes", mock.Anything, assets).Return(map[string]domain.Quote{
		"AAPL": {MarketPrice: decimal.NewFromFloat(190.5), Currency: "USD"},
	}, nil)

	values, err := service.GetValues(context.Background(), GetValueParams{
		Assets: assets,
	})

	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "AAPL", values[0].Symbol)
}

func TestGetValues_ConvertsQuoteIntoRequestedCurrency(t *testing.T) {
	quotes := new(MockQuoteProvider)
	historical := new(MockHistoricalProvider)
	service := newTestService(quotes, historical, doublingConverter{})

	assets := []domain.UniqueAsset{asset("VOD")}
	quotes.On("GetQuotes", mock.Anything, assets).Return(map[string]domain.Quote{
		"VOD": {MarketPrice: decimal.NewFromInt(100), Currency: "GBP"},
	}, nil)

	values, err := service.GetValues(context.Background(), GetValueParams{
		Assets:     assets,
		Currencies: map[string]string{"VOD": "EUR"},
	})

	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.True(t, values[0].MarketPrice.Equal(decimal.NewFromInt(200)))
}

func TestGetValues_NoAssetsShortCircuits(t *testing.T) {
	quotes := new(MockQuoteProvider)
	historical := new(MockHistoricalProvider)
	service := newTestService(quotes, historical, identityConverter{})

	values, err := service.GetValues(context.Background(), GetValueParams{})

	require.NoError(t, err)
	assert.Nil(t, values)
	quotes.AssertNotCalled(t, "GetQuotes")
	historical.AssertNotCalled(t, "GetHistorical")
}
