package exchange

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConverter(rates map[string]decimal.Decimal) *Converter {
	return NewConverter(NewRatesTable(rates), zerolog.New(nil).Level(zerolog.Disabled))
}

func TestConvert_ZeroNeedsNoRate(t *testing.T) {
	// An empty table would force the fallback path for any non-zero value.
	converter := testConverter(nil)

	result := converter.Convert(decimal.Zero, "EUR", "JPY")

	assert.True(t, result.IsZero())
}

func TestConvert_IdentityPair(t *testing.T) {
	converter := testConverter(nil)

	value := decimal.NewFromFloat(123.45)
	result := converter.Convert(value, "USD", "USD")

	assert.True(t, result.Equal(value))
}

func TestConvert_DirectRate(t *testing.T) {
	converter := testConverter(map[string]decimal.Decimal{
		"EURUSD": decimal.NewFromFloat(1.1),
	})

	result := converter.Convert(decimal.NewFromInt(100), "EUR", "USD")

	assert.True(t, result.Equal(decimal.NewFromInt(110)))
}

func TestConvert_BridgesViaUSD(t *testing.T) {
	// No direct EURCHF rate: conversion goes EUR -> USD -> CHF.
	converter := testConverter(map[string]decimal.Decimal{
		"EURUSD": decimal.NewFromFloat(1.1),
		"USDCHF": decimal.NewFromFloat(0.9),
	})

	result := converter.Convert(decimal.NewFromInt(100), "EUR", "CHF")

	assert.True(t, result.Equal(decimal.NewFromFloat(99)))
}

func TestConvert_FallsBackToUnconvertedValue(t *testing.T) {
	converter := testConverter(map[string]decimal.Decimal{
		"EURUSD": decimal.NewFromFloat(1.1),
	})

	value := decimal.NewFromFloat(42.5)
	result := converter.Convert(value, "GBP", "JPY")

	// No direct rate and no USD bridge: the value passes through unchanged.
	assert.True(t, result.Equal(value))
}

func TestConvert_RoundTripWithinTolerance(t *testing.T) {
	converter := testConverter(map[string]decimal.Decimal{
		"EURUSD": decimal.NewFromFloat(1.0837),
		"USDEUR": decimal.NewFromInt(1).Div(decimal.NewFromFloat(1.0837)),
	})

	value := decimal.NewFromFloat(250.75)
	roundTrip := converter.Convert(converter.Convert(value, "EUR", "USD"), "USD", "EUR")

	tolerance := decimal.NewFromFloat(0.0000001)
	assert.True(t, roundTrip.Sub(value).Abs().LessThan(tolerance),
		"round trip drifted: %s", roundTrip.String())
}

func TestSetTable_SwapsAtomically(t *testing.T) {
	converter := testConverter(map[string]decimal.Decimal{
		"EURUSD": decimal.NewFromFloat(1.1),
	})

	converter.SetTable(NewRatesTable(map[string]decimal.Decimal{
		"EURUSD": decimal.NewFromFloat(1.2),
	}))

	result := converter.Convert(decimal.NewFromInt(100), "EUR", "USD")
	assert.True(t, result.Equal(decimal.NewFromInt(120)))
}

func TestSetTable_IgnoresNil(t *testing.T) {
	converter := testConverter(map[string]decimal.Decimal{
		"EURUSD": decimal.NewFromFloat(1.1),
	})

	converter.SetTable(nil)

	result := converter.Convert(decimal.NewFromInt(100), "EUR", "USD")
	require.True(t, result.Equal(decimal.NewFromInt(110)))
}

func TestNewRatesTable_CopiesInput(t *testing.T) {
	rates := map[string]decimal.Decimal{
		"EURUSD": decimal.NewFromFloat(1.1),
	}
	table := NewRatesTable(rates)

	// Mutating the source map must not leak into the published table.
	rates["EURUSD"] = decimal.NewFromFloat(9.9)

	rate, ok := table.Rate("EUR", "USD")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromFloat(1.1)))
}
