package depth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func identityConvert(priceLots, sizeLots uint64) (float64, float64) {
	return float64(priceLots), float64(sizeLots)
}

func TestAggregateSumsAdjacentEqualPrices(t *testing.T) {
	orders := []LotOrder{
		{PriceLots: 100, SizeLots: 5},
		{PriceLots: 100, SizeLots: 3},
		{PriceLots: 101, SizeLots: 2},
	}
	levels := Aggregate(orders, 20, identityConvert)

	require := assert.New(t)
	require.Len(levels, 2)
	require.Equal(uint64(100), levels[0].PriceLots)
	require.Equal(uint64(8), levels[0].SizeLots)
	require.Equal(uint64(101), levels[1].PriceLots)
	require.Equal(uint64(2), levels[1].SizeLots)
}

func TestAggregateStopsAtDepth(t *testing.T) {
	orders := []LotOrder{
		{PriceLots: 1, SizeLots: 1},
		{PriceLots: 2, SizeLots: 1},
		{PriceLots: 3, SizeLots: 1},
	}
	levels := Aggregate(orders, 2, identityConvert)
	assert.Len(t, levels, 2)
}

func TestAggregateEmptyInput(t *testing.T) {
	levels := Aggregate(nil, 20, identityConvert)
	assert.Empty(t, levels)
}

func TestAggregateAppliesConvert(t *testing.T) {
	orders := []LotOrder{{PriceLots: 10, SizeLots: 4}}
	levels := Aggregate(orders, 20, func(priceLots, sizeLots uint64) (float64, float64) {
		return float64(priceLots) / 2, float64(sizeLots) * 2
	})
	require := assert.New(t)
	require.Len(levels, 1)
	require.InDelta(5.0, levels[0].Price, 1e-9)
	require.InDelta(8.0, levels[0].Amount, 1e-9)
}

func TestAggregateDoesNotMergeNonAdjacentEqualPrices(t *testing.T) {
	// Caller contract: orders must already be sorted. Out-of-order equal
	// prices are NOT merged across a gap, matching the reference
	// implementation's single-pass adjacency check.
	orders := []LotOrder{
		{PriceLots: 100, SizeLots: 1},
		{PriceLots: 99, SizeLots: 1},
		{PriceLots: 100, SizeLots: 1},
	}
	levels := Aggregate(orders, 20, identityConvert)
	assert.Len(t, levels, 3)
}
