package opensea

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const auctionStart = 1600000000

func auctionOrder(side OrderSide) *Order {
	return &Order{
		Side:           side,
		SaleKind:       SaleKindDutchAuction,
		BasePrice:      decimal.NewFromInt(1000),
		Extra:          decimal.NewFromInt(100),
		ListingTime:    decimal.NewFromInt(auctionStart),
		ExpirationTime: decimal.NewFromInt(auctionStart + 3600),
	}
}

func at(offset int64) decimal.Decimal {
	return decimal.NewFromInt(auctionStart + offset)
}

func TestFixedPriceIgnoresTime(t *testing.T) {
	order := &Order{
		Side:           OrderSideSell,
		SaleKind:       SaleKindFixedPrice,
		BasePrice:      decimal.RequireFromString("123456789012345678901234567890"),
		Extra:          decimal.NewFromInt(999),
		ListingTime:    decimal.NewFromInt(auctionStart),
		ExpirationTime: decimal.NewFromInt(auctionStart + 10),
	}

	for _, offset := range []int64{-1000, 0, 5, 10, 1000000} {
		price, err := estimatePriceAt(order, at(offset), true)
		require.NoError(t, err)
		assert.True(t, order.BasePrice.Equal(price), "offset %d", offset)
	}

	price, err := EstimateCurrentPrice(order, DefaultSecondsToBacktrack, false)
	require.NoError(t, err)
	assert.True(t, order.BasePrice.Equal(price))
}

func TestDutchAuctionBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		side   OrderSide
		offset int64
		want   string
	}{
		{"sell at listing", OrderSideSell, 0, "1000"},
		{"sell at midpoint", OrderSideSell, 1800, "950"},
		{"sell at expiration", OrderSideSell, 3600, "900"},
		{"buy at listing", OrderSideBuy, 0, "1000"},
		{"buy at expiration", OrderSideBuy, 3600, "1100"},
		{"sell past expiration is not clamped", OrderSideSell, 7200, "800"},
		{"buy before listing is not clamped", OrderSideBuy, -3600, "900"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := estimatePriceAt(auctionOrder(tt.side), at(tt.offset), false)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(price), "got %s", price)
		})
	}
}

func TestDutchAuctionMonotonic(t *testing.T) {
	buy, sell := auctionOrder(OrderSideBuy), auctionOrder(OrderSideSell)

	var prevBuy, prevSell decimal.Decimal
	for offset := int64(0); offset <= 3600; offset += 7 {
		buyPrice, err := estimatePriceAt(buy, at(offset), false)
		require.NoError(t, err)
		sellPrice, err := estimatePriceAt(sell, at(offset), false)
		require.NoError(t, err)

		if offset > 0 {
			assert.True(t, buyPrice.GreaterThanOrEqual(prevBuy), "buy price fell at %d", offset)
			assert.True(t, sellPrice.LessThanOrEqual(prevSell), "sell price rose at %d", offset)
		}
		prevBuy, prevSell = buyPrice, sellPrice
	}
}

func TestRoundUp(t *testing.T) {
	order := auctionOrder(OrderSideSell)

	// 100 * 1 / 3600 leaves a fractional diff.
	raw, err := estimatePriceAt(order, at(1), false)
	require.NoError(t, err)
	assert.False(t, raw.IsInteger())

	rounded, err := estimatePriceAt(order, at(1), true)
	require.NoError(t, err)
	assert.True(t, rounded.IsInteger())
	assert.True(t, rounded.GreaterThanOrEqual(raw))
	assert.True(t, rounded.Sub(raw).LessThan(decimal.NewFromInt(1)))
	assert.True(t, decimal.NewFromInt(1000).Equal(rounded))
}

func TestInvalidAuctionWindow(t *testing.T) {
	order := auctionOrder(OrderSideSell)
	order.ExpirationTime = order.ListingTime

	_, err := estimatePriceAt(order, at(0), true)
	assert.ErrorIs(t, err, ErrInvalidAuctionWindow)
}

func TestUnknownSaleKind(t *testing.T) {
	order := auctionOrder(OrderSideSell)
	order.SaleKind = 9

	_, err := estimatePriceAt(order, at(0), true)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestEstimateCurrentPriceBacktrack(t *testing.T) {
	now := time.Now().Unix()
	order := &Order{
		Side:           OrderSideSell,
		SaleKind:       SaleKindDutchAuction,
		BasePrice:      decimal.NewFromInt(1000000),
		Extra:          decimal.NewFromInt(1000000),
		ListingTime:    decimal.NewFromInt(now - 1000),
		ExpirationTime: decimal.NewFromInt(now + 999000),
	}

	// Each second of backtrack raises a falling price by one unit.
	withBacktrack, err := EstimateCurrentPrice(order, 500, true)
	require.NoError(t, err)
	without, err := EstimateCurrentPrice(order, 0, true)
	require.NoError(t, err)

	diff := withBacktrack.Sub(without)
	assert.True(t, diff.GreaterThanOrEqual(decimal.NewFromInt(495)), "diff %s", diff)
	assert.True(t, diff.LessThanOrEqual(decimal.NewFromInt(505)), "diff %s", diff)
}
