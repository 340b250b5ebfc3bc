package opensea

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSecondsToBacktrack offsets the wall clock so that prices are
// computed against a slightly earlier time than the local clock reports.
const DefaultSecondsToBacktrack = 30

// CurrentPrice estimates the price of order with the default backtrack and
// rounding up.
func CurrentPrice(order *Order) (decimal.Decimal, error) {
	return EstimateCurrentPrice(order, DefaultSecondsToBacktrack, true)
}

// EstimateCurrentPrice returns the price of order, in payment token base
// units, at the current time minus secondsToBacktrack.
//
// Fixed price orders always return BasePrice. Dutch auctions interpolate
// linearly by Extra across [ListingTime, ExpirationTime]: sell orders move
// down and buy orders move up. The result is not clamped to the window.
func EstimateCurrentPrice(order *Order, secondsToBacktrack int64, shouldRoundUp bool) (decimal.Decimal, error) {
	now := decimal.NewFromInt(time.Now().Unix() - secondsToBacktrack)
	return estimatePriceAt(order, now, shouldRoundUp)
}

func estimatePriceAt(order *Order, now decimal.Decimal, shouldRoundUp bool) (decimal.Decimal, error) {
	if order == nil {
		return decimal.Zero, &InvalidParamError{Message: "order is required"}
	}

	price := order.BasePrice

	switch order.SaleKind {
	case SaleKindFixedPrice:
	case SaleKindDutchAuction:
		window := order.ExpirationTime.Sub(order.ListingTime)
		if window.Sign() <= 0 {
			return decimal.Zero, fmt.Errorf("%w: listing %s, expiration %s",
				ErrInvalidAuctionWindow, order.ListingTime, order.ExpirationTime)
		}

		diff := order.Extra.Mul(now.Sub(order.ListingTime)).Div(window)
		switch order.Side {
		case OrderSideSell:
			price = price.Sub(diff)
		case OrderSideBuy:
			price = price.Add(diff)
		default:
			return decimal.Zero, &InvalidParamError{Message: fmt.Sprintf("unknown order side %d", order.Side)}
		}
	default:
		return decimal.Zero, &InvalidParamError{Message: fmt.Sprintf("unknown sale kind %d", order.SaleKind)}
	}

	if shouldRoundUp {
		price = price.Ceil()
	}
	return price, nil
}
