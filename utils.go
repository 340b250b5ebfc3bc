package opensea

import (
	"fmt"
	"math/big"
	"time"

	"github.com/kaifufi/opensea-sdk-go/chain"
	"github.com/shopspring/decimal"
)

const (
	MaxDecimals = 18
	ZeroAddress = chain.ZeroAddress
)

var maxUint256 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 256), 0)

// ToBaseUnits converts a human-readable token amount to base units,
// truncating digits beyond decimals.
func ToBaseUnits(amount decimal.Decimal, decimals int) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, &InvalidParamError{Message: fmt.Sprintf("amount must be positive, got: %s", amount)}
	}
	if decimals < 0 || decimals > MaxDecimals {
		return decimal.Zero, &InvalidParamError{Message: fmt.Sprintf("decimals must be between 0 and %d, got: %d", MaxDecimals, decimals)}
	}

	result := amount.Shift(int32(decimals)).Truncate(0)
	if result.GreaterThanOrEqual(maxUint256) {
		return decimal.Zero, &InvalidParamError{Message: fmt.Sprintf("amount too large for uint256: %s", result)}
	}
	if result.Sign() <= 0 {
		return decimal.Zero, &InvalidParamError{Message: "calculated amount is zero"}
	}

	return result, nil
}

// FromBaseUnits converts a base-unit amount back to a human-readable amount
func FromBaseUnits(amount decimal.Decimal, decimals int) decimal.Decimal {
	return amount.Shift(-int32(decimals))
}

// FeeFromBasisPoints returns the share of price owed for a fee in basis points
func FeeFromBasisPoints(price decimal.Decimal, basisPoints int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(basisPoints))).Div(decimal.NewFromInt(10000)).Floor()
}

// IsExpired reports whether order can no longer be matched at t. An
// expiration time of zero never expires.
func IsExpired(order *Order, t time.Time) bool {
	if order.ExpirationTime.IsZero() {
		return false
	}
	return order.ExpirationTime.LessThanOrEqual(decimal.NewFromInt(t.Unix()))
}
