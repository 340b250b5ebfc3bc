package opensea

import (
	"strconv"
	"strings"

	"github.com/kaifufi/opensea-sdk-go/chain"
	"github.com/shopspring/decimal"
)

// ChainOrder returns the hashable form of the order with lowercased
// addresses and base-10 numerics.
func (o *Order) ChainOrder() *chain.Order {
	return &chain.Order{
		Exchange:           strings.ToLower(o.Exchange),
		Maker:              strings.ToLower(o.Maker),
		Taker:              strings.ToLower(o.Taker),
		MakerRelayerFee:    o.MakerRelayerFee.String(),
		TakerRelayerFee:    o.TakerRelayerFee.String(),
		MakerProtocolFee:   o.MakerProtocolFee.String(),
		TakerProtocolFee:   o.TakerProtocolFee.String(),
		FeeRecipient:       strings.ToLower(o.FeeRecipient),
		FeeMethod:          strconv.Itoa(int(o.FeeMethod)),
		Side:               strconv.Itoa(int(o.Side)),
		SaleKind:           strconv.Itoa(int(o.SaleKind)),
		Target:             strings.ToLower(o.Target),
		HowToCall:          strconv.Itoa(int(o.HowToCall)),
		Calldata:           o.Calldata,
		ReplacementPattern: o.ReplacementPattern,
		StaticTarget:       strings.ToLower(o.StaticTarget),
		StaticExtradata:    o.StaticExtradata,
		PaymentToken:       strings.ToLower(o.PaymentToken),
		BasePrice:          o.BasePrice.String(),
		Extra:              o.Extra.String(),
		ListingTime:        o.ListingTime.String(),
		ExpirationTime:     o.ExpirationTime.String(),
		Salt:               o.Salt.String(),
	}
}

// orderFromChain converts a freshly built and signed order into the model
func orderFromChain(signed *chain.SignedOrder) (*Order, error) {
	src := signed.Order
	check := &fieldCheck{}

	order := &Order{
		Hash:               signed.Hash,
		Exchange:           src.Exchange,
		Maker:              src.Maker,
		Taker:              src.Taker,
		FeeRecipient:       src.FeeRecipient,
		MakerRelayerFee:    check.decimalString("makerRelayerFee", src.MakerRelayerFee),
		TakerRelayerFee:    check.decimalString("takerRelayerFee", src.TakerRelayerFee),
		MakerProtocolFee:   check.decimalString("makerProtocolFee", src.MakerProtocolFee),
		TakerProtocolFee:   check.decimalString("takerProtocolFee", src.TakerProtocolFee),
		FeeMethod:          FeeMethod(check.enumString("feeMethod", src.FeeMethod, 1)),
		Side:               OrderSide(check.enumString("side", src.Side, 1)),
		SaleKind:           SaleKind(check.enumString("saleKind", src.SaleKind, 1)),
		Target:             src.Target,
		HowToCall:          HowToCall(check.enumString("howToCall", src.HowToCall, 1)),
		Calldata:           src.Calldata,
		ReplacementPattern: src.ReplacementPattern,
		StaticTarget:       src.StaticTarget,
		StaticExtradata:    src.StaticExtradata,
		PaymentToken:       src.PaymentToken,
		BasePrice:          check.decimalString("basePrice", src.BasePrice),
		Extra:              check.decimalString("extra", src.Extra),
		ListingTime:        check.decimalString("listingTime", src.ListingTime),
		ExpirationTime:     check.decimalString("expirationTime", src.ExpirationTime),
		Salt:               check.decimalString("salt", src.Salt),
		ECSignature:        signed.Signature,
	}
	if err := check.err(); err != nil {
		return nil, err
	}

	return withCurrentPrice(order)
}

// withCurrentPrice fills the derived CurrentPrice field
func withCurrentPrice(order *Order) (*Order, error) {
	price, err := CurrentPrice(order)
	if err != nil {
		return nil, err
	}
	order.CurrentPrice = price
	return order, nil
}

func (c *fieldCheck) decimalString(name, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		c.invalid = append(c.invalid, name)
		return decimal.Zero
	}
	return c.decimal(name, decimal.NullDecimal{Decimal: d, Valid: true})
}

func (c *fieldCheck) enumString(name, value string, max int) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		c.invalid = append(c.invalid, name)
		return 0
	}
	w := wireInt(n)
	return c.enum(name, &w, max)
}
