package opensea

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kaifufi/opensea-sdk-go/chain"
	"github.com/shopspring/decimal"
)

// OrderJSON is the flat camelCase wire form of an order. It is the legacy
// v0 read schema and the form produced by OrderToJSON.
type OrderJSON struct {
	Hash                 string          `json:"hash,omitempty"`
	Metadata             json.RawMessage `json:"metadata,omitempty"`
	CancelledOrFinalized bool            `json:"cancelledOrFinalized,omitempty"`
	MarkedInvalid        bool            `json:"markedInvalid,omitempty"`

	Exchange           string              `json:"exchange"`
	Maker              string              `json:"maker"`
	Taker              string              `json:"taker"`
	MakerRelayerFee    decimal.NullDecimal `json:"makerRelayerFee"`
	TakerRelayerFee    decimal.NullDecimal `json:"takerRelayerFee"`
	MakerProtocolFee   decimal.NullDecimal `json:"makerProtocolFee"`
	TakerProtocolFee   decimal.NullDecimal `json:"takerProtocolFee"`
	FeeRecipient       string              `json:"feeRecipient"`
	FeeMethod          *wireInt            `json:"feeMethod"`
	Side               *wireInt            `json:"side"`
	SaleKind           *wireInt            `json:"saleKind"`
	Target             string              `json:"target"`
	HowToCall          *wireInt            `json:"howToCall"`
	Calldata           string              `json:"calldata"`
	ReplacementPattern string              `json:"replacementPattern"`
	StaticTarget       string              `json:"staticTarget"`
	StaticExtradata    string              `json:"staticExtradata"`
	PaymentToken       string              `json:"paymentToken"`
	BasePrice          decimal.NullDecimal `json:"basePrice"`
	Extra              decimal.NullDecimal `json:"extra"`
	ListingTime        decimal.NullDecimal `json:"listingTime"`
	ExpirationTime     decimal.NullDecimal `json:"expirationTime"`
	Salt               decimal.NullDecimal `json:"salt"`

	V *wireInt `json:"v,omitempty"`
	R string   `json:"r,omitempty"`
	S string   `json:"s,omitempty"`
}

// AccountJSON is an account object embedded in API responses
type AccountJSON struct {
	Address       string    `json:"address"`
	ProfileImgURL string    `json:"profile_img_url,omitempty"`
	User          *UserJSON `json:"user,omitempty"`
}

// UserJSON is the user profile attached to an account
type UserJSON struct {
	Username string `json:"username"`
}

// OrderAPIJSON is the nested snake_case order schema served by the API
type OrderAPIJSON struct {
	ID            int64           `json:"id,omitempty"`
	OrderHash     string          `json:"order_hash,omitempty"`
	Hash          string          `json:"hash,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	Cancelled     bool            `json:"cancelled"`
	Finalized     bool            `json:"finalized"`
	MarkedInvalid bool            `json:"marked_invalid"`

	Exchange           string              `json:"exchange"`
	Maker              *AccountJSON        `json:"maker"`
	Taker              *AccountJSON        `json:"taker"`
	FeeRecipient       *AccountJSON        `json:"fee_recipient"`
	MakerRelayerFee    decimal.NullDecimal `json:"maker_relayer_fee"`
	TakerRelayerFee    decimal.NullDecimal `json:"taker_relayer_fee"`
	MakerProtocolFee   decimal.NullDecimal `json:"maker_protocol_fee"`
	TakerProtocolFee   decimal.NullDecimal `json:"taker_protocol_fee"`
	FeeMethod          *wireInt            `json:"fee_method"`
	Side               *wireInt            `json:"side"`
	SaleKind           *wireInt            `json:"sale_kind"`
	Target             string              `json:"target"`
	HowToCall          *wireInt            `json:"how_to_call"`
	Calldata           string              `json:"calldata"`
	ReplacementPattern string              `json:"replacement_pattern"`
	StaticTarget       string              `json:"static_target"`
	StaticExtradata    string              `json:"static_extradata"`
	PaymentToken       string              `json:"payment_token"`
	BasePrice          decimal.NullDecimal `json:"base_price"`
	Extra              decimal.NullDecimal `json:"extra"`
	ListingTime        decimal.NullDecimal `json:"listing_time"`
	ExpirationTime     decimal.NullDecimal `json:"expiration_time"`
	Salt               decimal.NullDecimal `json:"salt"`

	V *wireInt `json:"v"`
	R string   `json:"r"`
	S string   `json:"s"`

	Asset *AssetJSON `json:"asset,omitempty"`
}

// OrderFromJSONv0 converts a legacy flat wire order
func OrderFromJSONv0(src *OrderJSON) (*Order, error) {
	if src == nil {
		return nil, &InvalidParamError{Message: "order is required"}
	}
	check := &fieldCheck{}

	order := &Order{
		Hash:                 src.Hash,
		CancelledOrFinalized: src.CancelledOrFinalized,
		MarkedInvalid:        src.MarkedInvalid,
		Metadata:             src.Metadata,

		Exchange:     check.address("exchange", src.Exchange),
		Maker:        check.address("maker", src.Maker),
		Taker:        check.address("taker", src.Taker),
		FeeRecipient: check.address("feeRecipient", src.FeeRecipient),

		MakerRelayerFee:  check.decimal("makerRelayerFee", src.MakerRelayerFee),
		TakerRelayerFee:  check.decimal("takerRelayerFee", src.TakerRelayerFee),
		MakerProtocolFee: check.decimal("makerProtocolFee", src.MakerProtocolFee),
		TakerProtocolFee: check.decimal("takerProtocolFee", src.TakerProtocolFee),
		FeeMethod:        FeeMethod(check.enum("feeMethod", src.FeeMethod, 1)),

		Side:               OrderSide(check.enum("side", src.Side, 1)),
		SaleKind:           SaleKind(check.enum("saleKind", src.SaleKind, 1)),
		Target:             check.address("target", src.Target),
		HowToCall:          HowToCall(check.enum("howToCall", src.HowToCall, 1)),
		Calldata:           check.hexBytes("calldata", src.Calldata),
		ReplacementPattern: check.hexBytes("replacementPattern", src.ReplacementPattern),
		StaticTarget:       check.address("staticTarget", src.StaticTarget),
		StaticExtradata:    check.hexBytes("staticExtradata", src.StaticExtradata),
		PaymentToken:       check.address("paymentToken", src.PaymentToken),

		BasePrice:      check.decimal("basePrice", src.BasePrice),
		Extra:          check.decimal("extra", src.Extra),
		ListingTime:    check.decimal("listingTime", src.ListingTime),
		ExpirationTime: check.decimal("expirationTime", src.ExpirationTime),
		Salt:           check.decimal("salt", src.Salt),

		ECSignature: check.signature(src.V, src.R, src.S),
	}
	if err := check.err(); err != nil {
		return nil, err
	}

	return withCurrentPrice(order)
}

// OrderFromJSON converts an order in the API's nested schema. The hash is
// taken from order_hash, falling back to hash.
func OrderFromJSON(src *OrderAPIJSON) (*Order, error) {
	if src == nil {
		return nil, &InvalidParamError{Message: "order is required"}
	}
	check := &fieldCheck{}

	hash := src.OrderHash
	if hash == "" {
		hash = src.Hash
	}

	order := &Order{
		Hash:                 hash,
		CancelledOrFinalized: src.Cancelled || src.Finalized,
		MarkedInvalid:        src.MarkedInvalid,
		Metadata:             src.Metadata,

		Exchange:     check.address("exchange", src.Exchange),
		Maker:        check.account("maker", src.Maker),
		Taker:        check.account("taker", src.Taker),
		FeeRecipient: check.account("fee_recipient", src.FeeRecipient),

		MakerRelayerFee:  check.decimal("maker_relayer_fee", src.MakerRelayerFee),
		TakerRelayerFee:  check.decimal("taker_relayer_fee", src.TakerRelayerFee),
		MakerProtocolFee: check.decimal("maker_protocol_fee", src.MakerProtocolFee),
		TakerProtocolFee: check.decimal("taker_protocol_fee", src.TakerProtocolFee),
		FeeMethod:        FeeMethod(check.enum("fee_method", src.FeeMethod, 1)),

		Side:               OrderSide(check.enum("side", src.Side, 1)),
		SaleKind:           SaleKind(check.enum("sale_kind", src.SaleKind, 1)),
		Target:             check.address("target", src.Target),
		HowToCall:          HowToCall(check.enum("how_to_call", src.HowToCall, 1)),
		Calldata:           check.hexBytes("calldata", src.Calldata),
		ReplacementPattern: check.hexBytes("replacement_pattern", src.ReplacementPattern),
		StaticTarget:       check.address("static_target", src.StaticTarget),
		StaticExtradata:    check.hexBytes("static_extradata", src.StaticExtradata),
		PaymentToken:       check.address("payment_token", src.PaymentToken),

		BasePrice:      check.decimal("base_price", src.BasePrice),
		Extra:          check.decimal("extra", src.Extra),
		ListingTime:    check.decimal("listing_time", src.ListingTime),
		ExpirationTime: check.decimal("expiration_time", src.ExpirationTime),
		Salt:           check.decimal("salt", src.Salt),

		ECSignature: check.signature(src.V, src.R, src.S),
	}
	if err := check.err(); err != nil {
		return nil, err
	}

	if src.Asset != nil {
		asset, err := AssetFromJSON(src.Asset)
		if err != nil {
			return nil, fmt.Errorf("failed to convert order asset: %w", err)
		}
		order.Asset = asset
	}

	return withCurrentPrice(order)
}

// OrderToJSON converts an order to the flat wire form with lowercased
// addresses, base-10 numerics and the canonical order hash attached.
func OrderToJSON(order *Order) (*OrderJSON, error) {
	if order == nil {
		return nil, &InvalidParamError{Message: "order is required"}
	}

	hashable := order.ChainOrder()
	hash, err := chain.OrderHashHex(hashable)
	if err != nil {
		return nil, fmt.Errorf("failed to hash order: %w", err)
	}

	out := &OrderJSON{
		Hash:                 hash,
		Metadata:             order.Metadata,
		CancelledOrFinalized: order.CancelledOrFinalized,
		MarkedInvalid:        order.MarkedInvalid,

		Exchange:           hashable.Exchange,
		Maker:              hashable.Maker,
		Taker:              hashable.Taker,
		MakerRelayerFee:    validDecimal(order.MakerRelayerFee),
		TakerRelayerFee:    validDecimal(order.TakerRelayerFee),
		MakerProtocolFee:   validDecimal(order.MakerProtocolFee),
		TakerProtocolFee:   validDecimal(order.TakerProtocolFee),
		FeeRecipient:       hashable.FeeRecipient,
		FeeMethod:          newWireInt(int(order.FeeMethod)),
		Side:               newWireInt(int(order.Side)),
		SaleKind:           newWireInt(int(order.SaleKind)),
		Target:             hashable.Target,
		HowToCall:          newWireInt(int(order.HowToCall)),
		Calldata:           hashable.Calldata,
		ReplacementPattern: hashable.ReplacementPattern,
		StaticTarget:       hashable.StaticTarget,
		StaticExtradata:    hashable.StaticExtradata,
		PaymentToken:       hashable.PaymentToken,
		BasePrice:          validDecimal(order.BasePrice),
		Extra:              validDecimal(order.Extra),
		ListingTime:        validDecimal(order.ListingTime),
		ExpirationTime:     validDecimal(order.ExpirationTime),
		Salt:               validDecimal(order.Salt),
	}

	if order.V != 0 {
		out.V = newWireInt(int(order.V))
		out.R = order.R.Hex()
		out.S = order.S.Hex()
	}

	return out, nil
}

func validDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// wireInt is a small integer that may arrive as a JSON number or a
// numeric string.
type wireInt int

func newWireInt(n int) *wireInt {
	w := wireInt(n)
	return &w
}

func (w *wireInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(unquoted)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %s", string(data))
	}
	*w = wireInt(n)
	return nil
}

// fieldCheck accumulates missing and malformed fields while an order is
// converted, so a single error can name all of them.
type fieldCheck struct {
	missing []string
	invalid []string
}

func (c *fieldCheck) err() error {
	if len(c.missing) > 0 {
		return missingFieldsError(c.missing)
	}
	if len(c.invalid) > 0 {
		return &InvalidParamError{Message: "invalid fields", Fields: c.invalid}
	}
	return nil
}

func (c *fieldCheck) address(name, value string) string {
	if value == "" {
		c.missing = append(c.missing, name)
		return ""
	}
	if !common.IsHexAddress(value) {
		c.invalid = append(c.invalid, name)
	}
	return value
}

func (c *fieldCheck) account(name string, value *AccountJSON) string {
	if value == nil {
		c.missing = append(c.missing, name)
		return ""
	}
	return c.address(name, value.Address)
}

func (c *fieldCheck) decimal(name string, value decimal.NullDecimal) decimal.Decimal {
	if !value.Valid {
		c.missing = append(c.missing, name)
		return decimal.Zero
	}
	if value.Decimal.Sign() < 0 || !value.Decimal.IsInteger() {
		c.invalid = append(c.invalid, name)
	}
	return value.Decimal
}

func (c *fieldCheck) enum(name string, value *wireInt, max int) int {
	if value == nil {
		c.missing = append(c.missing, name)
		return 0
	}
	if int(*value) < 0 || int(*value) > max {
		c.invalid = append(c.invalid, name)
	}
	return int(*value)
}

// hexBytes accepts "0x" as the empty byte string
func (c *fieldCheck) hexBytes(name, value string) string {
	if value == "" {
		c.missing = append(c.missing, name)
		return ""
	}
	if value == "0x" {
		return value
	}
	if _, err := hexutil.Decode(value); err != nil {
		c.invalid = append(c.invalid, name)
	}
	return value
}

// signature is optional as a whole but must be complete when present
func (c *fieldCheck) signature(v *wireInt, r, s string) ECSignature {
	if v == nil && r == "" && s == "" {
		return ECSignature{}
	}
	if v == nil || *v < 27 || *v > 28 {
		c.invalid = append(c.invalid, "v")
		return ECSignature{}
	}

	sig := ECSignature{V: uint8(*v)}
	var ok bool
	if sig.R, ok = parseHash(r); !ok {
		c.invalid = append(c.invalid, "r")
	}
	if sig.S, ok = parseHash(s); !ok {
		c.invalid = append(c.invalid, "s")
	}
	return sig
}

func parseHash(value string) (common.Hash, bool) {
	b, err := hexutil.Decode(value)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}
