package opensea

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fixtureOrderHash = "0x13833c595381969e22a60f8f42e1925eabc326b3d5656ddf9418f3967412ce99"
	fixtureR         = "0x1c5c7c0b8e1f5c0c2f0b7d2cbd6a49d4b0f2a5b1e43f6bd9e3b5c5d0a1b2c3d4"
	fixtureS         = "0x2d6d8d1c9f206d1d301c8e3dce7b5ae5c103b6c2f5407ceaf4c6d6e1b2c3d4e5"
)

const fixtureAPIOrder = `{
	"id": 42,
	"order_hash": "0x13833c595381969e22a60f8f42e1925eabc326b3d5656ddf9418f3967412ce99",
	"metadata": {"asset": {"id": "7", "address": "0x2222222222222222222222222222222222222222"}, "schema": "ERC721"},
	"cancelled": false,
	"finalized": false,
	"marked_invalid": false,
	"exchange": "0x7Be8076f4EA4A4AD08075C2508e481d6C946D12b",
	"maker": {"address": "0x1111111111111111111111111111111111111111", "user": {"username": "alice"}},
	"taker": {"address": "0x0000000000000000000000000000000000000000"},
	"fee_recipient": {"address": "0x5B3256965e7C3cF26E11FCAf296DfC8807C01073"},
	"maker_relayer_fee": "250",
	"taker_relayer_fee": "0",
	"maker_protocol_fee": "0",
	"taker_protocol_fee": 0,
	"fee_method": 1,
	"side": 1,
	"sale_kind": "0",
	"target": "0x2222222222222222222222222222222222222222",
	"how_to_call": 0,
	"calldata": "0x23b872dd",
	"replacement_pattern": "0xffffffff",
	"static_target": "0x0000000000000000000000000000000000000000",
	"static_extradata": "0x",
	"payment_token": "0x0000000000000000000000000000000000000000",
	"base_price": "1000000000000000000",
	"extra": "0",
	"listing_time": 1600000000,
	"expiration_time": "0",
	"salt": "12345",
	"v": 27,
	"r": "` + fixtureR + `",
	"s": "` + fixtureS + `"
}`

func decodeAPIOrder(t *testing.T, raw string) *OrderAPIJSON {
	t.Helper()
	var out OrderAPIJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return &out
}

func TestOrderFromJSON(t *testing.T) {
	order, err := OrderFromJSON(decodeAPIOrder(t, fixtureAPIOrder))
	require.NoError(t, err)

	assert.Equal(t, fixtureOrderHash, order.Hash)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", order.Maker)
	assert.Equal(t, OrderSideSell, order.Side)
	assert.Equal(t, SaleKindFixedPrice, order.SaleKind)
	assert.Equal(t, FeeMethodSplitFee, order.FeeMethod)
	assert.True(t, decimal.NewFromInt(250).Equal(order.MakerRelayerFee))
	assert.True(t, decimal.NewFromInt(1600000000).Equal(order.ListingTime))
	assert.Equal(t, uint8(27), order.V)
	assert.Equal(t, common.HexToHash(fixtureR), order.R)
	assert.False(t, order.CancelledOrFinalized)
	assert.JSONEq(t, `{"asset": {"id": "7", "address": "0x2222222222222222222222222222222222222222"}, "schema": "ERC721"}`, string(order.Metadata))

	// Fixed price: current price is the base price.
	assert.True(t, order.BasePrice.Equal(order.CurrentPrice))
}

func TestOrderJSONRoundTrip(t *testing.T) {
	src := decodeAPIOrder(t, fixtureAPIOrder)
	order, err := OrderFromJSON(src)
	require.NoError(t, err)

	out, err := OrderToJSON(order)
	require.NoError(t, err)

	assert.Equal(t, fixtureOrderHash, out.Hash)
	assert.Equal(t, "0x7be8076f4ea4a4ad08075c2508e481d6c946d12b", out.Exchange)
	assert.Equal(t, "0x5b3256965e7c3cf26e11fcaf296dfc8807c01073", out.FeeRecipient)
	assert.Equal(t, src.Maker.Address, out.Maker)
	assert.Equal(t, src.Target, out.Target)
	assert.Equal(t, src.Calldata, out.Calldata)
	assert.Equal(t, src.ReplacementPattern, out.ReplacementPattern)
	assert.True(t, src.BasePrice.Decimal.Equal(out.BasePrice.Decimal))
	assert.True(t, src.Salt.Decimal.Equal(out.Salt.Decimal))
	assert.True(t, src.ListingTime.Decimal.Equal(out.ListingTime.Decimal))
	assert.Equal(t, fixtureR, out.R)
	assert.Equal(t, fixtureS, out.S)

	encoded, err := json.Marshal(out)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(encoded, &fields))
	assert.Equal(t, "1000000000000000000", fields["basePrice"])
	assert.Equal(t, "1600000000", fields["listingTime"])
	assert.Equal(t, float64(1), fields["side"])
	assert.Equal(t, float64(27), fields["v"])
	assert.Contains(t, fields, "metadata")

	// The flat form reads back through the v0 adapter.
	var v0 OrderJSON
	require.NoError(t, json.Unmarshal(encoded, &v0))
	again, err := OrderFromJSONv0(&v0)
	require.NoError(t, err)
	assert.Equal(t, fixtureOrderHash, again.Hash)
	assert.True(t, order.BasePrice.Equal(again.BasePrice))
	assert.Equal(t, order.ECSignature, again.ECSignature)
}

func TestOrderFromJSONHashFallbackAndStatus(t *testing.T) {
	src := decodeAPIOrder(t, fixtureAPIOrder)
	src.OrderHash = ""
	src.Hash = "0xabc"
	src.Finalized = true

	order, err := OrderFromJSON(src)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", order.Hash)
	assert.True(t, order.CancelledOrFinalized)
}

func TestOrderFromJSONWithoutMetadataOrSignature(t *testing.T) {
	src := decodeAPIOrder(t, fixtureAPIOrder)
	src.Metadata = nil
	src.V, src.R, src.S = nil, "", ""

	order, err := OrderFromJSON(src)
	require.NoError(t, err)
	assert.Nil(t, order.Metadata)
	assert.Equal(t, ECSignature{}, order.ECSignature)

	out, err := OrderToJSON(order)
	require.NoError(t, err)
	encoded, err := json.Marshal(out)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(encoded, &fields))
	assert.NotContains(t, fields, "metadata")
	assert.NotContains(t, fields, "v")
}

func TestOrderFromJSONMissingFields(t *testing.T) {
	var src OrderAPIJSON
	require.NoError(t, json.Unmarshal([]byte(`{"exchange": "0x7be8076f4ea4a4ad08075c2508e481d6c946d12b", "side": 1}`), &src))

	_, err := OrderFromJSON(&src)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParam)

	var paramErr *InvalidParamError
	require.True(t, errors.As(err, &paramErr))
	assert.Contains(t, paramErr.Fields, "maker")
	assert.Contains(t, paramErr.Fields, "base_price")
	assert.Contains(t, paramErr.Fields, "salt")
	assert.NotContains(t, paramErr.Fields, "side")
	assert.NotContains(t, paramErr.Fields, "metadata")
}

func TestOrderFromJSONInvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *OrderAPIJSON)
		field  string
	}{
		{"bad address", func(o *OrderAPIJSON) { o.Target = "0x22" }, "target"},
		{"negative price", func(o *OrderAPIJSON) { o.BasePrice.Decimal = decimal.NewFromInt(-1) }, "base_price"},
		{"fractional salt", func(o *OrderAPIJSON) { o.Salt.Decimal = decimal.RequireFromString("1.5") }, "salt"},
		{"side out of range", func(o *OrderAPIJSON) { o.Side = newWireInt(3) }, "side"},
		{"bad v", func(o *OrderAPIJSON) { o.V = newWireInt(1) }, "v"},
		{"short r", func(o *OrderAPIJSON) { o.R = "0x1234" }, "r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := decodeAPIOrder(t, fixtureAPIOrder)
			tt.mutate(src)

			_, err := OrderFromJSON(src)
			var paramErr *InvalidParamError
			require.True(t, errors.As(err, &paramErr))
			assert.Contains(t, paramErr.Fields, tt.field)
		})
	}
}

func TestOrderFromJSONv0NumericCoercion(t *testing.T) {
	raw := `{
		"hash": "0x01",
		"exchange": "0x7be8076f4ea4a4ad08075c2508e481d6c946d12b",
		"maker": "0x1111111111111111111111111111111111111111",
		"taker": "0x0000000000000000000000000000000000000000",
		"makerRelayerFee": 250,
		"takerRelayerFee": "0",
		"makerProtocolFee": "0",
		"takerProtocolFee": "0",
		"feeRecipient": "0x5b3256965e7c3cf26e11fcaf296dfc8807c01073",
		"feeMethod": "1",
		"side": "0",
		"saleKind": 1,
		"target": "0x2222222222222222222222222222222222222222",
		"howToCall": 0,
		"calldata": "0x",
		"replacementPattern": "0x",
		"staticTarget": "0x0000000000000000000000000000000000000000",
		"staticExtradata": "0x",
		"paymentToken": "0x0000000000000000000000000000000000000000",
		"basePrice": 1000,
		"extra": "100",
		"listingTime": "1600000000",
		"expirationTime": 1600003600,
		"salt": "1",
		"cancelledOrFinalized": true
	}`

	var src OrderJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &src))

	order, err := OrderFromJSONv0(&src)
	require.NoError(t, err)
	assert.Equal(t, OrderSideBuy, order.Side)
	assert.Equal(t, SaleKindDutchAuction, order.SaleKind)
	assert.True(t, decimal.NewFromInt(1000).Equal(order.BasePrice))
	assert.True(t, order.CancelledOrFinalized)
	assert.Nil(t, order.Metadata)

	// The auction has long ended and is not clamped: a buy keeps rising.
	assert.True(t, order.CurrentPrice.GreaterThan(decimal.NewFromInt(1100)))
}

func TestWireIntRejectsGarbage(t *testing.T) {
	var w wireInt
	assert.Error(t, json.Unmarshal([]byte(`"one"`), &w))
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &w))
	require.NoError(t, json.Unmarshal([]byte(`" 2 "`), &w))
	assert.Equal(t, wireInt(2), w)
}

func TestOrderToJSONRejectsUnhashableOrder(t *testing.T) {
	order, err := OrderFromJSON(decodeAPIOrder(t, fixtureAPIOrder))
	require.NoError(t, err)
	order.Maker = "nobody"

	_, err = OrderToJSON(order)
	assert.Error(t, err)

	_, err = OrderToJSON(nil)
	assert.ErrorIs(t, err, ErrInvalidParam)
}
