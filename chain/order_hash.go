package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Order hashing errors
var (
	ErrInvalidOrderField = errors.New("invalid order field")
	ErrInvalidAddress    = errors.New("invalid address")
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// OrderTypedData is an Order parsed into the types the exchange hashes
type OrderTypedData struct {
	Exchange           common.Address
	Maker              common.Address
	Taker              common.Address
	MakerRelayerFee    *big.Int
	TakerRelayerFee    *big.Int
	MakerProtocolFee   *big.Int
	TakerProtocolFee   *big.Int
	FeeRecipient       common.Address
	FeeMethod          uint8
	Side               uint8
	SaleKind           uint8
	Target             common.Address
	HowToCall          uint8
	Calldata           []byte
	ReplacementPattern []byte
	StaticTarget       common.Address
	StaticExtradata    []byte
	PaymentToken       common.Address
	BasePrice          *big.Int
	Extra              *big.Int
	ListingTime        *big.Int
	ExpirationTime     *big.Int
	Salt               *big.Int
}

// Hash computes keccak256 over the tightly packed order fields, matching
// the exchange's hashOrder.
func (o *OrderTypedData) Hash() common.Hash {
	data := make([]byte, 0, 7*20+9*32+4+len(o.Calldata)+len(o.ReplacementPattern)+len(o.StaticExtradata))
	data = append(data, o.Exchange.Bytes()...)
	data = append(data, o.Maker.Bytes()...)
	data = append(data, o.Taker.Bytes()...)
	data = append(data, packUint256(o.MakerRelayerFee)...)
	data = append(data, packUint256(o.TakerRelayerFee)...)
	data = append(data, packUint256(o.MakerProtocolFee)...)
	data = append(data, packUint256(o.TakerProtocolFee)...)
	data = append(data, o.FeeRecipient.Bytes()...)
	data = append(data, o.FeeMethod, o.Side, o.SaleKind)
	data = append(data, o.Target.Bytes()...)
	data = append(data, o.HowToCall)
	data = append(data, o.Calldata...)
	data = append(data, o.ReplacementPattern...)
	data = append(data, o.StaticTarget.Bytes()...)
	data = append(data, o.StaticExtradata...)
	data = append(data, o.PaymentToken.Bytes()...)
	data = append(data, packUint256(o.BasePrice)...)
	data = append(data, packUint256(o.Extra)...)
	data = append(data, packUint256(o.ListingTime)...)
	data = append(data, packUint256(o.ExpirationTime)...)
	data = append(data, packUint256(o.Salt)...)

	return crypto.Keccak256Hash(data)
}

// OrderHashHex returns the canonical 0x-prefixed hash of an order
func OrderHashHex(order *Order) (string, error) {
	typed, err := OrderToTypedData(order)
	if err != nil {
		return "", err
	}
	return typed.Hash().Hex(), nil
}

// HashMessage returns the personal_sign (EIP-191) digest of data
func HashMessage(data []byte) common.Hash {
	return common.BytesToHash(accounts.TextHash(data))
}

// OrderToTypedData converts an Order to OrderTypedData for hashing
func OrderToTypedData(order *Order) (*OrderTypedData, error) {
	p := &fieldParser{}

	typed := &OrderTypedData{
		Exchange:           p.address("exchange", order.Exchange),
		Maker:              p.address("maker", order.Maker),
		Taker:              p.address("taker", order.Taker),
		MakerRelayerFee:    p.uint256("makerRelayerFee", order.MakerRelayerFee),
		TakerRelayerFee:    p.uint256("takerRelayerFee", order.TakerRelayerFee),
		MakerProtocolFee:   p.uint256("makerProtocolFee", order.MakerProtocolFee),
		TakerProtocolFee:   p.uint256("takerProtocolFee", order.TakerProtocolFee),
		FeeRecipient:       p.address("feeRecipient", order.FeeRecipient),
		FeeMethod:          p.uint8("feeMethod", order.FeeMethod),
		Side:               p.uint8("side", order.Side),
		SaleKind:           p.uint8("saleKind", order.SaleKind),
		Target:             p.address("target", order.Target),
		HowToCall:          p.uint8("howToCall", order.HowToCall),
		Calldata:           p.bytes("calldata", order.Calldata),
		ReplacementPattern: p.bytes("replacementPattern", order.ReplacementPattern),
		StaticTarget:       p.address("staticTarget", order.StaticTarget),
		StaticExtradata:    p.bytes("staticExtradata", order.StaticExtradata),
		PaymentToken:       p.address("paymentToken", order.PaymentToken),
		BasePrice:          p.uint256("basePrice", order.BasePrice),
		Extra:              p.uint256("extra", order.Extra),
		ListingTime:        p.uint256("listingTime", order.ListingTime),
		ExpirationTime:     p.uint256("expirationTime", order.ExpirationTime),
		Salt:               p.uint256("salt", order.Salt),
	}
	if p.err != nil {
		return nil, p.err
	}

	return typed, nil
}

// fieldParser keeps the first parse error so the conversion reads as a
// single field list.
type fieldParser struct {
	err error
}

func (p *fieldParser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *fieldParser) address(name, value string) common.Address {
	if !common.IsHexAddress(value) {
		p.fail(fmt.Errorf("%w: %s %q", ErrInvalidAddress, name, value))
		return common.Address{}
	}
	return common.HexToAddress(value)
}

func (p *fieldParser) uint256(name, value string) *big.Int {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 || n.Cmp(maxUint256) > 0 {
		p.fail(fmt.Errorf("%w: %s %q is not a uint256", ErrInvalidOrderField, name, value))
		return new(big.Int)
	}
	return n
}

func (p *fieldParser) uint8(name, value string) uint8 {
	n, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		p.fail(fmt.Errorf("%w: %s %q is not a uint8", ErrInvalidOrderField, name, value))
		return 0
	}
	return uint8(n)
}

func (p *fieldParser) bytes(name, value string) []byte {
	if value == "" || value == "0x" {
		return []byte{}
	}
	b, err := hexutil.Decode(value)
	if err != nil {
		p.fail(fmt.Errorf("%w: %s: %v", ErrInvalidOrderField, name, err))
		return nil
	}
	return b
}

func packUint256(n *big.Int) []byte {
	if n == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(n.Bytes(), 32)
}
