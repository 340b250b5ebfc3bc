package chain

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ZeroAddress is used for unset taker, fee recipient and static target fields
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// MessageSigner signs a message on behalf of an address with personal_sign semantics.
// *ContractCaller satisfies it.
type MessageSigner interface {
	PersonalSign(ctx context.Context, message []byte, signer string) (*ECSignature, error)
}

// OrderBuilder builds and signs orders for a single exchange
type OrderBuilder struct {
	exchangeAddr common.Address
	signer       MessageSigner
	now          func() time.Time
}

// NewOrderBuilder creates a new OrderBuilder
func NewOrderBuilder(exchangeAddr string, signer MessageSigner) (*OrderBuilder, error) {
	if !common.IsHexAddress(exchangeAddr) {
		return nil, fmt.Errorf("%w: exchange %q", ErrInvalidAddress, exchangeAddr)
	}
	return &OrderBuilder{
		exchangeAddr: common.HexToAddress(exchangeAddr),
		signer:       signer,
		now:          time.Now,
	}, nil
}

// BuildOrder builds an unsigned order from OrderData
func (ob *OrderBuilder) BuildOrder(data *OrderData) (*Order, error) {
	if err := ob.validateInputs(data); err != nil {
		return nil, err
	}

	taker := orDefault(data.Taker, ZeroAddress)
	feeRecipient := orDefault(data.FeeRecipient, ZeroAddress)
	staticTarget := orDefault(data.StaticTarget, ZeroAddress)
	listingTime := orDefault(data.ListingTime, strconv.FormatInt(ob.now().Unix(), 10))

	order := &Order{
		Exchange:           normalizeAddress(orDefault(data.Exchange, ob.exchangeAddr.Hex())),
		Maker:              normalizeAddress(data.Maker),
		Taker:              normalizeAddress(taker),
		MakerRelayerFee:    orDefault(data.MakerRelayerFee, "0"),
		TakerRelayerFee:    orDefault(data.TakerRelayerFee, "0"),
		MakerProtocolFee:   orDefault(data.MakerProtocolFee, "0"),
		TakerProtocolFee:   orDefault(data.TakerProtocolFee, "0"),
		FeeRecipient:       normalizeAddress(feeRecipient),
		FeeMethod:          strconv.Itoa(int(data.FeeMethod)),
		Side:               strconv.Itoa(int(data.Side)),
		SaleKind:           strconv.Itoa(int(data.SaleKind)),
		Target:             normalizeAddress(data.Target),
		HowToCall:          strconv.Itoa(int(data.HowToCall)),
		Calldata:           orDefault(data.Calldata, "0x"),
		ReplacementPattern: orDefault(data.ReplacementPattern, "0x"),
		StaticTarget:       normalizeAddress(staticTarget),
		StaticExtradata:    orDefault(data.StaticExtradata, "0x"),
		PaymentToken:       normalizeAddress(orDefault(data.PaymentToken, ZeroAddress)),
		BasePrice:          data.BasePrice,
		Extra:              orDefault(data.Extra, "0"),
		ListingTime:        listingTime,
		ExpirationTime:     orDefault(data.ExpirationTime, "0"),
		Salt:               GenerateSalt(),
	}

	// Reject anything the exchange could not hash.
	if _, err := OrderToTypedData(order); err != nil {
		return nil, err
	}

	return order, nil
}

// BuildSignedOrder builds an order and signs its hash from the maker's account
func (ob *OrderBuilder) BuildSignedOrder(ctx context.Context, data *OrderData) (*SignedOrder, error) {
	order, err := ob.BuildOrder(data)
	if err != nil {
		return nil, err
	}

	return ob.SignOrder(ctx, order)
}

// SignOrder hashes order and signs the hash bytes with personal_sign
func (ob *OrderBuilder) SignOrder(ctx context.Context, order *Order) (*SignedOrder, error) {
	if ob.signer == nil {
		return nil, fmt.Errorf("no message signer configured")
	}

	typed, err := OrderToTypedData(order)
	if err != nil {
		return nil, err
	}
	hash := typed.Hash()

	sig, err := ob.signer.PersonalSign(ctx, hash.Bytes(), order.Maker)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}

	return &SignedOrder{
		Order:     order,
		Hash:      hash.Hex(),
		Signature: *sig,
	}, nil
}

func (ob *OrderBuilder) validateInputs(data *OrderData) error {
	if data.Exchange != "" && !common.IsHexAddress(data.Exchange) {
		return fmt.Errorf("%w: exchange %q", ErrInvalidAddress, data.Exchange)
	}
	if !common.IsHexAddress(data.Maker) {
		return fmt.Errorf("maker is required")
	}
	if !common.IsHexAddress(data.Target) {
		return fmt.Errorf("target is required")
	}
	if data.BasePrice == "" {
		return fmt.Errorf("basePrice is required")
	}
	if data.Side != OrderSideBuy && data.Side != OrderSideSell {
		return fmt.Errorf("invalid side")
	}
	if data.SaleKind != SaleKindFixedPrice && data.SaleKind != SaleKindDutchAuction {
		return fmt.Errorf("invalid sale kind")
	}
	if data.SaleKind == SaleKindDutchAuction {
		listing, lok := new(big.Int).SetString(orDefault(data.ListingTime, strconv.FormatInt(ob.now().Unix(), 10)), 10)
		expiration, eok := new(big.Int).SetString(data.ExpirationTime, 10)
		if !lok || !eok || expiration.Cmp(listing) <= 0 {
			return fmt.Errorf("dutch auction requires expirationTime after listingTime")
		}
	}
	return nil
}

// GenerateSalt returns a random 128-bit salt as a base-10 string
func GenerateSalt() string {
	id := uuid.New()
	return new(big.Int).SetBytes(id[:]).String()
}

func normalizeAddress(addr string) string {
	return strings.ToLower(common.HexToAddress(addr).Hex())
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
