package opensea

import (
	"encoding/json"

	"github.com/kaifufi/opensea-sdk-go/chain"
	"github.com/shopspring/decimal"
)

// OrderSide represents the side of an order
type OrderSide int

const (
	OrderSideBuy OrderSide = iota
	OrderSideSell
)

// SaleKind represents how an order's price moves over time
type SaleKind int

const (
	SaleKindFixedPrice SaleKind = iota
	SaleKindDutchAuction
)

// HowToCall represents the call type used against the order target
type HowToCall int

const (
	HowToCallCall HowToCall = iota
	HowToCallDelegateCall
)

// FeeMethod represents how fees are charged
type FeeMethod int

const (
	FeeMethodProtocolFee FeeMethod = iota
	FeeMethodSplitFee
)

// ECSignature is a recoverable signature with V in {27, 28}
type ECSignature = chain.ECSignature

// Order is the in-memory representation of a trade offer. Monetary and
// time fields are arbitrary-precision integers in base units and seconds.
type Order struct {
	Hash                 string
	CancelledOrFinalized bool
	MarkedInvalid        bool
	Metadata             json.RawMessage

	Exchange     string
	Maker        string
	Taker        string
	FeeRecipient string

	MakerRelayerFee  decimal.Decimal
	TakerRelayerFee  decimal.Decimal
	MakerProtocolFee decimal.Decimal
	TakerProtocolFee decimal.Decimal
	FeeMethod        FeeMethod

	Side               OrderSide
	SaleKind           SaleKind
	Target             string
	HowToCall          HowToCall
	Calldata           string
	ReplacementPattern string
	StaticTarget       string
	StaticExtradata    string
	PaymentToken       string

	BasePrice      decimal.Decimal
	Extra          decimal.Decimal
	ListingTime    decimal.Decimal
	ExpirationTime decimal.Decimal
	Salt           decimal.Decimal

	ECSignature

	// CurrentPrice is derived from the sale terms, never read from the wire.
	CurrentPrice decimal.Decimal

	Asset *OpenSeaAsset
}

// Account is a user account as embedded in API responses
type Account struct {
	Address       string
	Username      string
	ProfileImgURL string
}

// AssetContract describes the contract an asset belongs to
type AssetContract struct {
	Name                 string
	Address              string
	BuyerFeeBasisPoints  int
	SellerFeeBasisPoints int
}

// OpenSeaAsset is an owned or ownable item and its open orders
type OpenSeaAsset struct {
	TokenID       string
	Name          string
	Owner         Account
	AssetContract AssetContract
	Orders        []*Order
}

// Descriptor returns the schema-level identifier of the asset
func (a *OpenSeaAsset) Descriptor() chain.Asset {
	return chain.Asset{
		TokenID:      a.TokenID,
		TokenAddress: a.AssetContract.Address,
	}
}

// TransactionResult represents the outcome of a submitted transaction
type TransactionResult struct {
	TxHash  string
	Success bool
}
