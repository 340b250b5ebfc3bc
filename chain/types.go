package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// OrderSide represents the side of an order
type OrderSide uint8

const (
	OrderSideBuy OrderSide = iota
	OrderSideSell
)

// SaleKind represents how the price of an order evolves over time
type SaleKind uint8

const (
	SaleKindFixedPrice SaleKind = iota
	SaleKindDutchAuction
)

// HowToCall selects the call type the exchange uses against the order target
type HowToCall uint8

const (
	HowToCallCall HowToCall = iota
	HowToCallDelegateCall
)

// FeeMethod selects how relayer and protocol fees are charged
type FeeMethod uint8

const (
	FeeMethodProtocolFee FeeMethod = iota
	FeeMethodSplitFee
)

// OrderData represents the data for building an order
type OrderData struct {
	Exchange           string // overrides the builder's exchange when set
	Maker              string
	Taker              string
	FeeRecipient       string
	MakerRelayerFee    string
	TakerRelayerFee    string
	MakerProtocolFee   string
	TakerProtocolFee   string
	FeeMethod          FeeMethod
	Side               OrderSide
	SaleKind           SaleKind
	Target             string
	HowToCall          HowToCall
	Calldata           string
	ReplacementPattern string
	StaticTarget       string
	StaticExtradata    string
	PaymentToken       string
	BasePrice          string
	Extra              string
	ListingTime        string
	ExpirationTime     string
}

// Order is the exact field set hashed by the exchange. Numeric fields are
// base-10 strings and byte fields are 0x-prefixed hex.
type Order struct {
	Exchange           string
	Maker              string
	Taker              string
	MakerRelayerFee    string
	TakerRelayerFee    string
	MakerProtocolFee   string
	TakerProtocolFee   string
	FeeRecipient       string
	FeeMethod          string
	Side               string
	SaleKind           string
	Target             string
	HowToCall          string
	Calldata           string
	ReplacementPattern string
	StaticTarget       string
	StaticExtradata    string
	PaymentToken       string
	BasePrice          string
	Extra              string
	ListingTime        string
	ExpirationTime     string
	Salt               string
}

// SignedOrder represents an order with its hash and signature
type SignedOrder struct {
	Order     *Order
	Hash      string
	Signature ECSignature
}

// TxRequest describes a state-changing call submitted through the node
type TxRequest struct {
	From  string
	To    string
	Data  []byte
	Value string
	Gas   uint64
}

// ERC20 ABI JSON for balance queries
const erc20ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	}
]`

// ERC721 ABI JSON for ownership queries
const erc721ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	}
]`

// ERC1155 ABI JSON for balance queries
const erc1155ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "account", "type": "address"},
			{"name": "id", "type": "uint256"}
		],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	}
]`

// ProxyRegistry ABI JSON for looking up a user's authenticated proxy
const proxyRegistryABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "", "type": "address"}],
		"name": "proxies",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	}
]`

// Wyvern exchange ABI JSON for cancelling an order on chain
const wyvernExchangeABIJSON = `[
	{
		"constant": false,
		"inputs": [
			{"name": "addrs", "type": "address[7]"},
			{"name": "uints", "type": "uint256[9]"},
			{"name": "feeMethod", "type": "uint8"},
			{"name": "side", "type": "uint8"},
			{"name": "saleKind", "type": "uint8"},
			{"name": "howToCall", "type": "uint8"},
			{"name": "calldata", "type": "bytes"},
			{"name": "replacementPattern", "type": "bytes"},
			{"name": "staticExtradata", "type": "bytes"},
			{"name": "v", "type": "uint8"},
			{"name": "r", "type": "bytes32"},
			{"name": "s", "type": "bytes32"}
		],
		"name": "cancelOrder_",
		"outputs": [],
		"type": "function"
	}
]`

// GetERC20ABI returns the parsed ERC20 ABI
func GetERC20ABI() abi.ABI {
	return mustParseABI("ERC20", erc20ABIJSON)
}

// GetERC721ABI returns the parsed ERC721 ABI
func GetERC721ABI() abi.ABI {
	return mustParseABI("ERC721", erc721ABIJSON)
}

// GetERC1155ABI returns the parsed ERC1155 ABI
func GetERC1155ABI() abi.ABI {
	return mustParseABI("ERC1155", erc1155ABIJSON)
}

// GetProxyRegistryABI returns the parsed ProxyRegistry ABI
func GetProxyRegistryABI() abi.ABI {
	return mustParseABI("ProxyRegistry", proxyRegistryABIJSON)
}

// GetWyvernExchangeABI returns the parsed Wyvern exchange ABI
func GetWyvernExchangeABI() abi.ABI {
	return mustParseABI("WyvernExchange", wyvernExchangeABIJSON)
}

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}
