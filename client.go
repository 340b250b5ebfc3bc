package opensea

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kaifufi/opensea-sdk-go/chain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultAssetCacheTTL = 5 * time.Minute

// chainBackend is the subset of *chain.ContractCaller the client relies on
type chainBackend interface {
	ethereum.ContractCaller
	chain.TransactionReader
	chain.MessageSigner
	GetProxy(ctx context.Context, registry, owner string) (common.Address, error)
	CancelOrder(ctx context.Context, from string, order *chain.Order, sig chain.ECSignature) (common.Hash, error)
	Close()
}

// Client is the main SDK client
type Client struct {
	config       ClientConfig
	logger       logrus.FieldLogger
	apiClient    *APIClient
	backend      chainBackend
	tracker      *chain.ConfirmationTracker
	orderBuilder *chain.OrderBuilder

	assetCache    map[string]cacheEntry
	assetCacheTTL time.Duration
	cacheMutex    sync.RWMutex
}

type cacheEntry struct {
	asset     *OpenSeaAsset
	timestamp time.Time
}

// CreateOrderInput describes an order to build and sign. BasePrice and
// Extra are in payment token base units.
type CreateOrderInput struct {
	Maker              string
	Side               OrderSide
	SaleKind           SaleKind
	Target             string
	HowToCall          HowToCall
	Calldata           string
	ReplacementPattern string
	PaymentToken       string
	BasePrice          decimal.Decimal
	Extra              decimal.Decimal
	ExpirationTime     time.Time
	MakerRelayerFee    int // basis points
	TakerRelayerFee    int // basis points
	Metadata           json.RawMessage
}

// NewClient creates a new OpenSea SDK client. RPCURL may be empty, in which
// case only the orderbook API operations are available.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var backend chainBackend
	if config.RPCURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
		defer cancel()

		caller, err := chain.NewContractCaller(ctx, config.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create contract caller: %w", err)
		}
		backend = caller
	}

	return newClient(config, logger, backend)
}

func newClient(config ClientConfig, logger logrus.FieldLogger, backend chainBackend) (*Client, error) {
	c := &Client{
		config:        config,
		logger:        logger,
		apiClient:     NewAPIClient(config.APIBaseURL, config.APIKey, config.RequestTimeout, logger),
		backend:       backend,
		assetCache:    make(map[string]cacheEntry),
		assetCacheTTL: defaultAssetCacheTTL,
	}

	if backend != nil {
		c.tracker = chain.NewConfirmationTracker(backend,
			chain.WithPollInterval(config.PollInterval),
			chain.WithTrackerLogger(logger),
		)

		builder, err := chain.NewOrderBuilder(config.WyvernExchangeAddr, backend)
		if err != nil {
			return nil, fmt.Errorf("failed to create order builder: %w", err)
		}
		c.orderBuilder = builder
	}

	return c, nil
}

// Close stops pending confirmation polls and closes the RPC connection
func (c *Client) Close() {
	if c.tracker != nil {
		c.tracker.Close()
	}
	if c.backend != nil {
		c.backend.Close()
	}
}

// GetOrders returns orders from the orderbook and the total match count
func (c *Client) GetOrders(ctx context.Context, query OrderQuery) ([]*Order, int, error) {
	return c.apiClient.GetOrders(ctx, query)
}

// GetOrder returns the first order matching query
func (c *Client) GetOrder(ctx context.Context, query OrderQuery) (*Order, error) {
	query.Limit = 1
	orders, _, err := c.apiClient.GetOrders(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders[0], nil
}

// GetAsset fetches an asset, serving it from cache when useCache is set and
// the cached copy is fresh.
func (c *Client) GetAsset(ctx context.Context, tokenAddress, tokenID string, useCache bool) (*OpenSeaAsset, error) {
	key := strings.ToLower(tokenAddress) + "/" + tokenID

	if useCache && c.assetCacheTTL > 0 {
		c.cacheMutex.RLock()
		entry, ok := c.assetCache[key]
		c.cacheMutex.RUnlock()
		if ok && time.Since(entry.timestamp) < c.assetCacheTTL {
			return entry.asset, nil
		}
	}

	asset, err := c.apiClient.GetAsset(ctx, tokenAddress, tokenID)
	if err != nil {
		return nil, err
	}

	if c.assetCacheTTL > 0 {
		c.cacheMutex.Lock()
		c.assetCache[key] = cacheEntry{asset: asset, timestamp: time.Now()}
		c.cacheMutex.Unlock()
	}

	return asset, nil
}

// PostOrder submits a signed order to the orderbook
func (c *Client) PostOrder(ctx context.Context, order *Order) (*Order, error) {
	payload, err := OrderToJSON(order)
	if err != nil {
		return nil, err
	}
	if order.Hash != "" && !strings.EqualFold(order.Hash, payload.Hash) {
		return nil, &InvalidParamError{Message: fmt.Sprintf("order hash %s does not match computed hash %s", order.Hash, payload.Hash)}
	}

	return c.apiClient.PostOrder(ctx, payload)
}

// CreateOrder builds an order, signs it from the maker's account and
// checks that the signature recovers to the maker. The order is not posted.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if c.orderBuilder == nil {
		return nil, ErrRPCNotConfigured
	}
	if input.BasePrice.Sign() < 0 || !input.BasePrice.IsInteger() {
		return nil, &InvalidParamError{Message: fmt.Sprintf("basePrice must be a non-negative integer, got: %s", input.BasePrice)}
	}

	data := &chain.OrderData{
		Maker:              input.Maker,
		FeeRecipient:       c.config.FeeRecipientAddr,
		MakerRelayerFee:    fmt.Sprint(input.MakerRelayerFee),
		TakerRelayerFee:    fmt.Sprint(input.TakerRelayerFee),
		FeeMethod:          chain.FeeMethodSplitFee,
		Side:               chain.OrderSide(input.Side),
		SaleKind:           chain.SaleKind(input.SaleKind),
		Target:             input.Target,
		HowToCall:          chain.HowToCall(input.HowToCall),
		Calldata:           input.Calldata,
		ReplacementPattern: input.ReplacementPattern,
		PaymentToken:       input.PaymentToken,
		BasePrice:          input.BasePrice.String(),
		Extra:              input.Extra.String(),
	}
	if !input.ExpirationTime.IsZero() {
		data.ExpirationTime = fmt.Sprint(input.ExpirationTime.Unix())
	}

	signed, err := c.orderBuilder.BuildSignedOrder(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to build signed order: %w", err)
	}
	if err := verifyOrderSignature(signed); err != nil {
		return nil, err
	}

	order, err := orderFromChain(signed)
	if err != nil {
		return nil, err
	}
	if len(input.Metadata) > 0 {
		order.Metadata = input.Metadata
	}

	c.logger.WithFields(logrus.Fields{
		"hash":  order.Hash,
		"maker": order.Maker,
		"side":  order.Side,
		"price": order.BasePrice.String(),
	}).Info("created order")
	return order, nil
}

// SignOrder signs an existing order from its maker's account and returns a
// copy with Hash and signature set.
func (c *Client) SignOrder(ctx context.Context, order *Order) (*Order, error) {
	if c.orderBuilder == nil {
		return nil, ErrRPCNotConfigured
	}

	signed, err := c.orderBuilder.SignOrder(ctx, order.ChainOrder())
	if err != nil {
		return nil, err
	}
	if err := verifyOrderSignature(signed); err != nil {
		return nil, err
	}

	out := *order
	out.Hash = signed.Hash
	out.ECSignature = signed.Signature
	return &out, nil
}

// CancelOrder cancels order on the exchange from account and waits for the
// cancellation to be mined.
func (c *Client) CancelOrder(ctx context.Context, order *Order, account string) (*TransactionResult, error) {
	if c.backend == nil {
		return nil, ErrRPCNotConfigured
	}
	if !strings.EqualFold(order.Maker, account) {
		return nil, &InvalidParamError{Message: "only the maker can cancel an order"}
	}

	txHash, err := c.backend.CancelOrder(ctx, account, order.ChainOrder(), order.ECSignature)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	c.logger.WithFields(logrus.Fields{"hash": order.Hash, "tx": txHash.Hex()}).Info("cancel submitted")

	result := &TransactionResult{TxHash: txHash.Hex()}
	if err := c.tracker.ConfirmTransaction(ctx, txHash); err != nil {
		return result, err
	}
	result.Success = true
	return result, nil
}

// GetProxy returns the exchange proxy registered for account, or an empty
// string when none exists.
func (c *Client) GetProxy(ctx context.Context, account string) (string, error) {
	if c.backend == nil {
		return "", ErrRPCNotConfigured
	}

	proxy, err := c.backend.GetProxy(ctx, c.config.ProxyRegistryAddr, account)
	if err != nil {
		return "", err
	}
	if proxy == (common.Address{}) {
		return "", nil
	}
	return strings.ToLower(proxy.Hex()), nil
}

// GetAssetOwnership reports whether account, its proxy or someone else
// holds asset. Failures degrade to chain.OwnershipUnknown.
func (c *Client) GetAssetOwnership(ctx context.Context, account string, asset chain.Asset, schema chain.Schema) chain.Ownership {
	if c.backend == nil {
		return chain.OwnershipUnknown
	}

	proxy, err := c.GetProxy(ctx, account)
	if err != nil {
		c.logger.WithError(err).WithField("account", account).Warn("proxy lookup failed, checking account only")
		proxy = ""
	}

	return chain.ResolveOwnership(ctx, c.backend, chain.OwnershipQuery{
		Account: account,
		Proxy:   proxy,
		Asset:   asset,
		Schema:  schema,
	}, c.logger)
}

// TrackTransaction calls callback once txHash is mined. The returned cancel
// function stops waiting without invoking callback.
func (c *Client) TrackTransaction(txHash string, callback func(success bool)) (cancel func(), err error) {
	if c.tracker == nil {
		return nil, ErrRPCNotConfigured
	}
	hash, err := parseTxHash(txHash)
	if err != nil {
		return nil, err
	}
	return c.tracker.Register(hash, callback), nil
}

// ConfirmTransaction blocks until txHash is mined. It returns
// ErrTransactionFailed if the transaction reverted.
func (c *Client) ConfirmTransaction(ctx context.Context, txHash string) error {
	if c.tracker == nil {
		return ErrRPCNotConfigured
	}
	hash, err := parseTxHash(txHash)
	if err != nil {
		return err
	}
	return c.tracker.ConfirmTransaction(ctx, hash)
}

// GetTokenBalance returns account's balance of an ERC20 token in base units
func (c *Client) GetTokenBalance(ctx context.Context, token, account string) (decimal.Decimal, error) {
	if c.backend == nil {
		return decimal.Zero, ErrRPCNotConfigured
	}
	if !common.IsHexAddress(token) || !common.IsHexAddress(account) {
		return decimal.Zero, &InvalidParamError{Message: "token and account must be addresses"}
	}

	erc20 := chain.GetERC20ABI()
	data, err := erc20.Pack("balanceOf", common.HexToAddress(account))
	if err != nil {
		return decimal.Zero, err
	}
	tokenAddr := common.HexToAddress(token)
	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	var balance *big.Int
	if err := erc20.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(balance, 0), nil
}

func verifyOrderSignature(signed *chain.SignedOrder) error {
	hash := common.HexToHash(signed.Hash)
	if !chain.VerifySignature(chain.HashMessage(hash.Bytes()), signed.Signature, signed.Order.Maker) {
		return fmt.Errorf("%w: signature does not recover to maker %s", ErrInvalidSignature, signed.Order.Maker)
	}
	return nil
}

func parseTxHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, &InvalidParamError{Message: fmt.Sprintf("invalid transaction hash %q", s)}
	}
	return common.BytesToHash(b), nil
}

var _ chainBackend = (*chain.ContractCaller)(nil)
