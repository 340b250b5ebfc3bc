package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ContractCaller handles blockchain interactions over JSON-RPC
type ContractCaller struct {
	rpcClient *rpc.Client
	client    *ethclient.Client
}

// NewContractCaller connects to the node at rpcURL
func NewContractCaller(ctx context.Context, rpcURL string) (*ContractCaller, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	return NewContractCallerFromRPC(rpcClient), nil
}

// NewContractCallerFromRPC wraps an existing RPC client
func NewContractCallerFromRPC(rpcClient *rpc.Client) *ContractCaller {
	return &ContractCaller{
		rpcClient: rpcClient,
		client:    ethclient.NewClient(rpcClient),
	}
}

// CallContract executes a read-only call
func (cc *ContractCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return cc.client.CallContract(ctx, msg, blockNumber)
}

// TransactionByHash looks up a transaction; isPending is true until it is in a block
func (cc *ContractCaller) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return cc.client.TransactionByHash(ctx, hash)
}

// TransactionReceipt returns the receipt of a mined transaction
func (cc *ContractCaller) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return cc.client.TransactionReceipt(ctx, hash)
}

// PersonalSign asks the node to sign message on behalf of signer using
// personal_sign semantics and parses the result into a canonical signature.
func (cc *ContractCaller) PersonalSign(ctx context.Context, message []byte, signer string) (*ECSignature, error) {
	if !common.IsHexAddress(signer) {
		return nil, fmt.Errorf("%w: signer %q", ErrInvalidAddress, signer)
	}

	var result hexutil.Bytes
	err := cc.rpcClient.CallContext(ctx, &result, "personal_sign", hexutil.Encode(message), common.HexToAddress(signer))
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	return ParseSignature(result)
}

// SendTransaction submits a transaction signed by a node-held account and
// returns its hash without waiting for inclusion.
func (cc *ContractCaller) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	args, err := req.toArgs()
	if err != nil {
		return common.Hash{}, err
	}

	var hash common.Hash
	if err := cc.rpcClient.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return hash, nil
}

// SendSignedTransaction signs req locally with privateKey (EIP-155) and
// broadcasts it. The From field of req is ignored.
func (cc *ContractCaller) SendSignedTransaction(ctx context.Context, privateKey *ecdsa.PrivateKey, req TxRequest) (common.Hash, error) {
	if !common.IsHexAddress(req.To) {
		return common.Hash{}, fmt.Errorf("%w: to %q", ErrInvalidAddress, req.To)
	}
	value, err := parseValue(req.Value)
	if err != nil {
		return common.Hash{}, err
	}
	to := common.HexToAddress(req.To)
	from := crypto.PubkeyToAddress(privateKey.PublicKey)

	chainID, err := cc.client.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain ID: %w", err)
	}

	nonce, err := cc.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := cc.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	gas := req.Gas
	if gas == 0 {
		gas, err = cc.client.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &to,
			Value: value,
			Data:  req.Data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	tx := types.NewTransaction(nonce, to, value, gas, gasPrice, req.Data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := cc.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}

// GetProxy returns the proxy registered for owner in the ProxyRegistry at
// registry, or the zero address if none is registered.
func (cc *ContractCaller) GetProxy(ctx context.Context, registry, owner string) (common.Address, error) {
	if !common.IsHexAddress(registry) || !common.IsHexAddress(owner) {
		return common.Address{}, ErrInvalidAddress
	}
	registryAddr := common.HexToAddress(registry)

	registryABI := GetProxyRegistryABI()
	data, err := registryABI.Pack("proxies", common.HexToAddress(owner))
	if err != nil {
		return common.Address{}, err
	}

	result, err := cc.client.CallContract(ctx, ethereum.CallMsg{
		To:   &registryAddr,
		Data: data,
	}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to call proxies: %w", err)
	}

	var proxy common.Address
	if err := registryABI.UnpackIntoInterface(&proxy, "proxies", result); err != nil {
		return common.Address{}, err
	}

	return proxy, nil
}

// CancelOrder submits cancelOrder_ for a signed order from the maker's account
func (cc *ContractCaller) CancelOrder(ctx context.Context, from string, order *Order, sig ECSignature) (common.Hash, error) {
	data, err := PackCancelOrder(order, sig)
	if err != nil {
		return common.Hash{}, err
	}

	return cc.SendTransaction(ctx, TxRequest{
		From: from,
		To:   order.Exchange,
		Data: data,
	})
}

// PackCancelOrder encodes the cancelOrder_ call data for order
func PackCancelOrder(order *Order, sig ECSignature) ([]byte, error) {
	typed, err := OrderToTypedData(order)
	if err != nil {
		return nil, err
	}

	addrs := [7]common.Address{
		typed.Exchange,
		typed.Maker,
		typed.Taker,
		typed.FeeRecipient,
		typed.Target,
		typed.StaticTarget,
		typed.PaymentToken,
	}
	uints := [9]*big.Int{
		typed.MakerRelayerFee,
		typed.TakerRelayerFee,
		typed.MakerProtocolFee,
		typed.TakerProtocolFee,
		typed.BasePrice,
		typed.Extra,
		typed.ListingTime,
		typed.ExpirationTime,
		typed.Salt,
	}

	exchangeABI := GetWyvernExchangeABI()
	data, err := exchangeABI.Pack("cancelOrder_",
		addrs,
		uints,
		typed.FeeMethod,
		typed.Side,
		typed.SaleKind,
		typed.HowToCall,
		typed.Calldata,
		typed.ReplacementPattern,
		typed.StaticExtradata,
		sig.V,
		[32]byte(sig.R),
		[32]byte(sig.S),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack cancelOrder_: %w", err)
	}

	return data, nil
}

// Close closes the RPC connection
func (cc *ContractCaller) Close() {
	if cc.client != nil {
		cc.client.Close()
	}
}

// txArgs mirrors the eth_sendTransaction parameter object
type txArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

func (r TxRequest) toArgs() (*txArgs, error) {
	if !common.IsHexAddress(r.From) {
		return nil, fmt.Errorf("%w: from %q", ErrInvalidAddress, r.From)
	}
	args := &txArgs{
		From: common.HexToAddress(r.From),
		Data: r.Data,
	}
	if r.To != "" {
		if !common.IsHexAddress(r.To) {
			return nil, fmt.Errorf("%w: to %q", ErrInvalidAddress, r.To)
		}
		to := common.HexToAddress(r.To)
		args.To = &to
	}
	if r.Value != "" {
		value, err := parseValue(r.Value)
		if err != nil {
			return nil, err
		}
		args.Value = (*hexutil.Big)(value)
	}
	if r.Gas != 0 {
		gas := hexutil.Uint64(r.Gas)
		args.Gas = &gas
	}
	return args, nil
}

func parseValue(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	value, ok := new(big.Int).SetString(s, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("%w: value %q", ErrInvalidOrderField, s)
	}
	return value, nil
}
