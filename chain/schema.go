package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Asset identifies a single item a schema knows how to query
type Asset struct {
	TokenID      string
	TokenAddress string
}

// ContractQuery is a read-only contract call built by a schema. A nil entry
// in Args marks the open address slot filled in per queried account.
type ContractQuery struct {
	Target common.Address
	ABI    abi.ABI
	Method string
	Args   []interface{}
}

// OpenSlots returns how many arguments are still unset
func (q *ContractQuery) OpenSlots() int {
	n := 0
	for _, arg := range q.Args {
		if arg == nil {
			n++
		}
	}
	return n
}

// WithAddress returns a copy of the args with every open slot set to addr
func (q *ContractQuery) WithAddress(addr common.Address) []interface{} {
	args := make([]interface{}, len(q.Args))
	for i, arg := range q.Args {
		if arg == nil {
			args[i] = addr
			continue
		}
		args[i] = arg
	}
	return args
}

// Schema maps an asset to the contract calls that reveal who holds it.
// A schema may support neither, one, or both queries.
type Schema interface {
	Name() string
	OwnerOf(asset Asset) (*ContractQuery, bool)
	CountOf(asset Asset) (*ContractQuery, bool)
}

// ERC721Schema queries non-fungible tokens through ownerOf(tokenId)
type ERC721Schema struct{}

func (ERC721Schema) Name() string { return "ERC721" }

func (ERC721Schema) OwnerOf(asset Asset) (*ContractQuery, bool) {
	tokenID, ok := parseTokenID(asset.TokenID)
	if !ok || !common.IsHexAddress(asset.TokenAddress) {
		return nil, false
	}
	return &ContractQuery{
		Target: common.HexToAddress(asset.TokenAddress),
		ABI:    GetERC721ABI(),
		Method: "ownerOf",
		Args:   []interface{}{tokenID},
	}, true
}

func (ERC721Schema) CountOf(Asset) (*ContractQuery, bool) { return nil, false }

// ERC20Schema queries fungible tokens through balanceOf(owner). The
// asset's TokenID is ignored.
type ERC20Schema struct{}

func (ERC20Schema) Name() string { return "ERC20" }

func (ERC20Schema) OwnerOf(Asset) (*ContractQuery, bool) { return nil, false }

func (ERC20Schema) CountOf(asset Asset) (*ContractQuery, bool) {
	if !common.IsHexAddress(asset.TokenAddress) {
		return nil, false
	}
	return &ContractQuery{
		Target: common.HexToAddress(asset.TokenAddress),
		ABI:    GetERC20ABI(),
		Method: "balanceOf",
		Args:   []interface{}{nil},
	}, true
}

// ERC1155Schema queries semi-fungible tokens through balanceOf(account, id)
type ERC1155Schema struct{}

func (ERC1155Schema) Name() string { return "ERC1155" }

func (ERC1155Schema) OwnerOf(Asset) (*ContractQuery, bool) { return nil, false }

func (ERC1155Schema) CountOf(asset Asset) (*ContractQuery, bool) {
	tokenID, ok := parseTokenID(asset.TokenID)
	if !ok || !common.IsHexAddress(asset.TokenAddress) {
		return nil, false
	}
	return &ContractQuery{
		Target: common.HexToAddress(asset.TokenAddress),
		ABI:    GetERC1155ABI(),
		Method: "balanceOf",
		Args:   []interface{}{nil, tokenID},
	}, true
}

// SchemaByName returns the built-in schema with the given name
func SchemaByName(name string) (Schema, error) {
	switch name {
	case "ERC721":
		return ERC721Schema{}, nil
	case "ERC20":
		return ERC20Schema{}, nil
	case "ERC1155":
		return ERC1155Schema{}, nil
	default:
		return nil, fmt.Errorf("unknown schema %q", name)
	}
}

func parseTokenID(s string) (*big.Int, bool) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, false
	}
	return n, true
}
