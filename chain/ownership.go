package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Ownership classifies who currently holds an asset
type Ownership string

const (
	OwnershipProxy   Ownership = "proxy"
	OwnershipAccount Ownership = "account"
	OwnershipUnknown Ownership = "unknown"
	OwnershipOther   Ownership = "other"
)

// fullOwnershipThreshold is one whole unit at 18 decimals
var fullOwnershipThreshold = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// OwnershipQuery holds the inputs of ResolveOwnership. Proxy may be empty.
type OwnershipQuery struct {
	Account string
	Proxy   string
	Asset   Asset
	Schema  Schema
}

// ResolveOwnership determines whether the account, its proxy or someone
// else holds the asset. It never fails: call errors are logged and the
// result degrades to OwnershipUnknown.
func ResolveOwnership(ctx context.Context, caller ethereum.ContractCaller, q OwnershipQuery, logger logrus.FieldLogger) Ownership {
	if q.Schema == nil || caller == nil {
		return OwnershipUnknown
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithFields(logrus.Fields{
		"module": "ownership",
		"schema": q.Schema.Name(),
		"asset":  q.Asset.TokenAddress + "/" + q.Asset.TokenID,
	})

	if query, ok := q.Schema.OwnerOf(q.Asset); ok {
		if query.OpenSlots() != 0 {
			return OwnershipUnknown
		}
		var owner common.Address
		if err := callQuery(ctx, caller, query, query.Args, &owner); err != nil {
			logger.WithError(err).Warn("ownerOf query failed")
			return OwnershipUnknown
		}
		return classifyOwner(owner, q.Account, q.Proxy)
	}

	if query, ok := q.Schema.CountOf(q.Asset); ok {
		if query.OpenSlots() != 1 {
			return OwnershipUnknown
		}

		if q.Proxy != "" {
			count, err := countFor(ctx, caller, query, q.Proxy)
			if err != nil {
				logger.WithError(err).Warn("balance query for proxy failed")
				return OwnershipUnknown
			}
			if count.Cmp(fullOwnershipThreshold) >= 0 {
				return OwnershipProxy
			}
		}

		count, err := countFor(ctx, caller, query, q.Account)
		if err != nil {
			logger.WithError(err).Warn("balance query for account failed")
			return OwnershipUnknown
		}
		if count.Cmp(fullOwnershipThreshold) >= 0 {
			return OwnershipAccount
		}
		return OwnershipOther
	}

	return OwnershipUnknown
}

func classifyOwner(owner common.Address, account, proxy string) Ownership {
	ownerHex := strings.ToLower(owner.Hex())
	switch {
	case proxy != "" && ownerHex == strings.ToLower(proxy):
		return OwnershipProxy
	case ownerHex == strings.ToLower(account):
		return OwnershipAccount
	case owner == (common.Address{}):
		return OwnershipUnknown
	default:
		return OwnershipOther
	}
}

func countFor(ctx context.Context, caller ethereum.ContractCaller, query *ContractQuery, addr string) (*big.Int, error) {
	if !common.IsHexAddress(addr) {
		return nil, ErrInvalidAddress
	}
	var count *big.Int
	if err := callQuery(ctx, caller, query, query.WithAddress(common.HexToAddress(addr)), &count); err != nil {
		return nil, err
	}
	if count == nil {
		return new(big.Int), nil
	}
	return count, nil
}

func callQuery(ctx context.Context, caller ethereum.ContractCaller, query *ContractQuery, args []interface{}, out interface{}) error {
	data, err := query.ABI.Pack(query.Method, args...)
	if err != nil {
		return err
	}

	result, err := caller.CallContract(ctx, ethereum.CallMsg{
		To:   &query.Target,
		Data: data,
	}, nil)
	if err != nil {
		return err
	}

	return query.ABI.UnpackIntoInterface(out, query.Method, result)
}
