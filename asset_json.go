package opensea

import (
	"github.com/sirupsen/logrus"
)

// AssetContractJSON is the asset_contract object of an asset response
type AssetContractJSON struct {
	Name                 string   `json:"name"`
	Address              string   `json:"address"`
	BuyerFeeBasisPoints  *wireInt `json:"buyer_fee_basis_points"`
	SellerFeeBasisPoints *wireInt `json:"seller_fee_basis_points"`
}

// AssetJSON is the API's nested snake_case asset schema
type AssetJSON struct {
	TokenID       string             `json:"token_id"`
	Name          string             `json:"name"`
	Owner         *AccountJSON       `json:"owner"`
	AssetContract *AssetContractJSON `json:"asset_contract"`
	Orders        []*OrderAPIJSON    `json:"orders"`
}

// AssetFromJSON converts an API asset and the orders attached to it.
// Malformed orders are logged and skipped.
func AssetFromJSON(src *AssetJSON) (*OpenSeaAsset, error) {
	if src == nil {
		return nil, &InvalidParamError{Message: "asset is required"}
	}

	check := &fieldCheck{}
	if src.TokenID == "" {
		check.missing = append(check.missing, "token_id")
	}
	if src.AssetContract == nil {
		check.missing = append(check.missing, "asset_contract")
	}
	if err := check.err(); err != nil {
		return nil, err
	}

	asset := &OpenSeaAsset{
		TokenID: src.TokenID,
		Name:    src.Name,
		AssetContract: AssetContract{
			Name:                 src.AssetContract.Name,
			Address:              check.address("asset_contract.address", src.AssetContract.Address),
			BuyerFeeBasisPoints:  intOrZero(src.AssetContract.BuyerFeeBasisPoints),
			SellerFeeBasisPoints: intOrZero(src.AssetContract.SellerFeeBasisPoints),
		},
	}
	if src.Owner != nil {
		asset.Owner = accountFromJSON(src.Owner)
	}
	if err := check.err(); err != nil {
		return nil, err
	}

	for i, raw := range src.Orders {
		order, err := OrderFromJSON(raw)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"asset": asset.AssetContract.Address + "/" + asset.TokenID,
				"index": i,
			}).Warn("skipping malformed order")
			continue
		}
		asset.Orders = append(asset.Orders, order)
	}

	return asset, nil
}

func accountFromJSON(src *AccountJSON) Account {
	account := Account{
		Address:       src.Address,
		ProfileImgURL: src.ProfileImgURL,
	}
	if src.User != nil {
		account.Username = src.User.Username
	}
	return account
}

func intOrZero(w *wireInt) int {
	if w == nil {
		return 0
	}
	return int(*w)
}
