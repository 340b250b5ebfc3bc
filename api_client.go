package opensea

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	orderbookPath = "/wyvern/v0"
	apiPath       = "/api/v1"

	defaultOrdersLimit = 20
)

// APIClient handles HTTP requests to the OpenSea orderbook API
type APIClient struct {
	client *resty.Client
	logger logrus.FieldLogger
}

// OrderQuery filters orders returned by GetOrders. Zero values are omitted.
type OrderQuery struct {
	Maker                string
	Owner                string
	Side                 *OrderSide
	SaleKind             *SaleKind
	AssetContractAddress string
	PaymentTokenAddress  string
	TokenID              string
	TokenIDs             []string
	Limit                int
	Offset               int
}

// NewAPIClient creates a new API client
func NewAPIClient(host, apiKey string, timeout time.Duration, logger logrus.FieldLogger) *APIClient {
	host = strings.TrimSuffix(host, "/")
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	client := resty.New().
		SetBaseURL(host).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil || resp == nil {
				return false
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
		})
	if apiKey != "" {
		client.SetHeader("X-API-KEY", apiKey)
	}

	return &APIClient{
		client: client,
		logger: logger.WithField("module", "api"),
	}
}

type ordersResponse struct {
	Count  int             `json:"count"`
	Orders []*OrderAPIJSON `json:"orders"`
}

// GetOrders returns the orders matching query and the total count the
// orderbook reports for it.
func (c *APIClient) GetOrders(ctx context.Context, query OrderQuery) ([]*Order, int, error) {
	var out ordersResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query.values()).
		SetResult(&out).
		Get(orderbookPath + "/orders")
	if err := checkResponse(resp, err, "get orders"); err != nil {
		return nil, 0, err
	}

	orders := make([]*Order, 0, len(out.Orders))
	for _, raw := range out.Orders {
		order, err := OrderFromJSON(raw)
		if err != nil {
			c.logger.WithError(err).WithField("hash", raw.OrderHash).Warn("skipping malformed order")
			continue
		}
		orders = append(orders, order)
	}

	c.logger.WithFields(logrus.Fields{"count": out.Count, "returned": len(orders)}).Debug("fetched orders")
	return orders, out.Count, nil
}

// PostOrder submits a signed order and returns the order as stored by the
// orderbook.
func (c *APIClient) PostOrder(ctx context.Context, order *OrderJSON) (*Order, error) {
	var out OrderAPIJSON
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(order).
		SetResult(&out).
		Post(orderbookPath + "/orders/post/")
	if err := checkResponse(resp, err, "post order"); err != nil {
		return nil, err
	}

	return OrderFromJSON(&out)
}

// GetAsset fetches a single asset with its open orders
func (c *APIClient) GetAsset(ctx context.Context, tokenAddress, tokenID string) (*OpenSeaAsset, error) {
	var out AssetJSON
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"address": strings.ToLower(tokenAddress),
			"tokenID": tokenID,
		}).
		SetResult(&out).
		Get(apiPath + "/asset/{address}/{tokenID}/")
	if err := checkResponse(resp, err, "get asset"); err != nil {
		return nil, err
	}

	return AssetFromJSON(&out)
}

func checkResponse(resp *resty.Response, err error, op string) error {
	if err != nil {
		return errors.Wrap(err, op)
	}
	if resp.IsSuccess() {
		return nil
	}

	body := strings.TrimSpace(resp.String())
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		body = resp.Status()
	}
	return errors.WithMessage(&OpenAPIError{StatusCode: resp.StatusCode(), Message: body}, op)
}

func (q OrderQuery) values() url.Values {
	v := url.Values{}
	if q.Maker != "" {
		v.Set("maker", strings.ToLower(q.Maker))
	}
	if q.Owner != "" {
		v.Set("owner", strings.ToLower(q.Owner))
	}
	if q.Side != nil {
		v.Set("side", strconv.Itoa(int(*q.Side)))
	}
	if q.SaleKind != nil {
		v.Set("sale_kind", strconv.Itoa(int(*q.SaleKind)))
	}
	if q.AssetContractAddress != "" {
		v.Set("asset_contract_address", strings.ToLower(q.AssetContractAddress))
	}
	if q.PaymentTokenAddress != "" {
		v.Set("payment_token_address", strings.ToLower(q.PaymentTokenAddress))
	}
	if q.TokenID != "" {
		v.Set("token_id", q.TokenID)
	}
	for _, id := range q.TokenIDs {
		v.Add("token_ids", id)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultOrdersLimit
	}
	v.Set("limit", strconv.Itoa(limit))
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}
