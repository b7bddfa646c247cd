package rest

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edgex-exchange/edgex-sdk-go/pkg/signing"
)

// L2 order lifetime constants, milliseconds.
const (
	l2OrderLifetime  = 60 * 24 * time.Hour
	expireTimeMargin = 864000000 // order expiry runs 10 days ahead of L2 expiry
)

// createOrderRequest is the wire form of a createOrder call.
type createOrderRequest struct {
	AccountID     string `json:"accountId"`
	ContractID    string `json:"contractId"`
	Price         string `json:"price"`
	Size          string `json:"size"`
	Type          string `json:"type"`
	TimeInForce   string `json:"timeInForce"`
	Side          string `json:"side"`
	L2Signature   string `json:"l2Signature"`
	L2Nonce       string `json:"l2Nonce"`
	L2ExpireTime  string `json:"l2ExpireTime"`
	L2Value       string `json:"l2Value"`
	L2Size        string `json:"l2Size"`
	L2LimitFee    string `json:"l2LimitFee"`
	ClientOrderID string `json:"clientOrderId"`
	ExpireTime    string `json:"expireTime"`
	ReduceOnly    bool   `json:"reduceOnly"`
}

// CreateOrder creates an order. The L2 commitment fields are derived from
// the contract metadata and signed with the client's signing key.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams, meta *Metadata) (*Order, error) {
	if params.TimeInForce == "" {
		switch params.Type {
		case OrderTypeMarket:
			params.TimeInForce = TimeInForceImmediateOrCancel
		case OrderTypeLimit:
			params.TimeInForce = TimeInForceGoodTilCancel
		}
	}

	contract, err := findContract(meta, params.ContractID)
	if err != nil {
		return nil, err
	}
	collateral := meta.Global.StarkExCollateralCoin

	size, err := decimal.NewFromString(params.Size)
	if err != nil {
		return nil, fmt.Errorf("parse size %q: %w", params.Size, err)
	}
	price, err := decimal.NewFromString(params.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", params.Price, err)
	}

	resolution, err := parseHexResolution(contract.StarkExResolution)
	if err != nil {
		return nil, err
	}
	feeRate, err := decimal.NewFromString(contract.DefaultTakerFeeRate)
	if err != nil {
		return nil, fmt.Errorf("parse fee rate %q: %w", contract.DefaultTakerFeeRate, err)
	}

	clientOrderID := params.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	value := price.Mul(size)
	amountSynthetic := size.Mul(resolution).IntPart()
	amountCollateral := value.Shift(6).IntPart()
	amountFee := value.Mul(feeRate).Ceil()
	amountFeeShifted := amountFee.Shift(6).IntPart()

	nonce := calcNonce(clientOrderID)
	l2ExpireTime := time.Now().UnixMilli() + l2OrderLifetime.Milliseconds()
	expireTimeUnix := l2ExpireTime / (60 * 60 * 1000)

	sig, err := c.signOrderCommitment(orderCommitment{
		SyntheticAssetID:  contract.StarkExSyntheticAssetID,
		CollateralAssetID: collateral.StarkExAssetID,
		IsBuy:             params.Side == OrderSideBuy,
		AmountSynthetic:   amountSynthetic,
		AmountCollateral:  amountCollateral,
		AmountFee:         amountFeeShifted,
		Nonce:             nonce,
		AccountID:         c.accountID,
		ExpireTimeUnix:    expireTimeUnix,
	})
	if err != nil {
		return nil, err
	}

	priceStr := params.Price
	if params.Type != OrderTypeLimit {
		priceStr = "0"
	}

	req := createOrderRequest{
		AccountID:     strconv.FormatInt(c.accountID, 10),
		ContractID:    params.ContractID,
		Price:         priceStr,
		Size:          params.Size,
		Type:          params.Type,
		TimeInForce:   params.TimeInForce,
		Side:          params.Side,
		L2Signature:   sig.String(),
		L2Nonce:       strconv.FormatUint(uint64(nonce), 10),
		L2ExpireTime:  strconv.FormatInt(l2ExpireTime, 10),
		L2Value:       value.String(),
		L2Size:        params.Size,
		L2LimitFee:    amountFee.String(),
		ClientOrderID: clientOrderID,
		ExpireTime:    strconv.FormatInt(l2ExpireTime-expireTimeMargin, 10),
		ReduceOnly:    params.ReduceOnly,
	}

	var order Order
	if err := c.post(ctx, "/api/v1/private/order/createOrder", req, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

// CreateLimitOrder creates a limit order, fetching metadata on the way.
func (c *Client) CreateLimitOrder(ctx context.Context, contractID, size, price, side string, postOnly bool) (*Order, error) {
	meta, err := c.GetMetadata(ctx)
	if err != nil {
		return nil, err
	}

	tif := TimeInForceGoodTilCancel
	if postOnly {
		tif = TimeInForcePostOnly
	}

	return c.CreateOrder(ctx, CreateOrderParams{
		ContractID:  contractID,
		Size:        size,
		Price:       price,
		Side:        side,
		Type:        OrderTypeLimit,
		TimeInForce: tif,
	}, meta)
}

// CreateMarketOrder creates a market order. Buy orders cross the book with
// oracle price times ten rounded to tick precision; sell orders use the
// tick size.
func (c *Client) CreateMarketOrder(ctx context.Context, contractID, size, side string) (*Order, error) {
	meta, err := c.GetMetadata(ctx)
	if err != nil {
		return nil, err
	}
	contract, err := findContract(meta, contractID)
	if err != nil {
		return nil, err
	}

	var price string
	if side == OrderSideBuy {
		tickers, err := c.Get24HourQuote(ctx, contractID)
		if err != nil {
			return nil, err
		}
		if len(tickers) == 0 {
			return nil, fmt.Errorf("no 24-hour quote for contract %s", contractID)
		}
		price, err = marketBuyPrice(tickers[0].OraclePrice, contract.TickSize)
		if err != nil {
			return nil, err
		}
	} else {
		price = contract.TickSize
	}

	return c.CreateOrder(ctx, CreateOrderParams{
		ContractID: contractID,
		Size:       size,
		Price:      price,
		Side:       side,
		Type:       OrderTypeMarket,
	}, meta)
}

// CancelOrder cancels orders by order ID, client order ID, or contract.
func (c *Client) CancelOrder(ctx context.Context, params CancelOrderParams) error {
	accountID := strconv.FormatInt(c.accountID, 10)

	var path string
	var req any
	switch {
	case params.OrderID != "":
		path = "/api/v1/private/order/cancelOrderById"
		req = map[string]any{"accountId": accountID, "orderIdList": []string{params.OrderID}}
	case params.ClientOrderID != "":
		path = "/api/v1/private/order/cancelOrderByClientOrderId"
		req = map[string]any{"accountId": accountID, "clientOrderIdList": []string{params.ClientOrderID}}
	case params.ContractID != "":
		path = "/api/v1/private/order/cancelAllOrder"
		req = map[string]any{"accountId": accountID, "filterContractIdList": []string{params.ContractID}}
	default:
		return fmt.Errorf("must provide one of order ID, client order ID, or contract ID")
	}

	if err := c.post(ctx, path, req, nil); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	return nil
}

// GetActiveOrders fetches active orders with pagination and filters.
func (c *Client) GetActiveOrders(ctx context.Context, params GetActiveOrderParams) (*OrderPage, error) {
	query := url.Values{}
	query.Set("accountId", strconv.FormatInt(c.accountID, 10))

	if params.Size != "" {
		query.Set("size", params.Size)
	}
	if params.OffsetData != "" {
		query.Set("offsetData", params.OffsetData)
	}
	if len(params.FilterContractIDList) > 0 {
		query.Set("filterContractIdList", strings.Join(params.FilterContractIDList, ","))
	}
	if len(params.FilterTypeList) > 0 {
		query.Set("filterTypeList", strings.Join(params.FilterTypeList, ","))
	}
	if len(params.FilterStatusList) > 0 {
		query.Set("filterStatusList", strings.Join(params.FilterStatusList, ","))
	}

	var page OrderPage
	if err := c.get(ctx, "/api/v1/private/order/getActiveOrderPage", query, &page); err != nil {
		return nil, fmt.Errorf("get active orders: %w", err)
	}
	return &page, nil
}

// GetOrderFillTransactions fetches order fills with pagination and filters.
func (c *Client) GetOrderFillTransactions(ctx context.Context, params OrderFillTransactionParams) (*OrderPage, error) {
	query := url.Values{}
	query.Set("accountId", strconv.FormatInt(c.accountID, 10))

	if params.Size != "" {
		query.Set("size", params.Size)
	}
	if params.OffsetData != "" {
		query.Set("offsetData", params.OffsetData)
	}
	if len(params.FilterContractIDList) > 0 {
		query.Set("filterContractIdList", strings.Join(params.FilterContractIDList, ","))
	}
	if len(params.FilterOrderIDList) > 0 {
		query.Set("filterOrderIdList", strings.Join(params.FilterOrderIDList, ","))
	}

	var page OrderPage
	if err := c.get(ctx, "/api/v1/private/order/getHistoryOrderFillTransactionPage", query, &page); err != nil {
		return nil, fmt.Errorf("get order fill transactions: %w", err)
	}
	return &page, nil
}

// GetMaxOrderSize fetches the maximum creatable order size for a contract
// at a price.
func (c *Client) GetMaxOrderSize(ctx context.Context, contractID, price string) (*MaxOrderSize, error) {
	req := map[string]any{
		"accountId":  strconv.FormatInt(c.accountID, 10),
		"contractId": contractID,
		"price":      price,
	}

	var size MaxOrderSize
	if err := c.post(ctx, "/api/v1/private/order/getMaxCreateOrderSize", req, &size); err != nil {
		return nil, fmt.Errorf("get max order size: %w", err)
	}
	return &size, nil
}

// orderCommitment collects the L2 fields committed to by the order
// signature.
type orderCommitment struct {
	SyntheticAssetID  string
	CollateralAssetID string
	IsBuy             bool
	AmountSynthetic   int64
	AmountCollateral  int64
	AmountFee         int64
	Nonce             uint32
	AccountID         int64
	ExpireTimeUnix    int64
}

// signOrderCommitment hashes the commitment fields in a fixed order and
// signs the digest with the client's signing capability.
func (c *Client) signOrderCommitment(oc orderCommitment) (signing.Signature, error) {
	side := "SELL"
	if oc.IsBuy {
		side = "BUY"
	}
	content := strings.Join([]string{
		oc.SyntheticAssetID,
		oc.CollateralAssetID,
		side,
		strconv.FormatInt(oc.AmountSynthetic, 10),
		strconv.FormatInt(oc.AmountCollateral, 10),
		strconv.FormatInt(oc.AmountFee, 10),
		strconv.FormatUint(uint64(oc.Nonce), 10),
		strconv.FormatInt(oc.AccountID, 10),
		strconv.FormatInt(oc.ExpireTimeUnix, 10),
	}, ":")

	sig, err := c.signer.Sign(signing.Hash(content), c.key)
	if err != nil {
		return signing.Signature{}, fmt.Errorf("sign order commitment: %w", err)
	}
	return sig, nil
}

// calcNonce derives the L2 nonce from the client order ID.
func calcNonce(clientOrderID string) uint32 {
	h := signing.Hash(clientOrderID)
	return binary.BigEndian.Uint32(h[:4])
}

// parseHexResolution converts the contract's hex StarkEx resolution to a
// decimal multiplier.
func parseHexResolution(hexResolution string) (decimal.Decimal, error) {
	cleaned := strings.TrimPrefix(hexResolution, "0x")
	n, err := strconv.ParseUint(cleaned, 16, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse hex resolution %q: %w", hexResolution, err)
	}
	return decimal.NewFromUint64(n), nil
}

// marketBuyPrice derives the crossing price for a market buy: oracle price
// times ten, rounded to the contract's tick precision.
func marketBuyPrice(oraclePrice, tickSize string) (string, error) {
	oracle, err := decimal.NewFromString(oraclePrice)
	if err != nil {
		return "", fmt.Errorf("parse oracle price %q: %w", oraclePrice, err)
	}
	tick, err := decimal.NewFromString(tickSize)
	if err != nil {
		return "", fmt.Errorf("parse tick size %q: %w", tickSize, err)
	}

	precision := -tick.Exponent()
	if precision < 0 {
		precision = 0
	}
	return oracle.Mul(decimal.NewFromInt(10)).Round(precision).String(), nil
}
