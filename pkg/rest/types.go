package rest

import "encoding/json"

// Order sides.
const (
	OrderSideBuy  = "BUY"
	OrderSideSell = "SELL"
)

// Order types.
const (
	OrderTypeLimit  = "LIMIT"
	OrderTypeMarket = "MARKET"
)

// Time-in-force values.
const (
	TimeInForceGoodTilCancel     = "GOOD_TIL_CANCEL"
	TimeInForceImmediateOrCancel = "IMMEDIATE_OR_CANCEL"
	TimeInForcePostOnly          = "POST_ONLY"
)

// Metadata is the exchange metadata.
type Metadata struct {
	Global       GlobalMeta `json:"global"`
	ContractList []Contract `json:"contractList"`
}

// GlobalMeta holds exchange-wide settings.
type GlobalMeta struct {
	AppName               string         `json:"appName"`
	AppEnv                string         `json:"appEnv"`
	StarkExCollateralCoin CollateralCoin `json:"starkExCollateralCoin"`
}

// CollateralCoin describes the collateral asset.
type CollateralCoin struct {
	CoinID         string `json:"coinId"`
	CoinName       string `json:"coinName"`
	StarkExAssetID string `json:"starkExAssetId"`
}

// Contract describes one tradable contract.
type Contract struct {
	ContractID              string `json:"contractId"`
	ContractName            string `json:"contractName"`
	TickSize                string `json:"tickSize"`
	StepSize                string `json:"stepSize"`
	DefaultTakerFeeRate     string `json:"defaultTakerFeeRate"`
	StarkExSyntheticAssetID string `json:"starkExSyntheticAssetId"`
	StarkExResolution       string `json:"starkExResolution"`
}

// ServerTime is the exchange clock reading.
type ServerTime struct {
	TimeMillis int64 `json:"timeMillis,string"`
}

// Ticker is a 24-hour quote for one contract.
type Ticker struct {
	ContractID  string `json:"contractId"`
	LastPrice   string `json:"lastPrice"`
	High        string `json:"high"`
	Low         string `json:"low"`
	Open        string `json:"open"`
	Close       string `json:"close"`
	OraclePrice string `json:"oraclePrice"`
	IndexPrice  string `json:"indexPrice"`
	Volume      string `json:"size"`
	Value       string `json:"value"`
}

// KLine is one candle.
type KLine struct {
	ContractID string `json:"contractId"`
	Interval   string `json:"klineType"`
	Open       string `json:"open"`
	High       string `json:"high"`
	Low        string `json:"low"`
	Close      string `json:"close"`
	Size       string `json:"size"`
	Value      string `json:"value"`
	Time       int64  `json:"klineTime,string"`
}

// KLinePage is a paginated K-line response.
type KLinePage struct {
	DataList           []KLine `json:"dataList"`
	NextPageOffsetData string  `json:"nextPageOffsetData"`
}

// DepthLevel is one price level of the order book.
type DepthLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderBookDepth is an order book snapshot.
type OrderBookDepth struct {
	ContractID   string       `json:"contractId"`
	StartVersion string       `json:"startVersion"`
	EndVersion   string       `json:"endVersion"`
	Asks         []DepthLevel `json:"asks"`
	Bids         []DepthLevel `json:"bids"`
}

// GetKLineParams are parameters for GetKLine.
type GetKLineParams struct {
	ContractID               string
	Interval                 string
	Size                     string
	OffsetData               string
	FilterStartTimeInclusive int64
	FilterEndTimeExclusive   int64
}

// GetMultiContractKLineParams are parameters for GetMultiContractKLine.
type GetMultiContractKLineParams struct {
	ContractIDList []string
	Interval       string
	Limit          int
}

// AccountAsset is the account collateral view.
type AccountAsset struct {
	Account        json.RawMessage `json:"account"`
	CollateralList json.RawMessage `json:"collateralList"`
	PositionList   json.RawMessage `json:"positionList"`
	VersionEntity  json.RawMessage `json:"version"`
}

// Position is one open position.
type Position struct {
	ContractID string `json:"contractId"`
	OpenSize   string `json:"openSize"`
	OpenValue  string `json:"openValue"`
	FundingFee string `json:"fundingFee"`
}

// CreateOrderParams are parameters for CreateOrder.
type CreateOrderParams struct {
	ContractID    string
	Size          string
	Price         string
	Side          string
	Type          string
	TimeInForce   string
	ClientOrderID string
	ReduceOnly    bool
}

// CancelOrderParams select the orders to cancel. Exactly one of OrderID,
// ClientOrderID or ContractID must be set; ContractID cancels all orders
// on that contract.
type CancelOrderParams struct {
	OrderID       string
	ClientOrderID string
	ContractID    string
}

// GetActiveOrderParams are pagination and filter parameters for
// GetActiveOrders.
type GetActiveOrderParams struct {
	Size                 string
	OffsetData           string
	FilterContractIDList []string
	FilterTypeList       []string
	FilterStatusList     []string
}

// OrderFillTransactionParams are pagination and filter parameters for
// GetOrderFillTransactions.
type OrderFillTransactionParams struct {
	Size                 string
	OffsetData           string
	FilterContractIDList []string
	FilterOrderIDList    []string
}

// Order is a created or queried order.
type Order struct {
	OrderID       string `json:"id"`
	ClientOrderID string `json:"clientOrderId"`
	ContractID    string `json:"contractId"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Price         string `json:"price"`
	Size          string `json:"size"`
	Status        string `json:"status"`
	TimeInForce   string `json:"timeInForce"`
}

// OrderPage is a paginated order response.
type OrderPage struct {
	DataList           []Order `json:"dataList"`
	NextPageOffsetData string  `json:"nextPageOffsetData"`
}

// MaxOrderSize is the response of GetMaxOrderSize.
type MaxOrderSize struct {
	MaxBuySize  string `json:"maxBuySize"`
	MaxSellSize string `json:"maxSellSize"`
}
