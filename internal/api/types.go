package api

// Public endpoints used by this client.
const (
	PathTicker = "/contract/ticker"
)

// TickerResponse from GET /contract/ticker?symbol=
type TickerResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Data    Ticker `json:"data"`
}

// Ticker is the market snapshot for one contract.
type Ticker struct {
	ContractID int64   `json:"contractId"`
	Symbol     string  `json:"symbol"`
	LastPrice  float64 `json:"lastPrice"`
	Bid1       float64 `json:"bid1"`
	Ask1       float64 `json:"ask1"`

	// Rolling 24h
	Volume24     float64 `json:"volume24"`
	Amount24     float64 `json:"amount24"`
	Lower24Price float64 `json:"lower24Price"`
	High24Price  float64 `json:"high24Price"`
	RiseFallRate float64 `json:"riseFallRate"`

	HoldVol     float64 `json:"holdVol"` // Open interest
	IndexPrice  float64 `json:"indexPrice"`
	FairPrice   float64 `json:"fairPrice"`
	FundingRate float64 `json:"fundingRate"`
	MaxBidPrice float64 `json:"maxBidPrice"`
	MinAskPrice float64 `json:"minAskPrice"`

	Timestamp int64 `json:"timestamp"` // Unix milliseconds
}
