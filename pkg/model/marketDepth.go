package model

import "github.com/shopspring/decimal"

type OrderBookEntry struct {
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// DepthPoint is one step of the cumulative depth curve.
type DepthPoint struct {
	Price               decimal.Decimal `json:"price"`
	CumulativeBidVolume decimal.Decimal `json:"cumulativeBidVolume"`
	CumulativeAskVolume decimal.Decimal `json:"cumulativeAskVolume"`
}

type MarketDepthLevel struct {
	Price      decimal.Decimal `json:"price"`
	Volume     decimal.Decimal `json:"volume"`
	OrderCount int             `json:"orderCount"`
}

// TopOfBook represents best bid/ask
type TopOfBook struct {
	BestBid *MarketDepthLevel `json:"bestBid"`
	BestAsk *MarketDepthLevel `json:"bestAsk"`
	Spread  decimal.Decimal   `json:"spread"`
}

// DepthChart is the last aggregated snapshot of a symbol.
type DepthChart struct {
	Symbol     string       `json:"symbol"`
	Points     []DepthPoint `json:"points"` // ascending price
	TopOfBook  TopOfBook    `json:"topOfBook"`
	Crossed    bool         `json:"crossed"`
	EntryCount int          `json:"entryCount"`
	Timestamp  int64        `json:"timestamp"`
}

// IsCrossed reports whether the best bid reaches or passes the best ask.
func (t TopOfBook) IsCrossed() bool {
	if t.BestBid == nil || t.BestAsk == nil {
		return false
	}
	return t.BestBid.Price.GreaterThanOrEqual(t.BestAsk.Price)
}
