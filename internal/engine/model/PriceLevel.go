package model

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// AskPriceLevel ascending
type AskPriceLevel struct {
	Price       decimal.Decimal
	TotalVolume decimal.Decimal
	EntryCount  int
}

func (pl *AskPriceLevel) Less(than btree.Item) bool {
	other := than.(*AskPriceLevel)
	return pl.Price.LessThan(other.Price)
}

func (pl *AskPriceLevel) Add(quantity decimal.Decimal) {
	pl.TotalVolume = pl.TotalVolume.Add(quantity)
	pl.EntryCount++
}

// BidPriceLevel descending
type BidPriceLevel struct {
	Price       decimal.Decimal
	TotalVolume decimal.Decimal
	EntryCount  int
}

func (bpl *BidPriceLevel) Less(than btree.Item) bool {
	other := than.(*BidPriceLevel)
	return bpl.Price.GreaterThan(other.Price) // Reverse
}

func (bpl *BidPriceLevel) Add(quantity decimal.Decimal) {
	bpl.TotalVolume = bpl.TotalVolume.Add(quantity)
	bpl.EntryCount++
}

// DepthLevel is a point of the cumulative curve, ascending by price.
type DepthLevel struct {
	Price     decimal.Decimal
	BidVolume decimal.Decimal
	AskVolume decimal.Decimal
}

func (dl *DepthLevel) Less(than btree.Item) bool {
	other := than.(*DepthLevel)
	return dl.Price.LessThan(other.Price)
}
