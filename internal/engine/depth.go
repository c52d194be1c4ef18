package engine

import (
	orderbookModel "github.com/Yusufzhafir/tradeview/internal/engine/model"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

const btreeDegree = 32

// book groups a snapshot of entries into price levels. Bids iterate from
// the highest price, asks from the lowest.
type book struct {
	bids, asks *btree.BTree
}

func newBook(entries []model.OrderBookEntry) *book {
	b := &book{
		bids: btree.New(btreeDegree),
		asks: btree.New(btreeDegree),
	}
	for _, entry := range entries {
		switch entry.Side {
		case model.BUY:
			key := &orderbookModel.BidPriceLevel{Price: entry.Price}
			if item := b.bids.Get(key); item != nil {
				item.(*orderbookModel.BidPriceLevel).Add(entry.Quantity)
				continue
			}
			key.TotalVolume = entry.Quantity
			key.EntryCount = 1
			b.bids.ReplaceOrInsert(key)
		case model.SELL:
			key := &orderbookModel.AskPriceLevel{Price: entry.Price}
			if item := b.asks.Get(key); item != nil {
				item.(*orderbookModel.AskPriceLevel).Add(entry.Quantity)
				continue
			}
			key.TotalVolume = entry.Quantity
			key.EntryCount = 1
			b.asks.ReplaceOrInsert(key)
		}
	}
	return b
}

func (b *book) depth(levels int) []model.DepthPoint {
	points := btree.New(btreeDegree)

	// bids: running sum from the best (highest) bid downwards
	running := decimal.Zero
	count := 0
	b.bids.Ascend(func(item btree.Item) bool {
		if levels > 0 && count >= levels {
			return false
		}
		level := item.(*orderbookModel.BidPriceLevel)
		running = running.Add(level.TotalVolume)
		points.ReplaceOrInsert(&orderbookModel.DepthLevel{
			Price:     level.Price,
			BidVolume: running,
			AskVolume: decimal.Zero,
		})
		count++
		return true
	})

	// asks: running sum from the best (lowest) ask upwards
	running = decimal.Zero
	count = 0
	b.asks.Ascend(func(item btree.Item) bool {
		if levels > 0 && count >= levels {
			return false
		}
		level := item.(*orderbookModel.AskPriceLevel)
		running = running.Add(level.TotalVolume)
		key := &orderbookModel.DepthLevel{Price: level.Price}
		if existing := points.Get(key); existing != nil {
			existing.(*orderbookModel.DepthLevel).AskVolume = running
		} else {
			key.BidVolume = decimal.Zero
			key.AskVolume = running
			points.ReplaceOrInsert(key)
		}
		count++
		return true
	})

	out := make([]model.DepthPoint, 0, points.Len())
	points.Ascend(func(item btree.Item) bool {
		level := item.(*orderbookModel.DepthLevel)
		out = append(out, model.DepthPoint{
			Price:               level.Price,
			CumulativeBidVolume: level.BidVolume,
			CumulativeAskVolume: level.AskVolume,
		})
		return true
	})
	return out
}

func (b *book) topOfBook() model.TopOfBook {
	tob := model.TopOfBook{Spread: decimal.Zero}

	if b.bids.Len() > 0 {
		best := b.bids.Min().(*orderbookModel.BidPriceLevel)
		tob.BestBid = &model.MarketDepthLevel{
			Price:      best.Price,
			Volume:     best.TotalVolume,
			OrderCount: best.EntryCount,
		}
	}

	if b.asks.Len() > 0 {
		best := b.asks.Min().(*orderbookModel.AskPriceLevel)
		tob.BestAsk = &model.MarketDepthLevel{
			Price:      best.Price,
			Volume:     best.TotalVolume,
			OrderCount: best.EntryCount,
		}
	}

	if tob.BestBid != nil && tob.BestAsk != nil {
		tob.Spread = tob.BestAsk.Price.Sub(tob.BestBid.Price)
	}
	return tob
}

// Aggregate turns a flat order-book snapshot into a cumulative depth curve
// sorted ascending by price, one point per distinct price. Bid volume
// accumulates from the highest bid down, ask volume from the lowest ask up.
// A price quoted on both sides keeps both cumulative values.
func Aggregate(entries []model.OrderBookEntry) []model.DepthPoint {
	return newBook(entries).depth(0)
}

// AggregateLevels is Aggregate restricted to the best `levels` prices of
// each side. levels <= 0 means no limit.
func AggregateLevels(entries []model.OrderBookEntry, levels int) []model.DepthPoint {
	return newBook(entries).depth(levels)
}

// TopOfBook returns best bid and ask
func TopOfBook(entries []model.OrderBookEntry) model.TopOfBook {
	return newBook(entries).topOfBook()
}

func IsCrossed(entries []model.OrderBookEntry) bool {
	return TopOfBook(entries).IsCrossed()
}

// Summarize computes the curve and the top of book from a single grouping pass.
func Summarize(entries []model.OrderBookEntry, levels int) ([]model.DepthPoint, model.TopOfBook) {
	b := newBook(entries)
	return b.depth(levels), b.topOfBook()
}
