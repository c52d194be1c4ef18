package main

import (
	"log"

	"github.com/Yusufzhafir/tradeview/internal/engine"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/shopspring/decimal"
)

func entry(side model.Side, price, quantity int64) model.OrderBookEntry {
	return model.OrderBookEntry{
		Side:     side,
		Price:    decimal.NewFromInt(price),
		Quantity: decimal.NewFromInt(quantity),
	}
}

func main() {
	book := []model.OrderBookEntry{
		entry(model.BUY, 100, 5),
		entry(model.BUY, 95, 3),
		entry(model.SELL, 105, 2),
		entry(model.SELL, 110, 4),
	}

	points, tob := engine.Summarize(book, 0)
	for _, p := range points {
		log.Printf("price=%s bid=%s ask=%s", p.Price, p.CumulativeBidVolume, p.CumulativeAskVolume)
	}
	log.Printf("spread=%s crossed=%v", tob.Spread, tob.IsCrossed())

	// a bid at the best ask crosses the book
	book = append(book, entry(model.BUY, 105, 1))
	_, tob = engine.Summarize(book, 0)
	log.Printf("after crossing bid: crossed=%v", tob.IsCrossed())

	for _, ot := range []model.OrderType{model.ORDER_LIMIT, model.ORDER_MARKET} {
		total := engine.CalculateTotal(model.OrderInput{Price: "100", Quantity: "2", Leverage: 4, OrderType: ot})
		log.Printf("%s total=%s", ot, total.DisplayTotal)
	}
}
