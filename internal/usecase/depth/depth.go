package depth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Yusufzhafir/tradeview/internal/engine"
	"github.com/Yusufzhafir/tradeview/internal/feed"
	"github.com/Yusufzhafir/tradeview/internal/metrics"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrNoSnapshot = errors.New("no depth snapshot")

type DepthHandler func(model.DepthChart)

type DepthUseCase interface {
	Refresh(ctx context.Context, symbol string) (*model.DepthChart, error)
	GetDepth(ctx context.Context, symbol string) (*model.DepthChart, error)
	Aggregate(ctx context.Context, entries []model.OrderBookEntry, levels int) []model.DepthPoint
	ReferencePrice(ctx context.Context, symbol string, side model.Side) (decimal.Decimal, bool)
	RegisterDepthHandler(handler DepthHandler)
}

type depthUseCaseImpl struct {
	source feed.Source
	levels int
	logger *logrus.Logger
	now    func() time.Time

	mu       sync.RWMutex
	charts   map[string]*model.DepthChart
	handlers []DepthHandler
}

type DepthUseCaseOpts struct {
	Source feed.Source
	// Levels caps the number of price levels per side kept in a chart; 0 keeps all.
	Levels int
	Logger *logrus.Logger
	Now    func() time.Time
}

func NewDepthUseCase(opts DepthUseCaseOpts) DepthUseCase {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &depthUseCaseImpl{
		source: opts.Source,
		levels: opts.Levels,
		logger: logger,
		now:    now,
		charts: make(map[string]*model.DepthChart),
	}
}

func (du *depthUseCaseImpl) RegisterDepthHandler(handler DepthHandler) {
	du.mu.Lock()
	defer du.mu.Unlock()
	du.handlers = append(du.handlers, handler)
}

// Refresh fetches a snapshot, aggregates it, stores it as the symbol's
// latest chart and notifies the registered handlers.
func (du *depthUseCaseImpl) Refresh(ctx context.Context, symbol string) (*model.DepthChart, error) {
	if du.source == nil {
		return nil, fmt.Errorf("refresh %s: no feed source configured", symbol)
	}
	symbol = normalize(symbol)

	entries, err := du.source.Fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", symbol, err)
	}

	start := time.Now()
	points, tob := engine.Summarize(entries, du.levels)
	metrics.DepthAggregationDuration.Observe(time.Since(start).Seconds())
	metrics.DepthAggregationsTotal.WithLabelValues(symbol).Inc()

	chart := &model.DepthChart{
		Symbol:     symbol,
		Points:     points,
		TopOfBook:  tob,
		Crossed:    tob.IsCrossed(),
		EntryCount: len(entries),
		Timestamp:  du.now().UnixMilli(),
	}
	if chart.Crossed {
		metrics.CrossedBooksTotal.WithLabelValues(symbol).Inc()
		du.logger.WithFields(logrus.Fields{
			"symbol":  symbol,
			"bestBid": tob.BestBid.Price.String(),
			"bestAsk": tob.BestAsk.Price.String(),
		}).Warn("crossed order book snapshot")
	}

	du.mu.Lock()
	du.charts[symbol] = chart
	handlers := append([]DepthHandler(nil), du.handlers...)
	du.mu.Unlock()

	for _, h := range handlers {
		h(*chart)
	}
	return chart, nil
}

func (du *depthUseCaseImpl) GetDepth(ctx context.Context, symbol string) (*model.DepthChart, error) {
	du.mu.RLock()
	defer du.mu.RUnlock()
	chart, ok := du.charts[normalize(symbol)]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return chart, nil
}

// Aggregate runs the aggregator on caller supplied entries without storing anything.
func (du *depthUseCaseImpl) Aggregate(ctx context.Context, entries []model.OrderBookEntry, levels int) []model.DepthPoint {
	start := time.Now()
	points := engine.AggregateLevels(entries, levels)
	metrics.DepthAggregationDuration.Observe(time.Since(start).Seconds())
	return points
}

// ReferencePrice is the price a market order on side would fill at first:
// the best ask for a buy, the best bid for a sell.
func (du *depthUseCaseImpl) ReferencePrice(ctx context.Context, symbol string, side model.Side) (decimal.Decimal, bool) {
	chart, err := du.GetDepth(ctx, symbol)
	if err != nil {
		return decimal.Zero, false
	}
	level := chart.TopOfBook.BestAsk
	if side == model.SELL {
		level = chart.TopOfBook.BestBid
	}
	if level == nil {
		return decimal.Zero, false
	}
	return level.Price, true
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
