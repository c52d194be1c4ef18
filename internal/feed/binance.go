package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yusufzhafir/tradeview/internal/metrics"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/adshao/go-binance/v2"
	"github.com/sirupsen/logrus"
)

const defaultBinanceLimit = 100

type BinanceSourceOpts struct {
	// BaseURL overrides the public spot endpoint, mostly for tests.
	BaseURL string
	Limit   int
	Logger  *logrus.Logger
}

// BinanceSource reads the public spot depth endpoint. No keys are needed.
type BinanceSource struct {
	client *binance.Client
	limit  int
	logger *logrus.Logger
}

func NewBinanceSource(opts BinanceSourceOpts) *BinanceSource {
	client := binance.NewClient("", "")
	if opts.BaseURL != "" {
		client.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultBinanceLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BinanceSource{client: client, limit: limit, logger: logger}
}

func (s *BinanceSource) Name() string { return "binance" }

func (s *BinanceSource) Fetch(ctx context.Context, symbol string) ([]model.OrderBookEntry, error) {
	res, err := s.client.NewDepthService().Symbol(strings.ToUpper(symbol)).Limit(s.limit).Do(ctx)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues(s.Name(), "error").Inc()
		return nil, fmt.Errorf("binance depth for %s: %w", symbol, err)
	}
	metrics.FeedFetchesTotal.WithLabelValues(s.Name(), "ok").Inc()

	raw := make([]RawEntry, 0, len(res.Bids)+len(res.Asks))
	for _, bid := range res.Bids {
		raw = append(raw, RawEntry{Side: "buy", Price: NumericText(bid.Price), Quantity: NumericText(bid.Quantity)})
	}
	for _, ask := range res.Asks {
		raw = append(raw, RawEntry{Side: "sell", Price: NumericText(ask.Price), Quantity: NumericText(ask.Quantity)})
	}
	return Validate(symbol, raw, s.logger), nil
}
