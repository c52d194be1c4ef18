package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Yusufzhafir/tradeview/internal/engine"
	"github.com/Yusufzhafir/tradeview/internal/metrics"
	tickerRepository "github.com/Yusufzhafir/tradeview/internal/repository/ticker"
	depthUseCase "github.com/Yusufzhafir/tradeview/internal/usecase/depth"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/sirupsen/logrus"
)

var ErrUnknownTicker = errors.New("unknown ticker")

type OrderUseCase interface {
	QuoteTotal(ctx context.Context, ticker string, side model.Side, input model.OrderInput) (model.OrderTotal, error)
	// NewForm returns an order form bound to ticker whose market price
	// follows the latest snapshot.
	NewForm(ctx context.Context, ticker string, side model.Side) (*Form, error)
}

type orderUseCaseImpl struct {
	tickerRepo   tickerRepository.TickerReader
	depthUseCase depthUseCase.DepthUseCase
	logger       *logrus.Logger
}

type OrderUseCaseOpts struct {
	TickerRepo   tickerRepository.TickerReader
	DepthUseCase depthUseCase.DepthUseCase
	Logger       *logrus.Logger
}

func NewOrderUseCase(opts OrderUseCaseOpts) OrderUseCase {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &orderUseCaseImpl{
		tickerRepo:   opts.TickerRepo,
		depthUseCase: opts.DepthUseCase,
		logger:       logger,
	}
}

func (ou *orderUseCaseImpl) lookup(ctx context.Context, ticker string) (*tickerRepository.Ticker, error) {
	t, err := ou.tickerRepo.GetBySymbol(ctx, ticker)
	if errors.Is(err, tickerRepository.ErrTickerNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up ticker %s: %w", ticker, err)
	}
	if !t.IsActive {
		return nil, fmt.Errorf("%w: %s is inactive", ErrUnknownTicker, ticker)
	}
	return t, nil
}

// QuoteTotal computes the total shown for an order on ticker. An empty
// market price is taken from the last snapshot; if there is none the
// total degrades to zero.
func (ou *orderUseCaseImpl) QuoteTotal(ctx context.Context, ticker string, side model.Side, input model.OrderInput) (model.OrderTotal, error) {
	t, err := ou.lookup(ctx, ticker)
	if err != nil {
		return model.OrderTotal{}, err
	}

	input.Leverage = capLeverage(input.Leverage, t.MaxLeverage)
	if input.OrderType == model.ORDER_MARKET && input.Price == "" && ou.depthUseCase != nil {
		if price, ok := ou.depthUseCase.ReferencePrice(ctx, t.Symbol, side); ok {
			input.Price = price.String()
		} else {
			ou.logger.WithFields(logrus.Fields{
				"ticker": t.Symbol,
				"side":   side.String(),
			}).Debug("no reference price for market order")
		}
	}

	total := engine.CalculateTotal(input)
	metrics.OrderTotalQuotesTotal.WithLabelValues(input.OrderType.String()).Inc()
	return total, nil
}

func (ou *orderUseCaseImpl) NewForm(ctx context.Context, ticker string, side model.Side) (*Form, error) {
	t, err := ou.lookup(ctx, ticker)
	if err != nil {
		return nil, err
	}
	f := NewForm(side)
	f.maxLeverage = t.MaxLeverage
	if ou.depthUseCase != nil {
		symbol := t.Symbol
		du := ou.depthUseCase
		f.referencePrice = func(side model.Side) (string, bool) {
			price, ok := du.ReferencePrice(context.Background(), symbol, side)
			if !ok {
				return "", false
			}
			return price.String(), true
		}
	}
	return f, nil
}

// capLeverage clamps to [MIN_LEVERAGE, MAX_LEVERAGE] and then to the
// ticker's own limit when it has one.
func capLeverage(leverage, tickerMax int) int {
	leverage = engine.ClampLeverage(leverage)
	if tickerMax >= model.MIN_LEVERAGE && leverage > tickerMax {
		return tickerMax
	}
	return leverage
}
