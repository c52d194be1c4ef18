package order

import (
	"context"
	"errors"
	"testing"

	tickerRepository "github.com/Yusufzhafir/tradeview/internal/repository/ticker"
	depthUseCase "github.com/Yusufzhafir/tradeview/internal/usecase/depth"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookSource struct {
	entries []model.OrderBookEntry
}

func (s *bookSource) Name() string { return "book" }

func (s *bookSource) Fetch(ctx context.Context, symbol string) ([]model.OrderBookEntry, error) {
	return s.entries, nil
}

type brokenRegistry struct{}

func (brokenRegistry) GetBySymbol(ctx context.Context, symbol string) (*tickerRepository.Ticker, error) {
	return nil, errors.New("connection refused")
}

func (brokenRegistry) ListActive(ctx context.Context) ([]tickerRepository.Ticker, error) {
	return nil, errors.New("connection refused")
}

func level(side model.Side, price, quantity string) model.OrderBookEntry {
	return model.OrderBookEntry{
		Side:     side,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(quantity),
	}
}

func newFixture(t *testing.T, maxLeverage int) (OrderUseCase, depthUseCase.DepthUseCase) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	depth := depthUseCase.NewDepthUseCase(depthUseCase.DepthUseCaseOpts{
		Source: &bookSource{entries: []model.OrderBookEntry{
			level(model.BUY, "99", "1"),
			level(model.SELL, "101", "1"),
		}},
		Logger: logger,
	})
	uc := NewOrderUseCase(OrderUseCaseOpts{
		TickerRepo:   tickerRepository.NewStaticTickerRepository([]string{"BTCUSD"}, "rest", maxLeverage),
		DepthUseCase: depth,
		Logger:       logger,
	})
	return uc, depth
}

func TestOrderUseCase_QuoteTotal(t *testing.T) {
	uc, _ := newFixture(t, 10)
	ctx := context.Background()

	cases := []struct {
		name  string
		input model.OrderInput
		want  string
	}{
		{"limit", model.OrderInput{Price: "100", Quantity: "2", Leverage: 1, OrderType: model.ORDER_LIMIT}, "200.00"},
		{"limit leveraged", model.OrderInput{Price: "100", Quantity: "2", Leverage: 4, OrderType: model.ORDER_LIMIT}, "50.00"},
		{"market ignores leverage", model.OrderInput{Price: "100", Quantity: "2", Leverage: 4, OrderType: model.ORDER_MARKET}, "200.00"},
		{"empty quantity", model.OrderInput{Price: "100", Leverage: 1, OrderType: model.ORDER_LIMIT}, "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := uc.QuoteTotal(ctx, "btcusd", model.BUY, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.DisplayTotal)
		})
	}
}

func TestOrderUseCase_QuoteTotalUnknownTicker(t *testing.T) {
	uc, _ := newFixture(t, 10)
	_, err := uc.QuoteTotal(context.Background(), "DOGEUSD", model.BUY, model.OrderInput{Price: "1", Quantity: "1"})
	assert.ErrorIs(t, err, ErrUnknownTicker)
}

func TestOrderUseCase_QuoteTotalRegistryFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	uc := NewOrderUseCase(OrderUseCaseOpts{TickerRepo: brokenRegistry{}, Logger: logger})
	_, err := uc.QuoteTotal(context.Background(), "BTCUSD", model.BUY, model.OrderInput{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownTicker)
}

func TestOrderUseCase_QuoteTotalCapsTickerLeverage(t *testing.T) {
	uc, _ := newFixture(t, 2)
	got, err := uc.QuoteTotal(context.Background(), "BTCUSD", model.BUY,
		model.OrderInput{Price: "100", Quantity: "2", Leverage: 8, OrderType: model.ORDER_LIMIT})
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.DisplayTotal)
}

func TestOrderUseCase_QuoteTotalMarketReferencePrice(t *testing.T) {
	uc, depth := newFixture(t, 10)
	ctx := context.Background()
	market := model.OrderInput{Quantity: "2", Leverage: 1, OrderType: model.ORDER_MARKET}

	got, err := uc.QuoteTotal(ctx, "BTCUSD", model.BUY, market)
	require.NoError(t, err)
	assert.Equal(t, "0.00", got.DisplayTotal)

	_, err = depth.Refresh(ctx, "BTCUSD")
	require.NoError(t, err)

	got, err = uc.QuoteTotal(ctx, "BTCUSD", model.BUY, market)
	require.NoError(t, err)
	assert.Equal(t, "202.00", got.DisplayTotal)

	got, err = uc.QuoteTotal(ctx, "BTCUSD", model.SELL, market)
	require.NoError(t, err)
	assert.Equal(t, "198.00", got.DisplayTotal)
}

func TestOrderUseCase_NewForm(t *testing.T) {
	uc, depth := newFixture(t, 3)
	ctx := context.Background()

	_, err := uc.NewForm(ctx, "DOGEUSD", model.BUY)
	assert.ErrorIs(t, err, ErrUnknownTicker)

	form, err := uc.NewForm(ctx, "BTCUSD", model.BUY)
	require.NoError(t, err)

	form.SetPrice("100")
	form.SetQuantity("3")
	got := form.SetLeverage(10)
	assert.Equal(t, "100.00", got.DisplayTotal)

	_, err = depth.Refresh(ctx, "BTCUSD")
	require.NoError(t, err)
	form.SetPrice("")
	got = form.SetOrderType(model.ORDER_MARKET)
	assert.Equal(t, "303.00", got.DisplayTotal)

	got = form.SetSide(model.SELL)
	assert.Equal(t, "297.00", got.DisplayTotal)
}
