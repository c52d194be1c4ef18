package depth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	books map[string][]model.OrderBookEntry
	err   error
	calls []string
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context, symbol string) ([]model.OrderBookEntry, error) {
	f.calls = append(f.calls, symbol)
	if f.err != nil {
		return nil, f.err
	}
	return f.books[symbol], nil
}

func entry(side model.Side, price, quantity string) model.OrderBookEntry {
	return model.OrderBookEntry{
		Side:     side,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(quantity),
	}
}

func sampleBook() []model.OrderBookEntry {
	return []model.OrderBookEntry{
		entry(model.BUY, "100", "5"),
		entry(model.BUY, "95", "3"),
		entry(model.SELL, "105", "2"),
		entry(model.SELL, "110", "4"),
	}
}

func newUseCase(source *fakeSource) DepthUseCase {
	logger, _ := test.NewNullLogger()
	fixed := time.UnixMilli(1_700_000_000_000)
	return NewDepthUseCase(DepthUseCaseOpts{
		Source: source,
		Logger: logger,
		Now:    func() time.Time { return fixed },
	})
}

func TestDepthUseCase_RefreshStoresAndNotifies(t *testing.T) {
	source := &fakeSource{books: map[string][]model.OrderBookEntry{"BTCUSD": sampleBook()}}
	uc := newUseCase(source)
	ctx := context.Background()

	_, err := uc.GetDepth(ctx, "BTCUSD")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	var published []model.DepthChart
	uc.RegisterDepthHandler(func(c model.DepthChart) { published = append(published, c) })

	chart, err := uc.Refresh(ctx, " btcusd ")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSD"}, source.calls)
	assert.Equal(t, "BTCUSD", chart.Symbol)
	assert.Equal(t, 4, chart.EntryCount)
	assert.Len(t, chart.Points, 4)
	assert.False(t, chart.Crossed)
	assert.Equal(t, int64(1_700_000_000_000), chart.Timestamp)
	assert.Equal(t, "5", chart.TopOfBook.Spread.String())

	require.Len(t, published, 1)
	assert.Equal(t, "BTCUSD", published[0].Symbol)

	stored, err := uc.GetDepth(ctx, "btcusd")
	require.NoError(t, err)
	assert.Equal(t, chart, stored)
}

func TestDepthUseCase_RefreshError(t *testing.T) {
	source := &fakeSource{err: errors.New("boom")}
	uc := newUseCase(source)

	_, err := uc.Refresh(context.Background(), "BTCUSD")
	assert.ErrorContains(t, err, "boom")

	_, err = uc.GetDepth(context.Background(), "BTCUSD")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestDepthUseCase_RefreshWithoutSource(t *testing.T) {
	logger, _ := test.NewNullLogger()
	uc := NewDepthUseCase(DepthUseCaseOpts{Logger: logger})
	_, err := uc.Refresh(context.Background(), "BTCUSD")
	assert.Error(t, err)
}

func TestDepthUseCase_CrossedBookIsKept(t *testing.T) {
	source := &fakeSource{books: map[string][]model.OrderBookEntry{"BTCUSD": {
		entry(model.BUY, "101", "1"),
		entry(model.SELL, "100", "1"),
	}}}
	uc := newUseCase(source)

	chart, err := uc.Refresh(context.Background(), "BTCUSD")
	require.NoError(t, err)
	assert.True(t, chart.Crossed)
	assert.Len(t, chart.Points, 2)
}

func TestDepthUseCase_ReferencePrice(t *testing.T) {
	source := &fakeSource{books: map[string][]model.OrderBookEntry{
		"BTCUSD":  sampleBook(),
		"BIDONLY": {entry(model.BUY, "10", "1")},
	}}
	uc := newUseCase(source)
	ctx := context.Background()

	_, ok := uc.ReferencePrice(ctx, "BTCUSD", model.BUY)
	assert.False(t, ok)

	_, err := uc.Refresh(ctx, "BTCUSD")
	require.NoError(t, err)
	_, err = uc.Refresh(ctx, "BIDONLY")
	require.NoError(t, err)

	price, ok := uc.ReferencePrice(ctx, "BTCUSD", model.BUY)
	require.True(t, ok)
	assert.Equal(t, "105", price.String())

	price, ok = uc.ReferencePrice(ctx, "BTCUSD", model.SELL)
	require.True(t, ok)
	assert.Equal(t, "100", price.String())

	_, ok = uc.ReferencePrice(ctx, "BIDONLY", model.BUY)
	assert.False(t, ok)
}

func TestDepthUseCase_AggregateDoesNotStore(t *testing.T) {
	uc := newUseCase(&fakeSource{})
	ctx := context.Background()

	points := uc.Aggregate(ctx, sampleBook(), 1)
	require.Len(t, points, 2)
	assert.Equal(t, "100", points[0].Price.String())
	assert.Equal(t, "105", points[1].Price.String())

	_, err := uc.GetDepth(ctx, "BTCUSD")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
