package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestNumericText_UnmarshalJSON(t *testing.T) {
	var entries []RawEntry
	err := json.Unmarshal([]byte(`[
		{"side":"buy","price":"100.5","quantity":2},
		{"side":"sell","price":101,"quantity":" 3 "},
		{"side":"sell","price":null,"quantity":"1"}
	]`), &entries)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, NumericText("100.5"), entries[0].Price)
	assert.Equal(t, NumericText("2"), entries[0].Quantity)
	assert.Equal(t, NumericText("101"), entries[1].Price)
	assert.Equal(t, NumericText("3"), entries[1].Quantity)
	assert.Equal(t, NumericText(""), entries[2].Price)
}

func TestValidate_DropsMalformedEntries(t *testing.T) {
	raw := []RawEntry{
		{Side: "buy", Price: "100", Quantity: "5"},
		{Side: "BID", Price: "99", Quantity: "1"},
		{Side: "ask", Price: "101", Quantity: "2"},
		{Side: "hold", Price: "100", Quantity: "5"},
		{Side: "buy", Price: "abc", Quantity: "5"},
		{Side: "buy", Price: "", Quantity: "5"},
		{Side: "sell", Price: "102", Quantity: "-1"},
		{Side: "sell", Price: "0", Quantity: "1"},
	}

	entries := Validate("BTCUSD", raw, quietLogger())

	require.Len(t, entries, 3)
	assert.Equal(t, model.BUY, entries[0].Side)
	assert.Equal(t, "100", entries[0].Price.String())
	assert.Equal(t, model.BUY, entries[1].Side)
	assert.Equal(t, model.SELL, entries[2].Side)
	assert.Equal(t, "2", entries[2].Quantity.String())
}

func TestParseEntry(t *testing.T) {
	entry, err := ParseEntry(RawEntry{Side: "Sell", Price: "101.50", Quantity: "2"})
	require.NoError(t, err)
	assert.Equal(t, model.SELL, entry.Side)
	assert.Equal(t, "101.5", entry.Price.String())

	entry, err = ParseEntry(RawEntry{Side: "Bid", Price: "100", Quantity: "1"})
	require.NoError(t, err)
	assert.Equal(t, model.BUY, entry.Side)

	_, err = ParseEntry(RawEntry{Side: "hold", Price: "100", Quantity: "1"})
	assert.Error(t, err)

	_, err = ParseEntry(RawEntry{Side: "buy", Price: "0", Quantity: "2"})
	assert.ErrorIs(t, err, ErrNonPositive)

	_, err = ParseEntry(RawEntry{Side: "buy", Price: "1e3", Quantity: "2"})
	assert.Error(t, err)
}

func TestValidate_NilLogger(t *testing.T) {
	entries := Validate("BTCUSD", []RawEntry{{Side: "x"}}, nil)
	assert.Empty(t, entries)
}

func TestRESTSource_Fetch(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orderbook" {
			http.NotFound(w, r)
			return
		}
		gotQuery.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbol") {
		case "WRAPPED":
			_, _ = w.Write([]byte(`{"entries":[{"side":"sell","price":"105","quantity":"2"}]}`))
		case "BROKEN":
			_, _ = w.Write([]byte(`{not json`))
		case "DOWN":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`[{"side":"buy","price":"100","quantity":"5"},{"side":"buy","price":"-1","quantity":"5"}]`))
		}
	}))
	defer srv.Close()

	source, err := NewRESTSource(RESTSourceOpts{BaseURL: srv.URL + "/", Limit: 50, Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, "rest", source.Name())

	entries, err := source.Fetch(context.Background(), "BTCUSD")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "100", entries[0].Price.String())
	assert.Equal(t, "limit=50&symbol=BTCUSD", gotQuery.Load())

	entries, err = source.Fetch(context.Background(), "WRAPPED")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.SELL, entries[0].Side)

	_, err = source.Fetch(context.Background(), "BROKEN")
	assert.Error(t, err)

	_, err = source.Fetch(context.Background(), "DOWN")
	assert.ErrorContains(t, err, "unexpected status 503")
}

func TestNewRESTSource_RequiresBaseURL(t *testing.T) {
	_, err := NewRESTSource(RESTSourceOpts{})
	assert.Error(t, err)
}

func TestRESTSource_RespectsContext(t *testing.T) {
	source, err := NewRESTSource(RESTSourceOpts{BaseURL: "http://127.0.0.1:1", RatePerSecond: 0.0001, Logger: quietLogger()})
	require.NoError(t, err)

	// first call consumes the only token
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _ = source.Fetch(ctx, "BTCUSD")

	_, err = source.Fetch(ctx, "BTCUSD")
	assert.Error(t, err)
}

func TestBinanceSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/depth" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"lastUpdateId": 1027024,
			"bids": [["100.00000000", "5.00000000"], ["95.00000000", "0.00000000"]],
			"asks": [["105.00000000", "2.00000000"]]
		}`))
	}))
	defer srv.Close()

	source := NewBinanceSource(BinanceSourceOpts{BaseURL: srv.URL, Limit: 5, Logger: quietLogger()})
	assert.Equal(t, "binance", source.Name())

	entries, err := source.Fetch(context.Background(), "btcusdt")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.BUY, entries[0].Side)
	assert.Equal(t, "100", entries[0].Price.String())
	assert.Equal(t, model.SELL, entries[1].Side)
	assert.Equal(t, "2", entries[1].Quantity.String())
}

type countingRefresher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func (r *countingRefresher) Refresh(ctx context.Context, symbol string) (*model.DepthChart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[symbol]++
	if r.fail {
		return nil, errors.New("upstream down")
	}
	return &model.DepthChart{Symbol: symbol}, nil
}

func (r *countingRefresher) count(symbol string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[symbol]
}

func TestPoller_RefreshesEverySymbolUntilCancelled(t *testing.T) {
	for _, fail := range []bool{false, true} {
		refresher := &countingRefresher{calls: map[string]int{}, fail: fail}
		poller := NewPoller(PollerOpts{
			Refresher: refresher,
			Symbols:   []string{"BTCUSD", "ETHUSD"},
			Interval:  10 * time.Millisecond,
			Logger:    quietLogger(),
		})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- poller.Run(ctx) }()

		require.Eventually(t, func() bool {
			return refresher.count("BTCUSD") >= 3 && refresher.count("ETHUSD") >= 3
		}, 2*time.Second, 5*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("poller did not stop")
		}
	}
}

func TestNewPoller_DefaultInterval(t *testing.T) {
	poller := NewPoller(PollerOpts{})
	assert.Equal(t, DefaultPollInterval, poller.interval)
}
