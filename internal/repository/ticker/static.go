package ticker

import (
	"context"
	"time"
)

// staticTickerRepository serves a fixed ticker list from configuration when
// no database is configured.
type staticTickerRepository struct {
	tickers []Ticker
	index   map[string]int
}

func NewStaticTickerRepository(symbols []string, source string, maxLeverage int) TickerReader {
	r := &staticTickerRepository{index: make(map[string]int, len(symbols))}
	now := time.Now()
	for _, s := range symbols {
		symbol := normalizeSymbol(s)
		if symbol == "" {
			continue
		}
		if _, dup := r.index[symbol]; dup {
			continue
		}
		r.index[symbol] = len(r.tickers)
		r.tickers = append(r.tickers, Ticker{
			ID:          int64(len(r.tickers) + 1),
			Symbol:      symbol,
			Source:      source,
			MaxLeverage: maxLeverage,
			IsActive:    true,
			CreatedAt:   now,
		})
	}
	return r
}

func (r *staticTickerRepository) GetBySymbol(ctx context.Context, symbol string) (*Ticker, error) {
	i, ok := r.index[normalizeSymbol(symbol)]
	if !ok {
		return nil, ErrTickerNotFound
	}
	t := r.tickers[i]
	return &t, nil
}

func (r *staticTickerRepository) ListActive(ctx context.Context) ([]Ticker, error) {
	out := make([]Ticker, len(r.tickers))
	copy(out, r.tickers)
	return out, nil
}
