package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Yusufzhafir/tradeview/internal/metrics"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Source fetches a validated order book snapshot for a symbol.
type Source interface {
	Fetch(ctx context.Context, symbol string) ([]model.OrderBookEntry, error)
	Name() string
}

// NumericText keeps a number exactly as sent, whether the upstream quoted it or not.
type NumericText string

func (n *NumericText) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumericText(strings.TrimSpace(s))
		return nil
	}
	if string(data) == "null" {
		*n = ""
		return nil
	}
	*n = NumericText(data)
	return nil
}

// RawEntry is an order book entry as received from upstream.
type RawEntry struct {
	Side     string      `json:"side" validate:"required,side"`
	Price    NumericText `json:"price" validate:"required,numeric"`
	Quantity NumericText `json:"quantity" validate:"required,numeric"`
}

var validate = NewValidator()

// NewValidator returns a validator that also understands the "side" tag,
// which accepts any spelling model.ParseSide does.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("side", func(fl validator.FieldLevel) bool {
		_, err := model.ParseSide(fl.Field().String())
		return err == nil
	})
	return v
}

const (
	dropInvalid     = "invalid"
	dropNonPositive = "non_positive"
)

// Validate converts raw entries into model entries, dropping the ones that
// would break the depth curve. The remaining entries keep their order.
func Validate(symbol string, raw []RawEntry, logger *logrus.Logger) []model.OrderBookEntry {
	entries := make([]model.OrderBookEntry, 0, len(raw))
	for i, r := range raw {
		entry, err := ParseEntry(r)
		if err != nil {
			reason := dropInvalid
			if errors.Is(err, ErrNonPositive) {
				reason = dropNonPositive
			}
			drop(logger, symbol, i, reason, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

var ErrNonPositive = errors.New("price and quantity must be positive")

// ParseEntry validates one raw entry and converts it.
func ParseEntry(r RawEntry) (model.OrderBookEntry, error) {
	if err := validate.Struct(r); err != nil {
		return model.OrderBookEntry{}, err
	}
	side, err := model.ParseSide(r.Side)
	if err != nil {
		return model.OrderBookEntry{}, err
	}
	price, err := decimal.NewFromString(string(r.Price))
	if err != nil {
		return model.OrderBookEntry{}, fmt.Errorf("price: %w", err)
	}
	quantity, err := decimal.NewFromString(string(r.Quantity))
	if err != nil {
		return model.OrderBookEntry{}, fmt.Errorf("quantity: %w", err)
	}
	if !price.IsPositive() || !quantity.IsPositive() {
		return model.OrderBookEntry{}, ErrNonPositive
	}
	return model.OrderBookEntry{Side: side, Price: price, Quantity: quantity}, nil
}

func drop(logger *logrus.Logger, symbol string, index int, reason string, err error) {
	metrics.FeedEntriesDroppedTotal.WithLabelValues(symbol, reason).Inc()
	if logger == nil {
		return
	}
	e := logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"index":  index,
		"reason": reason,
	})
	if err != nil && !errors.Is(err, ErrNonPositive) {
		e = e.WithError(err)
	}
	e.Debug("dropping order book entry")
}
