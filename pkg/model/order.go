package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type OrderType uint8

const (
	ORDER_MARKET OrderType = iota
	ORDER_LIMIT
	ORDER_STOP
	ORDER_STOP_LIMIT
	ORDER_TRAILING_STOP
	ORDER_OCO
	ORDER_ICEBERG
)

var orderTypeNames = map[OrderType]string{
	ORDER_MARKET:        "market",
	ORDER_LIMIT:         "limit",
	ORDER_STOP:          "stop",
	ORDER_STOP_LIMIT:    "stop_limit",
	ORDER_TRAILING_STOP: "trailing_stop",
	ORDER_OCO:           "oco",
	ORDER_ICEBERG:       "iceberg",
}

func (t OrderType) String() string {
	if name, ok := orderTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("order_type(%d)", uint8(t))
}

// ParseOrderType accepts the snake_case name; dashes are treated as underscores.
func ParseOrderType(s string) (OrderType, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for t, n := range orderTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("invalid order type %q", s)
}

func (t OrderType) MarshalText() ([]byte, error) {
	name, ok := orderTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("invalid order type %d", uint8(t))
	}
	return []byte(name), nil
}

func (t *OrderType) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

const (
	MIN_LEVERAGE = 1
	MAX_LEVERAGE = 10
)

// OrderInput is the raw state of an order form. Price and Quantity are kept
// as typed so an empty or half-typed value can still be represented.
type OrderInput struct {
	Price     string    `json:"price"`
	Quantity  string    `json:"quantity"`
	Leverage  int       `json:"leverage"`
	OrderType OrderType `json:"orderType"`
}

type OrderTotal struct {
	DisplayTotal string          `json:"displayTotal"`
	Value        decimal.Decimal `json:"value"`
}
