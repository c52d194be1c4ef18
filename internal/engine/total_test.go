package engine

import (
	"testing"

	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateTotal(t *testing.T) {
	cases := []struct {
		name string
		in   model.OrderInput
		want string
	}{
		{"limit no leverage", model.OrderInput{Price: "100", Quantity: "2", Leverage: 1, OrderType: model.ORDER_LIMIT}, "200.00"},
		{"limit leverage 4", model.OrderInput{Price: "100", Quantity: "2", Leverage: 4, OrderType: model.ORDER_LIMIT}, "50.00"},
		{"market ignores leverage", model.OrderInput{Price: "100", Quantity: "2", Leverage: 4, OrderType: model.ORDER_MARKET}, "200.00"},
		{"stop limit", model.OrderInput{Price: "10", Quantity: "1", Leverage: 3, OrderType: model.ORDER_STOP_LIMIT}, "3.33"},
		{"iceberg rounds half up", model.OrderInput{Price: "0.01", Quantity: "0.5", Leverage: 1, OrderType: model.ORDER_ICEBERG}, "0.01"},
		{"trims whitespace", model.OrderInput{Price: " 12.5 ", Quantity: "4", Leverage: 2, OrderType: model.ORDER_OCO}, "25.00"},
		{"empty price", model.OrderInput{Price: "", Quantity: "2", Leverage: 1, OrderType: model.ORDER_LIMIT}, "0.00"},
		{"empty quantity", model.OrderInput{Price: "100", Quantity: "", Leverage: 1, OrderType: model.ORDER_LIMIT}, "0.00"},
		{"non numeric", model.OrderInput{Price: "abc", Quantity: "2", Leverage: 1, OrderType: model.ORDER_LIMIT}, "0.00"},
		{"negative quantity", model.OrderInput{Price: "100", Quantity: "-2", Leverage: 1, OrderType: model.ORDER_LIMIT}, "0.00"},
		{"zero price", model.OrderInput{Price: "0", Quantity: "2", Leverage: 1, OrderType: model.ORDER_MARKET}, "0.00"},
		{"market without price", model.OrderInput{Price: "", Quantity: "2", Leverage: 1, OrderType: model.ORDER_MARKET}, "0.00"},
		{"zero leverage acts as one", model.OrderInput{Price: "100", Quantity: "2", Leverage: 0, OrderType: model.ORDER_STOP}, "200.00"},
		{"leverage above ten is capped", model.OrderInput{Price: "100", Quantity: "2", Leverage: 20, OrderType: model.ORDER_TRAILING_STOP}, "20.00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateTotal(tc.in)
			assert.Equal(t, tc.want, got.DisplayTotal)
			assert.Equal(t, got, CalculateTotal(tc.in))
		})
	}
}

func TestTotal_MatchesFormula(t *testing.T) {
	price := decimal.RequireFromString("123.45")
	qty := decimal.RequireFromString("7")
	for leverage := 1; leverage <= model.MAX_LEVERAGE; leverage++ {
		want := price.Mul(qty).Div(decimal.NewFromInt(int64(leverage))).StringFixed(2)
		got := CalculateTotal(model.OrderInput{Price: "123.45", Quantity: "7", Leverage: leverage, OrderType: model.ORDER_LIMIT})
		assert.Equal(t, want, got.DisplayTotal)

		market := CalculateTotal(model.OrderInput{Price: "123.45", Quantity: "7", Leverage: leverage, OrderType: model.ORDER_MARKET})
		assert.Equal(t, "864.15", market.DisplayTotal)
	}
}

func TestClampLeverage(t *testing.T) {
	assert.Equal(t, 1, ClampLeverage(-3))
	assert.Equal(t, 1, ClampLeverage(0))
	assert.Equal(t, 5, ClampLeverage(5))
	assert.Equal(t, 10, ClampLeverage(11))
}

func TestZeroTotal(t *testing.T) {
	zero := ZeroTotal()
	assert.Equal(t, "0.00", zero.DisplayTotal)
	assert.True(t, zero.Value.IsZero())
}
