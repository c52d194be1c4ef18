package engine

import (
	"strings"

	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/shopspring/decimal"
)

const totalPlaces = 2

// ClampLeverage forces leverage into [MIN_LEVERAGE, MAX_LEVERAGE].
func ClampLeverage(leverage int) int {
	if leverage < model.MIN_LEVERAGE {
		return model.MIN_LEVERAGE
	}
	if leverage > model.MAX_LEVERAGE {
		return model.MAX_LEVERAGE
	}
	return leverage
}

// Total is the notional for market orders and the margin (notional divided
// by leverage) for every other order type.
func Total(price, quantity decimal.Decimal, leverage int, orderType model.OrderType) decimal.Decimal {
	notional := price.Mul(quantity)
	if orderType == model.ORDER_MARKET {
		return notional
	}
	return notional.Div(decimal.NewFromInt(int64(ClampLeverage(leverage))))
}

// CalculateTotal renders the total of an order form with two decimals.
// Empty, unparsable or non-positive price or quantity yields "0.00".
func CalculateTotal(in model.OrderInput) model.OrderTotal {
	price, ok := parsePositive(in.Price)
	if !ok {
		return ZeroTotal()
	}
	quantity, ok := parsePositive(in.Quantity)
	if !ok {
		return ZeroTotal()
	}

	value := Total(price, quantity, in.Leverage, in.OrderType)
	return model.OrderTotal{
		DisplayTotal: value.StringFixed(totalPlaces),
		Value:        value,
	}
}

func ZeroTotal() model.OrderTotal {
	return model.OrderTotal{
		DisplayTotal: decimal.Zero.StringFixed(totalPlaces),
		Value:        decimal.Zero,
	}
}

func parsePositive(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
