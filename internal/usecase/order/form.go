package order

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Yusufzhafir/tradeview/internal/engine"
	"github.com/Yusufzhafir/tradeview/pkg/model"
)

const (
	FieldPrice     = "price"
	FieldQuantity  = "quantity"
	FieldLeverage  = "leverage"
	FieldOrderType = "orderType"
	FieldSide      = "side"
)

type ChangeHandler func(model.OrderTotal)

// Form is the live state of one order entry. Every edit to price,
// quantity, leverage or order type recomputes the total; listeners only
// hear about it when the displayed total actually changes.
type Form struct {
	mu sync.Mutex

	side  model.Side
	input model.OrderInput
	total model.OrderTotal

	maxLeverage    int
	referencePrice func(side model.Side) (string, bool)
	listeners      []ChangeHandler
}

func NewForm(side model.Side) *Form {
	f := &Form{
		side: side,
		input: model.OrderInput{
			Leverage:  model.MIN_LEVERAGE,
			OrderType: model.ORDER_LIMIT,
		},
	}
	f.total = f.compute()
	return f
}

func (f *Form) OnChange(handler ChangeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, handler)
}

func (f *Form) Total() model.OrderTotal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *Form) Input() model.OrderInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

func (f *Form) Side() model.Side {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.side
}

func (f *Form) SetPrice(price string) model.OrderTotal {
	return f.update(func(in *model.OrderInput) { in.Price = strings.TrimSpace(price) })
}

func (f *Form) SetQuantity(quantity string) model.OrderTotal {
	return f.update(func(in *model.OrderInput) { in.Quantity = strings.TrimSpace(quantity) })
}

func (f *Form) SetLeverage(leverage int) model.OrderTotal {
	return f.update(func(in *model.OrderInput) { in.Leverage = leverage })
}

func (f *Form) SetOrderType(orderType model.OrderType) model.OrderTotal {
	return f.update(func(in *model.OrderInput) { in.OrderType = orderType })
}

// SetSide switches the side. Only a market order without a typed price
// depends on it, through the reference price.
func (f *Form) SetSide(side model.Side) model.OrderTotal {
	f.mu.Lock()
	f.side = side
	f.mu.Unlock()
	return f.Recalculate()
}

// Recalculate recomputes without changing any input, for when the
// reference price may have moved.
func (f *Form) Recalculate() model.OrderTotal {
	return f.update(func(*model.OrderInput) {})
}

// Apply sets a field from its textual value, as sent by a client.
func (f *Form) Apply(field, value string) (model.OrderTotal, error) {
	switch field {
	case FieldPrice:
		return f.SetPrice(value), nil
	case FieldQuantity:
		return f.SetQuantity(value), nil
	case FieldLeverage:
		leverage, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return f.Total(), fmt.Errorf("invalid leverage %q", value)
		}
		return f.SetLeverage(leverage), nil
	case FieldOrderType:
		orderType, err := model.ParseOrderType(value)
		if err != nil {
			return f.Total(), err
		}
		return f.SetOrderType(orderType), nil
	case FieldSide:
		side, err := model.ParseSide(value)
		if err != nil {
			return f.Total(), err
		}
		return f.SetSide(side), nil
	default:
		return f.Total(), fmt.Errorf("unknown order form field %q", field)
	}
}

func (f *Form) update(mutate func(*model.OrderInput)) model.OrderTotal {
	f.mu.Lock()
	mutate(&f.input)
	next := f.compute()
	changed := next.DisplayTotal != f.total.DisplayTotal
	f.total = next
	var listeners []ChangeHandler
	if changed {
		listeners = append(listeners, f.listeners...)
	}
	f.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// compute must be called with mu held.
func (f *Form) compute() model.OrderTotal {
	in := f.input
	in.Leverage = capLeverage(in.Leverage, f.maxLeverage)
	if in.OrderType == model.ORDER_MARKET && in.Price == "" && f.referencePrice != nil {
		if price, ok := f.referencePrice(f.side); ok {
			in.Price = price
		}
	}
	return engine.CalculateTotal(in)
}
