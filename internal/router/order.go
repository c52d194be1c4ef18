package router

import (
	"errors"
	"net/http"

	"github.com/Yusufzhafir/tradeview/internal/feed"
	"github.com/Yusufzhafir/tradeview/internal/usecase/order"
	"github.com/Yusufzhafir/tradeview/pkg/model"
)

type OrderRouter interface {
	Total(w http.ResponseWriter, r *http.Request)
}

type orderRouterImpl struct {
	usecase order.OrderUseCase
}

func NewOrderRouter(usecase order.OrderUseCase) OrderRouter {
	return &orderRouterImpl{
		usecase: usecase,
	}
}

type orderTotalRequest struct {
	Ticker string `json:"ticker" validate:"required"`
	Side   string `json:"side" validate:"omitempty,side"`
	// Price and Quantity may be empty or half typed; they total to zero.
	Price     feed.NumericText `json:"price"`
	Quantity  feed.NumericText `json:"quantity"`
	Leverage  int              `json:"leverage" validate:"min=0"`
	OrderType string           `json:"orderType"`
}

func (or *orderRouterImpl) Total(w http.ResponseWriter, r *http.Request) {
	req, err := decodeValid[orderTotalRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	side := model.BUY
	if req.Side != "" {
		if side, err = model.ParseSide(req.Side); err != nil {
			writeJSONError(w, http.StatusBadRequest, err)
			return
		}
	}
	orderType := model.ORDER_LIMIT
	if req.OrderType != "" {
		if orderType, err = model.ParseOrderType(req.OrderType); err != nil {
			writeJSONError(w, http.StatusBadRequest, err)
			return
		}
	}

	total, err := or.usecase.QuoteTotal(r.Context(), req.Ticker, side, model.OrderInput{
		Price:     string(req.Price),
		Quantity:  string(req.Quantity),
		Leverage:  req.Leverage,
		OrderType: orderType,
	})
	if errors.Is(err, order.ErrUnknownTicker) {
		writeJSONError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, total)
}
