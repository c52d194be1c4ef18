package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Yusufzhafir/tradeview/internal/feed"
	tickerRepository "github.com/Yusufzhafir/tradeview/internal/repository/ticker"
	depthUseCase "github.com/Yusufzhafir/tradeview/internal/usecase/depth"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/go-chi/chi/v5"
)

type DepthRouter interface {
	Aggregate(w http.ResponseWriter, r *http.Request)
	ListTickers(w http.ResponseWriter, r *http.Request)
	GetDepth(w http.ResponseWriter, r *http.Request)
	GetTop(w http.ResponseWriter, r *http.Request)
}

type depthRouterImpl struct {
	usecase    depthUseCase.DepthUseCase
	tickerRepo tickerRepository.TickerReader
}

func NewDepthRouter(usecase depthUseCase.DepthUseCase, tickerRepo tickerRepository.TickerReader) DepthRouter {
	return &depthRouterImpl{usecase: usecase, tickerRepo: tickerRepo}
}

type aggregateRequest struct {
	Entries []feed.RawEntry `json:"entries" validate:"dive"`
	Levels  int             `json:"levels" validate:"min=0,max=5000"`
}

type aggregateResponse struct {
	Points []model.DepthPoint `json:"points"`
}

// Aggregate turns the posted entries into a depth curve without storing anything.
func (dr *depthRouterImpl) Aggregate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeValid[aggregateRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	entries := make([]model.OrderBookEntry, 0, len(req.Entries))
	for i, raw := range req.Entries {
		entry, err := feed.ParseEntry(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Errorf("entries[%d]: %w", i, err))
			return
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, aggregateResponse{
		Points: dr.usecase.Aggregate(r.Context(), entries, req.Levels),
	})
}

func (dr *depthRouterImpl) ListTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := dr.tickerRepo.ListActive(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	if tickers == nil {
		tickers = []tickerRepository.Ticker{}
	}
	writeJSON(w, http.StatusOK, tickers)
}

func (dr *depthRouterImpl) chart(w http.ResponseWriter, r *http.Request) (*model.DepthChart, bool) {
	symbol := chi.URLParam(r, "ticker")
	if _, err := dr.tickerRepo.GetBySymbol(r.Context(), symbol); err != nil {
		if errors.Is(err, tickerRepository.ErrTickerNotFound) {
			writeJSONError(w, http.StatusNotFound, fmt.Errorf("unknown ticker %s", symbol))
			return nil, false
		}
		writeJSONError(w, http.StatusInternalServerError, err)
		return nil, false
	}

	chart, err := dr.usecase.GetDepth(r.Context(), symbol)
	if errors.Is(err, depthUseCase.ErrNoSnapshot) {
		writeJSONError(w, http.StatusNotFound, fmt.Errorf("no depth snapshot for %s yet", symbol))
		return nil, false
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return chart, true
}

func (dr *depthRouterImpl) GetDepth(w http.ResponseWriter, r *http.Request) {
	chart, ok := dr.chart(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

type topResponse struct {
	Symbol    string          `json:"symbol"`
	TopOfBook model.TopOfBook `json:"topOfBook"`
	Crossed   bool            `json:"crossed"`
	Timestamp int64           `json:"timestamp"`
}

func (dr *depthRouterImpl) GetTop(w http.ResponseWriter, r *http.Request) {
	chart, ok := dr.chart(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, topResponse{
		Symbol:    chart.Symbol,
		TopOfBook: chart.TopOfBook,
		Crossed:   chart.Crossed,
		Timestamp: chart.Timestamp,
	})
}
