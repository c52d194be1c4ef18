package router

import (
	"net/http"
	"time"

	tickerRepository "github.com/Yusufzhafir/tradeview/internal/repository/ticker"
	"github.com/Yusufzhafir/tradeview/internal/router/middleware"
	depthUseCase "github.com/Yusufzhafir/tradeview/internal/usecase/depth"
	"github.com/Yusufzhafir/tradeview/internal/usecase/order"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// WebSocketServer upgrades /ws requests.
type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type BindRouterOpts struct {
	Logger         *logrus.Logger
	DepthUseCase   depthUseCase.DepthUseCase
	OrderUseCase   order.OrderUseCase
	TickerRepo     tickerRepository.TickerReader
	Hub            WebSocketServer
	TokenMaker     *middleware.JWTMaker // nil leaves /api/v1 and /ws open
	AllowedOrigins []string
	// MetricsHandler defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

func bindTicker(r chi.Router, depthRouter DepthRouter) {
	r.Post("/depth", depthRouter.Aggregate)
	r.Get("/ticker", depthRouter.ListTickers)
	r.Get("/ticker/{ticker}/depth", depthRouter.GetDepth)
	r.Get("/ticker/{ticker}/top", depthRouter.GetTop)
}

func bindOrder(r chi.Router, orderRouter OrderRouter) {
	r.Post("/order/total", orderRouter.Total)
}

func BindRouter(opts BindRouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         int((24 * time.Hour).Seconds()),
	}))

	auth := middleware.AuthMiddleware(opts.TokenMaker, writeJSONError)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(auth)
		bindTicker(api, NewDepthRouter(opts.DepthUseCase, opts.TickerRepo))
		bindOrder(api, NewOrderRouter(opts.OrderUseCase))
	})

	if opts.Hub != nil {
		r.With(auth).Get("/ws", opts.Hub.ServeWS)
	}

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": 200,
			"health": "healthy",
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})
	return r
}
