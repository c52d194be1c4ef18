package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Yusufzhafir/tradeview/internal/config"
	"github.com/Yusufzhafir/tradeview/internal/feed"
	"github.com/Yusufzhafir/tradeview/internal/metrics"
	tickerRepository "github.com/Yusufzhafir/tradeview/internal/repository/ticker"
	"github.com/Yusufzhafir/tradeview/internal/router"
	"github.com/Yusufzhafir/tradeview/internal/router/middleware"
	depthUseCase "github.com/Yusufzhafir/tradeview/internal/usecase/depth"
	"github.com/Yusufzhafir/tradeview/internal/usecase/order"
	"github.com/Yusufzhafir/tradeview/internal/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/websocket server and the feed poller",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		rootCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(rootCtx, cfg, logger)
	},
}

func newSource(cfg config.FeedConfig, logger *logrus.Logger) (feed.Source, error) {
	switch cfg.Source {
	case "binance":
		return feed.NewBinanceSource(feed.BinanceSourceOpts{
			BaseURL: cfg.BinanceURL,
			Limit:   cfg.Limit,
			Logger:  logger,
		}), nil
	default:
		return feed.NewRESTSource(feed.RESTSourceOpts{
			BaseURL:       cfg.BaseURL,
			Limit:         cfg.Limit,
			RatePerSecond: cfg.RatePerSecond,
			Logger:        logger,
		})
	}
}

func newTickerRepo(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (tickerRepository.TickerReader, func(), error) {
	if !cfg.Database.Enabled() {
		logger.WithField("symbols", cfg.Feed.Symbols).Info("no database configured, using static ticker list")
		return tickerRepository.NewStaticTickerRepository(cfg.Feed.Symbols, cfg.Feed.Source, cfg.Feed.MaxLeverage), func() {}, nil
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting postgres: %w", err)
	}
	return tickerRepository.NewTickerRepository(db), func() { _ = db.Close() }, nil
}

func serve(rootCtx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	metrics.InitMetrics()

	tickerRepo, closeRepo, err := newTickerRepo(rootCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	tickers, err := tickerRepo.ListActive(rootCtx)
	if err != nil {
		return fmt.Errorf("error listing tickers: %w", err)
	}
	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		symbols = append(symbols, t.Symbol)
	}

	source, err := newSource(cfg.Feed, logger)
	if err != nil {
		return err
	}

	depthUC := depthUseCase.NewDepthUseCase(depthUseCase.DepthUseCaseOpts{
		Source: source,
		Levels: cfg.Feed.Levels,
		Logger: logger,
	})
	orderUC := order.NewOrderUseCase(order.OrderUseCaseOpts{
		TickerRepo:   tickerRepo,
		DepthUseCase: depthUC,
		Logger:       logger,
	})

	hub := websocket.NewHub(websocket.HubOpts{
		Logger:         logger,
		Forms:          orderUC,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	depthUC.RegisterDepthHandler(hub.PublishDepth)

	var tokenMaker *middleware.JWTMaker
	if cfg.Auth.JWTSecret != "" {
		if tokenMaker, err = middleware.NewJWTMaker(cfg.Auth.JWTSecret); err != nil {
			return err
		}
	} else {
		logger.Warn("auth.jwt_secret is empty, API is unauthenticated")
	}

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: router.BindRouter(router.BindRouterOpts{
			Logger:         logger,
			DepthUseCase:   depthUC,
			OrderUseCase:   orderUC,
			TickerRepo:     tickerRepo,
			Hub:            hub,
			TokenMaker:     tokenMaker,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
	}

	poller := feed.NewPoller(feed.PollerOpts{
		Refresher: depthUC,
		Symbols:   symbols,
		Interval:  cfg.Feed.Interval,
		Logger:    logger,
	})

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return poller.Run(ctx)
	})
	g.Go(func() error {
		logger.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("graceful shutdown failed, forcing close")
			_ = server.Close()
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}
