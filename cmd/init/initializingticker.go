package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Yusufzhafir/tradeview/internal/config"
	tickerRepository "github.com/Yusufzhafir/tradeview/internal/repository/ticker"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

// Seeds the ticker table with feed.symbols.
func main() {
	cfgFile := flag.String("config", "", "config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		logrus.WithError(err).Fatal("error loading config")
	}
	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		logrus.WithError(err).Fatal("error building logger")
	}
	if !cfg.Database.Enabled() {
		logger.Fatal("database.host is empty, nothing to initialize")
	}

	if err := seed(rootCtx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("error seeding tickers")
	}
}

// seed creates the schema and inserts every configured symbol that is not
// present yet, in one transaction.
func seed(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	repo := tickerRepository.NewTickerRepository(db)
	if err := repo.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create ticker schema: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, symbol := range uniqueSymbols(cfg.Feed.Symbols) {
		if _, err := repo.GetBySymbol(ctx, symbol); err == nil {
			logger.WithField("symbol", symbol).Info("ticker already present")
			continue
		} else if !errors.Is(err, tickerRepository.ErrTickerNotFound) {
			return fmt.Errorf("look up ticker %s: %w", symbol, err)
		}
		id, err := repo.CreateTicker(ctx, tx, symbol, cfg.Feed.Source, cfg.Feed.MaxLeverage)
		if err != nil {
			return fmt.Errorf("create ticker %s: %w", symbol, err)
		}
		logger.WithFields(logrus.Fields{"symbol": symbol, "id": id}).Info("ticker created")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tickers: %w", err)
	}

	tickers, err := repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list tickers: %w", err)
	}
	logger.WithField("count", len(tickers)).Info("active tickers in db")
	return nil
}

// uniqueSymbols upper-cases and trims symbols, keeping the first of each.
func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
