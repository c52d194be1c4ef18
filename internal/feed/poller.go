package feed

import (
	"context"
	"errors"
	"time"

	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultPollInterval = 5000 * time.Millisecond

// Refresher pulls and stores a fresh snapshot for one symbol.
type Refresher interface {
	Refresh(ctx context.Context, symbol string) (*model.DepthChart, error)
}

type PollerOpts struct {
	Refresher Refresher
	Symbols   []string
	Interval  time.Duration
	Logger    *logrus.Logger
}

// Poller refreshes every symbol on a fixed interval until its context ends.
type Poller struct {
	refresher Refresher
	symbols   []string
	interval  time.Duration
	logger    *logrus.Logger
}

func NewPoller(opts PollerOpts) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Poller{
		refresher: opts.Refresher,
		symbols:   opts.Symbols,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled. A failing refresh is logged and retried
// on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.WithFields(logrus.Fields{
		"symbols":  p.symbols,
		"interval": p.interval.String(),
	}).Info("feed poller started")

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range p.symbols {
		symbol := symbol
		g.Go(func() error {
			p.poll(gctx, symbol)
			return nil
		})
	}
	err := g.Wait()
	p.logger.Info("feed poller stopped")
	return err
}

func (p *Poller) poll(ctx context.Context, symbol string) {
	p.refresh(ctx, symbol)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx, symbol)
		}
	}
}

func (p *Poller) refresh(ctx context.Context, symbol string) {
	chart, err := p.refresher.Refresh(ctx, symbol)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.logger.WithError(err).WithField("symbol", symbol).Warn("depth refresh failed")
		return
	}
	p.logger.WithFields(logrus.Fields{
		"symbol":  symbol,
		"points":  len(chart.Points),
		"entries": chart.EntryCount,
	}).Debug("depth refreshed")
}
