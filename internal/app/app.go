package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chrissnell/tempcast/internal/controllers/restserver"
	"github.com/chrissnell/tempcast/internal/log"
	"github.com/chrissnell/tempcast/internal/predict"
	"github.com/chrissnell/tempcast/internal/session"
	"github.com/chrissnell/tempcast/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const janitorInterval = time.Minute

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	predictor := predict.NewFromConfig(a.cfg.Predictor, a.logger)
	sessions := session.NewStore(a.cfg.Session.TTL, a.logger)

	server, err := restserver.NewController(a.cfg, predictor, sessions, a.logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return sessions.RunJanitor(gctx, janitorInterval)
	})

	log.Infow("application started",
		"predictor_url", a.cfg.Predictor.BaseURL,
		"fallback", a.cfg.Predictor.Fallback,
	)

	<-gctx.Done()
	log.Info("shutdown signal received, waiting for workers to terminate...")

	err = g.Wait()
	log.Info("shutdown complete")
	return err
}
