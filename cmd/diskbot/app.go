package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pkazanov/diskbot/internal/bot"
	"github.com/pkazanov/diskbot/internal/db"
	"github.com/pkazanov/diskbot/internal/handlers"
	"github.com/pkazanov/diskbot/internal/logger"
	"github.com/pkazanov/diskbot/internal/repository/postgres"
	"github.com/pkazanov/diskbot/internal/secrets"
	"github.com/pkazanov/diskbot/internal/service/oauth"
	"github.com/pkazanov/diskbot/internal/service/statetoken"
	"github.com/pkazanov/diskbot/internal/telegram"
	"github.com/pkazanov/diskbot/internal/yandex"
)

const sweepInterval = time.Minute

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	oauthService *oauth.Service
	dispatcher   *bot.MemoryDispatcher
	logger       logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	switch {
	case c.TelegramToken == "":
		return nil, errors.New("telegram token must be set")
	case c.YandexAppID == "" || c.YandexAppSecret == "":
		return nil, errors.New("yandex application credentials must be set")
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize token custody dependencies
	cipher, err := secrets.New(c.CipherKey)
	if err != nil {
		return nil, fmt.Errorf("error while creating token cipher. Err: %w", err)
	}
	states, err := statetoken.New(statetoken.Config{SecretKey: c.SecretKey})
	if err != nil {
		return nil, fmt.Errorf("error while creating state codec. Err: %w", err)
	}

	// Initialize outbound clients
	provider := yandex.NewOAuth(yandex.OAuthConfig{
		AppID:     c.YandexAppID,
		AppSecret: c.YandexAppSecret,
	})
	diskClient := yandex.NewDiskClient("", log)
	tgClient := telegram.NewClient("", c.TelegramToken, log)

	// Initialize services
	oauthService, err := oauth.NewService(oauth.Config{}, storage, cipher, states, provider, tgClient, log)
	if err != nil {
		return nil, fmt.Errorf("error while creating oauth service. Err: %w", err)
	}

	dispatcher := bot.NewMemoryDispatcher()
	tgBot, err := bot.New(bot.Config{}, oauthService, diskClient, tgClient, dispatcher, log)
	if err != nil {
		return nil, fmt.Errorf("error while creating bot. Err: %w", err)
	}

	mux := handlers.NewRouter(tgBot, oauthService, log)

	return &ServerApp{
		ListenAddr:   c.ListenAddr,
		Handler:      mux,
		oauthService: oauthService,
		dispatcher:   dispatcher,
		logger:       log,
	}, nil
}

// Run starts the http server and the background sweeper and closes
// both gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting server", "addr", s.ListenAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
			return err
		}

		s.logger.Info("HTTP server stopped")
		return nil
	})

	g.Go(func() error {
		return s.runSweeper(gCtx)
	})

	return g.Wait()
}

// runSweeper periodically clears expired pending authorization attempts
// and expired one-shot chat handlers
func (s *ServerApp) runSweeper(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			swept, err := s.oauthService.SweepExpiredInsertTokens(ctx)
			if err != nil {
				s.logger.Error("Insert token sweep failed", "error", err)
				continue
			}
			if swept > 0 {
				s.logger.Info("Swept expired insert tokens", "count", swept)
			}

			s.dispatcher.Sweep()
		}
	}
}
