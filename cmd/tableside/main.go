// Package main запускает HTTP-сервер сервиса tableside.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/backend"
	"github.com/mmeshcher/tableside/internal/billing"
	"github.com/mmeshcher/tableside/internal/board"
	"github.com/mmeshcher/tableside/internal/config"
	"github.com/mmeshcher/tableside/internal/events"
	"github.com/mmeshcher/tableside/internal/handler"
	"github.com/mmeshcher/tableside/internal/hub"
	"github.com/mmeshcher/tableside/internal/middleware"
	"github.com/mmeshcher/tableside/internal/payment"
	"github.com/mmeshcher/tableside/internal/pending"
	"github.com/mmeshcher/tableside/internal/repository"
	"github.com/mmeshcher/tableside/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	} else {
		sugar.Warn("DATABASE_URI is not set, carts and sessions are kept in memory")
		repo = repository.NewMemoryRepository()
	}

	client := apiclient.NewClient(cfg.APIBaseURL, cfg.RestaurantID, apiclient.Options{
		Timeout:     cfg.RequestTimeout,
		ReadRetries: cfg.ReadRetries,
		Logger:      logger,
	})
	api := backend.New(client)

	wsHub := hub.New(logger)
	notifiers := []board.Notifier{wsHub}
	if cfg.NATSURL != "" {
		publisher, err := events.NewNATSPublisher(cfg.NATSURL, cfg.RestaurantID, logger)
		if err != nil {
			sugar.Fatalw("nats connection error", "error", err.Error())
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}

	tracker := pending.NewTracker(200*time.Millisecond, logger)
	b := board.New(api, tracker, logger, board.Intervals{
		Tables: cfg.TablesPollInterval,
		Orders: cfg.OrdersPollInterval,
		Bills:  cfg.BillsPollInterval,
	}, cfg.ConflictRetries, notifiers...)
	if cfg.StaffToken != "" {
		b.SetSession(apiclient.NewSession(apiclient.RoleStaff, cfg.StaffToken))
	}
	bills := billing.New(api, b, tracker, logger, cfg.ConflictRetries)

	svc := service.NewService(repo, api, b, bills, service.Options{
		UPI:            payment.UPI{PayeeID: cfg.UPIID, PayeeName: cfg.UPIPayeeName},
		PlaceOrderLink: cfg.PlaceOrderLink,
	}, logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret, repo)
	h := handler.NewHandler(svc, logger, authMiddleware, middleware.NewRateLimiter(cfg.LoginRatePerMinute), wsHub)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Опрос бэкенда: столы, активные заказы и счета
	g.Go(func() error {
		b.Run(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting tableside server", "addr", cfg.RunAddress, "backend", cfg.APIBaseURL, "restaurant", cfg.RestaurantID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
