package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Taha-mlaiki/ResNow/internal/adapters/postgres"
	"github.com/Taha-mlaiki/ResNow/internal/clock"
	"github.com/Taha-mlaiki/ResNow/internal/config"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
	"github.com/Taha-mlaiki/ResNow/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	locks := service.NewEventLocks()
	reservations := service.NewReservationService(store.ReservationStore(), store, locks, clock.System(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go run(ctx, reservations, cfg.SweepInterval, logger)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown reservation sweeper")
}

func run(ctx context.Context, reservations *service.ReservationService, interval time.Duration, logger observability.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Reservation sweeper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refused, err := reservations.SweepStalePending(ctx)
			if err != nil {
				logger.WithError(err).Error("sweep failed")
				continue
			}
			if refused > 0 {
				logger.WithField("refused", refused).Info("refused stale pending reservations")
			}
		}
	}
}
