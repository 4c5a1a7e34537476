package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/Taha-mlaiki/ResNow/internal/adapters/mongo"
	"github.com/Taha-mlaiki/ResNow/internal/adapters/postgres"
	redisadapter "github.com/Taha-mlaiki/ResNow/internal/adapters/redis"
	"github.com/Taha-mlaiki/ResNow/internal/auth"
	"github.com/Taha-mlaiki/ResNow/internal/clock"
	"github.com/Taha-mlaiki/ResNow/internal/config"
	httphandler "github.com/Taha-mlaiki/ResNow/internal/http"
	"github.com/Taha-mlaiki/ResNow/internal/idempotency"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
	"github.com/Taha-mlaiki/ResNow/internal/rateLimit"
	"github.com/Taha-mlaiki/ResNow/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	if err := store.Migrate(context.Background()); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("resnow"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, clock.System())

	locks := service.NewEventLocks()
	clk := clock.System()
	events := service.NewEventService(store.EventStore(), store, locks, clk, logger)
	reservations := service.NewReservationService(store.ReservationStore(), store, locks, clk, logger)
	users := service.NewUserService(store.UserStore(), store.EventStore(), store.ReservationStore(), tokens, clk, logger)

	handlers := httphandler.NewHandlers(events, reservations, users, cache, audit, logger)

	r := httphandler.SetupRouter(handlers, httphandler.RouterDeps{
		Tokens:      tokens,
		Idempotency: idemp,
		RateLimiter: rl,
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	logger.Info("API server listening on " + cfg.ListenAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
