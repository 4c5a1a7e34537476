package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Taha-mlaiki/ResNow/internal/adapters/rabbit"
	"github.com/Taha-mlaiki/ResNow/internal/config"
	"github.com/Taha-mlaiki/ResNow/internal/observability"
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

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "resnow.notifications")
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	go notify(ctx, deliveries, logger)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notifier")
}

// notify stands in for a mail gateway: it logs each lifecycle event it
// receives and acks it.
func notify(ctx context.Context, deliveries <-chan amqp.Delivery, logger observability.Logger) {
	logger.Info("Notifier started")
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			var payload map[string]interface{}
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				logger.WithError(err).Warn("skipping malformed message")
				d.Nack(false, false)
				continue
			}
			logger.WithField("routingKey", d.RoutingKey).WithField("payload", payload).Info("notification dispatched")
			d.Ack(false)
		}
	}
}
