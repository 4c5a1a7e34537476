package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Taha-mlaiki/ResNow/internal/observability"
)

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	store    Store
	broker   Broker
	logger   observability.Logger
	interval time.Duration
	batch    int
}

func NewPublisher(store Store, broker Broker, logger observability.Logger) *Publisher {
	return &Publisher{
		store:    store,
		broker:   broker,
		logger:   logger,
		interval: 5 * time.Second,
		batch:    50,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.drain(ctx); err != nil {
				p.logger.WithError(err).Error("outbox drain failed")
			}
		}
	}
}

func (p *Publisher) drain(ctx context.Context) error {
	records, err := p.store.ListUnpublished(ctx, p.batch)
	if err != nil {
		return err
	}
	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Body:        rec.Payload,
		}
		if err := p.broker.Publish(ctx, rec.EventType, msg); err != nil {
			p.logger.WithError(err).WithField("record_id", rec.ID).Warn("publish failed, will retry")
			continue
		}
		observability.OutboxLag.Set(time.Since(rec.CreatedAt).Seconds())
		if err := p.store.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
			p.logger.WithError(err).WithField("record_id", rec.ID).Error("mark published failed")
		}
	}
	return nil
}
