package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/audit/store/postgres"
	txcontext "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/tx"
)

// Outbox is the relay's view of the outbox table.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Producer publishes one batch of keyed messages.
type Producer interface {
	Publish(ctx context.Context, messages []Message) error
}

// Message is a keyed outbox payload bound for the audit topic.
type Message struct {
	Key   string
	Value []byte
}

// Relay moves outbox rows to the message broker. Each poll runs in one
// transaction: rows are locked, published, then marked; a publish failure
// rolls the batch back so it is retried on the next tick.
type Relay struct {
	outbox    Outbox
	producer  Producer
	tx        txcontext.Runner
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func NewRelay(outbox Outbox, producer Producer, tx txcontext.Runner, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		producer:  producer,
		tx:        tx,
		interval:  2 * time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Poll(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox relay poll failed", "error", err)
			}
		}
	}
}

// Poll publishes one batch and returns how many rows were relayed.
func (r *Relay) Poll(ctx context.Context) (int, error) {
	relayed := 0
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		messages := make([]Message, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			messages[i] = Message{Key: e.AggregateID, Value: e.Payload}
			ids[i] = e.ID
		}
		if err := r.producer.Publish(ctx, messages); err != nil {
			return err
		}
		relayed = len(entries)
		return r.outbox.MarkPublished(ctx, ids, time.Now())
	})
	return relayed, err
}
