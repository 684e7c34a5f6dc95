package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tourbook/internal/events"
	"tourbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DeadLetterKey = "audit:dead_letter"

var ErrQueueFull = errors.New("audit queue is full")

// AuditStore persists booking lifecycle events.
type AuditStore interface {
	InsertBookingEvent(ctx context.Context, event *models.BookingEvent) error
}

// AuditWorker turns bus events into booking_events rows. Events are queued by Handle and
// written by the Start loop with exponential backoff; exhausted events go to a Redis list.
type AuditWorker struct {
	store       AuditStore
	redis       *redis.Client
	retryPolicy RetryPolicy
	queue       chan *models.BookingEvent
	logger      *zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error

	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewAuditWorker(store AuditStore, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *AuditWorker {
	retry = retry.withDefaults(auditRetryDefaults)
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AuditWorker{
		store:       store,
		redis:       redisClient,
		retryPolicy: retry,
		queue:       make(chan *models.BookingEvent, models.AuditQueueSize),
		logger:      logger,
		sleep:       sleepContext,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Handle is an events.EventHandler. It never blocks the publisher.
func (w *AuditWorker) Handle(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	record := &models.BookingEvent{
		BookingID: payload.BookingID,
		EventType: event.Type,
		Status:    payload.Status,
		ActorID:   payload.ActorID,
		ActorRole: payload.ActorRole,
		Payload:   string(event.Payload),
		CreatedAt: event.CreatedAt.UTC(),
	}

	select {
	case w.queue <- record:
		return nil
	default:
		w.logger.Warn().Str("booking_id", record.BookingID).Str("event", record.EventType).Msg("Audit queue full, dropping to dead letter")
		w.pushDeadLetter(context.Background(), record)
		return ErrQueueFull
	}
}

// Start consumes the queue until ctx is done or Stop is called, then flushes what is left.
func (w *AuditWorker) Start(ctx context.Context) {
	w.started.Store(true)
	defer close(w.done)
	w.logger.Info().Msg("Audit worker started")
	defer w.logger.Info().Msg("Audit worker stopped")

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case <-w.stop:
			w.drain()
			return
		case record := <-w.queue:
			w.process(ctx, record)
		}
	}
}

// Stop ends the Start loop and blocks until queued events are flushed. Call it once
// nothing publishes anymore and before the store is closed.
func (w *AuditWorker) Stop() {
	if !w.started.Load() {
		return
	}
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

func (w *AuditWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case record := <-w.queue:
			if err := w.store.InsertBookingEvent(ctx, record); err != nil {
				w.pushDeadLetter(ctx, record)
			}
		default:
			return
		}
	}
}

func (w *AuditWorker) process(ctx context.Context, record *models.BookingEvent) {
	var err error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		if err = w.store.InsertBookingEvent(ctx, record); err == nil {
			return
		}
		w.logger.Warn().Err(err).Int("attempt", attempt).Str("booking_id", record.BookingID).Msg("Failed to persist booking event")
		if w.retryPolicy.Exhausted(attempt) {
			break
		}
		if sleepErr := w.sleep(ctx, w.retryPolicy.NextDelay(attempt)); sleepErr != nil {
			break
		}
	}
	w.logger.Error().Err(err).Str("booking_id", record.BookingID).Str("event", record.EventType).Msg("Giving up on booking event")
	w.pushDeadLetter(context.Background(), record)
}

func (w *AuditWorker) pushDeadLetter(ctx context.Context, record *models.BookingEvent) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to encode dead letter")
		return
	}
	if err := w.redis.LPush(ctx, DeadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to push dead letter")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
