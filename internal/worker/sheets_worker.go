package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/events"
	"tourbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert = "upsert"
	TaskDelete = "delete"

	SheetsDeadLetterKey = "sheets:dead_letter"
)

// SheetTask is one row change to mirror into the spreadsheet.
type SheetTask struct {
	Type      string    `json:"type"`
	BookingID string    `json:"booking_id"`
	CreatedAt time.Time `json:"created_at"`
}

type SheetsClient interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	DeleteBookingRow(ctx context.Context, bookingID string) error
}

// BookingReader loads the current state of a booking at sync time.
type BookingReader interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
}

// SheetsWorker keeps the spreadsheet mirror in step with booking events. Rows are
// written from the stored booking, not the event payload, so a late retry never
// overwrites newer state.
type SheetsWorker struct {
	bookings    BookingReader
	sheets      SheetsClient
	redis       *redis.Client
	retryPolicy RetryPolicy
	queue       chan SheetTask
	logger      *zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewSheetsWorker(bookings BookingReader, sheets SheetsClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	retry = retry.withDefaults(sheetsRetryDefaults)
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SheetsWorker{
		bookings:    bookings,
		sheets:      sheets,
		redis:       redisClient,
		retryPolicy: retry,
		queue:       make(chan SheetTask, models.AuditQueueSize),
		logger:      logger,
		sleep:       sleepContext,
	}
}

// Handle is an events.EventHandler.
func (w *SheetsWorker) Handle(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	if payload.BookingID == "" {
		return errors.New("booking id is required")
	}

	task := SheetTask{Type: TaskUpsert, BookingID: payload.BookingID, CreatedAt: event.CreatedAt}
	if event.Type == events.EventBookingDeleted {
		task.Type = TaskDelete
	}
	return w.Enqueue(task)
}

// Enqueue schedules a task without blocking; a full queue sends it to the dead letter list.
func (w *SheetsWorker) Enqueue(task SheetTask) error {
	select {
	case w.queue <- task:
		return nil
	default:
		w.logger.Warn().Str("booking_id", task.BookingID).Msg("Sheets queue full, dropping to dead letter")
		w.pushDeadLetter(context.Background(), task)
		return ErrQueueFull
	}
}

func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Sheets worker started")
	defer w.logger.Info().Msg("Sheets worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.process(ctx, task)
		}
	}
}

func (w *SheetsWorker) process(ctx context.Context, task SheetTask) {
	var err error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		if err = w.apply(ctx, task); err == nil {
			return
		}
		w.logger.Warn().Err(err).Int("attempt", attempt).Str("booking_id", task.BookingID).Str("task", task.Type).Msg("Sheets sync failed")
		if w.retryPolicy.Exhausted(attempt) {
			break
		}
		if sleepErr := w.sleep(ctx, w.retryPolicy.NextDelay(attempt)); sleepErr != nil {
			break
		}
	}
	w.logger.Error().Err(err).Str("booking_id", task.BookingID).Str("task", task.Type).Msg("Giving up on sheets sync")
	w.pushDeadLetter(context.Background(), task)
}

func (w *SheetsWorker) apply(ctx context.Context, task SheetTask) error {
	switch task.Type {
	case TaskDelete:
		return w.sheets.DeleteBookingRow(ctx, task.BookingID)
	case TaskUpsert:
		booking, err := w.bookings.GetBooking(ctx, task.BookingID)
		if errors.Is(err, domain.ErrNotFound) {
			return w.sheets.DeleteBookingRow(ctx, task.BookingID)
		}
		if err != nil {
			return err
		}
		return w.sheets.UpsertBooking(ctx, booking)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task SheetTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to encode sheets dead letter")
		return
	}
	if err := w.redis.LPush(ctx, SheetsDeadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to push sheets dead letter")
	}
}
