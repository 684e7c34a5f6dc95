package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/events"
	"tourbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	mu       sync.Mutex
	failures int
	upserts  []string
	deletes  []string
}

func (f *fakeSheets) UpsertBooking(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("quota exceeded")
	}
	f.upserts = append(f.upserts, b.ID+":"+b.Status)
	return nil
}

func (f *fakeSheets) DeleteBookingRow(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeSheets) snapshot() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.upserts...), append([]string(nil), f.deletes...)
}

type fakeBookings map[string]*models.Booking

func (f fakeBookings) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	if b, ok := f[id]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
}

func TestSheetsWorkerUpsertUsesStoredState(t *testing.T) {
	sheets := &fakeSheets{}
	store := fakeBookings{"b1": {ID: "b1", Status: models.StatusConfirmed}}
	w := NewSheetsWorker(store, sheets, nil, RetryPolicy{}, nil)

	require.NoError(t, w.Handle(newEvent(t, events.EventBookingCreated)))
	w.process(context.Background(), <-w.queue)

	upserts, deletes := sheets.snapshot()
	assert.Equal(t, []string{"b1:" + models.StatusConfirmed}, upserts)
	assert.Empty(t, deletes)
}

func TestSheetsWorkerDeleteEvent(t *testing.T) {
	sheets := &fakeSheets{}
	w := NewSheetsWorker(fakeBookings{}, sheets, nil, RetryPolicy{}, nil)

	require.NoError(t, w.Handle(newEvent(t, events.EventBookingDeleted)))
	task := <-w.queue
	assert.Equal(t, TaskDelete, task.Type)
	w.process(context.Background(), task)

	_, deletes := sheets.snapshot()
	assert.Equal(t, []string{"b1"}, deletes)
}

func TestSheetsWorkerUpsertOfVanishedBookingDeletesRow(t *testing.T) {
	sheets := &fakeSheets{}
	w := NewSheetsWorker(fakeBookings{}, sheets, nil, RetryPolicy{}, nil)

	w.process(context.Background(), SheetTask{Type: TaskUpsert, BookingID: "gone"})

	upserts, deletes := sheets.snapshot()
	assert.Empty(t, upserts)
	assert.Equal(t, []string{"gone"}, deletes)
}

func TestSheetsWorkerRetriesThenDeadLetters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sheets := &fakeSheets{failures: 10}
	store := fakeBookings{"b1": {ID: "b1", Status: models.StatusPending}}
	w := NewSheetsWorker(store, sheets, client, RetryPolicy{MaxRetries: 3}, nil)
	w.sleep = noSleep

	w.process(context.Background(), SheetTask{Type: TaskUpsert, BookingID: "b1"})

	assert.Equal(t, 7, sheets.failures)
	items, err := mr.List(SheetsDeadLetterKey)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var task SheetTask
	require.NoError(t, json.Unmarshal([]byte(items[0]), &task))
	assert.Equal(t, "b1", task.BookingID)
}

func TestSheetsWorkerRecoversAfterTransientFailure(t *testing.T) {
	sheets := &fakeSheets{failures: 1}
	store := fakeBookings{"b1": {ID: "b1", Status: models.StatusPending}}
	w := NewSheetsWorker(store, sheets, nil, RetryPolicy{}, nil)
	w.sleep = noSleep

	w.process(context.Background(), SheetTask{Type: TaskUpsert, BookingID: "b1"})

	upserts, _ := sheets.snapshot()
	assert.Len(t, upserts, 1)
}

func TestSheetsWorkerStart(t *testing.T) {
	sheets := &fakeSheets{}
	store := fakeBookings{"b1": {ID: "b1", Status: models.StatusCancelled}}
	w := NewSheetsWorker(store, sheets, nil, RetryPolicy{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.NoError(t, w.Enqueue(SheetTask{Type: TaskUpsert, BookingID: "b1", CreatedAt: time.Now()}))
	require.Eventually(t, func() bool {
		upserts, _ := sheets.snapshot()
		return len(upserts) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
