package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
)

// mockLedgerRepo mirrors the unique-key insert semantics of the events table.
type mockLedgerRepo struct {
	mu     sync.Mutex
	events map[string]domain.ProcessedWebhookEvent
}

func newMockLedgerRepo() *mockLedgerRepo {
	return &mockLedgerRepo{events: make(map[string]domain.ProcessedWebhookEvent)}
}

func (m *mockLedgerRepo) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.events[eventID]

	return ok, nil
}

func (m *mockLedgerRepo) InsertProcessedEvent(_ context.Context, evt *domain.ProcessedWebhookEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[evt.EventID]; ok {
		return false, nil
	}

	m.events[evt.EventID] = *evt

	return true, nil
}

func testLogger() *zerolog.Logger {
	nop := zerolog.Nop()

	return &nop
}

func event(id string) domain.ProcessedWebhookEvent {
	return domain.ProcessedWebhookEvent{
		EventID:        id,
		EventType:      "invoice.paid",
		OccurredAt:     time.Now().Add(-time.Minute),
		SubscriptionID: "sub-1",
		CustomerID:     "cust-1",
	}
}

func TestMarkProcessedFirstDelivery(t *testing.T) {
	repo := newMockLedgerRepo()
	ledger := NewLedger(repo, testLogger())

	require.NoError(t, ledger.MarkProcessed(context.Background(), event("evt-1")))

	processed, err := ledger.IsProcessed(context.Background(), "evt-1")
	require.NoError(t, err)
	require.True(t, processed)
}

func TestMarkProcessedDuplicateDelivery(t *testing.T) {
	repo := newMockLedgerRepo()
	ledger := NewLedger(repo, testLogger())

	ctx := context.Background()

	require.NoError(t, ledger.MarkProcessed(ctx, event("evt-1")))

	err := ledger.MarkProcessed(ctx, event("evt-1"))
	require.ErrorIs(t, err, coreerrors.ErrEventAlreadyProcessed)

	// Exactly one row survives the duplicate delivery.
	require.Len(t, repo.events, 1)
}

func TestMarkProcessedConcurrentDeliveries(t *testing.T) {
	repo := newMockLedgerRepo()
	ledger := NewLedger(repo, testLogger())

	const deliveries = 10

	errs := make(chan error, deliveries)

	var wg sync.WaitGroup

	for i := 0; i < deliveries; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- ledger.MarkProcessed(context.Background(), event("evt-1"))
		}()
	}

	wg.Wait()
	close(errs)

	var wins, duplicates int

	for err := range errs {
		switch {
		case err == nil:
			wins++
		case coreerrors.Is(err, coreerrors.ErrEventAlreadyProcessed):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require.Equal(t, 1, wins)
	require.Equal(t, deliveries-1, duplicates)
	require.Len(t, repo.events, 1)
}

func TestIsProcessedUnknownEvent(t *testing.T) {
	ledger := NewLedger(newMockLedgerRepo(), testLogger())

	processed, err := ledger.IsProcessed(context.Background(), "never-seen")
	require.NoError(t, err)
	require.False(t, processed)
}
