package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mockScannerRepo struct {
	mu      sync.Mutex
	ids     []string
	err     error
	cutoffs []time.Time
	limits  []int
}

func (m *mockScannerRepo) ListSubmissionsNeedingAnalysis(_ context.Context, pendingBefore time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cutoffs = append(m.cutoffs, pendingBefore)
	m.limits = append(m.limits, limit)

	if m.err != nil {
		return nil, m.err
	}

	return m.ids, nil
}

type recordingEnqueuer struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingEnqueuer) Enqueue(submissionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ids = append(r.ids, submissionID)
}

func (r *recordingEnqueuer) enqueued() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.ids...)
}

func TestScannerEnqueuesStaleSubmissions(t *testing.T) {
	repo := &mockScannerRepo{ids: []string{"s1", "s2"}}
	sink := &recordingEnqueuer{}

	s := NewScanner(repo, sink, ScannerConfig{
		Interval:    time.Minute,
		GracePeriod: 15 * time.Minute,
		BatchSize:   50,
	}, testLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	s.scan(context.Background())

	require.Equal(t, []string{"s1", "s2"}, sink.enqueued())
	require.Equal(t, []time.Time{now.Add(-15 * time.Minute)}, repo.cutoffs)
	require.Equal(t, []int{50}, repo.limits)
}

func TestScannerToleratesRepositoryError(t *testing.T) {
	repo := &mockScannerRepo{err: errors.New("db down")}
	sink := &recordingEnqueuer{}

	s := NewScanner(repo, sink, ScannerConfig{}, testLogger())

	s.scan(context.Background())

	require.Empty(t, sink.enqueued())
}

func TestScannerRunScansOnStartAndStopsOnCancel(t *testing.T) {
	repo := &mockScannerRepo{ids: []string{"s1"}}
	sink := &recordingEnqueuer{}

	s := NewScanner(repo, sink, ScannerConfig{Interval: time.Hour}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- s.Run(ctx)
	}()

	// RunOnStart scans immediately; the hour-long interval never fires.
	require.Eventually(t, func() bool {
		return len(sink.enqueued()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop after cancellation")
	}
}

func TestScannerDefaultsApplied(t *testing.T) {
	s := NewScanner(&mockScannerRepo{}, &recordingEnqueuer{}, ScannerConfig{}, testLogger())

	require.Equal(t, defaultBackfillInterval, s.cfg.Interval)
	require.Equal(t, defaultGracePeriod, s.cfg.GracePeriod)
	require.Equal(t, defaultBackfillBatch, s.cfg.BatchSize)
}
