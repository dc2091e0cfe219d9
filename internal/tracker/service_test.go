package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skyfleet/takeoff-tracker/internal/feed"
	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

type fakeFeed struct {
	mu      sync.Mutex
	batches []*feed.Batch
	err     error
	calls   int
}

func (f *fakeFeed) FetchBatch(ctx context.Context) (*feed.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) > 0 {
		batch := f.batches[0]
		if len(f.batches) > 1 {
			f.batches = f.batches[1:]
		}
		return batch, nil
	}
	return &feed.Batch{Time: time.Now()}, nil
}

func (f *fakeFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(client FeedClient, interval time.Duration) *Service {
	det := testDetector(newFakeLedger(), &fakeNotifier{})
	return NewService(client, det, interval, logger.NewNop())
}

func TestServiceRunsInitialCycle(t *testing.T) {
	client := &fakeFeed{}
	svc := newTestService(client, time.Hour)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	// The first cycle runs synchronously inside Start.
	if client.callCount() != 1 {
		t.Errorf("expected 1 fetch after Start, got %d", client.callCount())
	}

	lastCycle, ok := svc.Status()
	if !ok {
		t.Error("expected successful cycle status")
	}
	if lastCycle.IsZero() {
		t.Error("expected last cycle time to be set")
	}

	cycles, events := svc.Counters()
	if cycles != 1 || events != 0 {
		t.Errorf("counters = %d cycles, %d events", cycles, events)
	}
}

func TestServiceFetchFailureIsContained(t *testing.T) {
	client := &fakeFeed{err: errors.New("feed unavailable")}
	svc := newTestService(client, time.Hour)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	if _, ok := svc.Status(); ok {
		t.Error("expected failed cycle status")
	}

	cycles, _ := svc.Counters()
	if cycles != 1 {
		t.Errorf("failed cycle must still be counted, got %d", cycles)
	}
}

func TestServicePollsOnTicker(t *testing.T) {
	client := &fakeFeed{}
	svc := newTestService(client, 20*time.Millisecond)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for client.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	svc.Stop()

	if client.callCount() < 3 {
		t.Errorf("expected at least 3 fetches, got %d", client.callCount())
	}
}

func TestServiceStopIsIdempotentAcrossCycles(t *testing.T) {
	client := &fakeFeed{}
	svc := newTestService(client, time.Hour)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	svc.Stop()

	calls := client.callCount()
	time.Sleep(20 * time.Millisecond)
	if client.callCount() != calls {
		t.Error("no cycles may run after Stop")
	}
}
