package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

// Service drives the event detector once per fixed polling interval. Cycles
// are independent units of work: a failed cycle is logged and the next one
// proceeds unaffected, with no state carried between cycles beyond what the
// ledger persists.
type Service struct {
	client       FeedClient
	detector     *Detector
	pollInterval time.Duration
	logger       *logger.Logger

	mu              sync.RWMutex
	lastCycleTime   time.Time
	lastCycleStatus bool
	cycleCount      int64
	eventsTotal     int64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewService creates a new cycle scheduler.
func NewService(client FeedClient, detector *Detector, pollInterval time.Duration, log *logger.Logger) *Service {
	return &Service{
		client:       client,
		detector:     detector,
		pollInterval: pollInterval,
		logger:       log.Named("tracker"),
		stopCh:       make(chan struct{}),
	}
}

// Start runs an initial cycle and begins background polling.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting takeoff tracker",
		logger.Duration("poll_interval", s.pollInterval))

	s.runCycle(ctx)

	s.wg.Add(1)
	go s.pollLoop(ctx)

	return nil
}

// Stop stops the poll loop. The in-flight cycle, if any, runs to completion
// first so no event is left half-committed.
func (s *Service) Stop() {
	s.logger.Info("Stopping takeoff tracker")
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Takeoff tracker stopped")
}

// pollLoop runs one cycle per tick until stopped.
func (s *Service) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCycle(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCycle fetches one batch and runs it through the detector. All failures
// are contained within the cycle.
func (s *Service) runCycle(ctx context.Context) {
	start := time.Now()

	batch, err := s.client.FetchBatch(ctx)
	if err != nil {
		s.logger.Error("Cycle failed to fetch snapshot batch", logger.Error(err))
		s.recordCycle(false, 0)
		return
	}

	events := s.detector.ProcessBatch(ctx, batch)
	s.recordCycle(true, events)

	s.logger.Debug("Cycle completed",
		logger.Int("snapshots", len(batch.Snapshots)),
		logger.Int("events", events),
		logger.Duration("duration", time.Since(start)))
}

func (s *Service) recordCycle(ok bool, events int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCycleTime = time.Now().UTC()
	s.lastCycleStatus = ok
	s.cycleCount++
	s.eventsTotal += int64(events)
}

// Status returns the last cycle time and whether it succeeded.
func (s *Service) Status() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCycleTime, s.lastCycleStatus
}

// Counters returns the total cycle and event counts since startup.
func (s *Service) Counters() (cycles, events int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycleCount, s.eventsTotal
}
