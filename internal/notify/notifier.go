// Package notify delivers takeoff notifications to an external status API.
//
// Delivery is best-effort: rate-limited attempts are retried a bounded
// number of times with a fixed backoff, any other failure is reported to
// the caller once and dropped there. Delivery success is deliberately not a
// condition for the ledger write, so a dropped notification never rolls
// back a recorded flight.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/skyfleet/takeoff-tracker/internal/tracker"
	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

// Defaults for the rate-limit retry policy.
const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 60 * time.Second
)

// StatusPoster delivers one rendered status update.
type StatusPoster interface {
	PostStatus(ctx context.Context, text string) error
}

// Composer optionally rewrites a drafted status text before delivery.
type Composer interface {
	Compose(ctx context.Context, draft string) (string, error)
}

// Service implements tracker.Notifier on top of a status poster, applying
// the rate-limit retry policy and the optional message composer.
type Service struct {
	poster       StatusPoster
	composer     Composer
	maxRetries   int
	retryBackoff time.Duration
	logger       *logger.Logger
	sleep        func(time.Duration)
}

// NewService creates a notification service. composer may be nil.
func NewService(poster StatusPoster, composer Composer, maxRetries int, retryBackoff time.Duration, log *logger.Logger) *Service {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if retryBackoff <= 0 {
		retryBackoff = DefaultRetryBackoff
	}
	return &Service{
		poster:       poster,
		composer:     composer,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		logger:       log.Named("notify"),
		sleep:        time.Sleep,
	}
}

// Post delivers a takeoff notification. Rate-limited deliveries are retried
// up to maxRetries times with a fixed backoff between attempts; any other
// delivery error is returned immediately.
func (s *Service) Post(ctx context.Context, event *tracker.EnrichedEvent, message string) error {
	text := message
	if s.composer != nil {
		composed, err := s.composer.Compose(ctx, message)
		if err != nil {
			s.logger.Warn("Composer failed, falling back to rendered message",
				logger.Error(err))
		} else {
			text = composed
		}
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Info("Retrying notification delivery",
				logger.String("icao24", event.Snapshot.Icao24),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", s.retryBackoff))
			s.sleep(s.retryBackoff)
		}

		err := s.poster.PostStatus(ctx, text)
		if err == nil {
			s.logger.Info("Posted takeoff notification",
				logger.String("icao24", event.Snapshot.Icao24),
				logger.String("callsign", event.Snapshot.TrimmedCallsign()))
			return nil
		}

		var rateErr *RateLimitError
		if !errors.As(err, &rateErr) {
			return err
		}
		lastErr = err
	}

	return lastErr
}
