package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skyfleet/takeoff-tracker/internal/feed"
	"github.com/skyfleet/takeoff-tracker/internal/tracker"
	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

type fakePoster struct {
	errs  []error // error per attempt; nil = success
	calls int
	texts []string
}

func (f *fakePoster) PostStatus(ctx context.Context, text string) error {
	f.texts = append(f.texts, text)
	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}
	f.calls++
	return err
}

type fakeComposer struct {
	out string
	err error
}

func (f *fakeComposer) Compose(ctx context.Context, draft string) (string, error) {
	return f.out, f.err
}

func testEvent() *tracker.EnrichedEvent {
	return &tracker.EnrichedEvent{
		Snapshot:   feed.PositionSnapshot{Icao24: "a1b2c3", Callsign: "SPEEDY1"},
		DetectedAt: time.Now(),
	}
}

func testService(poster StatusPoster, composer Composer) *Service {
	svc := NewService(poster, composer, 3, time.Minute, logger.NewNop())
	svc.sleep = func(time.Duration) {} // no real waiting in tests
	return svc
}

func TestPostSucceedsFirstAttempt(t *testing.T) {
	poster := &fakePoster{}
	svc := testService(poster, nil)

	if err := svc.Post(context.Background(), testEvent(), "msg"); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if poster.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", poster.calls)
	}
}

func TestPostRetriesOnRateLimit(t *testing.T) {
	poster := &fakePoster{errs: []error{&RateLimitError{}, &RateLimitError{}, nil}}
	svc := testService(poster, nil)

	var slept []time.Duration
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }

	if err := svc.Post(context.Background(), testEvent(), "msg"); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if poster.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", poster.calls)
	}
	for _, d := range slept {
		if d != time.Minute {
			t.Errorf("expected 1 minute backoff, got %v", d)
		}
	}
}

func TestPostGivesUpAfterMaxRetries(t *testing.T) {
	poster := &fakePoster{errs: []error{
		&RateLimitError{}, &RateLimitError{}, &RateLimitError{}, &RateLimitError{},
	}}
	svc := testService(poster, nil)

	err := svc.Post(context.Background(), testEvent(), "msg")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Errorf("expected RateLimitError, got %v", err)
	}
	// Initial attempt plus 3 retries.
	if poster.calls != 4 {
		t.Errorf("expected 4 attempts, got %d", poster.calls)
	}
}

func TestPostOtherErrorsAreNotRetried(t *testing.T) {
	poster := &fakePoster{errs: []error{errors.New("forbidden")}}
	svc := testService(poster, nil)

	if err := svc.Post(context.Background(), testEvent(), "msg"); err == nil {
		t.Fatal("expected error")
	}
	if poster.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", poster.calls)
	}
}

func TestPostUsesComposedText(t *testing.T) {
	poster := &fakePoster{}
	svc := testService(poster, &fakeComposer{out: "fancy text"})

	if err := svc.Post(context.Background(), testEvent(), "plain text"); err != nil {
		t.Fatal(err)
	}
	if len(poster.texts) != 1 || poster.texts[0] != "fancy text" {
		t.Errorf("expected composed text, got %v", poster.texts)
	}
}

func TestPostFallsBackWhenComposerFails(t *testing.T) {
	poster := &fakePoster{}
	svc := testService(poster, &fakeComposer{err: errors.New("model unavailable")})

	if err := svc.Post(context.Background(), testEvent(), "plain text"); err != nil {
		t.Fatal(err)
	}
	if len(poster.texts) != 1 || poster.texts[0] != "plain text" {
		t.Errorf("expected fallback to draft, got %v", poster.texts)
	}
}

func TestStatusClientRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewStatusClient(srv.URL, "token", 5*time.Second, logger.NewNop())

	err := client.PostStatus(context.Background(), "msg")
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rateErr.RetryAfter != "60" {
		t.Errorf("retry-after = %q", rateErr.RetryAfter)
	}
}

func TestStatusClientPost(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewStatusClient(srv.URL, "token", 5*time.Second, logger.NewNop())

	if err := client.PostStatus(context.Background(), "msg"); err != nil {
		t.Fatalf("PostStatus failed: %v", err)
	}
	if gotAuth != "Bearer token" {
		t.Errorf("authorization = %q", gotAuth)
	}
}
