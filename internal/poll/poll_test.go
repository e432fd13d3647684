package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Cloudsky01/gh-ci-status/pkg/models"
)

type logicalClock struct {
	now    time.Duration
	sleeps []time.Duration
}

func (c *logicalClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now += d
	return nil
}

// scriptedLister answers each query from a function of the simulated time
type scriptedLister struct {
	clock   *logicalClock
	at      func(now time.Duration) []models.Run
	err     error
	queries int
}

func (l *scriptedLister) QueryRuns(ctx context.Context, repo, commit string, limit int) ([]models.Run, error) {
	l.queries++
	if l.err != nil {
		return nil, l.err
	}
	return l.at(l.clock.now), nil
}

var (
	running = models.Run{DatabaseID: 1, Status: models.StatusInProgress}
	queued  = models.Run{DatabaseID: 2, Status: models.StatusQueued}
	passed  = models.Run{DatabaseID: 1, Status: models.StatusCompleted, Conclusion: models.ConclusionSuccess}
	failed  = models.Run{DatabaseID: 1, Status: models.StatusCompleted, Conclusion: models.ConclusionFailure}
)

var testConfig = Config{
	Limit:       20,
	Interval:    10 * time.Second,
	Timeout:     60 * time.Second,
	NoRunsDelay: 5 * time.Second,
}

func TestInitialRetriesOnceWhenEmpty(t *testing.T) {
	tests := []struct {
		name        string
		at          func(now time.Duration) []models.Run
		wantRuns    int
		wantQueries int
		wantSleeps  []time.Duration
	}{
		{
			name:        "runs on first query",
			at:          func(time.Duration) []models.Run { return []models.Run{passed} },
			wantRuns:    1,
			wantQueries: 1,
		},
		{
			name: "runs appear after delay",
			at: func(now time.Duration) []models.Run {
				if now < 5*time.Second {
					return nil
				}
				return []models.Run{passed}
			},
			wantRuns:    1,
			wantQueries: 2,
			wantSleeps:  []time.Duration{5 * time.Second},
		},
		{
			name:        "never any runs",
			at:          func(time.Duration) []models.Run { return nil },
			wantRuns:    0,
			wantQueries: 2,
			wantSleeps:  []time.Duration{5 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &logicalClock{}
			lister := &scriptedLister{clock: clock, at: tt.at}
			p := New(lister, clock, testConfig)

			runs, err := p.Initial(context.Background(), "o/r", "abc1234")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(runs) != tt.wantRuns {
				t.Errorf("expected %d runs, got %d", tt.wantRuns, len(runs))
			}
			if lister.queries != tt.wantQueries {
				t.Errorf("expected %d queries, got %d", tt.wantQueries, lister.queries)
			}
			if len(clock.sleeps) != len(tt.wantSleeps) {
				t.Fatalf("expected sleeps %v, got %v", tt.wantSleeps, clock.sleeps)
			}
			for i := range tt.wantSleeps {
				if clock.sleeps[i] != tt.wantSleeps[i] {
					t.Errorf("sleep %d: expected %v, got %v", i, tt.wantSleeps[i], clock.sleeps[i])
				}
			}
		})
	}
}

func TestWaitIdleSnapshotDoesNotQuery(t *testing.T) {
	clock := &logicalClock{}
	lister := &scriptedLister{clock: clock, at: func(time.Duration) []models.Run { return nil }}
	p := New(lister, clock, testConfig)

	res, err := p.Wait(context.Background(), "o/r", "abc1234", []models.Run{passed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lister.queries != 0 {
		t.Errorf("expected no queries, got %d", lister.queries)
	}
	if res.TimedOut {
		t.Error("expected no timeout")
	}
	if len(res.Runs) != 1 || res.Runs[0] != passed {
		t.Errorf("expected snapshot returned unchanged, got %+v", res.Runs)
	}
	if p.State() != Done {
		t.Errorf("expected state done, got %s", p.State())
	}
}

func TestWaitUntilInactive(t *testing.T) {
	clock := &logicalClock{}
	lister := &scriptedLister{clock: clock, at: func(now time.Duration) []models.Run {
		if now < 20*time.Second {
			return []models.Run{running, queued}
		}
		return []models.Run{failed}
	}}
	p := New(lister, clock, testConfig)

	res, err := p.Wait(context.Background(), "o/r", "abc1234", []models.Run{running})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TimedOut {
		t.Error("expected no timeout")
	}
	if res.Queries != 3 {
		t.Errorf("expected 3 queries, got %d", res.Queries)
	}
	if res.Elapsed != 20*time.Second {
		t.Errorf("expected 20s elapsed, got %v", res.Elapsed)
	}
	if len(res.Runs) != 1 || !res.Runs[0].Failed() {
		t.Errorf("expected final failed snapshot, got %+v", res.Runs)
	}
}

func TestWaitTimesOutWithinBound(t *testing.T) {
	configs := []Config{
		testConfig,
		{Limit: 20, Interval: 7 * time.Second, Timeout: 60 * time.Second},
		{Limit: 20, Interval: 10 * time.Second, Timeout: 0},
		{Limit: 20, Interval: 90 * time.Second, Timeout: 60 * time.Second},
	}

	for _, cfg := range configs {
		clock := &logicalClock{}
		lister := &scriptedLister{clock: clock, at: func(time.Duration) []models.Run { return []models.Run{running} }}
		p := New(lister, clock, cfg)

		res, err := p.Wait(context.Background(), "o/r", "abc1234", []models.Run{running})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.TimedOut {
			t.Errorf("interval %v timeout %v: expected timeout", cfg.Interval, cfg.Timeout)
		}
		if res.Queries < 1 {
			t.Errorf("interval %v timeout %v: expected at least one query", cfg.Interval, cfg.Timeout)
		}
		if clock.now > cfg.Timeout+cfg.Interval {
			t.Errorf("interval %v timeout %v: ran for %v", cfg.Interval, cfg.Timeout, clock.now)
		}
		if len(res.Runs) != 1 || res.Runs[0] != running {
			t.Errorf("expected last snapshot to be returned, got %+v", res.Runs)
		}
	}
}

func TestWaitQueryError(t *testing.T) {
	clock := &logicalClock{}
	boom := errors.New("boom")
	lister := &scriptedLister{clock: clock, err: boom}
	p := New(lister, clock, testConfig)

	_, err := p.Wait(context.Background(), "o/r", "abc1234", []models.Run{running})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestWaitHonoursCancellation(t *testing.T) {
	clock := &logicalClock{}
	lister := &scriptedLister{clock: clock, at: func(time.Duration) []models.Run { return []models.Run{running} }}
	p := New(lister, clock, testConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Wait(ctx, "o/r", "abc1234", []models.Run{running})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRealSleeper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := (RealSleeper{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := (RealSleeper{}).Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
