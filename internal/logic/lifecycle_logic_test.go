package logic

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/blues/cfc/internal/model"
)

func record(creation, duration int64, goal, raised int64) *model.ProjectRecord {
	return &model.ProjectRecord{
		Category:     model.CategoryArts,
		RefundPolicy: model.RefundPolicyRefundable,
		CreationTime: creation,
		Duration:     duration,
		FundingGoal:  big.NewInt(goal),
		AmountRaised: big.NewInt(raised),
	}
}

func TestLifecycleOpenProject(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	p := record(now.Unix()-100, 200, 100, 50)

	status := EvaluateLifecycle(p, now)
	if status.Expired {
		t.Fatal("project with time left must not be expired")
	}
	if status.Remaining != 100 {
		t.Fatalf("remaining = %d, want 100", status.Remaining)
	}
	if status.FundedRatio != 0.5 {
		t.Fatalf("funded ratio = %f, want 0.5", status.FundedRatio)
	}
	if status.FullyFunded {
		t.Fatal("50/100 is not fully funded")
	}
}

func TestLifecycleExpiresExactlyAtDeadline(t *testing.T) {
	now := time.Unix(2_000_000, 0)
	p := record(now.Unix()-300, 300, 100, 100)

	status := EvaluateLifecycle(p, now)
	if !status.Expired {
		t.Fatal("remaining == 0 must count as expired")
	}
	if !status.FullyFunded {
		t.Fatal("raised == goal must be fully funded")
	}
}

func TestCountdownDecomposition(t *testing.T) {
	now := time.Unix(0, 0)
	// 2 days, 3 hours, 4 minutes, 5 seconds
	remaining := int64(2*86400 + 3*3600 + 4*60 + 5)
	p := record(0, remaining, 100, 0)

	cd := EvaluateLifecycle(p, now).Countdown()
	if cd.Days != 2 || cd.Hours != 3 || cd.Minutes != 4 || cd.Seconds != 5 {
		t.Fatalf("countdown = %+v", cd)
	}
}

func TestCountdownClampsToZeroWhenExpired(t *testing.T) {
	now := time.Unix(5_000_000, 0)
	p := record(now.Unix()-1000, 10, 100, 0)

	cd := EvaluateLifecycle(p, now).Countdown()
	if cd != (Countdown{}) {
		t.Fatalf("expired countdown must be all zeros, got %+v", cd)
	}
}

func TestCountdownNeverNegative(t *testing.T) {
	base := time.Unix(1_000_000, 0)
	p := record(base.Unix(), 90, 100, 0)
	for offset := int64(0); offset < 200; offset += 7 {
		cd := EvaluateLifecycle(p, base.Add(time.Duration(offset)*time.Second)).Countdown()
		if cd.Days < 0 || cd.Hours < 0 || cd.Minutes < 0 || cd.Seconds < 0 {
			t.Fatalf("negative countdown component at offset %d: %+v", offset, cd)
		}
	}
}

func TestWatchCountdownStopsOnCancel(t *testing.T) {
	p := record(time.Now().Unix(), 3600, 100, 0)
	ctx, cancel := context.WithCancel(context.Background())

	ch := WatchCountdown(ctx, p, 10*time.Millisecond)
	if _, ok := <-ch; !ok {
		t.Fatal("expected at least one tick before cancel")
	}
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // channel closed after cancellation
			}
		case <-deadline:
			t.Fatal("countdown channel not closed after cancel")
		}
	}
}

func TestWatchCountdownClosesAfterExpiry(t *testing.T) {
	// already expired: first tick emits the zero value, then the channel closes
	p := record(time.Now().Unix()-100, 10, 100, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := WatchCountdown(ctx, p, 10*time.Millisecond)
	cd, ok := <-ch
	if !ok {
		t.Fatal("expected a final zero tick")
	}
	if cd != (Countdown{}) {
		t.Fatalf("final tick must be zero, got %+v", cd)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("no ticks expected after expiry")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after expiry")
	}
}
