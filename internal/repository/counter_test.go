package repo

import (
	"testing"
)

func TestNextStreak_ConsecutiveClicksInsideWindow(t *testing.T) {
	const window = 3000

	streak, last := 0, int64(0)
	want := []int{1, 2, 3, 4}
	for i, nowMs := range []int64{0, 1000, 2000, 3000} {
		streak, last = nextStreak(streak, last, nowMs, window, false)
		if streak != want[i] {
			t.Fatalf("click at t=%d: streak = %d, want %d", nowMs, streak, want[i])
		}
		if last != nowMs {
			t.Fatalf("click at t=%d: lastClickTime = %d, want %d", nowMs, last, nowMs)
		}
	}
}

func TestNextStreak_GapResetsToOne(t *testing.T) {
	const window = 3000

	streak, last := nextStreak(4, 3000, 6000, window, false)
	if streak != 4+1 {
		t.Errorf("gap of exactly window: streak = %d, want continuation to 5", streak)
	}
	_ = last

	streak, _ = nextStreak(4, 3000, 6001, window, false)
	if streak != 1 {
		t.Errorf("gap over window: streak = %d, want reset to 1", streak)
	}

	streak, _ = nextStreak(7, 0, 100000, window, false)
	if streak != 1 {
		t.Errorf("long idle: streak = %d, want 1", streak)
	}
}

func TestNextStreak_AutoTickPreservesState(t *testing.T) {
	streak, last := nextStreak(3, 2000, 10000, 3000, true)
	if streak != 3 {
		t.Errorf("auto tick changed streak: %d, want 3", streak)
	}
	if last != 2000 {
		t.Errorf("auto tick touched lastClickTime: %d, want 2000", last)
	}
}

func TestNextStreak_FirstClickEver(t *testing.T) {
	streak, last := nextStreak(0, 0, 500, 3000, false)
	// nowMs-0 внутри окна, так что 0+1
	if streak != 1 {
		t.Errorf("first click: streak = %d, want 1", streak)
	}
	if last != 500 {
		t.Errorf("first click: lastClickTime = %d, want 500", last)
	}
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.0, 1.0},
		{1.05, 1.1},
		{1.04, 1.0},
		{0.1 + 0.2, 0.3},
		{1.25, 1.3},
		{2.4499999, 2.4},
	}
	for _, tt := range tests {
		if got := round1(tt.in); got != tt.want {
			t.Errorf("round1(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
