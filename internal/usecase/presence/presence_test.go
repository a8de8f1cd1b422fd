package presence

import (
	"context"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"clickbattle/internal/domain/player"
	"clickbattle/internal/events"
)

type fakeStore struct {
	entries map[string]player.PresenceEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]player.PresenceEntry)}
}

func (f *fakeStore) Save(_ context.Context, deviceID string, entry player.PresenceEntry) error {
	f.entries[deviceID] = entry
	return nil
}

func (f *fakeStore) All(_ context.Context) ([]player.PresenceEntry, error) {
	var out []player.PresenceEntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func newTestTracker(store PresenceStore, now time.Time) *Tracker {
	tr := NewTracker(zap.NewNop().Sugar(), store, 3*time.Second, 3)
	tr.SetClock(func() time.Time { return now })
	return tr
}

func click(deviceID, pseudo, team string, streak int, at time.Time) events.ClickEvent {
	return events.ClickEvent{
		DeviceID:      deviceID,
		Pseudo:        pseudo,
		Team:          team,
		Streak:        streak,
		LastClickTime: at.UnixMilli(),
	}
}

func TestTracker_TopActiveOrdering(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	tr := newTestTracker(store, now)

	ctx := context.Background()
	// у alice стрик выше; при равном стрике выигрывает более ранний клик
	if err := tr.OnActivity(ctx, click("d1", "alice", player.TeamRed, 5, now.Add(-time.Second))); err != nil {
		t.Fatal(err)
	}
	if err := tr.OnActivity(ctx, click("d2", "bob", player.TeamBlue, 3, now.Add(-2*time.Second))); err != nil {
		t.Fatal(err)
	}
	if err := tr.OnActivity(ctx, click("d3", "carol", player.TeamRed, 3, now.Add(-time.Second))); err != nil {
		t.Fatal(err)
	}

	snap, err := tr.TopActive(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, p := range snap.Players {
		names = append(names, p.Pseudo)
	}
	want := []string{"alice", "bob", "carol"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("TopActive order = %v, want %v", names, want)
	}
}

func TestTracker_TopActiveFiltersStale(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	tr := newTestTracker(store, now)

	ctx := context.Background()
	if err := tr.OnActivity(ctx, click("d1", "alice", player.TeamRed, 10, now.Add(-4*time.Second))); err != nil {
		t.Fatal(err)
	}
	if err := tr.OnActivity(ctx, click("d2", "bob", player.TeamBlue, 2, now.Add(-time.Second))); err != nil {
		t.Fatal(err)
	}

	snap, err := tr.TopActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Players) != 1 || snap.Players[0].Pseudo != "bob" {
		t.Errorf("TopActive = %+v, want only bob", snap.Players)
	}
}

func TestTracker_TopActiveAllExpiredAfterIdleGap(t *testing.T) {
	store := newFakeStore()
	start := time.Now()
	tr := newTestTracker(store, start)

	ctx := context.Background()
	if err := tr.OnActivity(ctx, click("d1", "alice", player.TeamRed, 4, start)); err != nil {
		t.Fatal(err)
	}
	if err := tr.OnActivity(ctx, click("d2", "bob", player.TeamBlue, 2, start)); err != nil {
		t.Fatal(err)
	}

	snap, err := tr.TopActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("TopActive right after clicks = %d players, want 2", len(snap.Players))
	}

	// через 4 секунды простоя не остаётся никого
	tr.SetClock(func() time.Time { return start.Add(4 * time.Second) })
	snap, err = tr.TopActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Players) != 0 {
		t.Errorf("TopActive after 4s idle = %+v, want empty", snap.Players)
	}
}

func TestTracker_TopActiveIdempotentRead(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	tr := newTestTracker(store, now)

	ctx := context.Background()
	for i, name := range []string{"alice", "bob", "carol", "dave"} {
		ev := click("d"+name, name, player.TeamRed, i+1, now.Add(-time.Duration(i)*100*time.Millisecond))
		if err := tr.OnActivity(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	first, err := tr.TopActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := tr.TopActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated TopActive differs: %+v vs %+v", first, second)
	}
}

func TestTracker_TopActiveTruncatesToLimit(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	tr := newTestTracker(store, now)

	ctx := context.Background()
	names := []string{"p1", "p2", "p3", "p4", "p5"}
	for i, name := range names {
		if err := tr.OnActivity(ctx, click("d"+name, name, player.TeamBlue, i+1, now)); err != nil {
			t.Fatal(err)
		}
	}

	snap, err := tr.TopActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Players) != 3 {
		t.Fatalf("TopActive = %d players, want 3", len(snap.Players))
	}
	// остаются три самых больших стрика
	if snap.Players[0].Streak != 5 || snap.Players[1].Streak != 4 || snap.Players[2].Streak != 3 {
		t.Errorf("TopActive streaks = %d,%d,%d, want 5,4,3",
			snap.Players[0].Streak, snap.Players[1].Streak, snap.Players[2].Streak)
	}
}

func TestTracker_AutoTickDoesNotRefreshPresence(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	tr := newTestTracker(store, now)

	ctx := context.Background()
	ev := click("d1", "alice", player.TeamRed, 3, now)
	ev.IsAuto = true
	if err := tr.OnActivity(ctx, ev); err != nil {
		t.Fatal(err)
	}

	snap, err := tr.TopActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Players) != 0 {
		t.Errorf("auto tick created presence entry: %+v", snap.Players)
	}
}

func TestPresenceEntry_Opacity(t *testing.T) {
	now := time.Now()
	window := 3 * time.Second

	fresh := player.PresenceEntry{LastClickTime: now.UnixMilli()}
	if got := fresh.Opacity(now, window); got != 1 {
		t.Errorf("fresh opacity = %v, want 1", got)
	}

	half := player.PresenceEntry{LastClickTime: now.Add(-1500 * time.Millisecond).UnixMilli()}
	if got := half.Opacity(now, window); got < 0.49 || got > 0.51 {
		t.Errorf("half-window opacity = %v, want ~0.5", got)
	}

	stale := player.PresenceEntry{LastClickTime: now.Add(-5 * time.Second).UnixMilli()}
	if got := stale.Opacity(now, window); got != 0 {
		t.Errorf("stale opacity = %v, want 0", got)
	}
}
