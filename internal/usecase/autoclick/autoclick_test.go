package autoclick

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"clickbattle/internal/domain/player"
)

type recordingClicker struct {
	mu       sync.Mutex
	requests []player.ClickRequest
}

func (r *recordingClicker) SubmitClick(_ context.Context, req player.ClickRequest) (player.ClickResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return player.ClickResponse{}, nil
}

func (r *recordingClicker) recorded() []player.ClickRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]player.ClickRequest(nil), r.requests...)
}

type mapSessions map[string][2]string

func (m mapSessions) GetSession(_ context.Context, deviceID string) (string, string, bool) {
	s, ok := m[deviceID]
	return s[0], s[1], ok
}

func TestTicker_TicksRegisteredDevices(t *testing.T) {
	clicker := &recordingClicker{}
	sessions := mapSessions{"device_1": {"alice", player.TeamRed}}
	ticker := NewTicker(zap.NewNop().Sugar(), clicker, sessions, time.Second)

	ticker.Register("device_1")
	ticker.tick(context.Background())

	reqs := clicker.recorded()
	if len(reqs) != 1 {
		t.Fatalf("got %d submissions, want 1", len(reqs))
	}
	req := reqs[0]
	if req.DeviceID != "device_1" || req.Pseudo != "alice" || req.Team != player.TeamRed {
		t.Errorf("submission = %+v", req)
	}
	if !req.IsAuto {
		t.Error("auto tick submitted as a genuine click")
	}
}

func TestTicker_SkipsDeviceWithoutSession(t *testing.T) {
	clicker := &recordingClicker{}
	ticker := NewTicker(zap.NewNop().Sugar(), clicker, mapSessions{}, time.Second)

	ticker.Register("device_unknown")
	ticker.tick(context.Background())

	if got := clicker.recorded(); len(got) != 0 {
		t.Errorf("device without a play session was ticked: %+v", got)
	}
}

func TestTicker_UnregisterStopsTicking(t *testing.T) {
	clicker := &recordingClicker{}
	sessions := mapSessions{"device_1": {"alice", player.TeamRed}}
	ticker := NewTicker(zap.NewNop().Sugar(), clicker, sessions, time.Second)

	ticker.Register("device_1")
	ticker.tick(context.Background())
	ticker.Unregister("device_1")
	ticker.tick(context.Background())

	if got := clicker.recorded(); len(got) != 1 {
		t.Errorf("got %d submissions, want 1 (no ticks after unregister)", len(got))
	}
}

func TestTicker_EmptyDeviceIDIgnored(t *testing.T) {
	clicker := &recordingClicker{}
	ticker := NewTicker(zap.NewNop().Sugar(), clicker, mapSessions{"": {"ghost", player.TeamRed}}, time.Second)

	ticker.Register("")
	ticker.tick(context.Background())

	if got := clicker.recorded(); len(got) != 0 {
		t.Errorf("empty device id was ticked: %+v", got)
	}
}

func TestTicker_RunStopsOnContextCancel(t *testing.T) {
	clicker := &recordingClicker{}
	ticker := NewTicker(zap.NewNop().Sugar(), clicker, mapSessions{}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ticker.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
