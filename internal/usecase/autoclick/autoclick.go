package autoclick

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"clickbattle/internal/domain/player"
)

type Clicker interface {
	SubmitClick(ctx context.Context, req player.ClickRequest) (player.ClickResponse, error)
}

type SessionStore interface {
	GetSession(ctx context.Context, deviceID string) (pseudo string, team string, ok bool)
}

// Ticker — серверный эквивалент авто-кликера мобильного клиента: раз в
// секунду начисляет очки подключённым игрокам с купленным auto-clicker.
// Подключённость определяется открытой websocket-подпиской.
type Ticker struct {
	log      *zap.SugaredLogger
	clicker  Clicker
	sessions SessionStore
	interval time.Duration

	mu     sync.Mutex
	online map[string]bool
}

func NewTicker(log *zap.SugaredLogger, clicker Clicker, sessions SessionStore, interval time.Duration) *Ticker {
	return &Ticker{
		log:      log,
		clicker:  clicker,
		sessions: sessions,
		interval: interval,
		online:   make(map[string]bool),
	}
}

func (t *Ticker) Register(deviceID string) {
	if deviceID == "" {
		return
	}
	t.mu.Lock()
	t.online[deviceID] = true
	t.mu.Unlock()
}

func (t *Ticker) Unregister(deviceID string) {
	t.mu.Lock()
	delete(t.online, deviceID)
	t.mu.Unlock()
}

func (t *Ticker) IsOnline(deviceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.online[deviceID]
}

func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("авто-кликер остановлен")
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Ticker) tick(ctx context.Context) {
	t.mu.Lock()
	devices := make([]string, 0, len(t.online))
	for id := range t.online {
		devices = append(devices, id)
	}
	t.mu.Unlock()

	for _, deviceID := range devices {
		pseudo, team, ok := t.sessions.GetSession(ctx, deviceID)
		if !ok {
			// игрок ещё ни разу не кликал сам — начислять не за что
			continue
		}

		// usecase сам посчитает бонус от купленных авто-кликеров
		// и сделает no-op, если их нет
		_, err := t.clicker.SubmitClick(ctx, player.ClickRequest{
			DeviceID: deviceID,
			Pseudo:   pseudo,
			Team:     team,
			IsAuto:   true,
		})
		if err != nil {
			t.log.Errorf("авто-тик для %s не прошёл: %v", deviceID, err)
		}
	}
}
