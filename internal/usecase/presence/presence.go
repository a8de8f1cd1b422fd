package presence

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"clickbattle/internal/domain/player"
	"clickbattle/internal/events"
)

type PresenceStore interface {
	Save(ctx context.Context, deviceID string, entry player.PresenceEntry) error
	All(ctx context.Context) ([]player.PresenceEntry, error)
}

// Tracker ведёт эфемерный список «кто сейчас на стрике». Протухшие записи
// не удаляются фоновым таймером, а отфильтровываются при чтении: ленивое
// вытеснение не требует координатора в многоэкземплярном развёртывании.
type Tracker struct {
	log    *zap.SugaredLogger
	store  PresenceStore
	window time.Duration
	limit  int
	now    func() time.Time
}

func NewTracker(log *zap.SugaredLogger, store PresenceStore, window time.Duration, limit int) *Tracker {
	return &Tracker{
		log:    log,
		store:  store,
		window: window,
		limit:  limit,
		now:    time.Now,
	}
}

func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// OnActivity обновляет запись игрока. Авто-тики активность не продлевают:
// авто-кликер не считается живым игроком.
func (t *Tracker) OnActivity(ctx context.Context, ev events.ClickEvent) error {
	if ev.IsAuto {
		return nil
	}
	return t.store.Save(ctx, ev.DeviceID, player.PresenceEntry{
		Pseudo:        ev.Pseudo,
		Team:          ev.Team,
		Streak:        ev.Streak,
		LastClickTime: ev.LastClickTime,
	})
}

// TopActive возвращает лидерборд активных игроков: streak > 0, последний клик
// не старше окна, сортировка (streak по убыванию, lastClickTime по
// возрастанию) — ранний клик при равном стрике выигрывает, это поощряет
// стабильный темп, а не всплески.
func (t *Tracker) TopActive(ctx context.Context) (player.PresenceSnapshot, error) {
	entries, err := t.store.All(ctx)
	if err != nil {
		return player.PresenceSnapshot{}, err
	}

	nowMs := t.now().UnixMilli()
	windowMs := t.window.Milliseconds()

	active := entries[:0]
	for _, e := range entries {
		if e.Streak > 0 && nowMs-e.LastClickTime <= windowMs {
			active = append(active, e)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].Streak != active[j].Streak {
			return active[i].Streak > active[j].Streak
		}
		return active[i].LastClickTime < active[j].LastClickTime
	})

	if len(active) > t.limit {
		active = active[:t.limit]
	}

	// пустой список сериализуем как [], а не null
	if active == nil {
		active = []player.PresenceEntry{}
	}

	return player.PresenceSnapshot{Players: active}, nil
}
