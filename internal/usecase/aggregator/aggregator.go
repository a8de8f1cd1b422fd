package aggregator

import (
	"sync"

	"go.uber.org/zap"

	"clickbattle/internal/domain/player"
	"clickbattle/internal/events"
)

// Aggregator держит бегущие суммы по командам и корректирует их дельтами из
// шины событий. Полное сканирование коллекции выполняется один раз на старте
// (seed), дальше каждый клик стоит O(1).
type Aggregator struct {
	mu   sync.RWMutex
	red  int64
	blue int64
	log  *zap.SugaredLogger
}

func NewAggregator(log *zap.SugaredLogger) *Aggregator {
	return &Aggregator{log: log}
}

// Seed задаёт стартовые суммы, посчитанные агрегацией по базе.
func (a *Aggregator) Seed(red, blue int64) {
	a.mu.Lock()
	a.red = red
	a.blue = blue
	a.mu.Unlock()
	a.log.Infof("агрегатор запущен: red=%d blue=%d", red, blue)
}

// Apply применяет дельту события и возвращает свежий снимок счетов.
// Порядок событий между разными игроками не гарантирован, и сумме он
// безразличен: сложение коммутативно.
func (a *Aggregator) Apply(ev events.ClickEvent) player.ScoresSnapshot {
	a.mu.Lock()
	switch ev.Team {
	case player.TeamRed:
		a.red += ev.TeamDelta
	case player.TeamBlue:
		a.blue += ev.TeamDelta
	default:
		a.log.Errorf("событие с неизвестной командой: %q", ev.Team)
	}
	red, blue := a.red, a.blue
	a.mu.Unlock()

	return snapshot(red, blue)
}

func (a *Aggregator) Snapshot() player.ScoresSnapshot {
	a.mu.RLock()
	red, blue := a.red, a.blue
	a.mu.RUnlock()
	return snapshot(red, blue)
}

func snapshot(red, blue int64) player.ScoresSnapshot {
	return player.ScoresSnapshot{
		Red:             red,
		Blue:            blue,
		ProgressPercent: ProgressPercent(red, blue),
	}
}

// ProgressPercent — доля красной команды в процентах. 50 при полном нуле —
// явная политика «бар по центру, пока никто не кликнул», а не артефакт.
func ProgressPercent(red, blue int64) float64 {
	total := red + blue
	if total == 0 {
		return 50
	}
	return float64(red) / float64(total) * 100
}
