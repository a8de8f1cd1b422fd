package broadcast

import (
	"context"
	"time"

	"go.uber.org/zap"

	"clickbattle/internal/events"
	"clickbattle/internal/usecase/aggregator"
	"clickbattle/internal/usecase/presence"
)

// Pipeline — конвейер «событие клика -> агрегаты -> подписчики»: читает шину,
// двигает бегущие суммы, обновляет присутствие и публикует свежие снимки
// обоих потоков.
type Pipeline struct {
	log         *zap.SugaredLogger
	bus         *events.Bus
	agg         *aggregator.Aggregator
	tracker     *presence.Tracker
	broadcaster *Broadcaster
	refresh     time.Duration
}

func NewPipeline(log *zap.SugaredLogger, bus *events.Bus, agg *aggregator.Aggregator, tracker *presence.Tracker, broadcaster *Broadcaster, refresh time.Duration) *Pipeline {
	return &Pipeline{
		log:         log,
		bus:         bus,
		agg:         agg,
		tracker:     tracker,
		broadcaster: broadcaster,
		refresh:     refresh,
	}
}

// Run крутится до отмены контекста. Один потребитель шины на процесс:
// порядок публикаций по каждому ключу совпадает с порядком записи.
//
// Стрики гаснут и без кликов, поэтому одних событий шины мало: пока на табло
// кто-то есть, presence-снимок периодически пересобирается, чтобы подписчики
// увидели опустевший лидерборд после простоя.
func (p *Pipeline) Run(ctx context.Context) {
	// стартовый снимок, чтобы первый подписчик не ждал первого клика
	p.broadcaster.Publish(StreamScores, p.agg.Snapshot())

	refresh := time.NewTicker(p.refresh)
	defer refresh.Stop()

	presenceLive := false

	for {
		select {
		case <-ctx.Done():
			p.log.Info("конвейер остановлен")
			return
		case ev := <-p.bus.Clicks:
			scores := p.agg.Apply(ev)
			p.broadcaster.Publish(StreamScores, scores)

			if err := p.tracker.OnActivity(ctx, ev); err != nil {
				p.log.Errorf("не удалось обновить presence для %s: %v", ev.DeviceID, err)
			}

			top, err := p.tracker.TopActive(ctx)
			if err != nil {
				p.log.Errorf("не удалось прочитать presence: %v", err)
				continue
			}
			presenceLive = len(top.Players) > 0
			p.broadcaster.Publish(StreamPresence, top)
		case <-refresh.C:
			if !presenceLive {
				continue
			}
			top, err := p.tracker.TopActive(ctx)
			if err != nil {
				p.log.Errorf("не удалось прочитать presence: %v", err)
				continue
			}
			presenceLive = len(top.Players) > 0
			p.broadcaster.Publish(StreamPresence, top)
		}
	}
}
