package broadcast

import (
	"sync"

	"clickbattle/internal/metrics"
)

type StreamKey string

const (
	StreamScores   StreamKey = "scores"
	StreamPresence StreamKey = "presence"
)

// Broadcaster раздаёт подписчикам полные снимки состояния по ключу потока.
// Снимки самодостаточны, поэтому переподключившийся клиент получает
// последний снимок, а не бэклог.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[StreamKey]map[chan any]bool
	latest map[StreamKey]any
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:   make(map[StreamKey]map[chan any]bool),
		latest: make(map[StreamKey]any),
	}
}

// Subscribe регистрирует подписчика и сразу кладёт ему последний снимок,
// если он есть.
func (b *Broadcaster) Subscribe(key StreamKey) chan any {
	ch := make(chan any, 8)

	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = make(map[chan any]bool)
	}
	b.subs[key][ch] = true
	if snapshot, ok := b.latest[key]; ok {
		ch <- snapshot
	}
	b.mu.Unlock()

	metrics.StreamSubscribers.WithLabelValues(string(key)).Inc()
	return ch
}

func (b *Broadcaster) Unsubscribe(key StreamKey, ch chan any) {
	b.mu.Lock()
	if _, ok := b.subs[key][ch]; ok {
		delete(b.subs[key], ch)
		close(ch)
		metrics.StreamSubscribers.WithLabelValues(string(key)).Dec()
	}
	b.mu.Unlock()
}

// Publish доставляет снимок всем подписчикам ключа в порядке записи.
// Медленному подписчику вытесняется самый старый буферизованный снимок:
// промежуточные состояния заменимы, важно только последнее.
func (b *Broadcaster) Publish(key StreamKey, snapshot any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest[key] = snapshot

	for ch := range b.subs[key] {
		// цикл, а не однократный повтор: подписчик может вычитать буфер
		// между вытеснением и отправкой, свежий снимок терять нельзя
		for {
			select {
			case ch <- snapshot:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Latest возвращает последний опубликованный снимок ключа.
func (b *Broadcaster) Latest(key StreamKey) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	snapshot, ok := b.latest[key]
	return snapshot, ok
}
