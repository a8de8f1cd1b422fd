package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"clickbattle/internal/domain/player"
	errs "clickbattle/internal/errors"
)

const presenceKeyPrefix = "presence:"

// Записи присутствия живут в redis и полностью восстанавливаются из потока
// кликов, поэтому TTL можно держать коротким: читатель всё равно фильтрует
// по lastClickTime.
const presenceTTL = time.Minute

type RedisPresenceStorage struct {
	log    *zap.SugaredLogger
	client *redis.Client
}

func NewRedisPresenceStorage(log *zap.SugaredLogger, client *redis.Client) *RedisPresenceStorage {
	return &RedisPresenceStorage{
		log:    log,
		client: client,
	}
}

func (r *RedisPresenceStorage) Save(ctx context.Context, deviceID string, entry player.PresenceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, presenceKeyPrefix+deviceID, data, presenceTTL).Err(); err != nil {
		r.log.Errorf("не удалось сохранить presence для %s: %v", deviceID, err)
		return errs.WrapTransient(err)
	}
	return nil
}

func (r *RedisPresenceStorage) All(ctx context.Context) ([]player.PresenceEntry, error) {
	var entries []player.PresenceEntry

	iter := r.client.Scan(ctx, 0, presenceKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if err == redis.Nil {
				// ключ истёк между SCAN и GET
				continue
			}
			r.log.Error(err)
			return nil, errs.WrapTransient(err)
		}

		var entry player.PresenceEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			r.log.Errorf("битая запись presence %s: %v", iter.Val(), err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := iter.Err(); err != nil {
		r.log.Error(err)
		return nil, errs.WrapTransient(err)
	}

	return entries, nil
}
