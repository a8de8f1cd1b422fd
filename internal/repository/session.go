package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	sessionKeyPrefix = "session:"
	pseudoKeyPrefix  = "pseudo:"
)

// playSession — последняя известная пара (pseudo, team) устройства.
// Нужна авто-кликеру: серверный тик должен знать, за какую команду
// и под каким именем начислять очки.
type playSession struct {
	Pseudo string `json:"pseudo"`
	Team   string `json:"team"`
}

type RedisSessionStorage struct {
	log    *zap.SugaredLogger
	client *redis.Client
}

func NewRedisSessionStorage(log *zap.SugaredLogger, client *redis.Client) *RedisSessionStorage {
	return &RedisSessionStorage{
		log:    log,
		client: client,
	}
}

func (r *RedisSessionStorage) StoreSession(ctx context.Context, deviceID string, pseudo string, team string) {
	data, err := json.Marshal(playSession{Pseudo: pseudo, Team: team})
	if err != nil {
		r.log.Error(err)
		return
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+deviceID, data, 12*time.Hour).Err(); err != nil {
		r.log.Errorf("не удалось сохранить сессию %s: %v", deviceID, err)
	}
}

func (r *RedisSessionStorage) GetSession(ctx context.Context, deviceID string) (pseudo string, team string, ok bool) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+deviceID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Error(err)
		}
		return "", "", false
	}

	var session playSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		r.log.Error(err)
		return "", "", false
	}
	return session.Pseudo, session.Team, true
}

// StorePseudo фиксирует выбранный при регистрации псевдоним устройства.
func (r *RedisSessionStorage) StorePseudo(ctx context.Context, deviceID, pseudo string) error {
	return r.client.Set(ctx, pseudoKeyPrefix+deviceID, pseudo, 0).Err()
}

func (r *RedisSessionStorage) GetPseudo(ctx context.Context, deviceID string) (string, bool) {
	pseudo, err := r.client.Get(ctx, pseudoKeyPrefix+deviceID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Error(err)
		}
		return "", false
	}
	return pseudo, true
}
