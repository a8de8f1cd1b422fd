package repo

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"clickbattle/internal/bootstrap"
	"clickbattle/internal/domain/player"
	"clickbattle/internal/domain/upgrade"
	errs "clickbattle/internal/errors"
	"clickbattle/internal/events"
	"clickbattle/internal/metrics"
)

const (
	collInteractions   = "interactions"
	collPlayerStats    = "playerStats"
	collPlayerUpgrades = "playerUpgrades"

	quarantineSetKey = "quarantine:memberships"
)

// CounterRepository — система записи: все мутации счётчиков проходят только
// через неё. Командный счётчик всегда инкрементируется через $inc, никогда
// через read-modify-write.
type CounterRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
	bus   *events.Bus
	now   func() time.Time
}

func NewCounterRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database, bus *events.Bus) *CounterRepository {
	return &CounterRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
		bus:   bus,
		now:   time.Now,
	}
}

// SetClock подменяет источник времени в тестах.
func (c *CounterRepository) SetClock(now func() time.Time) {
	c.now = now
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ApplyClick применяет клик (или авто-тик) к паре (deviceId, team).
//
// Командный счёт получает округлённое целое за клик, персональный — точное
// дробное значение. Асимметрия взята из исходного клиента и сохранена как
// осознанная политика: видимый командный счёт честно квантуется, внутренний
// персональный баланс не теряет остатков.
func (c *CounterRepository) ApplyClick(ctx context.Context, deviceID, pseudo, team string, bonusPoints float64, isAuto bool) (player.TeamMembership, player.PersonalStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := player.MembershipKey(deviceID, team)

	quarantined, err := c.redis.SIsMember(ctx, quarantineSetKey, key).Result()
	if err != nil {
		return player.TeamMembership{}, player.PersonalStats{}, transient(err)
	}
	if quarantined {
		c.log.Errorf("запись по ключу %s остановлена после нарушения инварианта", key)
		return player.TeamMembership{}, player.PersonalStats{}, errs.ErrConsistencyViolation
	}

	ups, err := c.GetUpgrades(ctx, deviceID)
	if err != nil {
		return player.TeamMembership{}, player.PersonalStats{}, err
	}

	clickBoost, _ := upgrade.ByID(upgrade.IDClickBoost)
	superBoost, _ := upgrade.ByID(upgrade.IDSuperBoost)
	totalBonus := float64(ups.Owned(upgrade.IDClickBoost))*clickBoost.Multiplier +
		float64(ups.Owned(upgrade.IDSuperBoost))*superBoost.Multiplier
	totalPoints := round1(bonusPoints + totalBonus)
	teamDelta := int64(math.Round(totalPoints))

	nowMs := c.now().UnixMilli()

	membership, err := c.upsertMembership(ctx, key, deviceID, pseudo, team, teamDelta, nowMs, isAuto)
	if err != nil {
		return player.TeamMembership{}, player.PersonalStats{}, err
	}

	if membership.Clicks < 0 {
		// Счётчик не может уйти в минус. Молча не «чиним»: ключ в карантин,
		// дальнейшие записи по нему останавливаются до ручного разбора.
		if err := c.redis.SAdd(ctx, quarantineSetKey, key).Err(); err != nil {
			c.log.Errorf("не удалось поместить ключ %s в карантин: %v", key, err)
		}
		metrics.QuarantinedKeys.Inc()
		c.log.Errorf("нарушение инварианта: clicks=%d по ключу %s", membership.Clicks, key)
		return player.TeamMembership{}, player.PersonalStats{}, errs.ErrConsistencyViolation
	}

	stats, err := c.incrementPersonalStats(ctx, deviceID, totalPoints, nowMs)
	if err != nil {
		return player.TeamMembership{}, player.PersonalStats{}, err
	}

	metrics.ClicksTotal.WithLabelValues(team).Inc()

	c.bus.Clicks <- events.ClickEvent{
		DeviceID:      deviceID,
		Pseudo:        pseudo,
		Team:          team,
		TeamDelta:     teamDelta,
		Streak:        membership.Streak,
		LastClickTime: membership.LastClickTime,
		IsAuto:        isAuto,
	}

	return membership, stats, nil
}

// nextStreak пересчитывает стрик от предыдущего lastClickTime. Гонки здесь
// нет: стрик пишет только устройство-владелец, а сам счётчик идёт через $inc.
// Авто-тик не трогает ни стрик, ни lastClickTime.
func nextStreak(prevStreak int, prevLastClick, nowMs, windowMs int64, isAuto bool) (streak int, lastClickTime int64) {
	if isAuto {
		return prevStreak, prevLastClick
	}
	if nowMs-prevLastClick > windowMs {
		return 1, nowMs
	}
	return prevStreak + 1, nowMs
}

func (c *CounterRepository) upsertMembership(ctx context.Context, key, deviceID, pseudo, team string, teamDelta, nowMs int64, isAuto bool) (player.TeamMembership, error) {
	collection := c.mongo.Collection(collInteractions)
	filter := bson.M{"_id": key}

	var prev player.TeamMembership
	err := collection.FindOne(ctx, filter).Decode(&prev)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		c.log.Errorf("ошибка при чтении membership %s: %v", key, err)
		return player.TeamMembership{}, transient(err)
	}

	streak, lastClickTime := nextStreak(prev.Streak, prev.LastClickTime, nowMs, int64(c.cfg.StreakWindowMs), isAuto)

	update := bson.M{
		"$inc": bson.M{"clicks": teamDelta},
		"$set": bson.M{
			"streak":        streak,
			"lastUpdate":    nowMs,
			"lastClickTime": lastClickTime,
			"pseudo":        pseudo,
		},
		"$setOnInsert": bson.M{
			"deviceId": deviceID,
			"team":     team,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var updated player.TeamMembership
	if err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		c.log.Errorf("ошибка при обновлении membership %s: %v", key, err)
		return player.TeamMembership{}, transient(err)
	}
	return updated, nil
}

func (c *CounterRepository) incrementPersonalStats(ctx context.Context, deviceID string, totalPoints float64, nowMs int64) (player.PersonalStats, error) {
	collection := c.mongo.Collection(collPlayerStats)
	filter := bson.M{"_id": deviceID}
	update := bson.M{
		"$inc": bson.M{"totalClicks": totalPoints},
		"$set": bson.M{"lastUpdate": nowMs},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stats player.PersonalStats
	if err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stats); err != nil {
		c.log.Errorf("ошибка при обновлении playerStats %s: %v", deviceID, err)
		return player.PersonalStats{}, transient(err)
	}
	return stats, nil
}

// ApplyPurchase списывает ровно цену и начисляет уровень одним mongo-транзактом:
// падение между списанием и начислением не оставит игрока без улучшения.
func (c *CounterRepository) ApplyPurchase(ctx context.Context, deviceID string, up upgrade.Upgrade) (int, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	session, err := c.mongo.Client().StartSession()
	if err != nil {
		return 0, 0, transient(err)
	}
	defer session.EndSession(ctx)

	var owned int
	var remaining float64

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var ups upgrade.PlayerUpgrades
		err := c.mongo.Collection(collPlayerUpgrades).
			FindOne(sc, bson.M{"_id": deviceID}).Decode(&ups)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, transient(err)
		}

		price := upgrade.CalculatePrice(up.BasePrice, ups.Owned(up.ID))

		// Условный фильтр по балансу делает списание отказоустойчивым:
		// недостаток средств — это просто непопадание в фильтр, без отката.
		res, err := c.mongo.Collection(collPlayerStats).UpdateOne(sc,
			bson.M{"_id": deviceID, "totalClicks": bson.M{"$gte": float64(price)}},
			bson.M{"$inc": bson.M{"totalClicks": -float64(price)}},
		)
		if err != nil {
			return nil, transient(err)
		}
		if res.MatchedCount == 0 {
			return nil, errs.ErrInsufficientFunds
		}

		opts := options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After)
		var updatedUps upgrade.PlayerUpgrades
		err = c.mongo.Collection(collPlayerUpgrades).FindOneAndUpdate(sc,
			bson.M{"_id": deviceID},
			bson.M{"$inc": bson.M{up.ID + ".owned": 1}},
			opts,
		).Decode(&updatedUps)
		if err != nil {
			return nil, transient(err)
		}

		var stats player.PersonalStats
		if err := c.mongo.Collection(collPlayerStats).FindOne(sc, bson.M{"_id": deviceID}).Decode(&stats); err != nil {
			return nil, transient(err)
		}

		owned = updatedUps.Owned(up.ID)
		remaining = stats.TotalClicks
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrInsufficientFunds) {
			return 0, 0, errs.ErrInsufficientFunds
		}
		c.log.Errorf("покупка %s для %s не прошла: %v", up.ID, deviceID, err)
		return 0, 0, err
	}

	metrics.PurchasesTotal.WithLabelValues(up.ID).Inc()

	return owned, remaining, nil
}

func (c *CounterRepository) GetUpgrades(ctx context.Context, deviceID string) (upgrade.PlayerUpgrades, error) {
	collection := c.mongo.Collection(collPlayerUpgrades)

	var ups upgrade.PlayerUpgrades
	err := collection.FindOne(ctx, bson.M{"_id": deviceID}).Decode(&ups)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return upgrade.PlayerUpgrades{DeviceID: deviceID}, nil
	} else if err != nil {
		c.log.Errorf("ошибка при чтении playerUpgrades %s: %v", deviceID, err)
		return upgrade.PlayerUpgrades{}, transient(err)
	}
	return ups, nil
}

func (c *CounterRepository) GetPersonalStats(ctx context.Context, deviceID string) (player.PersonalStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := c.mongo.Collection(collPlayerStats)

	var stats player.PersonalStats
	err := collection.FindOne(ctx, bson.M{"_id": deviceID}).Decode(&stats)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return player.PersonalStats{DeviceID: deviceID}, nil
	} else if err != nil {
		c.log.Errorf("ошибка при чтении playerStats %s: %v", deviceID, err)
		return player.PersonalStats{}, transient(err)
	}
	return stats, nil
}

// TeamTotals — единственное место с полной агрегацией по коллекции.
// Вызывается один раз на старте, дальше агрегатор живёт на дельтах из шины.
func (c *CounterRepository) TeamTotals(ctx context.Context) (red int64, blue int64, err error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	collection := c.mongo.Collection(collInteractions)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$team"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$clicks"}}},
		}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		c.log.Error(err)
		return 0, 0, transient(err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			Team  string `bson:"_id"`
			Total int64  `bson:"total"`
		}
		if err := cursor.Decode(&row); err != nil {
			c.log.Error(err)
			return 0, 0, transient(err)
		}
		switch row.Team {
		case player.TeamRed:
			red = row.Total
		case player.TeamBlue:
			blue = row.Total
		}
	}

	return red, blue, nil
}

// IsQuarantined сообщает, остановлены ли записи по ключу membership.
func (c *CounterRepository) IsQuarantined(ctx context.Context, deviceID, team string) (bool, error) {
	ok, err := c.redis.SIsMember(ctx, quarantineSetKey, player.MembershipKey(deviceID, team)).Result()
	if err != nil {
		return false, transient(err)
	}
	return ok, nil
}

func transient(err error) error {
	return errs.WrapTransient(err)
}
