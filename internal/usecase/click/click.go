package click

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clickbattle/internal/bootstrap"
	"clickbattle/internal/domain/player"
	"clickbattle/internal/domain/upgrade"
	errs "clickbattle/internal/errors"
)

type CounterStore interface {
	ApplyClick(ctx context.Context, deviceID, pseudo, team string, bonusPoints float64, isAuto bool) (player.TeamMembership, player.PersonalStats, error)
	ApplyPurchase(ctx context.Context, deviceID string, up upgrade.Upgrade) (owned int, remaining float64, err error)
	GetUpgrades(ctx context.Context, deviceID string) (upgrade.PlayerUpgrades, error)
	GetPersonalStats(ctx context.Context, deviceID string) (player.PersonalStats, error)
}

type SessionStore interface {
	StoreSession(ctx context.Context, deviceID string, pseudo string, team string)
	StorePseudo(ctx context.Context, deviceID, pseudo string) error
}

type ClickUseCase struct {
	cfg      bootstrap.Config
	log      *zap.SugaredLogger
	store    CounterStore
	sessions SessionStore
}

func NewClickUseCase(cfg bootstrap.Config, log *zap.SugaredLogger, store CounterStore, sessions SessionStore) *ClickUseCase {
	return &ClickUseCase{
		cfg:      cfg,
		log:      log,
		store:    store,
		sessions: sessions,
	}
}

// Register выдаёт устройству серверный идентификатор и фиксирует псевдоним.
func (c *ClickUseCase) Register(ctx context.Context, pseudo string) (player.RegisterResponse, error) {
	pseudo = strings.TrimSpace(pseudo)
	// длина в рунах: диакритика и кириллица не должны съедать лимит
	if n := utf8.RuneCountInString(pseudo); n < player.PseudoMinLen || n > player.PseudoMaxLen {
		return player.RegisterResponse{}, errs.ErrBadPseudo
	}

	deviceID := "device_" + uuid.New().String()
	if err := c.sessions.StorePseudo(ctx, deviceID, pseudo); err != nil {
		c.log.Error(err)
		return player.RegisterResponse{}, errs.WrapTransient(err)
	}

	return player.RegisterResponse{DeviceID: deviceID}, nil
}

// SubmitClick валидирует запрос и применяет клик к хранилищу счётчиков.
// Валидация отсекает запрос до любой мутации: отклонённый клик — это no-op.
func (c *ClickUseCase) SubmitClick(ctx context.Context, req player.ClickRequest) (player.ClickResponse, error) {
	if req.DeviceID == "" || req.Pseudo == "" {
		return player.ClickResponse{}, errs.ErrMissingIdentity
	}
	if !player.IsValidTeam(req.Team) {
		return player.ClickResponse{}, errs.ErrInvalidTeam
	}

	bonus := 1.0
	if req.IsAuto {
		ups, err := c.store.GetUpgrades(ctx, req.DeviceID)
		if err != nil {
			return player.ClickResponse{}, err
		}
		owned := ups.Owned(upgrade.IDAutoClicker)
		if owned == 0 {
			// авто-тик без авто-кликера ничего не начисляет
			stats, err := c.store.GetPersonalStats(ctx, req.DeviceID)
			if err != nil {
				return player.ClickResponse{}, err
			}
			return player.ClickResponse{PersonalTotal: stats.TotalClicks}, nil
		}
		auto, _ := upgrade.ByID(upgrade.IDAutoClicker)
		bonus = float64(owned) * auto.Multiplier
	}

	var membership player.TeamMembership
	var stats player.PersonalStats

	// Временные ошибки стора повторяются с ограниченным экспоненциальным
	// backoff, всё остальное отдаётся сразу.
	operation := func() error {
		var err error
		membership, stats, err = c.store.ApplyClick(ctx, req.DeviceID, req.Pseudo, req.Team, bonus, req.IsAuto)
		if err != nil {
			if errors.Is(err, errs.ErrTransientStore) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 3 * time.Second
	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(b, uint64(c.cfg.ClickMaxRetries)), ctx))
	if err != nil {
		return player.ClickResponse{}, err
	}

	if !req.IsAuto {
		c.sessions.StoreSession(ctx, req.DeviceID, req.Pseudo, req.Team)
	}

	return player.ClickResponse{
		Clicks:        membership.Clicks,
		Streak:        membership.Streak,
		PersonalTotal: stats.TotalClicks,
	}, nil
}

// Purchase проводит покупку улучшения. Нехватка средств не оставляет
// побочных эффектов: и баланс, и владение остаются нетронутыми.
func (c *ClickUseCase) Purchase(ctx context.Context, req player.PurchaseRequest) (player.PurchaseResponse, error) {
	if req.DeviceID == "" {
		return player.PurchaseResponse{}, errs.ErrMissingIdentity
	}

	up, ok := upgrade.ByID(req.UpgradeID)
	if !ok {
		return player.PurchaseResponse{}, errs.ErrUnknownUpgrade
	}

	owned, remaining, err := c.store.ApplyPurchase(ctx, req.DeviceID, up)
	if err != nil {
		return player.PurchaseResponse{}, err
	}

	return player.PurchaseResponse{
		Owned:           owned,
		RemainingClicks: remaining,
	}, nil
}

// ListUpgrades отдаёт каталог с ценой следующего уровня для каждого улучшения.
func (c *ClickUseCase) ListUpgrades(ctx context.Context, deviceID string) ([]upgrade.UpgradeInfo, error) {
	if deviceID == "" {
		return nil, errs.ErrMissingIdentity
	}

	ups, err := c.store.GetUpgrades(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	infos := make([]upgrade.UpgradeInfo, 0, len(upgrade.Catalog))
	for _, u := range upgrade.Catalog {
		owned := ups.Owned(u.ID)
		infos = append(infos, upgrade.UpgradeInfo{
			ID:          u.ID,
			Name:        u.Name,
			Description: u.Description,
			Owned:       owned,
			Price:       upgrade.CalculatePrice(u.BasePrice, owned),
			Multiplier:  u.Multiplier,
		})
	}

	return infos, nil
}
