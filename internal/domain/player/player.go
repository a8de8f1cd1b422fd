package player

import "time"

const (
	TeamRed  = "red"
	TeamBlue = "blue"
)

const (
	PseudoMinLen = 1
	PseudoMaxLen = 20
)

func IsValidTeam(team string) bool {
	return team == TeamRed || team == TeamBlue
}

// TeamMembership хранится в коллекции interactions, по документу на пару
// (deviceId, team). Ключ документа — deviceId_team, поэтому повторный вход
// в ту же команду обновляет существующую запись, а не создаёт дубликат.
type TeamMembership struct {
	ID            string `json:"id" bson:"_id"`
	DeviceID      string `json:"device_id" bson:"deviceId"`
	Pseudo        string `json:"pseudo" bson:"pseudo"`
	Team          string `json:"team" bson:"team"`
	Clicks        int64  `json:"clicks" bson:"clicks"`
	Streak        int    `json:"streak" bson:"streak"`
	LastUpdate    int64  `json:"last_update" bson:"lastUpdate"`
	LastClickTime int64  `json:"last_click_time" bson:"lastClickTime"`
}

func MembershipKey(deviceID, team string) string {
	return deviceID + "_" + team
}

// PersonalStats накапливает дробные очки игрока независимо от командного
// счёта: команде идёт округлённое целое за клик, игроку — точное значение.
type PersonalStats struct {
	DeviceID    string  `json:"device_id" bson:"_id"`
	TotalClicks float64 `json:"total_clicks" bson:"totalClicks"`
	LastUpdate  int64   `json:"last_update" bson:"lastUpdate"`
}

// PresenceEntry — эфемерная запись активности, восстанавливается из потока
// кликов и никогда не является источником истины.
type PresenceEntry struct {
	Pseudo        string `json:"pseudo"`
	Team          string `json:"team"`
	Streak        int    `json:"streak"`
	LastClickTime int64  `json:"last_click_time"`
}

// Opacity — производная величина для клиентской анимации затухания.
// Слой данных отдаёт сырой timestamp, клиент может посчитать сам.
func (p PresenceEntry) Opacity(now time.Time, window time.Duration) float64 {
	elapsed := now.UnixMilli() - p.LastClickTime
	if elapsed <= 0 {
		return 1
	}
	v := 1 - float64(elapsed)/float64(window.Milliseconds())
	if v < 0 {
		return 0
	}
	return v
}

type RegisterRequest struct {
	Pseudo string `json:"pseudo"`
}

type RegisterResponse struct {
	DeviceID string `json:"device_id"`
}

type ClickRequest struct {
	DeviceID string `json:"device_id"`
	Pseudo   string `json:"pseudo"`
	Team     string `json:"team"`
	IsAuto   bool   `json:"is_auto"`
}

type ClickResponse struct {
	Clicks        int64   `json:"clicks"`
	Streak        int     `json:"streak"`
	PersonalTotal float64 `json:"personal_total"`
}

type PurchaseRequest struct {
	DeviceID  string `json:"device_id"`
	UpgradeID string `json:"upgrade_id"`
}

type PurchaseResponse struct {
	Owned           int     `json:"owned"`
	RemainingClicks float64 `json:"remaining_clicks"`
}

// ScoresSnapshot — полный снимок командных счетов, а не дельта: подписчику
// не нужно ничего реконструировать при переподключении.
type ScoresSnapshot struct {
	Red             int64   `json:"red"`
	Blue            int64   `json:"blue"`
	ProgressPercent float64 `json:"progress_percent"`
}

type PresenceSnapshot struct {
	Players []PresenceEntry `json:"players"`
}
