package upgrade

import "math"

const (
	IDClickBoost  = "clickBoost"
	IDAutoClicker = "autoClicker"
	IDSuperBoost  = "superBoost"
)

type Upgrade struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BasePrice   int     `json:"base_price"`
	Multiplier  float64 `json:"multiplier"`
}

// Catalog — фиксированный набор из трёх улучшений, как в мобильном клиенте.
var Catalog = []Upgrade{
	{
		ID:          IDClickBoost,
		Name:        "Boost de Clic",
		Description: "Ajoute +0.1 points par clic pour chaque niveau",
		BasePrice:   100,
		Multiplier:  0.1,
	},
	{
		ID:          IDAutoClicker,
		Name:        "Auto-Clicker",
		Description: "Ajoute +0.1 points par seconde pour chaque niveau",
		BasePrice:   500,
		Multiplier:  0.1,
	},
	{
		ID:          IDSuperBoost,
		Name:        "Super Boost",
		Description: "Ajoute +0.5 points par clic pour chaque niveau",
		BasePrice:   750,
		Multiplier:  0.5,
	},
}

func ByID(id string) (Upgrade, bool) {
	for _, u := range Catalog {
		if u.ID == id {
			return u, true
		}
	}
	return Upgrade{}, false
}

// CalculatePrice — экспоненциальная кривая цены: round(basePrice * 1.1^owned).
func CalculatePrice(basePrice int, owned int) int {
	return int(math.Round(float64(basePrice) * math.Pow(1.1, float64(owned))))
}

type OwnedUpgrade struct {
	Owned int `json:"owned" bson:"owned"`
}

// PlayerUpgrades — документ коллекции playerUpgrades, ключ — deviceId.
type PlayerUpgrades struct {
	DeviceID    string       `json:"device_id" bson:"_id"`
	ClickBoost  OwnedUpgrade `json:"clickBoost" bson:"clickBoost"`
	AutoClicker OwnedUpgrade `json:"autoClicker" bson:"autoClicker"`
	SuperBoost  OwnedUpgrade `json:"superBoost" bson:"superBoost"`
}

func (p PlayerUpgrades) Owned(id string) int {
	switch id {
	case IDClickBoost:
		return p.ClickBoost.Owned
	case IDAutoClicker:
		return p.AutoClicker.Owned
	case IDSuperBoost:
		return p.SuperBoost.Owned
	}
	return 0
}

// UpgradeInfo — элемент ответа GET /upgrades/{deviceId}: позиция каталога
// вместе с количеством во владении и актуальной ценой следующего уровня.
type UpgradeInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Owned       int     `json:"owned"`
	Price       int     `json:"price"`
	Multiplier  float64 `json:"multiplier"`
}
