package events

// ClickEvent публикуется репозиторием счётчиков после каждой успешной мутации.
// Агрегатор и трекер присутствия читают события из шины, ничего не
// перечитывая из базы.
type ClickEvent struct {
	DeviceID      string
	Pseudo        string
	Team          string
	TeamDelta     int64
	Streak        int
	LastClickTime int64
	IsAuto        bool
}

type Bus struct {
	Clicks chan ClickEvent
}

func NewBus() *Bus {
	return &Bus{
		Clicks: make(chan ClickEvent, 256),
	}
}
