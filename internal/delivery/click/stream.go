package click

import (
	"net/http"

	"github.com/gorilla/websocket"

	"clickbattle/internal/broadcast"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleScoresStream — websocket-поток снимков командных счетов.
func (h *ClickHandler) HandleScoresStream(w http.ResponseWriter, r *http.Request) {
	h.serveStream(w, r, broadcast.StreamScores)
}

// HandlePresenceStream — websocket-поток лидерборда активных игроков.
func (h *ClickHandler) HandlePresenceStream(w http.ResponseWriter, r *http.Request) {
	h.serveStream(w, r, broadcast.StreamPresence)
}

func (h *ClickHandler) serveStream(w http.ResponseWriter, r *http.Request, key broadcast.StreamKey) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade error: ", err)
		return
	}
	defer conn.Close()

	// если клиент представился, серверный авто-кликер тикает за него,
	// пока соединение открыто
	deviceID := r.URL.Query().Get("device_id")
	if deviceID != "" {
		h.ticker.Register(deviceID)
		defer h.ticker.Unregister(deviceID)
	}

	ch := h.broadcaster.Subscribe(key)
	defer h.broadcaster.Unsubscribe(key, ch)

	// клиент ничего осмысленного не шлёт, читаем только ради
	// обнаружения разрыва соединения
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readerDone:
			return
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				h.log.Infof("подписчик %s отключился: %v", key, err)
				return
			}
		}
	}
}
