package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/devaloi/chatrooms/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveLive upgrades to a websocket feed of messages posted to the
// room. Same auth and membership rules as reading the room.
func (a *API) serveLive(w http.ResponseWriter, r *http.Request) {
	c, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	rm, ok := a.fetchRoom(w, r, c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("ws upgrade failed", "roomId", rm.ID, "error", err)
		return
	}

	ws := stream.NewWSClient(conn, a.log)
	a.stream.Subscribe(rm.ID, ws)
	go ws.WritePump()
	go ws.ReadPump(func() {
		a.stream.Unsubscribe(rm.ID, ws)
	})
}
