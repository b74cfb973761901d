package ws

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The hub serves LAN dashboards and wall panels; origin checks are
	// handled by the deployment, not the hub.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes wires the state-stream endpoint to the router.
func RegisterRoutes(router chi.Router, hub *Hub) {
	router.HandleFunc("/ws/state", stateStreamHandler(hub))
}

func stateStreamHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade failed; the error is already written to the response.
			return
		}
		hub.register(conn)
	}
}
