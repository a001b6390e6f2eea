package handlers

import (
	"net/http"

	"github.com/xelth-com/cspsgo/internal/websocket"
)

// serveWs upgrades an authenticated request to the notification socket
func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "notifications are disabled")
		return
	}
	websocket.ServeWs(r.hub, actor(req).ID, w, req)
}
