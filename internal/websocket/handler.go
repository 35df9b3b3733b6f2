package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/eventsphere/internal/auth"
	"github.com/dukerupert/eventsphere/internal/model"
)

// HandleWebSocket upgrades an authenticated request and runs it as a hub
// client. originPatterns lists the hosts allowed to connect cross-origin.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept failed", "user_id", ac.UserID, "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn, ac.UserID, ac.Role == model.RoleAdmin).Run(r.Context())
	}
}
