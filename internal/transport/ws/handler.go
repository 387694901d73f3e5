package ws

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"nhooyr.io/websocket"
)

// TokenVerifier resolves an access token to a user id.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

type HandlerOptions struct {
	// AllowedOrigins are full origins (https://app.example). Empty allows any.
	AllowedOrigins []string
	SendBuffer     int
}

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// The token may come from ?access_token=, ?token= or a Bearer header. A
// missing or invalid token still gets a socket, with no identity.
func ServeWS(hub *Hub, tokens TokenVerifier, opts HandlerOptions, log *slog.Logger) http.HandlerFunc {
	accept := &websocket.AcceptOptions{}
	if len(opts.AllowedOrigins) == 0 {
		accept.InsecureSkipVerify = true
	} else {
		accept.OriginPatterns = originHosts(opts.AllowedOrigins)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID := uuid.Nil
		if tokenStr := tokenFromRequest(r); tokenStr != "" {
			id, err := tokens.Verify(tokenStr)
			if err != nil {
				log.Debug("ws: unusable token, continuing anonymously", "error", err)
			} else {
				userID = id
			}
		}

		conn, err := websocket.Accept(w, r, accept)
		if err != nil {
			log.Warn("ws: accept error", "error", err)
			return
		}

		client := NewClient(hub, conn, userID, opts.SendBuffer, log)
		client.Run(r.Context())
	}
}

func tokenFromRequest(r *http.Request) string {
	q := r.URL.Query()
	if t := q.Get("access_token"); t != "" {
		return t
	}
	if t := q.Get("token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func originHosts(origins []string) []string {
	return lo.FilterMap(origins, func(o string, _ int) (string, bool) {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			return o, o != ""
		}
		return u.Host, true
	})
}
