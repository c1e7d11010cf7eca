package api

import (
	"net/http"
	"sync/atomic"

	"duosiege/internal/credential"
	"duosiege/internal/game"
	"duosiege/internal/session"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed.
	MaxWSConnectionsTotal = 2000

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP.
	MaxWSConnectionsPerIP = 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		RecordConnectionRejected("origin")
		return false
	},
}

// WebSocketGateway upgrades authenticated HTTP requests to WebSocket
// connections and hands each one to its own session.Supervisor. This is
// the sole entry point into the session layer (spec §4.7 step 1:
// Authenticate happens here, before a Supervisor exists).
type WebSocketGateway struct {
	Creds     *credential.Store
	Registry  *game.LobbyRegistry
	Hub       *session.Hub
	Live      *session.LiveConnections
	Log       *zap.Logger
	wsLimiter *WebSocketRateLimiter

	connCount int32 // atomic: currently active sessions
}

// NewWebSocketGateway builds a gateway wired to the given collaborators.
func NewWebSocketGateway(creds *credential.Store, registry *game.LobbyRegistry, hub *session.Hub, live *session.LiveConnections, log *zap.Logger) *WebSocketGateway {
	return &WebSocketGateway{
		Creds:     creds,
		Registry:  registry,
		Hub:       hub,
		Live:      live,
		Log:       log,
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// ServeHTTP authenticates the request's bearer token (query param, per
// original_source — browsers cannot set WebSocket headers), enforces
// per-IP and total connection caps, upgrades the connection, and runs
// a Supervisor for its lifetime.
func (g *WebSocketGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if !g.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_limit")
		http.Error(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	if atomic.LoadInt32(&g.connCount) >= MaxWSConnectionsTotal {
		g.wsLimiter.Release(ip)
		RecordConnectionRejected("ws_limit")
		http.Error(w, "server is at connection capacity", http.StatusServiceUnavailable)
		return
	}

	token := r.URL.Query().Get("token")
	account, err := g.Creds.VerifyToken(token)
	if err != nil {
		g.wsLimiter.Release(ip)
		RecordConnectionRejected("auth")
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.wsLimiter.Release(ip)
		g.Log.Warn("websocket upgrade failed", zap.Error(err), zap.String("ip", ip))
		return
	}

	sup := &session.Supervisor{
		Conn:      conn,
		Registry:  g.Registry,
		Hub:       g.Hub,
		Live:      g.Live,
		Creds:     g.Creds,
		AccountID: account.ID,
		Username:  account.Username,
		Log:       g.Log,
	}

	UpdateActiveSessions(int(atomic.AddInt32(&g.connCount, 1)))
	go func() {
		defer g.wsLimiter.Release(ip)
		defer UpdateActiveSessions(int(atomic.AddInt32(&g.connCount, -1)))
		sup.Run()
	}()
}
