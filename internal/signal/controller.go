// Package signal is the websocket transport adapter and protocol state
// machine: it upgrades connections, feeds validated frames to the
// per-type handlers, and tears down room membership on disconnect.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/config"
	"github.com/vvoice/signaling/internal/domain"
	"github.com/vvoice/signaling/internal/metrics"
	"github.com/vvoice/signaling/internal/protocol"
	"github.com/vvoice/signaling/internal/security"
	"github.com/vvoice/signaling/internal/store"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Cfg      *config.Config
	Rooms    *app.RoomManager
	Registry *app.Registry
	Verifier security.TokenVerifier
	Issuer   *security.CredentialIssuer
	Store    store.DataStore

	limiter *RateLimiter

	ipMu    sync.Mutex
	ipConns map[string]int
}

func NewController(cfg *config.Config, rooms *app.RoomManager, reg *app.Registry, verifier security.TokenVerifier, issuer *security.CredentialIssuer, st store.DataStore) *Controller {
	return &Controller{
		Cfg:      cfg,
		Rooms:    rooms,
		Registry: reg,
		Verifier: verifier,
		Issuer:   issuer,
		Store:    st,
		limiter:  NewRateLimiter(cfg.MessageBurst, cfg.MessageWindow),
		ipConns:  make(map[string]int),
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// admitIP enforces the per-source-address connection cap at
// establishment time. The matching release happens on disconnect.
func (ctl *Controller) admitIP(ip string) bool {
	ctl.ipMu.Lock()
	defer ctl.ipMu.Unlock()
	if ctl.ipConns[ip] >= ctl.Cfg.MaxConnectionsPerIP {
		return false
	}
	ctl.ipConns[ip]++
	return true
}

func (ctl *Controller) releaseIP(ip string) {
	ctl.ipMu.Lock()
	defer ctl.ipMu.Unlock()
	if ctl.ipConns[ip] <= 1 {
		delete(ctl.ipConns, ip)
	} else {
		ctl.ipConns[ip]--
	}
}

// HandleSignal upgrades the request and runs the connection until its
// transport closes.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ip := c.ClientIP()
	if !ctl.admitIP(ip) {
		log.Warn().Str("module", "signal").Str("ip", ip).Msg("connection limit per ip exceeded")
		c.String(http.StatusTooManyRequests, "too many connections")
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctl.releaseIP(ip)
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan []byte, 32),
	}
	state := &app.Conn{
		ID:          domain.ConnectionID(uuid.NewString()),
		IP:          ip,
		Transport:   conn,
		DisplayName: "Anonymous",
		Role:        domain.RoleMember,
	}
	ctl.Registry.Add(state)
	metrics.ActiveConnections.Inc()
	log.Info().Str("module", "signal").Str("conn", string(state.ID)).Str("ip", ip).Msg("new ws connection")

	ctl.send(conn, protocol.NewServerNotice("Connected. Send client_hello to authenticate."))

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, state, conn)
}
