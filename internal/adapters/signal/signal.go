// Package signal is the WebSocket transport of the hub. Each connection gets
// a bounded outbound queue drained by its own writer, so the dispatcher never
// waits on a socket.
package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/Chathub/internal/app/orch"
	"github.com/dkeye/Chathub/internal/app/presence"
	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/domain"
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
	// RateLimit inbound requests per RateInterval and user. Zero disables it.
	RateLimit    int
	RateInterval time.Duration
	// RequireIdentity refuses upgrades without an upstream user, so a socket
	// can never claim an identity through registerUser alone.
	RequireIdentity bool
}

func (o *Options) defaults() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32 << 10
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
}

type SignalWSController struct {
	Orch *orch.Orchestrator

	opts    Options
	limiter *RateLimiter
	pumps   conc.WaitGroup
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	opts.defaults()
	ctl := &SignalWSController{Orch: o, opts: opts}
	if opts.RateLimit > 0 {
		ctl.limiter = NewRateLimiter(opts.RateLimit, opts.RateInterval)
		o.Presence.Subscribe(func(c presence.Change) {
			if c.Status == domain.StatusOffline {
				ctl.limiter.Forget(c.User)
			}
		})
	}
	return ctl
}

// Wait blocks until every pump has returned.
func (ctl *SignalWSController) Wait() { ctl.pumps.Wait() }

type WsSignalConn struct {
	id   core.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		id:   core.ConnID(uuid.NewString()),
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) ID() core.ConnID { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
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

// HandleSignal upgrades the request and starts the pumps. A request that
// carries an authenticated user is registered right away; otherwise the
// client must send registerUser first, unless RequireIdentity is set.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	user := domain.UserID(c.GetString(core.UserContextKey))
	if user == "" && ctl.opts.RequireIdentity {
		log.Warn().Str("module", "signal").Str("remote", c.ClientIP()).Msg("anonymous upgrade refused")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthenticated", "message": "missing user identity"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	sess := core.NewSession(conn)
	log.Info().Str("module", "signal").Str("conn", string(conn.ID())).Str("user", string(user)).Msg("new WS connection")
	if ctl.Orch.Metrics != nil {
		ctl.Orch.Metrics.ConnectionOpened()
	}

	if user != "" {
		if _, err := ctl.Orch.RegisterConnection(sess, user); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("user", string(user)).Msg("register on connect")
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.pumps.Go(func() { ctl.writePump(ctx, conn) })
	ctl.pumps.Go(func() {
		defer cancel()
		ctl.readPump(ctx, sess, conn)
	})
}
