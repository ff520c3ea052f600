package signal

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/talks/internal/app/orch"
	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// IdentityKey is the gin context key the auth middleware stores the
// verified *domain.Identity under.
const IdentityKey = "identity"

type Options struct {
	ReadLimit           int64
	PingPeriod          time.Duration
	PongWait            time.Duration
	WriteWait           time.Duration
	SendBuffer          int
	MessageRateLimit    int
	MessageRateInterval time.Duration
	AllowedOrigins      []string
}

func (o *Options) withDefaults() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.MessageRateLimit <= 0 {
		o.MessageRateLimit = 20
	}
	if o.MessageRateInterval <= 0 {
		o.MessageRateInterval = 10 * time.Second
	}
}

type SignalWSController struct {
	Orch     *orch.Orchestrator
	opts     Options
	limiter  *MessageRateLimiter
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	opts.withDefaults()
	ctl := &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewMessageRateLimiter(opts.MessageRateLimit, opts.MessageRateInterval),
	}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: ctl.checkOrigin}
	return ctl
}

func (ctl *SignalWSController) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(ctl.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(ctl.opts.AllowedOrigins, "*") || slices.Contains(ctl.opts.AllowedOrigins, origin)
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
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

// HandleSignal upgrades an authenticated request and runs the connection
// until either side closes it.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	v, _ := c.Get(IdentityKey)
	who, ok := v.(*domain.Identity)
	if !ok || who == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrAuthRejected.Error()})
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.opts.ReadLimit)

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}

	// writePump must be draining before Connect queues online_users.
	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)

	sess, err := ctl.Orch.Connect(ctx, who, conn)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("user", string(who.ID)).Msg("connect")
		ctl.sendError(conn, "Failed to connect")
		cancel()
		conn.Close()
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(sess.ID())).Str("user", string(who.ID)).Msg("new WS connection")

	go ctl.readPump(ctx, cancel, sess, conn)
}
