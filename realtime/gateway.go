package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/inkpress/authgate"
)

const maxPingFailures = 3

const closeGrace = 1 * time.Second

// Gateway upgrades HTTP requests to authenticated WebSocket sessions.
//
// The handshake validates `?token=` with the full stateful checks but never
// the refresh path; failures are accepted and then closed once with status
// 1008 carrying the reject reason. Accepted connections are registered so
// the engine can evict them when their session dies.
type Gateway struct {
	engine   *authgate.Engine
	registry *Registry
	handler  MessageHandler
	log      *slog.Logger
	metrics  *authgate.Metrics

	writeTimeout    time.Duration
	readIdleTimeout time.Duration
	heartbeatEvery  time.Duration
	heartbeatWait   time.Duration
	statusTimeout   time.Duration
	maxFrameBytes   int64
	sendQueueSize   int

	originPatterns     []string
	insecureSkipVerify bool
}

// Options tunes transport behavior the engine config does not own.
type Options struct {
	Logger *slog.Logger

	// OriginPatterns is passed through to websocket.Accept for cross-origin
	// browsers. Empty means same-host only.
	OriginPatterns []string

	// InsecureSkipVerify disables origin checks entirely. Dev only.
	InsecureSkipVerify bool
}

// NewGateway wires a gateway to the engine, a registry, and the business
// message handler. It also registers the registry as the engine's evictor.
func NewGateway(engine *authgate.Engine, registry *Registry, handler MessageHandler, opts Options) *Gateway {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	cfg := engine.Config().Realtime

	g := &Gateway{
		engine:   engine,
		registry: registry,
		handler:  handler,
		log:      log,
		metrics:  engine.Metrics(),

		writeTimeout:    cfg.WriteTimeout,
		readIdleTimeout: cfg.ReadIdleTimeout,
		heartbeatEvery:  cfg.HeartbeatInterval,
		heartbeatWait:   cfg.HeartbeatTimeout,
		statusTimeout:   engine.Config().Session.CallTimeout,
		maxFrameBytes:   cfg.MaxFrameBytes,
		sendQueueSize:   cfg.SendQueueSize,

		originPatterns:     opts.OriginPatterns,
		insecureSkipVerify: opts.InsecureSkipVerify,
	}

	engine.SetEvictor(registry)

	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS upgrades the request and runs the connection loop until the
// session ends. One websocket close per connection, whatever the cause.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.insecureSkipVerify,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}

	reqCtx := authgate.WithClientIP(r.Context(), r.RemoteAddr)
	reqCtx = authgate.WithUserAgent(reqCtx, r.UserAgent())

	decision := g.engine.VerifyAccess(reqCtx, token)
	if !decision.Authenticated {
		g.metricInc(authgate.MetricSocketRejected)
		g.log.Info("ws.reject", "reason", decision.Reason, "remote", r.RemoteAddr)
		_ = conn.Close(websocket.StatusPolicyViolation, string(decision.Reason))
		return
	}

	g.metricInc(authgate.MetricSocketAccepted)
	conn.SetReadLimit(g.maxFrameBytes)

	identity := decision.Identity
	sessionID := decision.SessionID

	ctx, cancel := context.WithCancel(reqCtx)
	defer cancel()

	send := make(chan Outbound, g.sendQueueSize)

	entry := &connection{
		userID:    identity.UserID,
		sessionID: sessionID,
	}

	var closeOnce sync.Once

	// shutdown is idempotent. Membership removal happens before the
	// transport close so eviction and self-teardown cannot race on the
	// registry entry.
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.registry.remove(entry)
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	entry.enqueue = func(frame Outbound) bool {
		select {
		case <-ctx.Done():
			return false
		case send <- frame:
			return true
		default:
			return false
		}
	}
	entry.close = func(reason authgate.RejectReason) {
		g.log.Info("ws.evict", "user_id", entry.userID, "session_id", entry.sessionID, "reason", reason)
		shutdown(websocket.StatusPolicyViolation, string(reason))
	}

	// New connection wins: a surviving socket for the same (userId,
	// sessionId) is closed as kicked before this one goes live.
	if displaced := g.registry.register(entry); displaced != nil {
		displaced.close(authgate.ReasonKicked)
	}

	g.log.Info("ws.accept", "user_id", identity.UserID, "session_id", sessionID, "remote", r.RemoteAddr)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)

		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-send:
				if err := g.writeFrame(ctx, conn, frame); err != nil {
					g.log.Info("ws.write.fail", "user_id", identity.UserID, "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.heartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.heartbeatWait)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					if failures >= maxPingFailures {
						g.log.Info("ws.ping.dead", "user_id", identity.UserID, "session_id", sessionID)
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

	g.readLoop(ctx, conn, entry, identity, shutdown)

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(closeGrace):
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, entry *connection, identity authgate.Identity, shutdown func(websocket.StatusCode, string)) {
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.readIdleTimeout)
		data, err := readFrame(readCtx, conn)
		readCancel()

		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				shutdown(websocket.StatusNormalClosure, "peer closed")
			case readErrCtxDone:
				shutdown(websocket.StatusNormalClosure, "idle")
			case readErrConnClosed:
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
			default:
				g.log.Info("ws.read.fail", "user_id", identity.UserID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			g.metricInc(authgate.MetricMessageRejected)
			g.trySend(entry, errorFrame("invalid JSON"))
			continue
		}

		// A held token stays formally valid for minutes after a ban or
		// deletion, so every frame re-checks the directory record before
		// any dispatch.
		info, ok := g.lookupUser(ctx, identity.UserID)
		if ok {
			if info.DeletedAt != nil {
				shutdown(websocket.StatusPolicyViolation, string(authgate.ReasonUserDeleted))
				return
			}
			if info.Banned {
				g.metricInc(authgate.MetricMessageRejected)
				g.trySend(entry, errorFrame(authgate.ErrUserBanned.Error()))
				continue
			}
		}

		if !knownMethod(msg.Method) {
			g.metricInc(authgate.MetricMessageRejected)
			g.trySend(entry, unknownMethodFrame(msg.Method))
			continue
		}

		g.metricInc(authgate.MetricMessageDispatched)
		reply, err := g.handler.HandleMessage(ctx, identity, entry.sessionID, msg)
		if err != nil {
			g.trySend(entry, errorFrame(err.Error()))
			continue
		}
		if reply != nil {
			g.trySend(entry, *reply)
		}
	}
}

// lookupUser fetches the live directory record for the per-frame status
// check. Directory unavailability mid-session is logged and skipped; the
// connection was authenticated at handshake and store-backed checks still
// run on the HTTP side.
func (g *Gateway) lookupUser(ctx context.Context, userID string) (authgate.UserInfo, bool) {
	dir := g.engine.Directory()
	if dir == nil {
		return authgate.UserInfo{}, false
	}

	checkCtx, cancel := context.WithTimeout(ctx, g.statusTimeout)
	defer cancel()

	info, err := dir.GetUserInfo(checkCtx, userID)
	if err != nil {
		g.log.Warn("ws.status.skip", "user_id", userID, "err", err)
		return authgate.UserInfo{}, false
	}
	return info, true
}

func (g *Gateway) trySend(entry *connection, frame Outbound) {
	if !entry.enqueue(frame) {
		g.log.Info("ws.send.drop", "user_id", entry.userID, "type", frame.Type)
	}
}

func (g *Gateway) writeFrame(parent context.Context, conn *websocket.Conn, frame Outbound) error {
	ctx, cancel := context.WithTimeout(parent, g.writeTimeout)
	defer cancel()

	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

func (g *Gateway) metricInc(id authgate.MetricID) {
	if g.metrics != nil {
		g.metrics.Inc(id)
	}
}

func readFrame(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return data, nil
}

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	return readErrUnknown
}
