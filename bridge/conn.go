package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chunibridge/chunibridge/chuniio"
	"github.com/chunibridge/chunibridge/logger"
)

// Conn is the connection manager. It owns the current transport session (or
// none), performs connect and recovery, and exposes request/response and
// fire-and-forget operations to concurrent callers.
//
// A single mutex serializes exchanges: the wire is not multiplexed, so a
// request's send and its reply receive must not interleave with another
// caller's exchange. The mutex is a session lock only — it never nests with
// the device-state lock.
type Conn struct {
	cfg     *Config
	logger  logger.Logger
	metrics *Metrics

	mu      sync.Mutex // serializes exchanges and guards session
	session *session
	recvBuf []byte // reply scratch buffer, guarded by mu

	closed atomic.Bool
}

func newConn(cfg *Config, metrics *Metrics) *Conn {
	return &Conn{
		cfg:     cfg,
		logger:  cfg.logger,
		metrics: metrics,
		recvBuf: make([]byte, recvBufSize),
	}
}

// Request sends one message and, for message kinds that define a response,
// waits for and decodes exactly one reply.
//
// On any transport failure (send error, receive error, or decode failure) it
// invokes Reconnect once and, if recovery succeeds, retries the same logical
// exchange exactly once more. If the retry also fails it returns
// ErrNoResponse: callers always receive a value or a degraded-mode signal,
// never a fatal stop.
func (c *Conn) Request(msg chuniio.Message) (chuniio.Message, error) {
	if c.closed.Load() {
		return nil, ErrBridgeClosed
	}

	c.metrics.RequestCount.Inc()

	rsp, err := c.exchange(msg)
	if err == nil {
		c.logExchangeDone(msg.Type())
		return rsp, nil
	}

	c.logExchangeErr(msg.Type(), "exchange failed", err)

	if !c.Reconnect() {
		c.metrics.RequestErrCount.Inc()
		return nil, fmt.Errorf("%w: %s", ErrNoResponse, msg.Type())
	}

	rsp, err = c.exchange(msg)
	if err != nil {
		c.logExchangeErr(msg.Type(), "exchange retry failed after recovery", err)
		c.metrics.RequestErrCount.Inc()

		return nil, fmt.Errorf("%w: %s", ErrNoResponse, msg.Type())
	}

	c.logExchangeDone(msg.Type())

	return rsp, nil
}

// Notify sends a message without waiting for a reply. A failed send is
// dropped after a debug log and never triggers recovery: output updates are
// at-most-once and the caller must never block or retry on their behalf.
func (c *Conn) Notify(msg chuniio.Message) {
	c.notifyFrame(msg.ToBytes(), msg.Type())
}

// notifyFrame is the pre-encoded variant of Notify used by the LED dispatcher,
// which queues frames rather than messages.
func (c *Conn) notifyFrame(frame []byte, msgType chuniio.MsgType) {
	if c.closed.Load() {
		return
	}

	c.metrics.NotifyCount.Inc()

	c.mu.Lock()
	sess := c.session
	if sess == nil {
		c.mu.Unlock()
		c.metrics.NotifyErrCount.Inc()
		c.logger.Debug("notify dropped, no session", "type", msgType.String())

		return
	}

	err := sess.send(frame)
	c.mu.Unlock()

	if err != nil {
		c.metrics.NotifyErrCount.Inc()
		c.logger.Debug("notify dropped", "type", msgType.String(), "error", err)
	}
}

// exchange performs one send and, when a reply is defined, one receive and
// decode, holding the session lock for the full duration.
func (c *Conn) exchange(msg chuniio.Message) (chuniio.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, ErrNotConnected
	}

	if err := c.session.send(msg.ToBytes()); err != nil {
		return nil, fmt.Errorf("send %s: %w", msg.Type(), err)
	}

	if !msg.ReplyExpected() {
		return nil, nil //nolint:nilnil
	}

	n, err := c.session.receive(c.recvBuf)
	if err != nil {
		return nil, fmt.Errorf("receive %s reply: %w", msg.Type(), err)
	}

	rsp, err := chuniio.Decode(c.recvBuf[:n])
	if err != nil {
		return nil, fmt.Errorf("decode %s reply: %w", msg.Type(), err)
	}

	return rsp, nil
}

// Connect establishes the initial transport session against the configured
// address, replacing any existing one.
func (c *Conn) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrBridgeClosed
	}

	sess, err := dialSession(ctx, c.cfg)
	if err != nil {
		c.logger.Warn("failed to connect to proxy", "path", c.cfg.socketPath, "error", err)
		return fmt.Errorf("%w: %s", ErrNotConnected, c.cfg.socketPath)
	}

	c.install(sess)
	c.logger.Info("connected to proxy", "path", c.cfg.socketPath)

	return nil
}

// Reconnect closes any existing session, opens a new one against the
// configured address, installs it as current, and reports success.
func (c *Conn) Reconnect() bool {
	if c.closed.Load() {
		return false
	}

	sess, err := dialSession(context.Background(), c.cfg)
	if err != nil {
		c.metrics.ReconnectErrCount.Inc()
		c.logger.Warn("session recovery failed", "path", c.cfg.socketPath, "error", err)

		return false
	}

	c.install(sess)
	c.metrics.ReconnectCount.Inc()
	c.logger.Info("session recovered", "path", c.cfg.socketPath)

	return true
}

// install replaces the current session with sess, closing the old one.
func (c *Conn) install(sess *session) {
	c.mu.Lock()
	old := c.session
	c.session = sess
	c.mu.Unlock()

	if old != nil {
		_ = old.close()
	}

	// closed concurrently: don't leak the fresh session
	if c.closed.Load() {
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		_ = sess.close()
	}
}

// Connected reports whether a transport session is currently installed.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session != nil
}

// Close tears down the current session. Subsequent Request and Notify calls
// fail fast without touching the transport. It is idempotent.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	if sess != nil {
		_ = sess.close()
	}

	c.logger.Info("connection closed", "path", c.cfg.socketPath)

	return nil
}

// logExchangeDone records a completed exchange. High-frequency exchanges are
// excluded from informational tracing so polling rates don't flood the log.
func (c *Conn) logExchangeDone(msgType chuniio.MsgType) {
	if msgType.HighFrequency() {
		return
	}

	c.logger.Info("exchange completed", "type", msgType.String())
}

// logExchangeErr records a failed exchange at a severity matching its noise
// class: debug for poll-rate traffic, error for everything else.
func (c *Conn) logExchangeErr(msgType chuniio.MsgType, what string, err error) {
	if msgType.HighFrequency() {
		c.logger.Debug(what, "type", msgType.String(), "error", err)
		return
	}

	c.logger.Error(what, "type", msgType.String(), "error", err)
}
