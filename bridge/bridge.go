package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/chunibridge/chunibridge/chuniio"
	"github.com/chunibridge/chunibridge/logger"
)

// APIVersion is the chuniio API revision this bridge reports to the
// entry-point surface: 1.2, the first revision with LED board support.
const APIVersion uint16 = 0x0102

// Bridge ties the connection manager, the device-state cache, the slider
// streaming loop and the LED dispatcher together behind the operations the
// entry-point surface consumes.
//
// All operations degrade rather than fail: when the transport is down they
// return cached or zero values and leave recovery to the next exchange.
type Bridge struct {
	cfg    *Config
	logger logger.Logger

	conn    *Conn
	state   *deviceState
	stream  *sliderStream
	leds    *ledDispatcher
	metrics *Metrics

	cancel context.CancelFunc
	closed atomic.Bool
}

// New creates a Bridge from cfg and starts its LED dispatcher. It does not
// touch the transport; call Open to establish the session, or let the first
// exchange connect lazily through the recovery path.
func New(ctx context.Context, cfg *Config) (*Bridge, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	metrics := newMetrics()
	conn := newConn(cfg, metrics)
	state := &deviceState{}

	b := &Bridge{
		cfg:     cfg,
		logger:  cfg.logger,
		conn:    conn,
		state:   state,
		stream:  newSliderStream(conn, state, metrics, cfg),
		leds:    newLEDDispatcher(conn, metrics, cfg),
		metrics: metrics,
	}

	dispatchCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.leds.start(dispatchCtx)

	return b, nil
}

// Open establishes the transport session and verifies it with a ping
// exchange.
//
// When waitConnected is false a failed dial is logged and swallowed: the
// session is then created lazily by the recovery path of the first exchange.
// When waitConnected is true the dial error is returned to the caller.
func (b *Bridge) Open(waitConnected bool) error {
	if b.closed.Load() {
		return ErrBridgeClosed
	}

	if err := b.conn.Connect(context.Background()); err != nil {
		if waitConnected {
			return err
		}

		b.logger.Warn("proxy unavailable, will retry on demand", "path", b.cfg.SocketPath())

		return nil
	}

	if err := b.Ping(); err != nil {
		b.logger.Warn("ping verification failed, connection may be unstable", "error", err)
	}

	return nil
}

// Close stops the streaming loop and the LED dispatcher and tears down the
// session. It is idempotent.
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.stream.stop()
	b.stream.wait()

	b.cancel()
	b.leds.wait()

	return b.conn.Close()
}

// JVSInit prepares the input subsystem. It requires a live session —
// reconnecting once if none exists — and probes it with a poll exchange whose
// outcome is only logged.
func (b *Bridge) JVSInit() error {
	if b.closed.Load() {
		return ErrBridgeClosed
	}

	if !b.conn.Connected() && !b.conn.Reconnect() {
		return fmt.Errorf("jvs init: %w", ErrNotConnected)
	}

	if rsp, err := b.conn.Request(chuniio.JVSPoll{}); err != nil {
		b.logger.Warn("jvs init probe poll failed", "error", err)
	} else {
		b.logger.Debug("jvs init probe poll succeeded", chuniio.MsgInfo(rsp)...)
	}

	return nil
}

// Poll returns the operator button bits and IR beam bits.
//
// Fast path first: the cached snapshot via a non-blocking try-lock; zeros
// when the lock is contended. Then a best-effort poll exchange — fresh values
// are cached and returned when it succeeds, the cached values remain
// authoritative when it fails. Poll never returns an error.
func (b *Bridge) Poll() (opbtn, beams uint8) {
	opbtn, beams, ok := b.state.tryCachedInput()
	if !ok {
		// contended: return the defined default rather than waiting
		return 0, 0
	}

	rsp, err := b.conn.Request(chuniio.JVSPoll{})
	if err != nil {
		return opbtn, beams
	}

	pollRsp, ok := rsp.(chuniio.JVSPollResponse)
	if !ok {
		return opbtn, beams
	}

	b.state.setInput(pollRsp.OpBtn, pollRsp.Beams)

	return pollRsp.OpBtn, pollRsp.Beams
}

// CoinCounter returns the coin count: the lock-free cached value, refreshed
// by a best-effort exchange when the backend answers.
func (b *Bridge) CoinCounter() uint16 {
	cached := b.state.cachedCoinCount()

	rsp, err := b.conn.Request(chuniio.CoinCounterRead{})
	if err != nil {
		return cached
	}

	coinRsp, ok := rsp.(chuniio.CoinCounterReadResponse)
	if !ok {
		return cached
	}

	b.state.setCoinCount(coinRsp.Count)

	return coinRsp.Count
}

// RefreshAll updates opbtn, beams, slider pressure and coin count in a single
// full-state exchange. It reports whether the cache was refreshed.
func (b *Bridge) RefreshAll() bool {
	rsp, err := b.conn.Request(chuniio.JVSFullStateRead{})
	if err != nil {
		return false
	}

	fullRsp, ok := rsp.(chuniio.JVSFullStateReadResponse)
	if !ok {
		b.logger.Error("unexpected full-state reply", chuniio.MsgInfo(rsp)...)
		return false
	}

	b.state.setFullState(fullRsp.OpBtn, fullRsp.Beams, fullRsp.Pressure, fullRsp.CoinCount)

	return true
}

// SliderInit prepares the slider subsystem. The slider LED strip shares the
// LED buffers, so this also initializes them.
func (b *Bridge) SliderInit() error {
	if b.closed.Load() {
		return ErrBridgeClosed
	}

	b.state.initLEDBuffers()
	b.logger.Info("slider subsystem initialized")

	return nil
}

// StartSlider activates the slider streaming loop, delivering a pressure
// snapshot to sink roughly once per configured interval. Calling StartSlider
// while a stream is active is a no-op: the running loop and its sink are kept.
func (b *Bridge) StartSlider(sink SliderSink) {
	if b.closed.Load() {
		return
	}

	b.stream.start(sink)
}

// StopSlider deactivates the streaming loop. The loop exits at its next cycle
// boundary; an in-flight exchange is not interrupted.
func (b *Bridge) StopSlider() {
	b.stream.stop()
}

// PushSliderInput sends a slider pressure snapshot to the backend as a
// fire-and-forget push, for surfaces that produce pressure locally instead of
// streaming it from the backend.
func (b *Bridge) PushSliderInput(pressure chuniio.Pressure) {
	b.state.setPressure(pressure)
	b.conn.Notify(chuniio.SliderInput{Pressure: pressure})
}

// LEDInit initializes the LED subsystem: every board gets its fixed-size,
// zero-filled buffer. Idempotent.
func (b *Bridge) LEDInit() error {
	if b.closed.Load() {
		return ErrBridgeClosed
	}

	b.state.initLEDBuffers()
	b.logger.Info("led boards initialized")

	return nil
}

// SetLEDs installs rgb as the given board's buffer and queues an LED update
// for dispatch. The caller is never blocked by transport latency: the send
// happens on the dispatcher goroutine.
//
// rgb must exactly match the board's fixed size (159, 189 or 93 bytes for
// boards 0, 1 and 2); a mismatch is rejected with ErrLEDBufferSize and no
// state mutation.
func (b *Bridge) SetLEDs(board uint8, rgb []byte) error {
	if b.closed.Load() {
		return ErrBridgeClosed
	}

	if err := b.state.setLEDBuffer(board, rgb); err != nil {
		return err
	}

	msg, err := chuniio.NewLEDUpdate(board, rgb)
	if err != nil {
		// board sizes are all below the wire cap; only reachable if they change
		return err
	}

	b.leds.dispatch(msg)

	return nil
}

// SetSliderLEDs installs rgb as the slider LED strip state. The slider strip
// is LED board 2 on the wire.
func (b *Bridge) SetSliderLEDs(rgb []byte) error {
	return b.SetLEDs(SliderLEDBoard, rgb)
}

// LEDBuffer returns a copy of the stored buffer of the given board.
func (b *Bridge) LEDBuffer(board uint8) ([]byte, error) {
	return b.state.ledBuffer(board)
}

// Ping performs a keepalive round trip.
func (b *Bridge) Ping() error {
	rsp, err := b.conn.Request(chuniio.Ping{})
	if err != nil {
		return err
	}

	if _, ok := rsp.(chuniio.Pong); !ok {
		return fmt.Errorf("%w: ping answered with %s", ErrNoResponse, rsp.Type())
	}

	return nil
}

// Connected reports whether a transport session is currently installed.
func (b *Bridge) Connected() bool {
	return b.conn.Connected()
}

// GetAPIVersion returns the chuniio API revision implemented by this bridge.
func (b *Bridge) GetAPIVersion() uint16 {
	return APIVersion
}

// GetMetrics returns the metrics associated with this bridge.
func (b *Bridge) GetMetrics() *Metrics {
	return b.metrics
}

// GetLogger returns the logger associated with this bridge.
func (b *Bridge) GetLogger() logger.Logger {
	return b.logger
}
