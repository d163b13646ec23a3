package bridge

import (
	"context"
	"sync"

	"github.com/chunibridge/chunibridge/chuniio"
	"github.com/chunibridge/chunibridge/internal/queue"
	"github.com/chunibridge/chunibridge/logger"
)

// ledDispatcher decouples LED writes from transport latency. Callers enqueue
// encoded frames into a fixed-capacity drop-oldest ring and return
// immediately; one long-lived goroutine drains the ring and performs the
// fire-and-forget sends. Frames are at-most-once: under backpressure the
// oldest queued frame is evicted, never the caller blocked.
type ledDispatcher struct {
	conn    *Conn
	ring    *queue.FrameRing
	metrics *Metrics
	logger  logger.Logger
	wg      sync.WaitGroup
}

func newLEDDispatcher(conn *Conn, metrics *Metrics, cfg *Config) *ledDispatcher {
	return &ledDispatcher{
		conn:    conn,
		ring:    queue.NewFrameRing(cfg.ledQueueSize),
		metrics: metrics,
		logger:  cfg.logger,
	}
}

// start spawns the drain goroutine, which runs until ctx is canceled.
func (d *ledDispatcher) start(ctx context.Context) {
	d.wg.Add(1)
	go d.run(ctx)
}

// wait blocks until the drain goroutine has terminated.
func (d *ledDispatcher) wait() {
	d.wg.Wait()
}

// dispatch enqueues an encoded LED frame without ever blocking the caller.
func (d *ledDispatcher) dispatch(msg chuniio.Message) {
	if d.ring.Push(msg.ToBytes()) {
		d.metrics.LEDFramesDropped.Inc()
		d.logger.Debug("led frame dropped, dispatch ring full", "type", msg.Type().String())
	}
}

func (d *ledDispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	defer d.logger.Debug("led dispatcher terminated")

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.ring.Notify():
			d.drain()
		}
	}
}

// drain sends every queued frame. A single wakeup may cover several pushes.
func (d *ledDispatcher) drain() {
	for {
		frame, ok := d.ring.Pop()
		if !ok {
			return
		}

		d.conn.notifyFrame(frame, chuniio.LEDUpdateType)
	}
}
