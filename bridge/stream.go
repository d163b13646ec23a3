package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chunibridge/chunibridge/chuniio"
	"github.com/chunibridge/chunibridge/internal/pool"
	"github.com/chunibridge/chunibridge/logger"
)

// SliderSink receives slider pressure snapshots from the streaming loop.
//
// HandleSliderState is invoked once per loop cycle, always with a complete
// snapshot: the latest backend state when the exchange succeeded, the last
// cached snapshot otherwise. Implementations must return quickly; the loop
// does not start the next cycle until the sink returns.
type SliderSink interface {
	HandleSliderState(pressure chuniio.Pressure)
}

// SliderSinkFunc adapts a plain function to the SliderSink interface.
type SliderSinkFunc func(pressure chuniio.Pressure)

// HandleSliderState calls f(pressure).
func (f SliderSinkFunc) HandleSliderState(pressure chuniio.Pressure) { f(pressure) }

// sliderStream drives the background slider polling loop. Two states: Idle
// and Active, tracked by an atomic flag that the loop re-reads at every cycle
// boundary.
type sliderStream struct {
	conn     *Conn
	state    *deviceState
	metrics  *Metrics
	logger   logger.Logger
	interval time.Duration

	active atomic.Bool
	wg     sync.WaitGroup
}

func newSliderStream(conn *Conn, state *deviceState, metrics *Metrics, cfg *Config) *sliderStream {
	return &sliderStream{
		conn:     conn,
		state:    state,
		metrics:  metrics,
		logger:   cfg.logger,
		interval: cfg.streamInterval,
	}
}

// start transitions Idle to Active and spawns the loop goroutine. When the
// stream is already Active the call is an idempotent no-op: no second loop is
// spawned and the registered sink is not replaced.
func (st *sliderStream) start(sink SliderSink) bool {
	if sink == nil {
		st.logger.Warn("slider start ignored, nil sink")
		return false
	}

	if !st.active.CompareAndSwap(false, true) {
		st.logger.Debug("slider stream already active")
		return false
	}

	st.logger.Info("slider stream started", "interval", st.interval)

	st.wg.Add(1)
	go st.run(sink)

	return true
}

// stop transitions Active to Idle. The loop observes the flag at its next
// cycle boundary; an in-flight request is not interrupted.
func (st *sliderStream) stop() {
	if st.active.CompareAndSwap(true, false) {
		st.logger.Info("slider stream stopping")
	}
}

// wait blocks until the loop goroutine has terminated.
func (st *sliderStream) wait() {
	st.wg.Wait()
}

func (st *sliderStream) run(sink SliderSink) {
	defer st.wg.Done()
	defer st.logger.Info("slider stream terminated")

	for st.active.Load() {
		st.metrics.StreamCycles.Inc()

		pressure := st.state.cachedPressure()

		rsp, err := st.conn.Request(chuniio.SliderStateRead{})
		if err == nil {
			if stateRsp, ok := rsp.(chuniio.SliderStateReadResponse); ok {
				st.state.setPressure(stateRsp.Pressure)
				pressure = stateRsp.Pressure
			}
		}

		// the sink always gets a complete snapshot, fresh or cached
		st.deliver(sink, pressure)

		timer := pool.GetTimer(st.interval)
		<-timer.C
		pool.PutTimer(timer)
	}
}

// deliver invokes the sink with panic protection so a faulty callback cannot
// kill the loop.
func (st *sliderStream) deliver(sink SliderSink, pressure chuniio.Pressure) {
	defer func() {
		if r := recover(); r != nil {
			st.logger.Error("panic in slider sink", "panic", r)
		}
	}()

	sink.HandleSliderState(pressure)
}
