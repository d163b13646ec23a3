package bridge

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Metrics contains counters for a Bridge, bumped concurrently from the
// caller's polling goroutine, the slider streaming loop, and the LED
// dispatcher. Counter values can be used as the value of a prometheus
// CounterFunc or GaugeFunc.
type Metrics struct {
	// RequestCount indicates the number of request exchanges attempted.
	RequestCount *xsync.Counter
	// RequestErrCount indicates the number of request exchanges that produced
	// no response after the one-shot recovery retry.
	RequestErrCount *xsync.Counter

	// NotifyCount indicates the number of fire-and-forget sends attempted.
	NotifyCount *xsync.Counter
	// NotifyErrCount indicates the number of fire-and-forget sends dropped on
	// transport failure.
	NotifyErrCount *xsync.Counter

	// ReconnectCount indicates the number of successful session recoveries.
	ReconnectCount *xsync.Counter
	// ReconnectErrCount indicates the number of failed recovery attempts.
	ReconnectErrCount *xsync.Counter

	// LEDFramesDropped indicates the number of LED frames evicted from the
	// dispatch ring by the drop-oldest policy.
	LEDFramesDropped *xsync.Counter

	// StreamCycles indicates the number of slider streaming loop iterations.
	StreamCycles *xsync.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestCount:      xsync.NewCounter(),
		RequestErrCount:   xsync.NewCounter(),
		NotifyCount:       xsync.NewCounter(),
		NotifyErrCount:    xsync.NewCounter(),
		ReconnectCount:    xsync.NewCounter(),
		ReconnectErrCount: xsync.NewCounter(),
		LEDFramesDropped:  xsync.NewCounter(),
		StreamCycles:      xsync.NewCounter(),
	}
}
