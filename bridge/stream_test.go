package bridge

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chunibridge/chunibridge/chuniio"
)

func newTestStream(t *testing.T, opts ...Option) (*sliderStream, *Conn) {
	t.Helper()

	opts = append([]Option{WithStreamInterval(time.Millisecond)}, opts...)
	cfg, err := NewConfig(opts...)
	require.NoError(t, err)

	metrics := newMetrics()
	conn := newConn(cfg, metrics)
	t.Cleanup(func() { _ = conn.Close() })

	return newSliderStream(conn, &deviceState{}, metrics, cfg), conn
}

func TestSliderStream_DeliversBackendState(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	pressure := testPressure(0x40)
	srv.SetPressure(pressure)

	stream, conn := newTestStream(t, WithSocketPath(srv.Path()))
	require.NoError(conn.Connect(context.Background()))

	var got atomic.Value
	require.True(stream.start(SliderSinkFunc(func(p chuniio.Pressure) {
		got.Store(p)
	})))

	require.Eventually(func() bool {
		p, ok := got.Load().(chuniio.Pressure)
		return ok && p == pressure
	}, testWaitTimeout, testWaitTick)

	stream.stop()
	stream.wait()

	// fresh state was cached along the way
	require.Equal(pressure, stream.state.cachedPressure())
}

func TestSliderStream_StartIdempotent(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	stream, _ := newTestStream(t, WithSocketPath(srv.Path()))

	var first, second atomic.Int32
	require.True(stream.start(SliderSinkFunc(func(chuniio.Pressure) {
		first.Add(1)
	})))

	// second start while Active: no second loop, sink not replaced
	require.False(stream.start(SliderSinkFunc(func(chuniio.Pressure) {
		second.Add(1)
	})))

	require.Eventually(func() bool {
		return first.Load() >= 3
	}, testWaitTimeout, testWaitTick)
	require.Zero(second.Load())

	stream.stop()
	stream.wait()

	// after the loop terminated a new start spawns a fresh one
	require.True(stream.start(SliderSinkFunc(func(chuniio.Pressure) {
		second.Add(1)
	})))
	require.Eventually(func() bool {
		return second.Load() >= 1
	}, testWaitTimeout, testWaitTick)

	stream.stop()
	stream.wait()
}

func TestSliderStream_NilSinkRejected(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	stream, _ := newTestStream(t, WithSocketPath(srv.Path()))

	require.False(stream.start(nil))
	require.False(stream.active.Load())
}

func TestSliderStream_CachedFallbackOnFailure(t *testing.T) {
	require := require.New(t)

	dial := func(ctx context.Context, address string) (net.Conn, error) {
		return nil, errors.New("no backend")
	}

	stream, _ := newTestStream(t, WithSocketPath("/nonexistent/proxy.sock"), WithDialFunc(dial))

	cached := testPressure(0x11)
	stream.state.setPressure(cached)

	var got atomic.Value
	require.True(stream.start(SliderSinkFunc(func(p chuniio.Pressure) {
		got.Store(p)
	})))

	// every failed exchange still yields a complete snapshot: the cached one
	require.Eventually(func() bool {
		p, ok := got.Load().(chuniio.Pressure)
		return ok && p == cached
	}, testWaitTimeout, testWaitTick)

	stream.stop()
	stream.wait()
}

func TestSliderStream_SinkPanicDoesNotKillLoop(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	stream, _ := newTestStream(t, WithSocketPath(srv.Path()))

	var calls atomic.Int32
	require.True(stream.start(SliderSinkFunc(func(chuniio.Pressure) {
		if calls.Add(1) == 1 {
			panic("faulty sink")
		}
	})))

	// the loop survives the first cycle's panic and keeps delivering
	require.Eventually(func() bool {
		return calls.Load() >= 3
	}, testWaitTimeout, testWaitTick)

	stream.stop()
	stream.wait()
}
