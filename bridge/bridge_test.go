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

func newTestBridge(t *testing.T, opts ...Option) *Bridge {
	t.Helper()

	opts = append([]Option{WithStreamInterval(time.Millisecond)}, opts...)
	cfg, err := NewConfig(opts...)
	require.NoError(t, err)

	b, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	return b
}

func TestBridge_NilConfig(t *testing.T) {
	require := require.New(t)

	b, err := New(context.Background(), nil)
	require.Nil(b)
	require.ErrorIs(err, ErrConfigNil)
}

func TestBridge_OpenAndPing(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	b := newTestBridge(t, WithSocketPath(srv.Path()))

	require.NoError(b.Open(true))
	require.True(b.Connected())
	require.NoError(b.Ping())
}

func TestBridge_OpenSwallowsDialFailure(t *testing.T) {
	require := require.New(t)

	dialErr := errors.New("no backend")
	dial := func(ctx context.Context, address string) (net.Conn, error) {
		return nil, dialErr
	}

	b := newTestBridge(t, WithSocketPath("/nonexistent/proxy.sock"), WithDialFunc(dial))

	// lenient open: failure is logged and deferred to the recovery path
	require.NoError(b.Open(false))
	require.False(b.Connected())

	// strict open: failure surfaces
	require.ErrorIs(b.Open(true), dialErr)
}

func TestBridge_Poll(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	srv.SetInput(0x05, 0x3F)

	b := newTestBridge(t, WithSocketPath(srv.Path()))
	require.NoError(b.Open(true))
	require.NoError(b.JVSInit())

	opbtn, beams := b.Poll()
	require.Equal(uint8(0x05), opbtn)
	require.Equal(uint8(0x3F), beams)

	srv.SetInput(0x00, 0x01)
	opbtn, beams = b.Poll()
	require.Equal(uint8(0x00), opbtn)
	require.Equal(uint8(0x01), beams)
}

func TestBridge_PollFallsBackToCache(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	srv.SetInput(0x77, 0x07)

	b := newTestBridge(t, WithSocketPath(srv.Path()))
	require.NoError(b.Open(true))

	opbtn, beams := b.Poll()
	require.Equal(uint8(0x77), opbtn)
	require.Equal(uint8(0x07), beams)

	// backend gone for good: the cached snapshot remains authoritative
	require.NoError(srv.Close())

	opbtn, beams = b.Poll()
	require.Equal(uint8(0x77), opbtn)
	require.Equal(uint8(0x07), beams)
}

func TestBridge_CoinCounter(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	b := newTestBridge(t, WithSocketPath(srv.Path()))
	require.NoError(b.Open(true))

	require.Zero(b.CoinCounter())

	srv.InsertCoin()
	srv.InsertCoin()
	require.Equal(uint16(2), b.CoinCounter())

	// counter resets propagate as-is, no monotonicity imposed here
	srv.SetCoinCount(0)
	require.Zero(b.CoinCounter())
}

func TestBridge_RefreshAll(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	pressure := testPressure(0x20)
	srv.SetInput(0x03, 0x0C)
	srv.SetPressure(pressure)
	srv.SetCoinCount(7)

	b := newTestBridge(t, WithSocketPath(srv.Path()))
	require.NoError(b.Open(true))

	require.True(b.RefreshAll())

	opbtn, beams, ok := b.state.tryCachedInput()
	require.True(ok)
	require.Equal(uint8(0x03), opbtn)
	require.Equal(uint8(0x0C), beams)
	require.Equal(pressure, b.state.cachedPressure())
	require.Equal(uint16(7), b.CoinCounter())
}

func TestBridge_RefreshAllUnreachable(t *testing.T) {
	require := require.New(t)

	dial := func(ctx context.Context, address string) (net.Conn, error) {
		return nil, errors.New("no backend")
	}

	b := newTestBridge(t, WithSocketPath("/nonexistent/proxy.sock"), WithDialFunc(dial))
	require.False(b.RefreshAll())
}

func TestBridge_SliderStreaming(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	pressure := testPressure(0x60)
	srv.SetPressure(pressure)

	b := newTestBridge(t, WithSocketPath(srv.Path()))
	require.NoError(b.Open(true))
	require.NoError(b.SliderInit())

	var got atomic.Value
	b.StartSlider(SliderSinkFunc(func(p chuniio.Pressure) {
		got.Store(p)
	}))

	require.Eventually(func() bool {
		p, ok := got.Load().(chuniio.Pressure)
		return ok && p == pressure
	}, testWaitTimeout, testWaitTick)

	b.StopSlider()
}

func TestBridge_PushSliderInput(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	b := newTestBridge(t, WithSocketPath(srv.Path()))
	require.NoError(b.Open(true))

	pressure := testPressure(0x01)
	b.PushSliderInput(pressure)

	require.Eventually(func() bool {
		return srv.Snapshot().Pressure == pressure
	}, testWaitTimeout, testWaitTick)

	// the push also refreshes the local cache
	require.Equal(pressure, b.state.cachedPressure())
}

func TestBridge_LEDs(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	b := newTestBridge(t, WithSocketPath(srv.Path()))
	require.NoError(b.Open(true))
	require.NoError(b.LEDInit())
	require.NoError(b.LEDInit()) // idempotent

	rgb := make([]byte, 159)
	for i := range rgb {
		rgb[i] = byte(i)
	}
	require.NoError(b.SetLEDs(0, rgb))

	stored, err := b.LEDBuffer(0)
	require.NoError(err)
	require.Equal(rgb, stored)

	require.Eventually(func() bool {
		return len(srv.LEDFrames()) == 1
	}, testWaitTimeout, testWaitTick)

	frames := srv.LEDFrames()
	require.Equal(uint8(0), frames[0].Board)
	require.Equal(rgb, frames[0].RGB)
}

func TestBridge_SetSliderLEDs(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	b := newTestBridge(t, WithSocketPath(srv.Path()))
	require.NoError(b.Open(true))
	require.NoError(b.SliderInit())

	rgb := make([]byte, 93)
	rgb[0] = 0xEE
	require.NoError(b.SetSliderLEDs(rgb))

	require.Eventually(func() bool {
		return len(srv.LEDFrames()) == 1
	}, testWaitTimeout, testWaitTick)

	frames := srv.LEDFrames()
	require.Equal(uint8(SliderLEDBoard), frames[0].Board)
	require.Equal(rgb, frames[0].RGB)
}

func TestBridge_SetLEDsValidation(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	b := newTestBridge(t, WithSocketPath(srv.Path()))

	// before init
	require.ErrorIs(b.SetLEDs(0, make([]byte, 159)), ErrLEDNotInitialized)

	require.NoError(b.LEDInit())

	require.ErrorIs(b.SetLEDs(0, make([]byte, 100)), ErrLEDBufferSize)
	require.ErrorIs(b.SetLEDs(5, make([]byte, 159)), ErrLEDBoardRange)

	// nothing was queued for dispatch
	require.Zero(b.metrics.LEDFramesDropped.Value())
	require.Empty(srv.LEDFrames())
}

func TestBridge_RecoversAfterConnDrop(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	srv.SetInput(0x04, 0x00)

	b := newTestBridge(t, WithSocketPath(srv.Path()))
	require.NoError(b.Open(true))

	opbtn, _ := b.Poll()
	require.Equal(uint8(0x04), opbtn)

	srv.DropConns()

	opbtn, _ = b.Poll()
	require.Equal(uint8(0x04), opbtn)
	require.Equal(int64(1), b.metrics.ReconnectCount.Value())
}

func TestBridge_CloseIdempotent(t *testing.T) {
	require := require.New(t)

	srv := newTestBackend(t)
	b := newTestBridge(t, WithSocketPath(srv.Path()))
	require.NoError(b.Open(true))

	b.StartSlider(SliderSinkFunc(func(chuniio.Pressure) {}))

	require.NoError(b.Close())
	require.NoError(b.Close())

	require.ErrorIs(b.JVSInit(), ErrBridgeClosed)
	require.ErrorIs(b.LEDInit(), ErrBridgeClosed)
	require.ErrorIs(b.SliderInit(), ErrBridgeClosed)
	require.ErrorIs(b.SetLEDs(0, make([]byte, 159)), ErrBridgeClosed)
	require.Error(b.Open(true))
}

func TestBridge_GetAPIVersion(t *testing.T) {
	require := require.New(t)

	b := newTestBridge(t, WithSocketPath("/nonexistent/proxy.sock"))

	require.Equal(uint16(0x0102), b.GetAPIVersion())
	require.NotNil(b.GetMetrics())
	require.NotNil(b.GetLogger())
}
