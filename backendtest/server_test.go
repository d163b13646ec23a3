package backendtest

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chunibridge/chunibridge/chuniio"
)

func newServer(t *testing.T) (*Server, net.Conn) {
	t.Helper()

	srv, err := Listen(filepath.Join(t.TempDir(), "proxy.sock"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := net.Dial("unix", srv.Path())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return srv, conn
}

func roundTrip(t *testing.T, conn net.Conn, req chuniio.Message) chuniio.Message {
	t.Helper()

	_, err := conn.Write(req.ToBytes())
	require.NoError(t, err)

	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := conn.Read(buf)
	require.NoError(t, err)

	rsp, err := chuniio.Decode(buf[:n])
	require.NoError(t, err)

	return rsp
}

func TestServer_AnswersRequests(t *testing.T) {
	require := require.New(t)

	srv, conn := newServer(t)
	srv.SetInput(0x05, 0x02)
	srv.SetCoinCount(9)

	var pressure chuniio.Pressure
	pressure[0] = 0x7F
	srv.SetPressure(pressure)

	rsp := roundTrip(t, conn, chuniio.JVSPoll{})
	require.Equal(chuniio.JVSPollResponse{OpBtn: 0x05, Beams: 0x02}, rsp)

	rsp = roundTrip(t, conn, chuniio.CoinCounterRead{})
	require.Equal(chuniio.CoinCounterReadResponse{Count: 9}, rsp)

	rsp = roundTrip(t, conn, chuniio.SliderStateRead{})
	require.Equal(chuniio.SliderStateReadResponse{Pressure: pressure}, rsp)

	rsp = roundTrip(t, conn, chuniio.Ping{})
	require.Equal(chuniio.Pong{}, rsp)

	rsp = roundTrip(t, conn, chuniio.JVSFullStateRead{})
	require.Equal(chuniio.JVSFullStateReadResponse{
		OpBtn:     0x05,
		Beams:     0x02,
		Pressure:  pressure,
		CoinCount: 9,
	}, rsp)
}

func TestServer_CoalescedRequests(t *testing.T) {
	require := require.New(t)

	srv, conn := newServer(t)

	// two fire-and-forget frames plus a request in a single write; the server
	// must consume the pending buffer frame by frame
	led, err := chuniio.NewLEDUpdate(1, []byte{1, 2, 3})
	require.NoError(err)
	sliderLED, err := chuniio.NewSliderLEDUpdate([]byte{4, 5, 6})
	require.NoError(err)

	var batch []byte
	batch = append(batch, led.ToBytes()...)
	batch = append(batch, sliderLED.ToBytes()...)
	batch = append(batch, chuniio.Ping{}.ToBytes()...)

	_, err = conn.Write(batch)
	require.NoError(err)

	buf := make([]byte, 16)
	require.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	n, err := conn.Read(buf)
	require.NoError(err)

	rsp, err := chuniio.Decode(buf[:n])
	require.NoError(err)
	require.Equal(chuniio.Pong{}, rsp)

	frames := srv.LEDFrames()
	require.Len(frames, 2)
	require.Equal(uint8(1), frames[0].Board)
	require.Equal([]byte{1, 2, 3}, frames[0].RGB)
	// slider LED updates are recorded as board-2 frames
	require.Equal(uint8(2), frames[1].Board)
	require.Equal([]byte{4, 5, 6}, frames[1].RGB)
}

func TestServer_SliderInputUpdatesState(t *testing.T) {
	require := require.New(t)

	srv, conn := newServer(t)

	var pressure chuniio.Pressure
	for i := range pressure {
		pressure[i] = byte(i)
	}

	_, err := conn.Write(chuniio.SliderInput{Pressure: pressure}.ToBytes())
	require.NoError(err)

	require.Eventually(func() bool {
		return srv.Snapshot().Pressure == pressure
	}, 2*time.Second, 5*time.Millisecond)
}

func TestServer_MalformedFrameDropsClient(t *testing.T) {
	require := require.New(t)

	_, conn := newServer(t)

	// unknown discriminant: the server drops this client
	_, err := conn.Write([]byte{0xFF})
	require.NoError(err)

	buf := make([]byte, 16)
	require.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, err = conn.Read(buf)
	require.Error(err)
}

func TestServer_InsertCoin(t *testing.T) {
	require := require.New(t)

	srv, conn := newServer(t)

	require.Equal(uint16(1), srv.InsertCoin())
	require.Equal(uint16(2), srv.InsertCoin())

	rsp := roundTrip(t, conn, chuniio.CoinCounterRead{})
	require.Equal(chuniio.CoinCounterReadResponse{Count: 2}, rsp)
}

func TestServer_CloseIdempotent(t *testing.T) {
	require := require.New(t)

	srv, err := Listen(filepath.Join(t.TempDir(), "proxy.sock"), nil)
	require.NoError(err)

	require.NoError(srv.Close())
	require.NoError(srv.Close())

	_, err = net.Dial("unix", srv.Path())
	require.Error(err)
}
