package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/chunibridge/chunibridge/bridge"
)

func TestRegisterBridge(t *testing.T) {
	require := require.New(t)

	cfg, err := bridge.NewConfig(bridge.WithSocketPath("/nonexistent/proxy.sock"))
	require.NoError(err)

	b, err := bridge.New(context.Background(), cfg)
	require.NoError(err)
	defer b.Close()

	reg := NewRegistry()
	require.NoError(RegisterBridge(reg, b.GetMetrics()))

	// double registration is rejected by the registry, not silently ignored
	require.Error(RegisterBridge(reg, b.GetMetrics()))

	body := scrape(t, reg, nil, "/metrics")
	require.Contains(body, "chunibridge_bridge_requests_total")
	require.Contains(body, "chunibridge_bridge_reconnects_total")
	require.Contains(body, "chunibridge_bridge_led_frames_dropped_total")
	require.Contains(body, "chunibridge_bridge_stream_cycles_total")
}

func TestRegisterSimulator(t *testing.T) {
	require := require.New(t)

	reg := NewRegistry()
	require.NoError(RegisterSimulator(reg, func() SimulatorStats {
		return SimulatorStats{CoinCount: 7, LEDFrames: 3, Conns: 1}
	}))

	body := scrape(t, reg, nil, "/metrics")
	require.Contains(body, "chunibridge_backend_coin_count 7")
	require.Contains(body, "chunibridge_backend_led_frames_received 3")
	require.Contains(body, "chunibridge_backend_connections 1")
}

func TestRouter_Healthz(t *testing.T) {
	require := require.New(t)

	body := scrape(t, NewRegistry(), nil, "/healthz")
	require.Equal("ok\n", body)
}

func TestRouter_Statez(t *testing.T) {
	require := require.New(t)

	state := func() any {
		return map[string]int{"coin_count": 42}
	}

	body := scrape(t, NewRegistry(), state, "/statez")
	require.Contains(body, `"coin_count": 42`)
}

func TestRouter_StatezDisabled(t *testing.T) {
	require := require.New(t)

	router := NewRouter(NewRegistry(), nil)
	srv := httptest.NewServer(router)
	defer srv.Close()

	rsp, err := http.Get(srv.URL + "/statez")
	require.NoError(err)
	defer rsp.Body.Close()
	require.Equal(http.StatusNotFound, rsp.StatusCode)
}

func scrape(t *testing.T, reg *prometheus.Registry, state StateFunc, path string) string {
	t.Helper()

	srv := httptest.NewServer(NewRouter(reg, state))
	defer srv.Close()

	rsp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer rsp.Body.Close()
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	body, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)

	return string(body)
}
