// Package telemetry exports bridge and simulator counters as Prometheus
// metrics and serves the debug HTTP surface of the backend simulator daemon.
package telemetry

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chunibridge/chunibridge/bridge"
)

const namespace = "chunibridge"

// NewRegistry creates an empty Prometheus registry for the debug endpoint.
// Callers register bridge and simulator collectors on it as needed.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterBridge registers CounterFunc collectors reading the bridge's
// lock-free counters. The counters themselves stay on the hot path; Prometheus
// only samples them at scrape time.
func RegisterBridge(reg prometheus.Registerer, metrics *bridge.Metrics) error {
	counters := []struct {
		name  string
		help  string
		value func() int64
	}{
		{
			name:  "requests_total",
			help:  "Request exchanges attempted.",
			value: metrics.RequestCount.Value,
		},
		{
			name:  "request_errors_total",
			help:  "Request exchanges that produced no response after recovery.",
			value: metrics.RequestErrCount.Value,
		},
		{
			name:  "notifies_total",
			help:  "Fire-and-forget sends attempted.",
			value: metrics.NotifyCount.Value,
		},
		{
			name:  "notify_errors_total",
			help:  "Fire-and-forget sends dropped on transport failure.",
			value: metrics.NotifyErrCount.Value,
		},
		{
			name:  "reconnects_total",
			help:  "Successful session recoveries.",
			value: metrics.ReconnectCount.Value,
		},
		{
			name:  "reconnect_errors_total",
			help:  "Failed session recovery attempts.",
			value: metrics.ReconnectErrCount.Value,
		},
		{
			name:  "led_frames_dropped_total",
			help:  "LED frames evicted from the dispatch ring.",
			value: metrics.LEDFramesDropped.Value,
		},
		{
			name:  "stream_cycles_total",
			help:  "Slider streaming loop iterations.",
			value: metrics.StreamCycles.Value,
		},
	}

	for _, counter := range counters {
		value := counter.value
		collector := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      counter.name,
			Help:      counter.help,
		}, func() float64 { return float64(value()) })

		if err := reg.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// SimulatorStats is the subset of simulator state exported as metrics.
type SimulatorStats struct {
	CoinCount uint16
	LEDFrames int
	Conns     int
}

// RegisterSimulator registers GaugeFunc collectors sampling the simulator
// state through stats at scrape time.
func RegisterSimulator(reg prometheus.Registerer, stats func() SimulatorStats) error {
	gauges := []struct {
		name  string
		help  string
		value func(SimulatorStats) float64
	}{
		{
			name:  "coin_count",
			help:  "Simulated coin counter value.",
			value: func(s SimulatorStats) float64 { return float64(s.CoinCount) },
		},
		{
			name:  "led_frames_received",
			help:  "LED update frames received by the simulator.",
			value: func(s SimulatorStats) float64 { return float64(s.LEDFrames) },
		},
		{
			name:  "connections",
			help:  "Live client connections.",
			value: func(s SimulatorStats) float64 { return float64(s.Conns) },
		},
	}

	for _, gauge := range gauges {
		value := gauge.value
		collector := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      gauge.name,
			Help:      gauge.help,
		}, func() float64 { return value(stats()) })

		if err := reg.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// StateFunc produces the JSON document served at /statez.
type StateFunc func() any

// NewRouter builds the debug router: /metrics (Prometheus exposition),
// /healthz, and /statez serving state as JSON. state may be nil, in which case
// /statez answers 404.
func NewRouter(reg *prometheus.Registry, state StateFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	if state != nil {
		r.Get("/statez", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			_ = enc.Encode(state())
		})
	}

	return r
}
