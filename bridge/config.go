package bridge

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/chunibridge/chunibridge/logger"
)

const (
	// DefaultSocketPath is the proxy socket address used when neither an
	// explicit option nor the environment provides one.
	DefaultSocketPath = "/tmp/chuniio_proxy.sock"

	// SocketPathEnv is the environment variable that overrides the default
	// proxy socket address.
	SocketPathEnv = "CHUNIIO_PROXY_SOCKET"
)

// DialFunc opens a stream connection to the proxy socket at address.
type DialFunc func(ctx context.Context, address string) (net.Conn, error)

// Config holds the configuration parameters for a Bridge.
//
// Create it with NewConfig and the various WithXXX functional options.
type Config struct {
	// socketPath is the filesystem path of the proxy's Unix stream socket.
	socketPath string

	// connectTimeout bounds each dial attempt.
	// Defaults to 3 seconds.
	connectTimeout time.Duration

	// receiveTimeout bounds the blocking receive of a reply. Zero disables the
	// deadline: an unresponsive backend then stalls the caller indefinitely,
	// which matches the historical contract of the entry-point surface.
	// Defaults to 0 (disabled).
	receiveTimeout time.Duration

	// writeTimeout bounds each send. Zero disables the deadline.
	// Defaults to 0 (disabled).
	writeTimeout time.Duration

	// streamInterval is the cadence of the slider streaming loop.
	// Defaults to 1 millisecond.
	streamInterval time.Duration

	// ledQueueSize is the capacity of the drop-oldest LED dispatch ring.
	// Defaults to 32.
	ledQueueSize int

	// dial opens the transport connection. Overridable for tests.
	dial DialFunc

	// logger provides a logger instance for bridge events and errors.
	logger logger.Logger
}

// NewConfig creates a bridge configuration with default values and applies the
// provided options.
//
// The socket path defaults to the CHUNIIO_PROXY_SOCKET environment variable
// when set, and to DefaultSocketPath otherwise.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		socketPath:     defaultSocketPath(),
		connectTimeout: 3 * time.Second,
		receiveTimeout: 0,
		writeTimeout:   0,
		streamInterval: time.Millisecond,
		ledQueueSize:   32,
		logger:         logger.GetLogger(),
	}
	cfg.dial = cfg.dialUnix

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// SocketPath returns the resolved proxy socket path.
func (cfg *Config) SocketPath() string {
	return cfg.socketPath
}

func defaultSocketPath() string {
	if path := os.Getenv(SocketPathEnv); path != "" {
		return path
	}

	return DefaultSocketPath
}

func (cfg *Config) dialUnix(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout)
	defer cancel()

	return dialer.DialContext(dialCtx, "unix", address)
}

// Option represents a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithSocketPath sets the filesystem path of the proxy's Unix stream socket,
// taking precedence over the CHUNIIO_PROXY_SOCKET environment variable.
// An error is returned if the path is empty or the configuration is nil.
func WithSocketPath(path string) Option {
	return newOptFunc("WithSocketPath", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if path == "" {
			return errors.New("socket path is empty")
		}
		cfg.socketPath = path

		return nil
	})
}

// WithConnectTimeout sets the timeout for each dial attempt.
// An error is returned if the timeout is outside the valid range
// (0.1-30 seconds) or if the configuration is nil.
//
// The default value is 3 seconds.
func WithConnectTimeout(val time.Duration) Option {
	return newOptFunc("WithConnectTimeout", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < 100*time.Millisecond || val > 30*time.Second {
			return errors.New("connect timeout out of range [0.1, 30]")
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithReceiveTimeout sets the deadline for the blocking receive of a reply.
//
// A zero value disables the deadline and preserves the historical behavior
// where an unresponsive backend stalls the calling goroutine until the peer
// answers or closes. A positive value converts such a stall into a failed
// exchange that flows through the usual recovery path.
//
// An error is returned if the timeout is negative, exceeds 120 seconds, or if
// the configuration is nil.
//
// The default value is 0 (disabled).
func WithReceiveTimeout(val time.Duration) Option {
	return newOptFunc("WithReceiveTimeout", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < 0 || val > 120*time.Second {
			return errors.New("receive timeout out of range [0, 120]")
		}
		cfg.receiveTimeout = val

		return nil
	})
}

// WithWriteTimeout sets the deadline for each send. A zero value disables the
// deadline.
// An error is returned if the timeout is negative, exceeds 120 seconds, or if
// the configuration is nil.
//
// The default value is 0 (disabled).
func WithWriteTimeout(val time.Duration) Option {
	return newOptFunc("WithWriteTimeout", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < 0 || val > 120*time.Second {
			return errors.New("write timeout out of range [0, 120]")
		}
		cfg.writeTimeout = val

		return nil
	})
}

// WithStreamInterval sets the cadence of the slider streaming loop.
// An error is returned if the interval is outside the valid range
// (0.1-1000 milliseconds) or if the configuration is nil.
//
// The default value is 1 millisecond.
func WithStreamInterval(val time.Duration) Option {
	return newOptFunc("WithStreamInterval", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < 100*time.Microsecond || val > time.Second {
			return errors.New("stream interval out of range [0.0001, 1]")
		}
		cfg.streamInterval = val

		return nil
	})
}

// WithLEDQueueSize sets the capacity of the drop-oldest LED dispatch ring,
// which buffers encoded LED frames between the caller and the dispatcher
// goroutine. When the ring is full the oldest frame is dropped, so a
// misbehaving caller can never grow the queue without bound.
//
// The queue size must be within the range of 1 to 1024.
// An error is returned if the size is invalid or the configuration is nil.
//
// The default value is 32.
func WithLEDQueueSize(size int) Option {
	return newOptFunc("WithLEDQueueSize", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if size < 1 || size > 1024 {
			return errors.New("led queue size out of range [1, 1024]")
		}

		cfg.ledQueueSize = size

		return nil
	})
}

// WithDialFunc replaces the function used to open the transport connection.
// Intended for tests that substitute an in-process transport.
// An error is returned if the function is nil or the configuration is nil.
func WithDialFunc(dial DialFunc) Option {
	return newOptFunc("WithDialFunc", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if dial == nil {
			return errors.New("dial func is nil")
		}

		cfg.dial = dial

		return nil
	})
}

// WithLogger sets the logger for the bridge.
// An error is returned if the logger is nil or the configuration is nil.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if l == nil {
			return errors.New("logger is nil")
		}

		cfg.logger = l

		return nil
	})
}
