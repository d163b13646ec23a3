package bridge

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

// recvBufSize comfortably fits the largest protocol message (full-state
// response, 37 bytes) plus coalesced frames.
const recvBufSize = 1024

// session owns a single connected stream endpoint. It is stateless with
// respect to protocol semantics; framing, recovery and serialization live in
// Conn.
type session struct {
	conn   net.Conn
	cfg    *Config
	closed atomic.Bool
}

// dialSession opens a new transport session against the configured address.
func dialSession(ctx context.Context, cfg *Config) (*session, error) {
	conn, err := cfg.dial(ctx, cfg.socketPath)
	if err != nil {
		return nil, err
	}

	return &session{conn: conn, cfg: cfg}, nil
}

// send writes one encoded frame, honoring the configured write deadline.
func (s *session) send(data []byte) error {
	if s.cfg.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.writeTimeout)); err != nil {
			return err
		}
	}

	_, err := s.conn.Write(data)

	return err
}

// receive blocks until data arrives, an error occurs, or the peer closes.
// With no receive timeout configured there is no deadline at this layer;
// timeout policy belongs to the caller's configuration.
func (s *session) receive(buf []byte) (int, error) {
	if s.cfg.receiveTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.receiveTimeout)); err != nil {
			return 0, err
		}
	} else if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
		return 0, err
	}

	return s.conn.Read(buf)
}

// close closes the underlying connection. It is idempotent.
func (s *session) close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	return s.conn.Close()
}
