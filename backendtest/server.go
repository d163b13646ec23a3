// Package backendtest provides a protocol-complete chuniio proxy simulator.
//
// The simulator listens on a Unix stream socket, answers every request
// variant from a mutable in-memory state, and records the output frames it
// receives. It backs the bridge integration tests and the `chunibridge
// backend` development daemon; it is not a real hardware backend.
package backendtest

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/chunibridge/chunibridge/chuniio"
	"github.com/chunibridge/chunibridge/internal/util"
	"github.com/chunibridge/chunibridge/logger"
)

// Server is a chuniio proxy backend simulator bound to a Unix socket.
// It accepts any number of connections and serves each on its own goroutine.
type Server struct {
	listener net.Listener
	path     string
	logger   logger.Logger

	mu        sync.Mutex
	opbtn     uint8
	beams     uint8
	pressure  chuniio.Pressure
	coinCount uint16
	ledFrames []chuniio.LEDUpdate

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	closed atomic.Bool
	wg     sync.WaitGroup
}

// Listen starts a simulator on a Unix stream socket at path.
func Listen(path string, l logger.Logger) (*Server, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	if l == nil {
		l = logger.GetLogger()
	}

	srv := &Server{
		listener: listener,
		path:     path,
		logger:   l.With("component", "backendtest"),
		conns:    map[net.Conn]struct{}{},
	}

	srv.wg.Add(1)
	go srv.acceptLoop()

	return srv, nil
}

// Path returns the socket path the simulator is bound to.
func (s *Server) Path() string { return s.path }

// Close stops accepting, closes all live connections, and waits for the
// serving goroutines to terminate. It is idempotent.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := s.listener.Close()
	s.DropConns()
	s.wg.Wait()

	return err
}

// DropConns forcibly closes every live connection without stopping the
// listener. Clients observe a transport failure on their next exchange and
// go through their recovery path; used to exercise reconnect behavior.
func (s *Server) DropConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	for conn := range s.conns {
		_ = conn.Close()
	}
	clear(s.conns)
}

// SetInput replaces the simulated operator button and IR beam bits.
func (s *Server) SetInput(opbtn, beams uint8) {
	s.mu.Lock()
	s.opbtn = opbtn
	s.beams = beams
	s.mu.Unlock()
}

// SetPressure replaces the simulated slider pressure snapshot.
func (s *Server) SetPressure(pressure chuniio.Pressure) {
	s.mu.Lock()
	s.pressure = pressure
	s.mu.Unlock()
}

// InsertCoin increments the simulated coin counter and returns the new count.
func (s *Server) InsertCoin() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.coinCount++

	return s.coinCount
}

// SetCoinCount replaces the simulated coin counter, emulating a backend-side
// reset.
func (s *Server) SetCoinCount(count uint16) {
	s.mu.Lock()
	s.coinCount = count
	s.mu.Unlock()
}

// LEDFrames returns a copy of every LED update received so far, slider LED
// updates included (recorded as board-2 frames).
func (s *Server) LEDFrames() []chuniio.LEDUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	return util.CloneSlice(s.ledFrames, 0)
}

// State is a point-in-time copy of the simulator's mutable state.
type State struct {
	OpBtn     uint8            `json:"opbtn"`
	Beams     uint8            `json:"beams"`
	CoinCount uint16           `json:"coin_count"`
	Pressure  chuniio.Pressure `json:"pressure"`
	LEDFrames int              `json:"led_frames"`
	Conns     int              `json:"conns"`
}

// Snapshot returns a copy of the simulator state.
func (s *Server) Snapshot() State {
	s.connsMu.Lock()
	conns := len(s.conns)
	s.connsMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		OpBtn:     s.opbtn,
		Beams:     s.beams,
		CoinCount: s.coinCount,
		Pressure:  s.pressure,
		LEDFrames: len(s.ledFrames),
		Conns:     conns,
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.closed.Load() {
				s.logger.Error("accept failed", "error", err)
			}

			return
		}

		s.connsMu.Lock()
		s.conns[conn] = struct{}{}
		s.connsMu.Unlock()

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
		_ = conn.Close()
	}()

	s.logger.Debug("client connected")

	buf := make([]byte, 4096)
	var pending []byte

	for {
		n, err := conn.Read(buf)
		if err != nil {
			s.logger.Debug("client disconnected", "error", err)
			return
		}

		pending = append(pending, buf[:n]...)

		for len(pending) > 0 {
			msg, consumed, err := chuniio.DecodeNext(pending)
			if err != nil {
				if errors.Is(err, chuniio.ErrTruncatedMessage) {
					// partial frame, wait for the rest
					break
				}

				s.logger.Error("malformed frame, dropping client", "error", err)

				return
			}
			pending = pending[consumed:]

			rsp := s.handle(msg)
			if rsp == nil {
				continue
			}

			if _, err := conn.Write(rsp.ToBytes()); err != nil {
				s.logger.Debug("reply write failed", "error", err)
				return
			}
		}
	}
}

// handle answers one decoded request. Fire-and-forget variants return nil.
func (s *Server) handle(msg chuniio.Message) chuniio.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := msg.(type) {
	case chuniio.JVSPoll:
		return chuniio.JVSPollResponse{OpBtn: s.opbtn, Beams: s.beams}

	case chuniio.CoinCounterRead:
		return chuniio.CoinCounterReadResponse{Count: s.coinCount}

	case chuniio.SliderStateRead:
		return chuniio.SliderStateReadResponse{Pressure: s.pressure}

	case chuniio.Ping:
		return chuniio.Pong{}

	case chuniio.JVSFullStateRead:
		return chuniio.JVSFullStateReadResponse{
			OpBtn:     s.opbtn,
			Beams:     s.beams,
			Pressure:  s.pressure,
			CoinCount: s.coinCount,
		}

	case chuniio.LEDUpdate:
		s.ledFrames = append(s.ledFrames, m)
		return nil

	case chuniio.SliderLEDUpdate:
		s.ledFrames = append(s.ledFrames, chuniio.LEDUpdate{Board: 2, RGB: m.RGB})
		return nil

	case chuniio.SliderInput:
		s.pressure = m.Pressure
		return nil

	default:
		s.logger.Warn("unexpected message", chuniio.MsgInfo(msg)...)
		return nil
	}
}
