package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chunibridge/chunibridge/chuniio"
	"github.com/chunibridge/chunibridge/internal/util"
)

// NumLEDBoards is the number of addressable LED boards.
const NumLEDBoards = 3

// SliderLEDBoard is the board index the slider LED strip maps onto.
const SliderLEDBoard = 2

// ledBoardSizes holds the fixed buffer length of each LED board:
// 53, 63 and 31 RGB triples respectively. Buffers are never resized after
// LED-subsystem initialization.
var ledBoardSizes = [NumLEDBoards]int{159, 189, 93}

// LEDBoardSize returns the fixed buffer length of the given board, or an
// error when board is outside [0, NumLEDBoards).
func LEDBoardSize(board uint8) (int, error) {
	if int(board) >= NumLEDBoards {
		return 0, fmt.Errorf("%w: %d", ErrLEDBoardRange, board)
	}

	return ledBoardSizes[board], nil
}

// deviceState is the process-wide cache of last-known device values. One
// exclusive lock guards the snapshot and the LED buffers; the coin counter
// lives outside the lock as an atomic so the hottest read path never
// synchronizes.
//
// Lock discipline: the lock is held only for in-memory reads and writes. It
// is always released before any transport operation so a slow exchange cannot
// starve fast-path callers.
type deviceState struct {
	mu       sync.Mutex
	opbtn    uint8
	beams    uint8
	pressure chuniio.Pressure

	ledInitialized bool
	ledBuffers     [NumLEDBoards][]byte

	coinCount atomic.Uint32 // low 16 bits only
}

// tryCachedInput returns the last known opbtn/beams without blocking. If the
// exclusive lock is currently held elsewhere it reports ok=false together
// with zero values rather than waiting, preserving the caller's real-time
// guarantee.
func (s *deviceState) tryCachedInput() (opbtn, beams uint8, ok bool) {
	if !s.mu.TryLock() {
		return 0, 0, false
	}

	opbtn = s.opbtn
	beams = s.beams
	s.mu.Unlock()

	return opbtn, beams, true
}

// setInput atomically replaces the cached opbtn/beams pair.
func (s *deviceState) setInput(opbtn, beams uint8) {
	s.mu.Lock()
	s.opbtn = opbtn
	s.beams = beams
	s.mu.Unlock()
}

// cachedPressure returns a copy of the last known slider pressure snapshot.
func (s *deviceState) cachedPressure() chuniio.Pressure {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pressure
}

// setPressure replaces the cached slider pressure snapshot.
func (s *deviceState) setPressure(pressure chuniio.Pressure) {
	s.mu.Lock()
	s.pressure = pressure
	s.mu.Unlock()
}

// setFullState atomically replaces the whole cached snapshot. The coin
// counter is stored separately; it has no ordering relationship with the
// snapshot lock.
func (s *deviceState) setFullState(opbtn, beams uint8, pressure chuniio.Pressure, coinCount uint16) {
	s.mu.Lock()
	s.opbtn = opbtn
	s.beams = beams
	s.pressure = pressure
	s.mu.Unlock()

	s.setCoinCount(coinCount)
}

// cachedCoinCount returns the last known coin count. Lock-free.
func (s *deviceState) cachedCoinCount() uint16 {
	return uint16(s.coinCount.Load()) //nolint:gosec
}

// setCoinCount replaces the cached coin count. Lock-free.
func (s *deviceState) setCoinCount(count uint16) {
	s.coinCount.Store(uint32(count))
}

// initLEDBuffers allocates the fixed-size buffer of every LED board.
// Idempotent; buffers survive repeated initialization untouched.
func (s *deviceState) initLEDBuffers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledInitialized {
		return
	}

	for board, size := range ledBoardSizes {
		s.ledBuffers[board] = make([]byte, size)
	}
	s.ledInitialized = true
}

// ledBuffer returns a copy of the stored buffer of the given board.
func (s *deviceState) ledBuffer(board uint8) ([]byte, error) {
	if int(board) >= NumLEDBoards {
		return nil, fmt.Errorf("%w: %d", ErrLEDBoardRange, board)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ledInitialized {
		return nil, ErrLEDNotInitialized
	}

	return util.CloneSlice(s.ledBuffers[board], 0), nil
}

// setLEDBuffer installs a copy of rgb as the given board's buffer. The
// replacement must exactly match the board's fixed size; a mismatch is
// rejected with no state mutation.
func (s *deviceState) setLEDBuffer(board uint8, rgb []byte) error {
	if int(board) >= NumLEDBoards {
		return fmt.Errorf("%w: %d", ErrLEDBoardRange, board)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ledInitialized {
		return ErrLEDNotInitialized
	}

	if len(rgb) != ledBoardSizes[board] {
		return fmt.Errorf("%w: board %d expects %d bytes, got %d",
			ErrLEDBufferSize, board, ledBoardSizes[board], len(rgb))
	}

	copy(s.ledBuffers[board], rgb)

	return nil
}
