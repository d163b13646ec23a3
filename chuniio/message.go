package chuniio

import (
	"encoding/binary"
	"fmt"
)

const (
	// PressureSize is the number of pressure bytes in a slider snapshot,
	// one byte per sensor zone.
	PressureSize = 32

	// MaxRGBSize is the maximum length of an RGB payload, imposed by the
	// 1-byte length prefix on the wire.
	MaxRGBSize = 255
)

// Pressure is a full slider pressure snapshot, one byte per sensor zone.
// It is a value type; copies never share storage.
type Pressure [PressureSize]byte

// Message represents a single chuniio wire message.
//
// Concrete message types are value types: assignment copies the message, and
// two messages decoded from the same bytes compare equal. ToBytes serializes
// the message into its wire representation, discriminant first.
type Message interface {
	// Type returns the message discriminant.
	Type() MsgType

	// ReplyExpected reports whether the protocol defines a response for this
	// message. Fire-and-forget variants return false.
	ReplyExpected() bool

	// ToBytes serializes the message into its byte representation for transmission.
	ToBytes() []byte
}

// JVSPoll is a JVS input poll request.
type JVSPoll struct{}

func (JVSPoll) Type() MsgType       { return JVSPollType }
func (JVSPoll) ReplyExpected() bool { return true }
func (JVSPoll) ToBytes() []byte     { return []byte{byte(JVSPollType)} }

// JVSPollResponse is a JVS input poll response carrying the operator button
// bits and IR beam bits.
type JVSPollResponse struct {
	OpBtn uint8
	Beams uint8
}

func (JVSPollResponse) Type() MsgType       { return JVSPollRspType }
func (JVSPollResponse) ReplyExpected() bool { return false }
func (m JVSPollResponse) ToBytes() []byte {
	return []byte{byte(JVSPollRspType), m.OpBtn, m.Beams}
}

// CoinCounterRead is a coin counter read request.
type CoinCounterRead struct{}

func (CoinCounterRead) Type() MsgType       { return CoinCounterReadType }
func (CoinCounterRead) ReplyExpected() bool { return true }
func (CoinCounterRead) ToBytes() []byte     { return []byte{byte(CoinCounterReadType)} }

// CoinCounterReadResponse is a coin counter read response.
type CoinCounterReadResponse struct {
	Count uint16
}

func (CoinCounterReadResponse) Type() MsgType       { return CoinCounterReadRspType }
func (CoinCounterReadResponse) ReplyExpected() bool { return false }
func (m CoinCounterReadResponse) ToBytes() []byte {
	buf := make([]byte, 3)
	buf[0] = byte(CoinCounterReadRspType)
	binary.LittleEndian.PutUint16(buf[1:], m.Count)

	return buf
}

// SliderInput is a sender-initiated slider pressure push.
type SliderInput struct {
	Pressure Pressure
}

func (SliderInput) Type() MsgType       { return SliderInputType }
func (SliderInput) ReplyExpected() bool { return false }
func (m SliderInput) ToBytes() []byte {
	buf := make([]byte, 1+PressureSize)
	buf[0] = byte(SliderInputType)
	copy(buf[1:], m.Pressure[:])

	return buf
}

// SliderLEDUpdate is a slider LED update with a length-prefixed RGB payload.
type SliderLEDUpdate struct {
	RGB []byte
}

// NewSliderLEDUpdate creates a SliderLEDUpdate from a copy of rgb.
// It returns ErrRGBTooLong if rgb exceeds MaxRGBSize bytes.
func NewSliderLEDUpdate(rgb []byte) (SliderLEDUpdate, error) {
	if len(rgb) > MaxRGBSize {
		return SliderLEDUpdate{}, fmt.Errorf("%w: %d bytes", ErrRGBTooLong, len(rgb))
	}

	buf := make([]byte, len(rgb))
	copy(buf, rgb)

	return SliderLEDUpdate{RGB: buf}, nil
}

func (SliderLEDUpdate) Type() MsgType       { return SliderLEDUpdateType }
func (SliderLEDUpdate) ReplyExpected() bool { return false }
func (m SliderLEDUpdate) ToBytes() []byte {
	buf := make([]byte, 0, 2+len(m.RGB))
	buf = append(buf, byte(SliderLEDUpdateType), byte(len(m.RGB)))
	buf = append(buf, m.RGB...)

	return buf
}

// LEDUpdate is an LED board update with a board index and a length-prefixed
// RGB payload. The codec does not constrain the board index; the bridge layer
// rejects boards outside {0, 1, 2}.
type LEDUpdate struct {
	Board uint8
	RGB   []byte
}

// NewLEDUpdate creates an LEDUpdate from a copy of rgb.
// It returns ErrRGBTooLong if rgb exceeds MaxRGBSize bytes.
func NewLEDUpdate(board uint8, rgb []byte) (LEDUpdate, error) {
	if len(rgb) > MaxRGBSize {
		return LEDUpdate{}, fmt.Errorf("%w: %d bytes", ErrRGBTooLong, len(rgb))
	}

	buf := make([]byte, len(rgb))
	copy(buf, rgb)

	return LEDUpdate{Board: board, RGB: buf}, nil
}

func (LEDUpdate) Type() MsgType       { return LEDUpdateType }
func (LEDUpdate) ReplyExpected() bool { return false }
func (m LEDUpdate) ToBytes() []byte {
	buf := make([]byte, 0, 3+len(m.RGB))
	buf = append(buf, byte(LEDUpdateType), m.Board, byte(len(m.RGB)))
	buf = append(buf, m.RGB...)

	return buf
}

// Ping is a keepalive ping request.
type Ping struct{}

func (Ping) Type() MsgType       { return PingType }
func (Ping) ReplyExpected() bool { return true }
func (Ping) ToBytes() []byte     { return []byte{byte(PingType)} }

// Pong is a keepalive pong response.
type Pong struct{}

func (Pong) Type() MsgType       { return PongType }
func (Pong) ReplyExpected() bool { return false }
func (Pong) ToBytes() []byte     { return []byte{byte(PongType)} }

// SliderStateRead is a slider state read request.
type SliderStateRead struct{}

func (SliderStateRead) Type() MsgType       { return SliderStateReadType }
func (SliderStateRead) ReplyExpected() bool { return true }
func (SliderStateRead) ToBytes() []byte     { return []byte{byte(SliderStateReadType)} }

// SliderStateReadResponse is a slider state read response.
type SliderStateReadResponse struct {
	Pressure Pressure
}

func (SliderStateReadResponse) Type() MsgType       { return SliderStateReadRspType }
func (SliderStateReadResponse) ReplyExpected() bool { return false }
func (m SliderStateReadResponse) ToBytes() []byte {
	buf := make([]byte, 1+PressureSize)
	buf[0] = byte(SliderStateReadRspType)
	copy(buf[1:], m.Pressure[:])

	return buf
}

// JVSFullStateRead is a combined full-state read request.
type JVSFullStateRead struct{}

func (JVSFullStateRead) Type() MsgType       { return JVSFullStateReadType }
func (JVSFullStateRead) ReplyExpected() bool { return true }
func (JVSFullStateRead) ToBytes() []byte     { return []byte{byte(JVSFullStateReadType)} }

// JVSFullStateReadResponse is a combined full-state read response carrying
// opbtn, beams, slider pressure and coin count in a single exchange.
type JVSFullStateReadResponse struct {
	OpBtn     uint8
	Beams     uint8
	Pressure  Pressure
	CoinCount uint16
}

func (JVSFullStateReadResponse) Type() MsgType       { return JVSFullStateReadRspType }
func (JVSFullStateReadResponse) ReplyExpected() bool { return false }
func (m JVSFullStateReadResponse) ToBytes() []byte {
	buf := make([]byte, 5+PressureSize)
	buf[0] = byte(JVSFullStateReadRspType)
	buf[1] = m.OpBtn
	buf[2] = m.Beams
	copy(buf[3:], m.Pressure[:])
	binary.LittleEndian.PutUint16(buf[3+PressureSize:], m.CoinCount)

	return buf
}

// MsgInfo returns structured message information for logging, prepended with
// the given key-value pairs.
func MsgInfo(msg Message, keyValues ...any) []any {
	info := []any{"type", msg.Type().String()}

	result := make([]any, 0, len(keyValues)+len(info))
	result = append(result, keyValues...)
	result = append(result, info...)

	return result
}
