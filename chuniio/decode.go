package chuniio

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// chuniio decoder pool
var decoderPool = sync.Pool{New: func() any { return new(msgDecoder) }}

// Decode decodes one chuniio message from the head of data.
//
// Trailing bytes after the decoded message are ignored; use DecodeNext when
// parsing a buffer that may hold several coalesced messages.
//
// It returns ErrEmptyMessage for zero-length input, ErrTruncatedMessage when a
// declared field cannot be fully read, and ErrUnknownMsgType for an
// unrecognized discriminant.
func Decode(data []byte) (Message, error) {
	msg, _, err := DecodeNext(data)
	return msg, err
}

// DecodeNext decodes one chuniio message from the head of data and returns the
// number of bytes it consumed, allowing the caller to iterate over a buffer
// containing several back-to-back messages.
func DecodeNext(data []byte) (Message, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrEmptyMessage
	}

	decoder, _ := decoderPool.Get().(*msgDecoder)
	decoder.input = data
	decoder.pos = 0

	msg, err := decoder.decodeMessage()
	consumed := decoder.pos
	decoder.input = nil
	decoderPool.Put(decoder)

	if err != nil {
		return nil, 0, err
	}

	return msg, consumed, nil
}

// msgDecoder is a helper struct for decoding chuniio messages.
// It maintains the current position in the input byte array and provides
// cursor reads that never run past the input.
type msgDecoder struct {
	input []byte
	pos   int
}

// remaining returns the number of bytes remaining in the input buffer.
func (d *msgDecoder) remaining() int {
	return len(d.input) - d.pos
}

// read reads a specified number of bytes from the input and advances the
// current position. Returns ErrTruncatedMessage if there are not enough bytes
// remaining.
func (d *msgDecoder) read(length int) ([]byte, error) {
	if d.pos+length > len(d.input) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedMessage, length, d.remaining())
	}
	result := d.input[d.pos : d.pos+length]
	d.pos += length

	return result, nil
}

// readByte reads a single byte from the input and advances the current position.
func (d *msgDecoder) readByte() (byte, error) {
	if d.pos >= len(d.input) {
		return 0, fmt.Errorf("%w: need 1 byte", ErrTruncatedMessage)
	}
	result := d.input[d.pos]
	d.pos++

	return result, nil
}

// readUint16 reads a little-endian 16-bit integer from the input.
func (d *msgDecoder) readUint16() (uint16, error) {
	data, err := d.read(2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(data), nil
}

// readPressure reads a full 32-byte slider pressure snapshot from the input.
func (d *msgDecoder) readPressure() (Pressure, error) {
	var pressure Pressure

	data, err := d.read(PressureSize)
	if err != nil {
		return pressure, err
	}
	copy(pressure[:], data)

	return pressure, nil
}

// readRGB reads a 1-byte length prefix followed by that many RGB bytes.
// The returned slice is a copy, never an alias of the input buffer.
func (d *msgDecoder) readRGB() ([]byte, error) {
	length, err := d.readByte()
	if err != nil {
		return nil, err
	}

	data, err := d.read(int(length))
	if err != nil {
		return nil, err
	}

	rgb := make([]byte, length)
	copy(rgb, data)

	return rgb, nil
}

// decodeMessage decodes the message variant selected by the leading
// discriminant byte.
func (d *msgDecoder) decodeMessage() (Message, error) {
	discriminant, err := d.readByte()
	if err != nil {
		return nil, err
	}

	switch MsgType(discriminant) {
	case JVSPollType:
		return JVSPoll{}, nil

	case JVSPollRspType:
		opbtn, err := d.readByte()
		if err != nil {
			return nil, err
		}
		beams, err := d.readByte()
		if err != nil {
			return nil, err
		}

		return JVSPollResponse{OpBtn: opbtn, Beams: beams}, nil

	case CoinCounterReadType:
		return CoinCounterRead{}, nil

	case CoinCounterReadRspType:
		count, err := d.readUint16()
		if err != nil {
			return nil, err
		}

		return CoinCounterReadResponse{Count: count}, nil

	case SliderInputType:
		pressure, err := d.readPressure()
		if err != nil {
			return nil, err
		}

		return SliderInput{Pressure: pressure}, nil

	case SliderLEDUpdateType:
		rgb, err := d.readRGB()
		if err != nil {
			return nil, err
		}

		return SliderLEDUpdate{RGB: rgb}, nil

	case LEDUpdateType:
		board, err := d.readByte()
		if err != nil {
			return nil, err
		}
		rgb, err := d.readRGB()
		if err != nil {
			return nil, err
		}

		return LEDUpdate{Board: board, RGB: rgb}, nil

	case PingType:
		return Ping{}, nil

	case PongType:
		return Pong{}, nil

	case SliderStateReadType:
		return SliderStateRead{}, nil

	case SliderStateReadRspType:
		pressure, err := d.readPressure()
		if err != nil {
			return nil, err
		}

		return SliderStateReadResponse{Pressure: pressure}, nil

	case JVSFullStateReadType:
		return JVSFullStateRead{}, nil

	case JVSFullStateReadRspType:
		opbtn, err := d.readByte()
		if err != nil {
			return nil, err
		}
		beams, err := d.readByte()
		if err != nil {
			return nil, err
		}
		pressure, err := d.readPressure()
		if err != nil {
			return nil, err
		}
		count, err := d.readUint16()
		if err != nil {
			return nil, err
		}

		return JVSFullStateReadResponse{OpBtn: opbtn, Beams: beams, Pressure: pressure, CoinCount: count}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownMsgType, discriminant)
	}
}
