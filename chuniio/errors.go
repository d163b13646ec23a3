package chuniio

import "errors"

var (
	// ErrEmptyMessage indicates that a zero-length buffer was given to the decoder.
	ErrEmptyMessage = errors.New("chuniio: empty message")

	// ErrTruncatedMessage indicates that a declared field could not be fully read
	// from the input buffer.
	ErrTruncatedMessage = errors.New("chuniio: truncated message")

	// ErrUnknownMsgType indicates that the leading discriminant byte does not
	// identify any known message variant.
	ErrUnknownMsgType = errors.New("chuniio: unknown message type")

	// ErrRGBTooLong indicates that an RGB payload exceeds the 255-byte cap imposed
	// by the 1-byte length prefix.
	ErrRGBTooLong = errors.New("chuniio: rgb payload exceeds 255 bytes")
)
