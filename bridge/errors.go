package bridge

import "errors"

var (
	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("bridge: config is nil")

	// ErrBridgeClosed indicates that the bridge has been closed and can no
	// longer exchange messages.
	ErrBridgeClosed = errors.New("bridge: closed")

	// ErrNotConnected indicates that no transport session is currently
	// established.
	ErrNotConnected = errors.New("bridge: not connected")

	// ErrNoResponse indicates that an exchange produced no usable response
	// after the one-shot recovery retry.
	ErrNoResponse = errors.New("bridge: no response")

	// ErrLEDBoardRange indicates an LED board index outside [0, 2].
	ErrLEDBoardRange = errors.New("bridge: led board index out of range [0, 2]")

	// ErrLEDBufferSize indicates an LED buffer whose length does not exactly
	// match the board's fixed size. The stored buffer is left unchanged.
	ErrLEDBufferSize = errors.New("bridge: led buffer length mismatch")

	// ErrLEDNotInitialized indicates an LED write before the LED subsystem was
	// initialized by LEDInit or SliderInit.
	ErrLEDNotInitialized = errors.New("bridge: led subsystem not initialized")
)
