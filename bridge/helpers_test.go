package bridge

import (
	"time"

	"github.com/chunibridge/chunibridge/chuniio"
)

const (
	testWaitTimeout = 2 * time.Second
	testWaitTick    = 5 * time.Millisecond
)

func testPressure(seed byte) chuniio.Pressure {
	var pressure chuniio.Pressure
	for i := range pressure {
		pressure[i] = seed + byte(i)
	}

	return pressure
}
