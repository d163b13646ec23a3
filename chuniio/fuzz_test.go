package chuniio

import (
	"bytes"
	"testing"
)

// FuzzDecodeNext fuzzes the chuniio message decoder with arbitrary payloads.
//
// Two invariants hold for every input: DecodeNext must never panic, and when
// decoding succeeds, re-encoding the decoded message must reproduce exactly
// the consumed prefix of the input.
func FuzzDecodeNext(f *testing.F) {
	// Seed: every bare request variant
	f.Add([]byte{byte(JVSPollType)})
	f.Add([]byte{byte(CoinCounterReadType)})
	f.Add([]byte{byte(PingType)})
	f.Add([]byte{byte(SliderStateReadType)})
	f.Add([]byte{byte(JVSFullStateReadType)})

	// Seed: poll response
	f.Add([]byte{byte(JVSPollRspType), 0x05, 0x02})

	// Seed: led update with 3-byte RGB payload
	f.Add([]byte{byte(LEDUpdateType), 0x01, 0x03, 0x10, 0x20, 0x30})

	// Seed: led update declaring more RGB bytes than present
	f.Add([]byte{byte(LEDUpdateType), 0x01, 0xFF, 0x10})

	// Seed: full pressure snapshot response
	pressure := SliderStateReadResponse{Pressure: testPressure()}.ToBytes()
	f.Add(pressure)

	// Seed: unknown discriminant
	f.Add([]byte{0xFF, 0x00, 0x01})

	// Seed: empty input
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		msg, consumed, err := DecodeNext(data)
		if err != nil {
			return
		}

		if consumed <= 0 || consumed > len(data) {
			t.Fatalf("consumed %d bytes out of %d", consumed, len(data))
		}

		if !bytes.Equal(msg.ToBytes(), data[:consumed]) {
			t.Fatalf("re-encoded message %v does not match consumed prefix %v", msg.ToBytes(), data[:consumed])
		}
	})
}
