package chuniio

// MsgType is the 1-byte discriminant that identifies a wire message variant.
type MsgType byte

// Discriminant values for all chuniio wire message variants.
const (
	// JVSPollType is a JVS input poll request.
	JVSPollType MsgType = 0x01
	// JVSPollRspType is a JVS input poll response carrying opbtn and beams.
	JVSPollRspType MsgType = 0x02
	// CoinCounterReadType is a coin counter read request.
	CoinCounterReadType MsgType = 0x03
	// CoinCounterReadRspType is a coin counter read response carrying a 16-bit count.
	CoinCounterReadRspType MsgType = 0x04
	// SliderInputType is a sender-initiated slider pressure push (32 bytes).
	SliderInputType MsgType = 0x05
	// SliderLEDUpdateType is a slider LED update with a length-prefixed RGB payload.
	SliderLEDUpdateType MsgType = 0x06
	// LEDUpdateType is an LED board update with a board index and a length-prefixed RGB payload.
	LEDUpdateType MsgType = 0x07
	// PingType is a keepalive ping request.
	PingType MsgType = 0x08
	// PongType is a keepalive pong response.
	PongType MsgType = 0x09
	// SliderStateReadType is a slider state read request.
	SliderStateReadType MsgType = 0x0A
	// SliderStateReadRspType is a slider state read response carrying 32 pressure bytes.
	SliderStateReadRspType MsgType = 0x0B
	// JVSFullStateReadType is a combined full-state read request.
	JVSFullStateReadType MsgType = 0x0C
	// JVSFullStateReadRspType is a combined full-state read response carrying
	// opbtn, beams, pressure and coin count in one exchange.
	JVSFullStateReadRspType MsgType = 0x0D
)

var msgTypeNameMap = map[MsgType]string{
	JVSPollType:             "jvs.poll",
	JVSPollRspType:          "jvs.poll.rsp",
	CoinCounterReadType:     "coin.read",
	CoinCounterReadRspType:  "coin.read.rsp",
	SliderInputType:         "slider.input",
	SliderLEDUpdateType:     "slider.led.update",
	LEDUpdateType:           "led.update",
	PingType:                "ping",
	PongType:                "pong",
	SliderStateReadType:     "slider.read",
	SliderStateReadRspType:  "slider.read.rsp",
	JVSFullStateReadType:    "fullstate.read",
	JVSFullStateReadRspType: "fullstate.read.rsp",
}

// replyTypeMap maps each request variant that defines a response to the
// discriminant of that response.
var replyTypeMap = map[MsgType]MsgType{
	JVSPollType:          JVSPollRspType,
	CoinCounterReadType:  CoinCounterReadRspType,
	SliderStateReadType:  SliderStateReadRspType,
	PingType:             PongType,
	JVSFullStateReadType: JVSFullStateReadRspType,
}

// String returns a short dotted name for the message type, suitable for
// structured logging. It returns "undefined" for an unknown discriminant.
func (t MsgType) String() string {
	if name, ok := msgTypeNameMap[t]; ok {
		return name
	}

	return "undefined"
}

// ReplyType returns the discriminant of the response defined for a request
// message type. The second return value reports whether the type defines a
// response at all; fire-and-forget variants return false.
func (t MsgType) ReplyType() (MsgType, bool) {
	rsp, ok := replyTypeMap[t]
	return rsp, ok
}

// HighFrequency reports whether the message type belongs to a poll-rate
// exchange (JVS poll, coin counter read, slider state read, ping and their
// responses). High-frequency exchanges are excluded from informational
// tracing so they don't overwhelm the log at polling rates.
func (t MsgType) HighFrequency() bool {
	switch t {
	case JVSPollType, JVSPollRspType,
		CoinCounterReadType, CoinCounterReadRspType,
		SliderStateReadType, SliderStateReadRspType,
		PingType, PongType:
		return true
	default:
		return false
	}
}
