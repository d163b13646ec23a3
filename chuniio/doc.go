// Package chuniio implements the wire protocol spoken between a CHUNITHM-style
// arcade I/O surface and a chuniio proxy backend over a local stream socket.
//
// Every message on the wire is a 1-byte discriminant followed by a payload whose
// layout is fixed by that discriminant. Multi-byte integers are little-endian.
// RGB payloads carry an explicit 1-byte length prefix and are capped at 255 bytes.
//
// The package is a pure codec: it has no I/O and no protocol state. Encoding is
// performed by each message's ToBytes method; decoding by Decode and DecodeNext.
// Semantic validation (LED board ranges, buffer sizes) belongs to the bridge
// layer, not the codec.
package chuniio
