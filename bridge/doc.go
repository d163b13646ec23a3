// Package bridge implements the client side of the chuniio proxy protocol:
// a connection manager with one-shot recovery, a shared device-state cache,
// a slider streaming loop, and a bounded fire-and-forget LED dispatcher.
//
// A Bridge is an explicitly constructed context object. The embedding
// entry-point surface creates one at process attach, shares it across every
// call, and tears it down at detach:
//
//	cfg, err := bridge.NewConfig()
//	if err != nil { ... }
//
//	b, err := bridge.New(ctx, cfg)
//	if err != nil { ... }
//	defer b.Close()
//
//	_ = b.Open(false)
//	opbtn, beams := b.Poll()
//
// Every operation returns promptly even when the transport is degraded:
// failed exchanges fall back to cached values and the only signal of trouble
// is diagnostic logging.
package bridge
