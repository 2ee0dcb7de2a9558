// Package protocol implements the binary wire protocol spoken between the
// scrollkit browser client and the server.
//
// The client reports raw viewport activity (scroll offsets, resizes and
// section layout); the server answers with small DOM patches produced by
// scroll-driven effects. Messages are tiny and frequent, so the encoding is
// hand-written and reflection free.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHandshake (0x00): ClientHello / ServerHello
//   - FrameEvent (0x01): Client → Server viewport events
//   - FramePatches (0x02): Server → Client patches
//   - FrameControl (0x03): Ping, pong and close
//   - FrameError (0x05): Error message
//
// # Encoding
//
//   - Varint: unsigned integers and counts (protobuf-style)
//   - ZigZag: signed offsets, so overscroll survives the trip
//   - Length-prefixed: strings
//   - Big-endian: fixed-width integers
//
// # Events
//
// A scroll event is the hot path:
//
//	[Seq: varint][Type: 0x30][X: zigzag][Y: zigzag]
//	Total: 4-6 bytes for typical offsets
//
// # Patches
//
// Patches target elements by DOM id. An empty target addresses the window.
//
//	[Op: 0x10][Target: len-prefixed][Value: len-prefixed]   AddClass
//	[Op: 0x30][Target: len-prefixed][Event: len-prefixed][Passive: bool]   Listen
//
// # Limits
//
// Decoders never trust a length prefix: strings are capped by
// DefaultMaxAllocation and collections by MaxCollectionCount, MaxSections
// and MaxPatchesPerFrame.
package protocol
