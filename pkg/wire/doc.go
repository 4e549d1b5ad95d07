// Package wire encodes patch scripts into a compact binary form for
// transport to a remote renderer and decodes them back.
//
// The format is length-delimited and self-describing enough to decode
// without external framing: a version byte, the script's sequence
// number, a patch count, then each patch as an action opcode followed
// by the fields that action uses. Integers are varints (ZigZag for
// signed), strings and byte blobs are length-prefixed, prop bags ride
// as length-prefixed JSON.
//
// Decoding is defensive: every length prefix is bounds-checked against
// the remaining buffer and capped, so a malicious or truncated payload
// fails with a sentinel error instead of a large allocation.
package wire
