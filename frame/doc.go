// Package frame encodes and decodes the multi-part message formats carried by
// every socket.
//
// A message on the wire is a Sequence of opaque Frames. Three layouts are used:
//
//	pub/sub:        [topic][envelope]
//	request/reply:  [identity]* [] [] [envelope]
//	control:        [code | topic]            code 1 = subscribe, 0 = unsubscribe
//
// The envelope is the final frame and carries two length-prefixed blobs,
// big-endian:
//
//	int32 headersLen | headers | int32 payloadLen | payload
//
// Decoders bounds-check every declared length against the remaining buffer and
// against MaxFieldSize; nothing is ever truncated or repaired. All functions
// are pure and safe for concurrent use.
package frame
