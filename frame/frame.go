package frame

import "bytes"

// Frame is one opaque segment of a multi-part message.
type Frame []byte

// Sequence is the ordered list of frames forming one transmitted message.
type Sequence []Frame

// Clone returns a deep copy of the sequence.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	for i, f := range s {
		out[i] = bytes.Clone(f)
	}
	return out
}

// Size returns the total number of payload bytes across all frames.
func (s Sequence) Size() int {
	n := 0
	for _, f := range s {
		n += len(f)
	}
	return n
}

// Equal reports whether both sequences hold the same frames in the same order.
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !bytes.Equal(s[i], other[i]) {
			return false
		}
	}
	return true
}

// NewPubSub builds a [topic][envelope] sequence.
func NewPubSub(topic []byte, envelope Frame) Sequence {
	return Sequence{Frame(topic), envelope}
}

// NewRequestReply builds a [identity]* [] [] [envelope] sequence.
func NewRequestReply(identities []Frame, envelope Frame) Sequence {
	seq := make(Sequence, 0, len(identities)+3)
	seq = append(seq, identities...)
	seq = append(seq, Frame{}, Frame{}, envelope)
	return seq
}
