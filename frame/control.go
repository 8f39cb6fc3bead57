package frame

import "github.com/sjohnr/jzmq-sdk-sub001/errors"

// ControlCode is the leading byte of a subscription control frame.
type ControlCode byte

const (
	// Unsubscribe removes one reference to a topic.
	Unsubscribe ControlCode = 0
	// Subscribe adds one reference to a topic.
	Subscribe ControlCode = 1
)

func (c ControlCode) String() string {
	switch c {
	case Subscribe:
		return "subscribe"
	case Unsubscribe:
		return "unsubscribe"
	default:
		return "unknown"
	}
}

// EncodeControl builds a control frame: code byte followed by the topic bytes.
func EncodeControl(code ControlCode, topic []byte) Frame {
	f := make(Frame, 1+len(topic))
	f[0] = byte(code)
	copy(f[1:], topic)
	return f
}

// SubscribeFrame builds a SUBSCRIBE control frame.
func SubscribeFrame(topic []byte) Frame {
	return EncodeControl(Subscribe, topic)
}

// UnsubscribeFrame builds an UNSUBSCRIBE control frame.
func UnsubscribeFrame(topic []byte) Frame {
	return EncodeControl(Unsubscribe, topic)
}

// DecodeControl splits a control frame into its code and topic.
func DecodeControl(f Frame) (ControlCode, []byte, error) {
	if len(f) == 0 {
		return 0, nil, errors.Malformed("empty control frame")
	}
	code := ControlCode(f[0])
	if code != Subscribe && code != Unsubscribe {
		return 0, nil, errors.Malformed("unknown control code %d", f[0])
	}
	return code, f[1:], nil
}

// IsControl reports whether seq is a single well-formed control frame.
func IsControl(seq Sequence) bool {
	if len(seq) != 1 {
		return false
	}
	_, _, err := DecodeControl(seq[0])
	return err == nil
}
