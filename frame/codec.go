package frame

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
)

const (
	// MaxFieldSize bounds each length-prefixed field of an envelope. The int32
	// prefix would allow 2 GiB, which no pub/sub hop should buffer.
	MaxFieldSize = 64 << 20

	// MaxEnvelopeSize is the largest envelope frame the codec produces.
	MaxEnvelopeSize = 2*MaxFieldSize + 2*lengthPrefixSize

	// InprocRefSize is the fixed size of an inproc reference frame.
	InprocRefSize = 4

	lengthPrefixSize = 4
)

// EncodeEnvelope packs headers and payload into a single envelope frame.
func EncodeEnvelope(headers, payload []byte) (Frame, error) {
	if err := checkFieldSize("headers", len(headers)); err != nil {
		return nil, err
	}
	if err := checkFieldSize("payload", len(payload)); err != nil {
		return nil, err
	}

	buf := make(Frame, 0, 2*lengthPrefixSize+len(headers)+len(payload))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(headers)))
	buf = append(buf, headers...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	return buf, nil
}

func checkFieldSize(field string, n int) error {
	if n > math.MaxInt32 || n > MaxFieldSize {
		return fmt.Errorf("%w: %s length %d exceeds limit %d", errors.ErrEncoding, field, n, MaxFieldSize)
	}
	return nil
}

// DecodeEnvelope returns both fields of an envelope frame.
func DecodeEnvelope(f Frame) (headers, payload []byte, err error) {
	headers, rest, err := readField(f, "headers")
	if err != nil {
		return nil, nil, err
	}
	payload, rest, err = readField(rest, "payload")
	if err != nil {
		return nil, nil, err
	}
	if len(rest) != 0 {
		return nil, nil, errors.Malformed("%d trailing bytes after payload of declared length %d", len(rest), len(payload))
	}
	return headers, payload, nil
}

// DecodeHeaders returns the headers field of an envelope frame.
func DecodeHeaders(f Frame) ([]byte, error) {
	headers, _, err := DecodeEnvelope(f)
	return headers, err
}

// DecodePayload returns the payload field of an envelope frame.
func DecodePayload(f Frame) ([]byte, error) {
	_, payload, err := DecodeEnvelope(f)
	return payload, err
}

// readField consumes one int32-prefixed field and returns it with the remainder.
func readField(buf []byte, field string) ([]byte, []byte, error) {
	if len(buf) < lengthPrefixSize {
		return nil, nil, errors.Malformed("%s length prefix needs %d bytes, have %d", field, lengthPrefixSize, len(buf))
	}
	declared := int32(binary.BigEndian.Uint32(buf))
	buf = buf[lengthPrefixSize:]
	switch {
	case declared < 0:
		return nil, nil, errors.Malformed("%s declared negative length %d", field, declared)
	case declared > MaxFieldSize:
		return nil, nil, errors.Malformed("%s declared length %d exceeds limit %d", field, declared, MaxFieldSize)
	case int(declared) > len(buf):
		return nil, nil, errors.Malformed("%s declared length %d exceeds remaining %d bytes", field, declared, len(buf))
	}
	n := int(declared)
	return buf[:n:n], buf[n:], nil
}

// ExtractTopic returns the first frame of a pub/sub sequence.
func ExtractTopic(seq Sequence) (Frame, error) {
	if len(seq) == 0 {
		return nil, errors.Malformed("empty sequence has no topic")
	}
	return seq[0], nil
}

// ExtractIdentityChain returns the identity frames preceding the double-empty
// delimiter of a request/reply sequence. The delimiter frames are not included.
func ExtractIdentityChain(seq Sequence) ([]Frame, error) {
	identities := make([]Frame, 0, len(seq))
	empties := 0
	for _, f := range seq {
		if len(f) != 0 {
			identities = append(identities, f)
			empties = 0
			continue
		}
		empties++
		if empties == 2 {
			return identities, nil
		}
	}
	return nil, errors.Malformed("no double-empty delimiter in %d frames", len(seq))
}

// ParseInprocRef reads a 4-byte big-endian inproc reference.
func ParseInprocRef(f Frame) (uint32, error) {
	if len(f) != InprocRefSize {
		return 0, errors.Malformed("inproc reference must be %d bytes, got %d", InprocRefSize, len(f))
	}
	return binary.BigEndian.Uint32(f), nil
}

// EncodeInprocRef writes ref as a 4-byte big-endian frame.
func EncodeInprocRef(ref uint32) Frame {
	return binary.BigEndian.AppendUint32(make(Frame, 0, InprocRefSize), ref)
}
