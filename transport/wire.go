package transport

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
	"github.com/sjohnr/jzmq-sdk-sub001/frame"
)

const (
	// MaxFrameSize bounds a single frame on the wire; the envelope is the
	// largest frame any socket carries.
	MaxFrameSize = frame.MaxEnvelopeSize

	// MaxFrames bounds the number of frames in one message.
	MaxFrames = 256

	greetingMagic = "JZF1"
)

// writeSequence encodes seq as uint32 count | (uint32 len | bytes)*.
func writeSequence(w io.Writer, seq frame.Sequence) error {
	if len(seq) > MaxFrames {
		return fmt.Errorf("%w: %d frames exceeds limit %d", errors.ErrEncoding, len(seq), MaxFrames)
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(seq)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	for _, f := range seq {
		if len(f) > MaxFrameSize {
			return fmt.Errorf("%w: frame of %d bytes exceeds limit %d", errors.ErrEncoding, len(f), MaxFrameSize)
		}
		binary.BigEndian.PutUint32(prefix[:], uint32(len(f)))
		if _, err := w.Write(prefix[:]); err != nil {
			return err
		}
		if _, err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}

// readSequence decodes one message written by writeSequence.
func readSequence(r io.Reader) (frame.Sequence, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(prefix[:])
	if count > MaxFrames {
		return nil, errors.Malformed("message declares %d frames, limit %d", count, MaxFrames)
	}

	seq := make(frame.Sequence, count)
	for i := range seq {
		if _, err := io.ReadFull(r, prefix[:]); err != nil {
			return nil, unexpectedEOF(err)
		}
		n := binary.BigEndian.Uint32(prefix[:])
		if n > MaxFrameSize {
			return nil, errors.Malformed("frame declares %d bytes, limit %d", n, MaxFrameSize)
		}
		f := make(frame.Frame, n)
		if _, err := io.ReadFull(r, f); err != nil {
			return nil, unexpectedEOF(err)
		}
		seq[i] = f
	}
	return seq, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func encodeSequence(seq frame.Sequence) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(4 + 4*len(seq) + seq.Size())
	if err := writeSequence(&buf, seq); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeSequence(b []byte) (frame.Sequence, error) {
	r := bytes.NewReader(b)
	seq, err := readSequence(r)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, errors.Malformed("truncated message body")
		}
		return nil, err
	}
	if r.Len() != 0 {
		return nil, errors.Malformed("%d trailing bytes after message", r.Len())
	}
	return seq, nil
}

type greeting struct {
	kind     Kind
	identity string
}

func (g greeting) sequence() frame.Sequence {
	return frame.Sequence{frame.Frame(greetingMagic), frame.Frame{byte(g.kind)}, frame.Frame(g.identity)}
}

func parseGreeting(seq frame.Sequence) (greeting, error) {
	if len(seq) != 3 || string(seq[0]) != greetingMagic || len(seq[1]) != 1 {
		return greeting{}, errors.Malformed("bad greeting")
	}
	kind := Kind(seq[1][0])
	if !kind.valid() {
		return greeting{}, errors.Malformed("greeting names unknown socket kind %d", seq[1][0])
	}
	return greeting{kind: kind, identity: string(seq[2])}, nil
}

// bufferedWriter flushes after every sequence.
type bufferedWriter struct {
	*bufio.Writer
}

func (w bufferedWriter) writeSequence(seq frame.Sequence) error {
	if err := writeSequence(w.Writer, seq); err != nil {
		return err
	}
	return w.Flush()
}
