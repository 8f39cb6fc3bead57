package frame

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		headers []byte
		payload []byte
	}{
		{"both empty", []byte{}, []byte{}},
		{"headers only", []byte("content-type=text"), []byte{}},
		{"payload only", []byte{}, []byte("hello")},
		{"binary", []byte{0, 1, 2, 0xff}, bytes.Repeat([]byte{0xab}, 4096)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env, err := EncodeEnvelope(test.headers, test.payload)
			require.NoError(t, err)
			assert.Len(t, env, 8+len(test.headers)+len(test.payload))

			headers, err := DecodeHeaders(env)
			require.NoError(t, err)
			assert.Equal(t, test.headers, headers)

			payload, err := DecodePayload(env)
			require.NoError(t, err)
			assert.Equal(t, test.payload, payload)
		})
	}
}

func TestEnvelope_Layout(t *testing.T) {
	env, err := EncodeEnvelope([]byte("ab"), []byte("xyz"))
	require.NoError(t, err)
	assert.Equal(t, Frame{0, 0, 0, 2, 'a', 'b', 0, 0, 0, 3, 'x', 'y', 'z'}, env)
}

func TestDecode_Malformed(t *testing.T) {
	// -63 as a signed byte
	const b = 0xC1

	tests := []struct {
		name string
		in   Frame
	}{
		{"empty", Frame{}},
		{"short prefix", Frame{0, 0, 1}},
		{"declared length exceeds buffer", Frame{0, 0, 0, 24, b}},
		{"trailing bytes exceed declared length", Frame{0, 0, 0, 24, b, 12, 12, 12, 0, 0, 0, 24, b, 12, 12, 12}},
		{"negative headers length", Frame{0xff, 0xff, 0xff, 0xff}},
		{"missing payload prefix", Frame{0, 0, 0, 1, 'a'}},
		{"payload underflow", Frame{0, 0, 0, 0, 0, 0, 0, 5, 'a'}},
		{"trailing after payload", Frame{0, 0, 0, 0, 0, 0, 0, 1, 'a', 'b'}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := DecodeHeaders(test.in)
			assert.ErrorIs(t, err, errors.ErrMalformedFrame)
			_, err = DecodePayload(test.in)
			assert.ErrorIs(t, err, errors.ErrMalformedFrame)
		})
	}
}

func TestDecode_ExactLengths(t *testing.T) {
	in := Frame{0, 0, 0, 3, 12, 12, 12, 0, 0, 0, 2, 7, 7}
	headers, payload, err := DecodeEnvelope(in)
	require.NoError(t, err)
	assert.Equal(t, []byte{12, 12, 12}, headers)
	assert.Equal(t, []byte{7, 7}, payload)
}

func TestDecode_RejectsOversizedDeclaration(t *testing.T) {
	in := binary.BigEndian.AppendUint32(nil, MaxFieldSize+1)
	_, err := DecodeHeaders(in)
	assert.ErrorIs(t, err, errors.ErrMalformedFrame)
}

func TestEncode_RejectsOversizedField(t *testing.T) {
	big := make([]byte, MaxFieldSize+1)
	_, err := EncodeEnvelope(nil, big)
	assert.ErrorIs(t, err, errors.ErrEncoding)
	assert.True(t, errors.IsInvalid(err))
}

func TestExtractTopic(t *testing.T) {
	env, err := EncodeEnvelope(nil, []byte("p"))
	require.NoError(t, err)

	topic, err := ExtractTopic(NewPubSub([]byte("weather.nyc"), env))
	require.NoError(t, err)
	assert.Equal(t, Frame("weather.nyc"), topic)

	_, err = ExtractTopic(nil)
	assert.ErrorIs(t, err, errors.ErrMalformedFrame)
}

func TestExtractIdentityChain(t *testing.T) {
	env := Frame{0, 0, 0, 0, 0, 0, 0, 0}

	tests := []struct {
		name     string
		in       Sequence
		expected []Frame
	}{
		{"no identities", Sequence{{}, {}, env}, []Frame{}},
		{"two hops", NewRequestReply([]Frame{Frame("a"), Frame("b")}, env), []Frame{Frame("a"), Frame("b")}},
		{"single empty resets", Sequence{Frame("a"), {}, Frame("b"), {}, {}, env}, []Frame{Frame("a"), Frame("b")}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ids, err := ExtractIdentityChain(test.in)
			require.NoError(t, err)
			assert.Equal(t, test.expected, ids)
		})
	}

	_, err := ExtractIdentityChain(Sequence{Frame("a"), {}, Frame("b"), env})
	assert.ErrorIs(t, err, errors.ErrMalformedFrame)
}

func TestInprocRef(t *testing.T) {
	f := EncodeInprocRef(0x01020304)
	assert.Equal(t, Frame{1, 2, 3, 4}, f)

	ref, err := ParseInprocRef(f)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), ref)

	_, err = ParseInprocRef(Frame{1, 2, 3})
	assert.ErrorIs(t, err, errors.ErrMalformedFrame)
	_, err = ParseInprocRef(Frame{1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, errors.ErrMalformedFrame)
}

func TestControl(t *testing.T) {
	f := SubscribeFrame([]byte("xxx"))
	assert.Equal(t, Frame{1, 'x', 'x', 'x'}, f)

	code, topic, err := DecodeControl(f)
	require.NoError(t, err)
	assert.Equal(t, Subscribe, code)
	assert.Equal(t, []byte("xxx"), topic)

	code, topic, err = DecodeControl(UnsubscribeFrame(nil))
	require.NoError(t, err)
	assert.Equal(t, Unsubscribe, code)
	assert.Empty(t, topic)

	_, _, err = DecodeControl(Frame{})
	assert.ErrorIs(t, err, errors.ErrMalformedFrame)
	_, _, err = DecodeControl(Frame{2, 'a'})
	assert.ErrorIs(t, err, errors.ErrMalformedFrame)

	assert.True(t, IsControl(Sequence{f}))
	assert.False(t, IsControl(Sequence{f, f}))
	assert.False(t, IsControl(Sequence{{7}}))
}

func TestSequence_CloneIsDeep(t *testing.T) {
	seq := Sequence{Frame("a"), Frame("bc")}
	clone := seq.Clone()
	clone[1][0] = 'z'

	assert.Equal(t, Frame("bc"), seq[1])
	assert.False(t, seq.Equal(clone))
	assert.Equal(t, 3, seq.Size())
}

func FuzzDecodeEnvelope(f *testing.F) {
	f.Add([]byte{0, 0, 0, 24, 0xC1})
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	f.Add([]byte{0, 0, 0, 1, 'a', 0, 0, 0, 1, 'b'})

	f.Fuzz(func(t *testing.T, in []byte) {
		headers, payload, err := DecodeEnvelope(in)
		if err != nil {
			if !errors.Is(err, errors.ErrMalformedFrame) {
				t.Fatalf("unexpected error class: %v", err)
			}
			return
		}
		again, err := EncodeEnvelope(headers, payload)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if !bytes.Equal(again, in) {
			t.Fatalf("re-encoded %x != input %x", again, in)
		}
	})
}

func FuzzEnvelopeRoundTrip(f *testing.F) {
	f.Add([]byte("h"), []byte("p"))
	f.Fuzz(func(t *testing.T, headers, payload []byte) {
		env, err := EncodeEnvelope(headers, payload)
		if err != nil {
			t.Fatal(err)
		}
		h, p, err := DecodeEnvelope(env)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(h, headers) || !bytes.Equal(p, payload) {
			t.Fatalf("round trip mismatch")
		}
	})
}
