package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		raw     string
		want    Address
		wantErr error
	}{
		{raw: "inproc://events", want: Address{Scheme: SchemeInproc, Host: "events"}},
		{raw: "tcp://127.0.0.1:4040", want: Address{Scheme: SchemeTCP, Host: "127.0.0.1:4040"}},
		{raw: "tcp://*:5050", want: Address{Scheme: SchemeTCP, Host: ":5050"}},
		{raw: "ws://localhost:8080/feed", want: Address{Scheme: SchemeWS, Host: "localhost:8080", Path: "/feed"}},
		{raw: "ws://localhost:8080", want: Address{Scheme: SchemeWS, Host: "localhost:8080", Path: "/"}},
		{raw: "epgm://eth0;239.192.1.1:5555", want: Address{Scheme: SchemeEPGM, Host: "eth0;239.192.1.1:5555"}},
		{raw: "localhost:4040", wantErr: errors.ErrInvalidAddress},
		{raw: "inproc://", wantErr: errors.ErrInvalidAddress},
		{raw: "tcp://localhost", wantErr: errors.ErrInvalidAddress},
		{raw: "tcp://localhost:99999", wantErr: errors.ErrInvalidAddress},
		{raw: "ipc:///tmp/feed", wantErr: errors.ErrUnsupportedTransport},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAddress(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddress_String(t *testing.T) {
	for _, raw := range []string{"inproc://events", "tcp://127.0.0.1:4040", "ws://localhost:8080/feed"} {
		addr, err := ParseAddress(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, addr.String())
	}
}

func TestAddress_Supported(t *testing.T) {
	pgm, err := ParseAddress("pgm://eth0;239.192.1.1:5555")
	require.NoError(t, err)
	assert.False(t, pgm.supported())

	tcp, err := ParseAddress("tcp://127.0.0.1:0")
	require.NoError(t, err)
	assert.True(t, tcp.supported())
}
