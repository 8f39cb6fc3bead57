package subscription

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
	"github.com/sjohnr/jzmq-sdk-sub001/frame"
)

type sent struct {
	link    Link
	control frame.Frame
}

func newRecordingRegistry() (*Registry, *[]sent) {
	var log []sent
	r := New(func(link Link, control frame.Frame) error {
		log = append(log, sent{link, control})
		return nil
	})
	return r, &log
}

func TestRegistry_SubscribeUnsubscribeIdempotence(t *testing.T) {
	r, log := newRecordingRegistry()
	topic := []byte("xxx")

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Subscribe("local", topic))
	}
	assert.Equal(t, 3, r.Count("local", topic))

	for i := 0; i < 2; i++ {
		require.NoError(t, r.Unsubscribe("local", topic))
	}
	assert.True(t, r.IsActive("local", topic))

	require.NoError(t, r.Unsubscribe("local", topic))
	assert.False(t, r.IsActive("local", topic))
	assert.Empty(t, r.Links())

	require.Len(t, *log, 6)
	for i, s := range *log {
		expected := frame.Subscribe
		if i >= 3 {
			expected = frame.Unsubscribe
		}
		code, got, err := frame.DecodeControl(s.control)
		require.NoError(t, err)
		assert.Equal(t, expected, code)
		assert.Equal(t, topic, got)
		assert.Equal(t, Link("local"), s.link)
	}
}

func TestRegistry_UnsubscribeMissingStillEmits(t *testing.T) {
	r, log := newRecordingRegistry()
	require.NoError(t, r.Unsubscribe("local", []byte("nope")))

	assert.Equal(t, 0, r.Count("local", []byte("nope")))
	require.Len(t, *log, 1)
	assert.Equal(t, frame.UnsubscribeFrame([]byte("nope")), (*log)[0].control)
}

func TestRegistry_LinksAreIndependent(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Subscribe("a", []byte("t")))
	require.NoError(t, r.Subscribe("b", []byte("t")))
	require.NoError(t, r.Unsubscribe("a", []byte("t")))

	assert.False(t, r.IsActive("a", []byte("t")))
	assert.True(t, r.IsActive("b", []byte("t")))
	assert.Equal(t, []Link{"b"}, r.Links())
}

func TestRegistry_Apply(t *testing.T) {
	r, log := newRecordingRegistry()

	code, topic, err := r.Apply("peer", frame.SubscribeFrame([]byte("news")))
	require.NoError(t, err)
	assert.Equal(t, frame.Subscribe, code)
	assert.Equal(t, []byte("news"), topic)
	assert.True(t, r.IsActive("peer", []byte("news")))
	assert.Empty(t, *log)

	_, _, err = r.Apply("peer", frame.Frame{9})
	assert.ErrorIs(t, err, errors.ErrMalformedFrame)

	_, _, err = r.Apply("peer", frame.UnsubscribeFrame([]byte("news")))
	require.NoError(t, err)
	assert.False(t, r.IsActive("peer", []byte("news")))
}

func TestRegistry_HandleMirrors(t *testing.T) {
	r, log := newRecordingRegistry()

	_, _, err := r.Handle("peer", frame.SubscribeFrame([]byte("a")))
	require.NoError(t, err)
	assert.True(t, r.IsActive("peer", []byte("a")))
	require.Len(t, *log, 1)

	_, _, err = r.Handle("peer", frame.Frame{})
	assert.ErrorIs(t, err, errors.ErrMalformedFrame)
	assert.Len(t, *log, 1)
}

func TestRegistry_SenderErrorIsTransient(t *testing.T) {
	r := New(func(Link, frame.Frame) error { return fmt.Errorf("queue full") })

	err := r.Subscribe("local", []byte("t"))
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.True(t, r.IsActive("local", []byte("t")))
}

func TestRegistry_Matches(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Subscribe("local", []byte("weather.")))

	assert.True(t, r.Matches("local", []byte("weather.nyc")))
	assert.True(t, r.Matches("local", []byte("weather.")))
	assert.False(t, r.Matches("local", []byte("weather")))
	assert.False(t, r.Matches("other", []byte("weather.nyc")))

	require.NoError(t, r.Subscribe("all", nil))
	assert.True(t, r.Matches("all", []byte("anything")))
	assert.True(t, r.Matches("all", nil))
}

func TestRegistry_TopicsSorted(t *testing.T) {
	r := New(nil)
	for _, topic := range []string{"c", "a", "b", "a"} {
		require.NoError(t, r.Subscribe("l", []byte(topic)))
	}
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, r.Topics("l"))
	assert.Empty(t, r.Topics("missing"))
}

func TestRegistry_DropLink(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Subscribe("peer", []byte("b")))
	require.NoError(t, r.Subscribe("peer", []byte("a")))
	require.NoError(t, r.Subscribe("peer", []byte("a")))
	require.NoError(t, r.Subscribe("other", []byte("a")))

	dropped := r.DropLink("peer")
	assert.Equal(t, [][]byte{[]byte("a"), []byte("a"), []byte("b")}, dropped)
	assert.False(t, r.IsActive("peer", []byte("a")))
	assert.True(t, r.IsActive("other", []byte("a")))
	assert.Nil(t, r.DropLink("peer"))
}

func TestMatch(t *testing.T) {
	assert.True(t, Match(nil, []byte("x")))
	assert.True(t, Match([]byte("ab"), []byte("abc")))
	assert.False(t, Match([]byte("abc"), []byte("ab")))
}
