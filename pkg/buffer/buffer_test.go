package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
)

func TestCircularBuffer_InitialState(t *testing.T) {
	buf := NewCircularBuffer[int](5)
	defer buf.Close()

	if buf.Size() != 0 {
		t.Errorf("Expected initial size 0, got %d", buf.Size())
	}
	if buf.Capacity() != 5 {
		t.Errorf("Expected capacity 5, got %d", buf.Capacity())
	}
	assert.True(t, buf.IsEmpty())
	assert.False(t, buf.IsFull())

	assert.Equal(t, 1, NewCircularBuffer[int](0).Capacity())
}

func TestCircularBuffer_FIFO(t *testing.T) {
	buf := NewCircularBuffer[string](3)

	require.NoError(t, buf.Write("first"))
	require.NoError(t, buf.Write("second"))
	require.NoError(t, buf.Write("third"))
	assert.True(t, buf.IsFull())

	item, ok := buf.Peek()
	require.True(t, ok)
	assert.Equal(t, "first", item)
	assert.Equal(t, 3, buf.Size())

	for _, expected := range []string{"first", "second", "third"} {
		item, ok := buf.Read()
		require.True(t, ok)
		assert.Equal(t, expected, item)
	}

	_, ok = buf.Read()
	assert.False(t, ok)
}

func TestCircularBuffer_DropOldest(t *testing.T) {
	var dropped []int
	buf := NewCircularBuffer[int](2, WithDropCallback[int](func(item int) {
		dropped = append(dropped, item)
	}))

	for i := 1; i <= 4; i++ {
		require.NoError(t, buf.Write(i))
	}

	assert.Equal(t, []int{1, 2}, dropped)
	assert.Equal(t, []int{3, 4}, buf.ReadBatch(10))
	assert.Equal(t, int64(2), buf.Stats().Drops())
	assert.Equal(t, int64(2), buf.Stats().Overflows())
}

func TestCircularBuffer_DropNewest(t *testing.T) {
	var dropped []int
	buf := NewCircularBuffer[int](2,
		WithOverflowPolicy[int](DropNewest),
		WithDropCallback[int](func(item int) { dropped = append(dropped, item) }),
	)

	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Write(2))

	err := buf.Write(3)
	assert.ErrorIs(t, err, errors.ErrBufferFull)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, []int{3}, dropped)
	assert.Equal(t, []int{1, 2}, buf.ReadBatch(10))

	summary := buf.Stats().Summary()
	assert.Equal(t, int64(2), summary.Writes)
	assert.Equal(t, int64(1), summary.Drops)
	assert.Equal(t, int64(2), summary.MaxSize)
	assert.InDelta(t, 1.0/3.0, summary.DropRate, 0.0001)
}

func TestCircularBuffer_Wraparound(t *testing.T) {
	buf := NewCircularBuffer[int](3)
	for round := 0; round < 5; round++ {
		require.NoError(t, buf.Write(round*2))
		require.NoError(t, buf.Write(round*2+1))
		assert.Equal(t, []int{round * 2, round*2 + 1}, buf.ReadBatch(2))
	}
	assert.Nil(t, buf.ReadBatch(0))
	assert.Nil(t, buf.ReadBatch(1))
}

func TestCircularBuffer_Clear(t *testing.T) {
	buf := NewCircularBuffer[int](4)
	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Write(2))

	assert.Equal(t, []int{1, 2}, buf.Clear())
	assert.True(t, buf.IsEmpty())
	require.NoError(t, buf.Write(3))
	item, _ := buf.Read()
	assert.Equal(t, 3, item)
}

func TestCircularBuffer_Close(t *testing.T) {
	buf := NewCircularBuffer[int](2)
	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Close())

	err := buf.Write(2)
	assert.ErrorIs(t, err, errors.ErrClosed)

	item, ok := buf.Read()
	assert.True(t, ok)
	assert.Equal(t, 1, item)
}

func TestCircularBuffer_ReadySignal(t *testing.T) {
	buf := NewCircularBuffer[int](8)

	select {
	case <-buf.Ready():
		t.Fatal("ready before any write")
	default:
	}

	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Write(2))

	select {
	case <-buf.Ready():
	case <-time.After(time.Second):
		t.Fatal("no ready signal after write")
	}

	// signals coalesce
	select {
	case <-buf.Ready():
		t.Fatal("expected a single pending signal")
	default:
	}
}

func TestCircularBuffer_ConcurrentProducers(t *testing.T) {
	buf := NewCircularBuffer[int](1000, WithOverflowPolicy[int](DropNewest))

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = buf.Write(i)
			}
		}()
	}

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for received < 400 {
			if _, ok := buf.Read(); ok {
				received++
				continue
			}
			<-buf.Ready()
		}
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer stalled at %d items", received)
	}
	assert.Equal(t, int64(0), buf.Stats().Drops())
}

func TestOverflowPolicy_String(t *testing.T) {
	assert.Equal(t, "DropOldest", DropOldest.String())
	assert.Equal(t, "DropNewest", DropNewest.String())
	assert.Equal(t, "Unknown", OverflowPolicy(9).String())
}
