package asgi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, Message{Type: TypeHTTPRequest, Body: []byte("a")}))
	require.NoError(t, q.Push(ctx, Message{Type: TypeHTTPRequest, Body: []byte("b")}))

	m1, err := q.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", string(m1.Body))

	m2, err := q.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", string(m2.Body))
}

func TestQueueCloseDrainsThenErrors(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, Message{Type: TypeHTTPRequest, Body: []byte("x")}))
	q.Close()

	m, err := q.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, "x", string(m.Body))

	_, err = q.Pop(ctx)
	require.ErrorIs(t, err, ErrQueueClosed)

	require.ErrorIs(t, q.Push(ctx, Message{}), ErrQueueClosed)
}

func TestQueuePopRespectsContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	require.Error(t, err)
}

func TestQueueLenAndCap(t *testing.T) {
	q := NewQueue(3)
	require.Equal(t, 3, q.Cap())
	require.Equal(t, 0, q.Len())
	require.NoError(t, q.Push(context.Background(), Message{}))
	require.Equal(t, 1, q.Len())
}
