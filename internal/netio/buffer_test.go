package netio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadBufferAppendAndConsume(t *testing.T) {
	var b ReadBuffer
	b.Append([]byte("hello"))
	b.Append([]byte("world"))
	assert.Equal(t, "helloworld", string(b.Bytes()))
	assert.Equal(t, 10, b.Len())

	b.Consume(5)
	assert.Equal(t, "world", string(b.Bytes()))
}

func TestReadBufferConsumeAllClears(t *testing.T) {
	var b ReadBuffer
	b.Append([]byte("abc"))
	b.Consume(3)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Bytes())
}

func TestReadBufferCompactsPastHalfway(t *testing.T) {
	var b ReadBuffer
	b.Append([]byte("0123456789"))
	b.Consume(6) // past halfway (5), should compact
	assert.Equal(t, "6789", string(b.Bytes()))
	assert.Equal(t, 0, b.offset)
}

func TestWriteQueueBackpressure(t *testing.T) {
	q := NewWriteQueue(2)
	assert.NoError(t, q.Enqueue([]byte("a")))
	assert.NoError(t, q.Enqueue([]byte("b")))
	assert.ErrorIs(t, q.Enqueue([]byte("c")), ErrQueueFull)
	assert.True(t, q.HasPendingWrite())
	assert.Equal(t, 2, q.Pending())
}
