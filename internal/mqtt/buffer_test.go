package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloads(msgs []bufferedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10)
	got, dropped := rb.drainAll()
	assert.Nil(t, got)
	assert.Zero(t, dropped)
}

func TestRingBufferPushAndDrain(t *testing.T) {
	rb := newRingBuffer(10)
	for i := 0; i < 5; i++ {
		rb.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	assert.Equal(t, 5, rb.len())

	got, dropped := rb.drainAll()
	assert.Equal(t, []byte{0, 1, 2, 3, 4}, payloads(got))
	assert.Zero(t, dropped)
	assert.Equal(t, 0, rb.len())

	got, _ = rb.drainAll()
	assert.Nil(t, got, "second drain is empty")
}

func TestRingBufferOverflowKeepsNewest(t *testing.T) {
	rb := newRingBuffer(5)
	for i := 0; i < 8; i++ {
		rb.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}

	got, dropped := rb.drainAll()
	assert.Equal(t, []byte{3, 4, 5, 6, 7}, payloads(got))
	assert.Equal(t, 3, dropped)

	rb.push(bufferedMsg{topic: "t", payload: []byte{9}})
	got, dropped = rb.drainAll()
	assert.Equal(t, []byte{9}, payloads(got))
	assert.Zero(t, dropped, "drop count resets on drain")
}

func TestRingBufferMultipleCycles(t *testing.T) {
	rb := newRingBuffer(5)
	for i := 0; i < 3; i++ {
		rb.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	got, _ := rb.drainAll()
	require.Len(t, got, 3)

	for i := 10; i < 14; i++ {
		rb.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	got, _ = rb.drainAll()
	assert.Equal(t, []byte{10, 11, 12, 13}, payloads(got))
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(0)
	rb.push(bufferedMsg{topic: "home/test", payload: []byte(`{"test":true}`), qos: 1, retained: true})

	got, _ := rb.drainAll()
	require.Len(t, got, 1)
	assert.Equal(t, bufferedMsg{topic: "home/test", payload: []byte(`{"test":true}`), qos: 1, retained: true}, got[0])
}
