package signalr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecords_Feed(t *testing.T) {
	t.Parallel()

	r := &records{}

	assert.Empty(t, r.feed([]byte(`{"type":`)))
	got := r.feed([]byte("6}\x1e\x1e{\"type\":7}\x1e{\"ty"))
	assert.Equal(t, [][]byte{[]byte(`{"type":6}`), []byte(`{"type":7}`)}, got)

	got = r.feed([]byte("pe\":6}\x1e"))
	assert.Equal(t, [][]byte{[]byte(`{"type":6}`)}, got)
	assert.Nil(t, r.pending)
}

func TestRecord(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{\"type\":6}\x1e", string(pingMessage))
	assert.Equal(t, byte(recordSeparator), handshakeRequest[len(handshakeRequest)-1])
}
