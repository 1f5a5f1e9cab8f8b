package signalr

import (
	"bytes"
	"encoding/json"
)

// recordSeparator terminates every JSON hub protocol message.
const recordSeparator = 0x1e

// Hub protocol message types.
const (
	typeInvocation       = 1
	typeStreamItem       = 2
	typeCompletion       = 3
	typeStreamInvocation = 4
	typeCancelInvocation = 5
	typePing             = 6
	typeClose            = 7
)

var (
	handshakeRequest = record([]byte(`{"protocol":"json","version":1}`))
	pingMessage      = record([]byte(`{"type":6}`))
)

type handshakeResponse struct {
	Error string `json:"error"`
}

// message is the union of the hub messages the client reads.
type message struct {
	Type           int               `json:"type"`
	Target         string            `json:"target"`
	Arguments      []json.RawMessage `json:"arguments"`
	Error          string            `json:"error"`
	AllowReconnect bool              `json:"allowReconnect"`
}

func record(b []byte) []byte {
	out := make([]byte, 0, len(b)+1)
	out = append(out, b...)
	return append(out, recordSeparator)
}

// records splits incoming frames into complete messages. A message may span
// frames and a frame may carry several messages.
type records struct {
	pending []byte
}

// feed appends data and returns every complete message now available.
func (r *records) feed(data []byte) [][]byte {
	r.pending = append(r.pending, data...)

	var out [][]byte
	for {
		i := bytes.IndexByte(r.pending, recordSeparator)
		if i < 0 {
			break
		}
		if i > 0 {
			msg := make([]byte, i)
			copy(msg, r.pending[:i])
			out = append(out, msg)
		}
		r.pending = r.pending[i+1:]
	}
	if len(r.pending) == 0 {
		r.pending = nil
	}
	return out
}
