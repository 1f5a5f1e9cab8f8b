package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from State
		ev   event
		to   State
	}{
		{Disconnected, eventStart, Connecting},
		{Connecting, eventConnected, Connected},
		{Connecting, eventFailed, Reconnecting},
		{Connecting, eventFallback, Polling},
		{Connected, eventDropped, Reconnecting},
		{Reconnecting, eventConnected, Connected},
		{Reconnecting, eventFailed, Reconnecting},
		{Reconnecting, eventFallback, Polling},
		{Polling, eventStop, Disconnected},
		{Connected, eventStop, Disconnected},
	}
	for _, tt := range tests {
		got, err := next(tt.from, tt.ev)
		require.NoError(t, err, "%s on %s", tt.from, tt.ev)
		assert.Equal(t, tt.to, got)
	}
}

func TestNext_Illegal(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		from State
		ev   event
	}{
		{Disconnected, eventStop},
		{Disconnected, eventConnected},
		{Polling, eventDropped},
		{Polling, eventConnected},
		{Connected, eventFallback},
	} {
		got, err := next(tt.from, tt.ev)
		assert.True(t, IsTransitionError(err))
		assert.Equal(t, tt.from, got, "state is kept")
	}
}

func TestStatus_Connected(t *testing.T) {
	t.Parallel()

	assert.True(t, Status{State: Connected}.Connected())
	assert.True(t, Status{State: Polling, Polling: true}.Connected())
	assert.False(t, Status{State: Reconnecting}.Connected())
	assert.False(t, Status{State: Connecting}.Connected())
	assert.False(t, Status{State: Disconnected}.Connected())
	assert.Equal(t, "polling", Polling.String())
}
