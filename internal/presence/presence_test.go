package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectDisconnect(t *testing.T) {
	tr := NewTracker()

	assert.Equal(t, StatusOffline, tr.Status("u1"))
	assert.True(t, tr.Connect("u1"))
	assert.Equal(t, StatusOnline, tr.Status("u1"))

	// Reconnecting while already online is not a change.
	assert.False(t, tr.Connect("u1"))

	assert.True(t, tr.Disconnect("u1"))
	assert.Equal(t, StatusOffline, tr.Status("u1"))
	assert.False(t, tr.Disconnect("u1"))
}

func TestTypingRequiresOnline(t *testing.T) {
	tr := NewTracker()

	assert.False(t, tr.StartTyping("u1"), "offline users cannot type")

	tr.Connect("u1")
	assert.True(t, tr.StartTyping("u1"))
	assert.True(t, tr.IsTyping("u1"))
	assert.False(t, tr.StartTyping("u1"), "already typing")

	assert.True(t, tr.StopTyping("u1"))
	assert.False(t, tr.IsTyping("u1"))
	assert.False(t, tr.StopTyping("u1"), "already idle")
}

func TestDisconnectClearsTyping(t *testing.T) {
	tr := NewTracker()

	tr.Connect("u1")
	tr.StartTyping("u1")
	tr.Disconnect("u1")

	assert.False(t, tr.IsTyping("u1"))
	assert.Equal(t, StatusOffline, tr.Status("u1"))

	// A fresh connection starts idle.
	tr.Connect("u1")
	assert.False(t, tr.IsTyping("u1"))
}

func TestOnline(t *testing.T) {
	tr := NewTracker()

	assert.Empty(t, tr.Online())
	tr.Connect("u1")
	tr.Connect("u2")
	tr.Disconnect("u1")

	online := tr.Online()
	assert.Equal(t, []string{"u2"}, online)
}
