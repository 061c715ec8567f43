package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-backend/internal/scene"
)

type stubPeer string

func (p stubPeer) ID() string          { return string(p) }
func (p stubPeer) Send(_ []byte) bool { return true }

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry()
	room := scene.RoomKey{Creator: "dm", Name: "campaign"}
	other := scene.RoomKey{Creator: "dm", Name: "oneshot"}

	_, err := reg.Register(stubPeer("c1"), "dm", room)
	require.NoError(t, err)
	_, err = reg.Register(stubPeer("c2"), "alice", room)
	require.NoError(t, err)
	_, err = reg.Register(stubPeer("c3"), "alice", other)
	require.NoError(t, err)

	_, err = reg.Register(stubPeer("c1"), "bob", room)
	assert.ErrorIs(t, err, ErrDuplicateConnection)

	assert.Len(t, reg.InRoom(room), 2)
	assert.Len(t, reg.UserSessions(room, "alice"), 1)
	assert.Equal(t, 3, reg.Count())

	s, ok := reg.Deregister("c2")
	require.True(t, ok)
	assert.Equal(t, "alice", s.Username)
	assert.Len(t, reg.InRoom(room), 1)

	_, ok = reg.Deregister("c2")
	assert.False(t, ok)
	_, ok = reg.Get("c2")
	assert.False(t, ok)
}

func TestTemporaries(t *testing.T) {
	s := New(stubPeer("c1"), "alice", scene.RoomKey{Creator: "dm", Name: "campaign"})
	s.AddTemporary("start", &scene.Shape{UUID: "t1"})
	s.AddTemporary("start", &scene.Shape{UUID: "t2"})
	s.AddTemporary("cave", &scene.Shape{UUID: "t3"})

	require.NotNil(t, s.Temporary("t1"))
	assert.True(t, s.ReplaceTemporary(&scene.Shape{UUID: "t1", X: 5}))
	assert.Equal(t, 5.0, s.Temporary("t1").X)
	assert.True(t, s.RemoveTemporary("t2"))
	assert.False(t, s.RemoveTemporary("t2"))

	drained := s.DrainTemporaries()
	require.Len(t, drained, 2)
	require.Len(t, drained["start"], 1)
	assert.Equal(t, 5.0, drained["start"][0].X)
	require.Len(t, drained["cave"], 1)
	assert.Equal(t, "t3", drained["cave"][0].UUID)
	assert.Empty(t, s.DrainTemporaries())
}
