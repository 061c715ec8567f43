package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-backend/internal/scene"
)

type memoryStore struct {
	mu    sync.Mutex
	rooms map[string]*scene.Room
	users map[string]map[string]any
	fail  bool
}

func (m *memoryStore) SaveRoom(_ context.Context, room *scene.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	if m.rooms == nil {
		m.rooms = map[string]*scene.Room{}
	}
	m.rooms[room.Key().String()] = room
	return nil
}

func (m *memoryStore) SaveUserOptions(_ context.Context, name string, options map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = map[string]map[string]any{}
	}
	m.users[name] = options
	return nil
}

func TestSaverDrainsOnShutdown(t *testing.T) {
	store := &memoryStore{}
	saver := NewSaver(store, 8, time.Second)

	saver.SaveRoom(scene.NewRoom("dm", "one"))
	saver.SaveRoom(scene.NewRoom("dm", "two"))
	saver.SaveUser("alice", map[string]any{"zoom": 2.0})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	saver.Run(ctx)

	<-saver.Done()
	assert.Len(t, store.rooms, 2)
	assert.Equal(t, map[string]any{"zoom": 2.0}, store.users["alice"])
}

func TestSaverDropsWhenFull(t *testing.T) {
	store := &memoryStore{}
	saver := NewSaver(store, 1, time.Second)

	saver.SaveRoom(scene.NewRoom("dm", "one"))
	saver.SaveRoom(scene.NewRoom("dm", "two"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	saver.Run(ctx)
	assert.Len(t, store.rooms, 1)
}

func TestFlushReportsFailures(t *testing.T) {
	hub := NewHub(Options{})
	_, err := hub.CreateRoom("dm", "campaign")
	require.NoError(t, err)

	require.NoError(t, Flush(context.Background(), hub, &memoryStore{}))
	assert.Error(t, Flush(context.Background(), hub, &memoryStore{fail: true}))
}
