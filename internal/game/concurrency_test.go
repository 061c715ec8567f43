package game

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-backend/internal/protocol"
	"tabletop-backend/internal/scene"
)

// slowPresence Leave 가 느린 Redis 흉내
type slowPresence struct {
	mu     sync.Mutex
	online map[string]bool
	calls  int
}

func (p *slowPresence) Join(_ context.Context, _, user string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[user] = true
	p.calls++
	return nil
}

func (p *slowPresence) Leave(_ context.Context, _, user string) error {
	time.Sleep(50 * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[user] = false
	p.calls++
	return nil
}

func (p *slowPresence) state(user string) (bool, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[user], p.calls
}

func TestPresenceSurvivesFastReconnect(t *testing.T) {
	users := NewDirectory()
	users.Put("dm", nil)
	users.Put("alice", nil)
	pres := &slowPresence{online: map[string]bool{}}
	hub := NewHub(Options{Users: users, Presence: pres})

	summary, err := hub.CreateRoom("dm", "campaign")
	require.NoError(t, err)
	key, err := hub.ClaimInvite(summary.InvitationCode, "alice")
	require.NoError(t, err)

	_, err = hub.Join(context.Background(), &fakePeer{id: "c1"}, "alice", key)
	require.NoError(t, err)
	hub.Leave(context.Background(), "c1")
	_, err = hub.Join(context.Background(), &fakePeer{id: "c2"}, "alice", key)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, calls := pres.state("alice")
		return calls == 3
	}, 2*time.Second, 10*time.Millisecond)

	online, _ := pres.state("alice")
	assert.True(t, online)
	assert.Len(t, hub.Sessions().UserSessions(key, "alice"), 1)
}

func frameFor(t *testing.T, event string, data any) []byte {
	frame, err := protocol.Encode(event, data)
	assert.NoError(t, err)
	return frame
}

func tokenAt(uuid string, x int) map[string]any {
	return map[string]any{"uuid": uuid, "layer": scene.LayerTokens, "type_": "rect", "x": x, "y": 0, "width": 50, "height": 50}
}

// uuidsOf 받은 이벤트를 이벤트 이름과 도형 UUID 순서로 정리
func uuidsOf(t *testing.T, frames []protocol.Envelope, event string) []string {
	t.Helper()
	var out []string
	for _, f := range frames {
		if f.Event != event {
			continue
		}
		var data struct {
			UUID string `json:"uuid"`
		}
		require.NoError(t, json.Unmarshal(f.Data, &data))
		out = append(out, data.UUID)
	}
	return out
}

func TestConcurrentRoomsStayConsistent(t *testing.T) {
	const n = 25

	f := newFixture(t)
	other, err := f.hub.CreateRoom("dm", "oneshot")
	require.NoError(t, err)
	otherKey, err := f.hub.ClaimInvite(other.InvitationCode, "alice")
	require.NoError(t, err)

	joinRoom := func(user, connID string, key scene.RoomKey) *fakePeer {
		peer := &fakePeer{id: connID}
		_, err := f.hub.Join(context.Background(), peer, user, key)
		require.NoError(t, err)
		peer.take()
		return peer
	}
	dmA := joinRoom("dm", "a-dm", f.key)
	aliceA := joinRoom("alice", "a-alice", f.key)
	bobA := joinRoom("bob", "a-bob", f.key)
	dmB := joinRoom("dm", "b-dm", otherKey)
	aliceB := joinRoom("alice", "b-alice", otherKey)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			uuid := fmt.Sprintf("a-%d", i)
			f.hub.HandleMessage(ctx, aliceA.id, frameFor(t, protocol.EventAddShape, map[string]any{"shape": tokenAt(uuid, 0)}))
			f.hub.HandleMessage(ctx, aliceA.id, frameFor(t, protocol.EventShapeMove, map[string]any{"shape": tokenAt(uuid, i)}))
		}(i)
		go func(i int) {
			defer wg.Done()
			uuid := fmt.Sprintf("b-%d", i)
			f.hub.HandleMessage(ctx, aliceB.id, frameFor(t, protocol.EventAddShape, map[string]any{"shape": tokenAt(uuid, 0)}))
			f.hub.HandleMessage(ctx, aliceB.id, frameFor(t, protocol.EventShapeMove, map[string]any{"shape": tokenAt(uuid, i)}))
			f.hub.HandleMessage(ctx, aliceB.id, frameFor(t, protocol.EventSetClientOptions, map[string]any{"last": i}))
		}(i)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("churn-%d", i)
			_, err := f.hub.Join(ctx, &fakePeer{id: connID}, "bob", f.key)
			assert.NoError(t, err)
			f.hub.Leave(ctx, connID)
		}(i)
	}
	wg.Wait()

	rs, ok := f.hub.roomState(f.key)
	require.True(t, ok)
	rs.mu.Lock()
	assert.Equal(t, n, rs.room.Location(scene.StartLocation).Layer(scene.LayerTokens).Len())
	rs.mu.Unlock()

	rs, ok = f.hub.roomState(otherKey)
	require.True(t, ok)
	rs.mu.Lock()
	assert.Equal(t, n, rs.room.Location(scene.StartLocation).Layer(scene.LayerTokens).Len())
	rs.mu.Unlock()

	assert.Equal(t, 5, f.hub.Sessions().Count(), "churned connections are gone")

	for _, tc := range []struct {
		peer   *fakePeer
		prefix string
	}{
		{dmA, "a-"}, {bobA, "a-"}, {dmB, "b-"},
	} {
		frames := tc.peer.take()
		require.Len(t, frames, 2*n, "%s frames: %v", tc.peer.id, events(frames))

		added := uuidsOf(t, frames, protocol.EventAddShape)
		moved := uuidsOf(t, frames, protocol.EventShapeMove)
		assert.Len(t, added, n)
		assert.Len(t, moved, n)

		// 같은 도형의 추가는 이동보다 먼저 도착한다
		seen := map[string]bool{}
		for _, fr := range frames {
			var data struct {
				UUID string `json:"uuid"`
			}
			require.NoError(t, json.Unmarshal(fr.Data, &data))
			assert.True(t, strings.HasPrefix(data.UUID, tc.prefix), "%s leaked into %s", data.UUID, tc.peer.id)
			switch fr.Event {
			case protocol.EventAddShape:
				seen[data.UUID] = true
			case protocol.EventShapeMove:
				assert.True(t, seen[data.UUID], "move of %s before its add", data.UUID)
			}
		}
	}
	assert.Empty(t, aliceA.take())
	assert.Empty(t, aliceB.take())

	opts := f.hub.Users().Options("alice")
	assert.Contains(t, opts, "last")
}
