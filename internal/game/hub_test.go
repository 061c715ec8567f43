package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-backend/internal/protocol"
	"tabletop-backend/internal/scene"
)

type fakePeer struct {
	id string

	mu     sync.Mutex
	frames []protocol.Envelope
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(frame []byte) bool {
	var env protocol.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return false
	}
	p.mu.Lock()
	p.frames = append(p.frames, env)
	p.mu.Unlock()
	return true
}

// take 받은 프레임을 꺼내고 비운다
func (p *fakePeer) take() []protocol.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.frames
	p.frames = nil
	return out
}

func events(frames []protocol.Envelope) []string {
	var out []string
	for _, f := range frames {
		out = append(out, f.Event)
	}
	return out
}

func only(t *testing.T, frames []protocol.Envelope, event string) map[string]any {
	t.Helper()
	require.Len(t, frames, 1, "frames: %v", events(frames))
	require.Equal(t, event, frames[0].Event)
	var data map[string]any
	require.NoError(t, json.Unmarshal(frames[0].Data, &data))
	return data
}

type recordingSaves struct {
	mu    sync.Mutex
	rooms []*scene.Room
	users map[string]map[string]any
}

func (r *recordingSaves) SaveRoom(room *scene.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, room)
}

func (r *recordingSaves) SaveUser(name string, options map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.users == nil {
		r.users = map[string]map[string]any{}
	}
	r.users[name] = options
}

func (r *recordingSaves) roomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

type fixture struct {
	hub   *Hub
	key   scene.RoomKey
	saves *recordingSaves
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := NewDirectory()
	for _, name := range []string{"dm", "alice", "bob", "carol"} {
		users.Put(name, nil)
	}
	saves := &recordingSaves{}
	hub := NewHub(Options{Users: users, Saves: saves})

	summary, err := hub.CreateRoom("dm", "campaign")
	require.NoError(t, err)
	for _, player := range []string{"alice", "bob"} {
		_, err := hub.ClaimInvite(summary.InvitationCode, player)
		require.NoError(t, err)
	}
	return &fixture{hub: hub, key: scene.RoomKey{Creator: "dm", Name: "campaign"}, saves: saves}
}

func (f *fixture) join(t *testing.T, user, connID string) *fakePeer {
	t.Helper()
	peer := &fakePeer{id: connID}
	_, err := f.hub.Join(context.Background(), peer, user, f.key)
	require.NoError(t, err)
	peer.take()
	return peer
}

func (f *fixture) send(t *testing.T, from *fakePeer, event string, data any) {
	t.Helper()
	frame, err := protocol.Encode(event, data)
	require.NoError(t, err)
	f.hub.HandleMessage(context.Background(), from.id, frame)
}

func (f *fixture) room(t *testing.T) *scene.Room {
	t.Helper()
	rs, ok := f.hub.roomState(f.key)
	require.True(t, ok)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.room.Clone()
}

func secretShape(uuid, layer string) map[string]any {
	return map[string]any{
		"uuid":       uuid,
		"layer":      layer,
		"type_":      "rect",
		"x":          0,
		"y":          0,
		"width":      50,
		"height":     50,
		"annotation": "hidden note",
		"trackers": []map[string]any{
			{"uuid": "t1", "name": "HP", "value": 7, "maxvalue": 10, "visible": false},
		},
	}
}

func TestJoinSequence(t *testing.T) {
	f := newFixture(t)
	peer := &fakePeer{id: "c1"}
	_, err := f.hub.Join(context.Background(), peer, "alice", f.key)
	require.NoError(t, err)

	assert.Equal(t, []string{
		protocol.EventSetUsername,
		protocol.EventSetRoomInfo,
		protocol.EventBoardInit,
		protocol.EventSetLocation,
		protocol.EventSetClientOptions,
		protocol.EventAssetList,
		protocol.EventSetInitiative,
	}, events(peer.take()))
}

func TestJoinFailuresRedirect(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		user string
		key  scene.RoomKey
		err  error
		to   string
	}{
		{user: "", key: f.key, err: ErrNoIdentity, to: RedirectLogin},
		{user: "carol", key: f.key, err: ErrNotMember, to: RedirectRooms},
		{user: "alice", key: scene.RoomKey{Creator: "dm", Name: "missing"}, err: ErrRoomNotFound, to: RedirectRooms},
	}
	for _, tc := range cases {
		peer := &fakePeer{id: "x"}
		_, err := f.hub.Join(context.Background(), peer, tc.user, tc.key)
		assert.ErrorIs(t, err, tc.err)

		frames := peer.take()
		require.Len(t, frames, 1)
		assert.Equal(t, protocol.EventRedirect, frames[0].Event)
		assert.JSONEq(t, `"`+tc.to+`"`, string(frames[0].Data))
	}
	assert.Zero(t, f.hub.Sessions().Count())
}

func TestCreatorAddBroadcastsProjectedShape(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	alice := f.join(t, "alice", "c-alice")
	bob := f.join(t, "bob", "c-bob")

	f.send(t, dm, protocol.EventAddShape, map[string]any{"shape": secretShape("s1", scene.LayerTokens)})

	for _, p := range []*fakePeer{alice, bob} {
		data := only(t, p.take(), protocol.EventAddShape)
		assert.Equal(t, "s1", data["uuid"])
		assert.Equal(t, "", data["annotation"])
		assert.Empty(t, data["trackers"])
	}
	assert.Empty(t, dm.take(), "origin does not receive its own event")
}

func TestParticipantAddCopiesCreatorUnfiltered(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	alice := f.join(t, "alice", "c-alice")
	bob := f.join(t, "bob", "c-bob")

	f.send(t, alice, protocol.EventAddShape, map[string]any{"shape": secretShape("s1", scene.LayerTokens)})

	data := only(t, dm.take(), protocol.EventAddShape)
	assert.Equal(t, "hidden note", data["annotation"])
	assert.Equal(t, []any{"alice"}, data["owners"])

	data = only(t, bob.take(), protocol.EventAddShape)
	assert.Equal(t, "", data["annotation"])
	assert.Empty(t, alice.take())
}

func TestHiddenLayerOnlyReachesCreator(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	alice := f.join(t, "alice", "c-alice")

	f.send(t, alice, protocol.EventAddShape, map[string]any{"shape": secretShape("s1", scene.LayerDM)})
	assert.Empty(t, dm.take(), "participants cannot add to the dm layer")
	_, s := f.room(t).Location(scene.StartLocation).FindShape("s1")
	assert.Nil(t, s)

	dm2 := f.join(t, "dm", "c-dm2")
	f.send(t, dm, protocol.EventAddShape, map[string]any{"shape": secretShape("s2", scene.LayerDM)})
	assert.Empty(t, alice.take())
	assert.Empty(t, dm.take())

	// 같은 사용자의 다른 연결은 받는다
	data := only(t, dm2.take(), protocol.EventAddShape)
	assert.Equal(t, "hidden note", data["annotation"])
}

func TestUnauthorizedRemoveIsDropped(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	alice := f.join(t, "alice", "c-alice")
	bob := f.join(t, "bob", "c-bob")

	f.send(t, alice, protocol.EventAddShape, map[string]any{"shape": secretShape("s1", scene.LayerTokens)})
	dm.take()
	bob.take()

	f.send(t, bob, protocol.EventRemoveShape, map[string]any{"shape": map[string]any{"uuid": "s1", "layer": scene.LayerTokens}})

	assert.Empty(t, dm.take())
	assert.Empty(t, alice.take())
	assert.Empty(t, bob.take())
	_, s := f.room(t).Location(scene.StartLocation).FindShape("s1")
	assert.NotNil(t, s)

	f.send(t, alice, protocol.EventRemoveShape, map[string]any{"shape": map[string]any{"uuid": "s1", "layer": scene.LayerTokens}})
	data := only(t, bob.take(), protocol.EventRemoveShape)
	assert.Equal(t, "s1", data["uuid"])
}

func TestDefaultVisionResendsFullShape(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	bob := f.join(t, "bob", "c-bob")

	f.send(t, dm, protocol.EventAddShape, map[string]any{"shape": secretShape("s1", scene.LayerTokens)})
	bob.take()

	f.send(t, dm, protocol.EventOwnerDefault, map[string]any{"shape": "s1", "vision_access": true})

	frames := bob.take()
	require.Equal(t, []string{protocol.EventOwnerDefault, protocol.EventShapeSet, protocol.EventSetInitiative}, events(frames))
	var shape map[string]any
	require.NoError(t, json.Unmarshal(frames[1].Data, &shape))
	assert.Equal(t, "hidden note", shape["annotation"])
	assert.Len(t, shape["trackers"], 1)
}

func TestOwnerAddRequiresKnownUser(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	bob := f.join(t, "bob", "c-bob")
	f.send(t, dm, protocol.EventAddShape, map[string]any{"shape": secretShape("s1", scene.LayerTokens)})
	bob.take()

	f.send(t, dm, protocol.EventOwnerAdd, map[string]any{"shape": "s1", "user": "nobody", "edit_access": true})
	assert.Empty(t, bob.take())

	f.send(t, dm, protocol.EventOwnerAdd, map[string]any{"shape": "s1", "user": "bob", "edit_access": true, "vision_access": true})
	assert.Equal(t, []string{protocol.EventOwnerAdd, protocol.EventShapeSet, protocol.EventSetInitiative}, events(bob.take()))

	// bob 은 이제 이동 가능
	f.send(t, bob, protocol.EventShapeMove, map[string]any{"shape": map[string]any{"uuid": "s1", "layer": scene.LayerTokens, "type_": "rect", "x": 100, "y": 5, "width": 50, "height": 50}})
	data := only(t, dm.take(), protocol.EventShapeMove)
	assert.Equal(t, float64(100), data["x"])
}

func TestTemporaryShapesClearedOnLeave(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	alice := f.join(t, "alice", "c-alice")
	bob := f.join(t, "bob", "c-bob")

	f.send(t, alice, protocol.EventAddShape, map[string]any{"shape": secretShape("tmp", scene.LayerTokens), "temporary": true})
	only(t, bob.take(), protocol.EventAddShape)
	dm.take()

	// bob 은 alice 의 임시 도형을 옮길 수 없다
	f.send(t, bob, protocol.EventShapeMove, map[string]any{"shape": map[string]any{"uuid": "tmp", "type_": "rect", "x": 1}, "temporary": true})
	assert.Empty(t, dm.take())

	saved := f.saves.roomCount()
	f.hub.Leave(context.Background(), alice.id)

	frames := bob.take()
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.EventClearTemporaries, frames[0].Event)
	assert.JSONEq(t, `["tmp"]`, string(frames[0].Data))
	assert.Equal(t, saved+1, f.saves.roomCount())

	_, s := f.room(t).Location(scene.StartLocation).FindShape("tmp")
	assert.Nil(t, s, "temporary shapes never enter the scene")
}

func TestTemporaryShapesClearedOnTheirLocation(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	alice := f.join(t, "alice", "c-alice")

	f.send(t, dm, protocol.EventAddShape, map[string]any{"shape": secretShape("tmp1", scene.LayerTokens), "temporary": true})
	only(t, alice.take(), protocol.EventAddShape)

	// 생성자만 새 위치로 이동
	f.send(t, dm, protocol.EventNewLocation, "cave")
	dm.take()
	assert.Empty(t, alice.take())

	f.hub.Leave(context.Background(), dm.id)

	frames := alice.take()
	require.Len(t, frames, 1, "frames: %v", events(frames))
	assert.Equal(t, protocol.EventClearTemporaries, frames[0].Event)
	assert.JSONEq(t, `["tmp1"]`, string(frames[0].Data))
}

func TestInitiativeVisibilityFiltering(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	alice := f.join(t, "alice", "c-alice")
	bob := f.join(t, "bob", "c-bob")

	f.send(t, alice, protocol.EventAddShape, map[string]any{"shape": secretShape("s1", scene.LayerTokens)})
	dm.take()
	bob.take()

	f.send(t, alice, protocol.EventUpdateInitiative, map[string]any{"uuid": "s1", "initiative": 15, "visible": false})
	data := only(t, dm.take(), protocol.EventUpdateInitiative)
	assert.Equal(t, float64(15), data["initiative"])
	assert.Empty(t, bob.take())

	f.send(t, alice, protocol.EventUpdateInitiative, map[string]any{"uuid": "s1", "initiative": 15, "visible": true})
	data = only(t, bob.take(), protocol.EventUpdateInitiative)
	assert.Equal(t, true, data["visible"])
	dm.take()

	f.send(t, alice, protocol.EventUpdateInitiative, map[string]any{"uuid": "s1", "initiative": 15, "visible": false})
	data = only(t, bob.take(), protocol.EventUpdateInitiative)
	assert.Equal(t, map[string]any{"uuid": "s1"}, data)
	dm.take()

	f.send(t, bob, protocol.EventUpdateInitiative, map[string]any{"uuid": "s1", "initiative": 1})
	assert.Empty(t, dm.take(), "non-owners cannot change initiative")
}

func TestLocationChanges(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	alice := f.join(t, "alice", "c-alice")

	f.send(t, dm, protocol.EventNewLocation, "cave")
	assert.Equal(t, []string{protocol.EventBoardInit, protocol.EventSetLocation, protocol.EventSetClientOptions, protocol.EventSetInitiative}, events(dm.take()))
	assert.Empty(t, alice.take())
	assert.Equal(t, "cave", f.room(t).DMLocation)

	// 서로 다른 위치면 전파되지 않는다
	f.send(t, dm, protocol.EventAddShape, map[string]any{"shape": secretShape("s1", scene.LayerTokens)})
	assert.Empty(t, alice.take())

	f.send(t, alice, protocol.EventChangeLocation, "cave")
	assert.Empty(t, dm.take())

	f.send(t, dm, protocol.EventChangeLocation, "cave")
	frames := alice.take()
	require.Equal(t, []string{protocol.EventBoardInit, protocol.EventSetLocation, protocol.EventSetClientOptions, protocol.EventSetInitiative}, events(frames))
	var loc scene.LocationView
	require.NoError(t, json.Unmarshal(frames[1].Data, &loc))
	assert.Equal(t, "cave", loc.Name)
	dm.take()

	f.send(t, dm, protocol.EventNewLocation, "cave")
	assert.Empty(t, dm.take(), "duplicate location names are rejected")
}

func TestCreatorOnlyEvents(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	alice := f.join(t, "alice", "c-alice")

	f.send(t, alice, protocol.EventSetGridSize, 80)
	assert.Empty(t, dm.take())

	f.send(t, dm, protocol.EventSetGridSize, 80)
	frames := alice.take()
	require.Len(t, frames, 1)
	assert.JSONEq(t, `80`, string(frames[0].Data))
	assert.Equal(t, 80.0, f.room(t).Location(scene.StartLocation).GridLayer().Size)

	f.send(t, dm, protocol.EventBringPlayers, map[string]any{"x": 10, "y": 20, "zoomFactor": 1.5})
	frames = alice.take()
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.EventBringPlayers, frames[0].Event)

	f.send(t, dm, protocol.EventSetLocationOptions, map[string]any{"fowColour": "black"})
	only(t, alice.take(), protocol.EventSetLocationOptions)
	assert.Equal(t, "black", f.room(t).Location(scene.StartLocation).Options["fowColour"])
}

func TestClientOptionsAreMergedAndSaved(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "alice", "c-alice")

	f.send(t, alice, protocol.EventSetClientOptions, map[string]any{"grid": map[string]any{"colour": "red"}})
	f.send(t, alice, protocol.EventSetClientOptions, map[string]any{"grid": map[string]any{"size": 3}})

	want := map[string]any{"grid": map[string]any{"colour": "red", "size": float64(3)}}
	assert.Equal(t, want, f.hub.Users().Options("alice"))
	f.saves.mu.Lock()
	assert.Equal(t, want, f.saves.users["alice"])
	f.saves.mu.Unlock()
}

func TestMalformedFramesAreDropped(t *testing.T) {
	f := newFixture(t)
	dm := f.join(t, "dm", "c-dm")
	alice := f.join(t, "alice", "c-alice")

	f.hub.HandleMessage(context.Background(), alice.id, []byte(`{"event":"add shape","data":{"shape":{"uuid":"s1"}}}`))
	f.hub.HandleMessage(context.Background(), alice.id, []byte(`not json`))
	f.hub.HandleMessage(context.Background(), "unknown-conn", []byte(`{"event":"set gridsize","data":10}`))
	assert.Empty(t, dm.take())
}

func TestRoomsAndInvites(t *testing.T) {
	f := newFixture(t)

	_, err := f.hub.CreateRoom("dm", "campaign")
	assert.ErrorIs(t, err, ErrRoomExists)
	_, err = f.hub.CreateRoom("dm", "a/b")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = f.hub.ClaimInvite("bogus", "carol")
	assert.ErrorIs(t, err, ErrInvalidInvite)

	owned, joined := f.hub.RoomsFor("dm")
	require.Len(t, owned, 1)
	assert.NotEmpty(t, owned[0].InvitationCode)
	assert.Empty(t, joined)

	owned, joined = f.hub.RoomsFor("alice")
	assert.Empty(t, owned)
	require.Len(t, joined, 1)
	assert.Empty(t, joined[0].InvitationCode)
}
