package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *fakeStore, *fakeClock) {
	store := newFakeStore()
	clock := newFakeClock(testEpoch)
	return NewRegistry(store, clock, zerolog.Nop()), store, clock
}

func TestRegistryCreateRoom(t *testing.T) {
	reg, _, _ := newTestRegistry()
	ctx := context.Background()

	code, playerId, secret, err := reg.CreateRoom(ctx, "Alice")
	require.NoError(t, err)
	assert.Len(t, code, RoomCodeLength)
	assert.NotEmpty(t, playerId)
	assert.NotEmpty(t, secret)

	room, err := reg.Lookup(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, code, room.Code())
}

func TestRegistryCreateRoomUniqueCodes(t *testing.T) {
	reg, _, _ := newTestRegistry()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, _, _, err := reg.CreateRoom(ctx, "Alice")
		require.NoError(t, err)
		assert.False(t, seen[code], "code %s issued twice", code)
		seen[code] = true
	}
}

func TestRegistryLookupNormalizesCode(t *testing.T) {
	reg, _, _ := newTestRegistry()
	ctx := context.Background()

	code, _, _, err := reg.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	room, err := reg.Lookup(ctx, strings.ToLower(code))
	require.NoError(t, err)
	assert.Equal(t, code, room.Code())

	_, err = reg.Lookup(ctx, "bogus!")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistryUnknownRoom(t *testing.T) {
	reg, _, _ := newTestRegistry()
	_, err := reg.Lookup(context.Background(), "ZZZZZ")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

// A snapshot left behind by a previous process is revived into a live
// actor on first lookup.
func TestRegistryRevivesFromSnapshot(t *testing.T) {
	reg, store, _ := newTestRegistry()
	ctx := context.Background()

	state := newTestState(2)
	require.NoError(t, store.Save(ctx, state))

	room, err := reg.Lookup(ctx, "ABCDE")
	require.NoError(t, err)
	require.NotNil(t, room)

	// The revived room is live: a third player can join it.
	joinCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	playerId, _, err := room.Join(joinCtx, "Carol")
	require.NoError(t, err)
	assert.NotEmpty(t, playerId)

	// Second lookup returns the same actor, not a second revival.
	again, err := reg.Lookup(ctx, "ABCDE")
	require.NoError(t, err)
	assert.Same(t, room, again)
}

// A create whose initial join never completes must not leave an empty
// actor registered forever; nobody else knows the code to ever join it.
func TestRegistryCreateRoomAbortedJoin(t *testing.T) {
	reg, store, _ := newTestRegistry()
	store.blockSave = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, _, _, err := reg.CreateRoom(ctx, "Alice")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(store.blockSave)
	require.Eventually(t, func() bool {
		reg.mu.RLock()
		defer reg.mu.RUnlock()
		return len(reg.rooms) == 0
	}, 2*time.Second, 10*time.Millisecond, "aborted room still registered")
}

func TestRegistryDropsEmptyRoom(t *testing.T) {
	reg, store, _ := newTestRegistry()
	ctx := context.Background()

	code, playerId, secret, err := reg.CreateRoom(ctx, "Alice")
	require.NoError(t, err)

	room, err := reg.Lookup(ctx, code)
	require.NoError(t, err)

	sess := newFakeSession()
	room.Attach(sess, playerId, secret)
	room.Dispatch(sess, Action{Type: ActionLeaveLobby})

	// Teardown deletes the snapshot and unregisters the actor.
	require.Eventually(t, func() bool {
		return store.deleteCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := reg.Lookup(ctx, code)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}
