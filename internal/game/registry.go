package game

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const createAttempts = 16

// Registry maps room codes to live Room actors. Rooms are created on the
// first successful join of a fresh code, revived from the snapshot store
// after a restart, and dropped when their roster empties. It is injected
// into the transport layer rather than living in package globals.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	store SnapshotStore
	clock Clock
	log   zerolog.Logger
}

func NewRegistry(store SnapshotStore, clock Clock, log zerolog.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		store: store,
		clock: clock,
		log:   log,
	}
}

// CreateRoom generates a fresh unique code, spins up the actor and joins
// the creating player as host.
func (reg *Registry) CreateRoom(ctx context.Context, name string) (code, playerId, secret string, err error) {
	for i := 0; i < createAttempts; i++ {
		candidate := GenerateCode()
		if reg.exists(ctx, candidate) {
			continue
		}

		room := reg.spawn(NewRoomState(candidate))
		playerId, secret, err = room.Join(ctx, name)
		if err != nil {
			// An aborted create must not leave an empty actor registered
			// forever; nobody else knows the code to ever join it.
			room.Close()
			return "", "", "", err
		}
		return candidate, playerId, secret, nil
	}
	return "", "", "", ErrCodeExhausted
}

// JoinRoom adds a player to an existing room.
func (reg *Registry) JoinRoom(ctx context.Context, code, name string) (playerId, secret string, err error) {
	room, err := reg.Lookup(ctx, code)
	if err != nil {
		return "", "", err
	}
	return room.Join(ctx, name)
}

// Lookup finds the live actor for a code, reviving it from the snapshot
// store if the process restarted since the room was last active.
func (reg *Registry) Lookup(ctx context.Context, code string) (*Room, error) {
	code, ok := NormalizeCode(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	reg.mu.RLock()
	room := reg.rooms[code]
	reg.mu.RUnlock()
	if room != nil {
		return room, nil
	}

	state, err := reg.store.Load(ctx, code)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if existing := reg.rooms[code]; existing != nil {
		return existing, nil
	}
	room = reg.newRoom(state)
	reg.rooms[code] = room
	room.Start()
	reg.log.Info().Str("room", code).Msg("room revived from snapshot")
	return room, nil
}

func (reg *Registry) spawn(state *RoomState) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room := reg.newRoom(state)
	reg.rooms[state.Code] = room
	room.Start()
	reg.log.Info().Str("room", state.Code).Msg("room created")
	return room
}

func (reg *Registry) newRoom(state *RoomState) *Room {
	return NewRoom(state, RoomConfig{
		Store:   reg.store,
		Clock:   reg.clock,
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:  reg.log,
		OnEmpty: reg.drop,
	})
}

func (reg *Registry) drop(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, code)
}

func (reg *Registry) exists(ctx context.Context, code string) bool {
	reg.mu.RLock()
	_, live := reg.rooms[code]
	reg.mu.RUnlock()
	if live {
		return true
	}
	_, err := reg.store.Load(ctx, code)
	return err == nil
}
