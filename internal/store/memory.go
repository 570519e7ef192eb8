package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/h-harder/onlinemafia/internal/game"
)

// Memory keeps snapshots in-process. It backs tests and DB-less local
// runs; rooms do not survive a restart with it.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{snaps: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, state *game.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[state.Code] = data
	return nil
}

func (m *Memory) Load(_ context.Context, code string) (*game.RoomState, error) {
	m.mu.RLock()
	data, ok := m.snaps[code]
	m.mu.RUnlock()
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	var state game.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, code)
	return nil
}
