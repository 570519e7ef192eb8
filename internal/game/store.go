package game

import "context"

// SnapshotStore is the engine's only demand on persistence: load, save and
// delete whole-room snapshots keyed by room code. Implementations live in
// internal/store.
type SnapshotStore interface {
	Save(ctx context.Context, state *RoomState) error
	Load(ctx context.Context, code string) (*RoomState, error)
	Delete(ctx context.Context, code string) error
}
