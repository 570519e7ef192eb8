package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/h-harder/onlinemafia/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS room_snapshots (
	code       TEXT PRIMARY KEY,
	snapshot   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres persists whole-room snapshots as JSONB rows keyed by room code.
// Saves are upserts; the engine never does partial writes.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, state *game.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO room_snapshots (code, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (code) DO UPDATE SET snapshot = $2, updated_at = now()`,
		state.Code, data)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, code string) (*game.RoomState, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT snapshot FROM room_snapshots WHERE code = $1`, code).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, game.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	var state game.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("corrupt snapshot for %s: %w", code, err)
	}
	return &state, nil
}

func (p *Postgres) Delete(ctx context.Context, code string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM room_snapshots WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
