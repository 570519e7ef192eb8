package game

import (
	"context"
	"sync"
	"time"
)

// --- Clock ---

type fakeTimer struct {
	at      time.Time
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every due timer, in schedule
// order, outside the lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.at.After(c.now) {
			due = append(due, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// --- SnapshotStore ---

type fakeStore struct {
	mu      sync.Mutex
	saves   int
	deletes int
	saved   map[string]*RoomState

	// blockSave, when set, stalls every Save until the channel is closed.
	blockSave chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string]*RoomState)}
}

func (f *fakeStore) Save(_ context.Context, state *RoomState) error {
	if f.blockSave != nil {
		<-f.blockSave
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.saved[state.Code] = state
	return nil
}

func (f *fakeStore) Load(_ context.Context, code string) (*RoomState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if state, ok := f.saved[code]; ok {
		return state, nil
	}
	return nil, ErrRoomNotFound
}

func (f *fakeStore) Delete(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.saved, code)
	return nil
}

func (f *fakeStore) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

// --- Session ---

type fakeSession struct {
	pushes      chan any
	mu          sync.Mutex
	invalidated bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{pushes: make(chan any, 128)}
}

func (f *fakeSession) Push(msg any) {
	select {
	case f.pushes <- msg:
	default:
	}
}

func (f *fakeSession) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = true
}

func (f *fakeSession) isInvalidated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated
}
