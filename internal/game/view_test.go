package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterView(view RoomView, id string) PlayerView {
	for _, pv := range view.Players {
		if pv.Id == id {
			return pv
		}
	}
	return PlayerView{}
}

func TestViewOwnRoleAlwaysVisible(t *testing.T) {
	s, _, start := startedState(t, 5, 5)

	for _, id := range s.PlayerIds() {
		view := s.BuildView(id, start)
		assert.Equal(t, s.Players[id].Role, view.YourRole)
	}
}

func TestViewHidesRolesFromAliveViewers(t *testing.T) {
	s, _, start := startedState(t, 5, 5)
	villager := pickVillager(t, s)

	view := s.BuildView(villager, start)
	assert.Empty(t, view.MafiaId)
	assert.Empty(t, view.GuardianId)
	for _, pv := range view.Players {
		if pv.Id == villager {
			assert.Equal(t, RoleVillager, pv.Role)
		} else {
			assert.Empty(t, pv.Role, "role of %s leaked to alive viewer", pv.Id)
		}
	}
}

func TestViewRevealsToDeadViewers(t *testing.T) {
	s, _, start := startedState(t, 5, 5)
	villager := pickVillager(t, s)
	s.Players[villager].Alive = false

	view := s.BuildView(villager, start)
	assert.Equal(t, s.MafiaId, view.MafiaId)
	assert.Equal(t, s.GuardianId, view.GuardianId)
	assert.Equal(t, RoleMafia, rosterView(view, s.MafiaId).Role)
	assert.Equal(t, RoleGuardian, rosterView(view, s.GuardianId).Role)
}

func TestViewRevealsToEveryoneWhenEnded(t *testing.T) {
	s, _, start := startedState(t, 5, 5)
	s.finish(WinnerMafia, start)

	for _, id := range s.PlayerIds() {
		view := s.BuildView(id, start)
		assert.Equal(t, s.MafiaId, view.MafiaId, "viewer %s", id)
		assert.Equal(t, s.GuardianId, view.GuardianId, "viewer %s", id)
		assert.Equal(t, WinnerMafia, view.Winner)
	}
}

func TestViewNoRolesInLobby(t *testing.T) {
	s := newTestState(4)
	view := s.BuildView("p1", testEpoch)
	assert.Empty(t, view.YourRole)
	for _, pv := range view.Players {
		assert.Empty(t, pv.Role)
	}
}

func TestViewPendingActionsScopedToRole(t *testing.T) {
	s, _, start := startedState(t, 5, 5)
	target := pickVillager(t, s)
	other := pickVillager(t, s, target)

	require.NoError(t, s.RecordKill(s.MafiaId, target, start.Add(5*time.Second)))
	require.NoError(t, s.RecordSave(s.GuardianId, other))

	mafiaView := s.BuildView(s.MafiaId, start.Add(6*time.Second))
	assert.Equal(t, target, mafiaView.PendingKillId)
	assert.Empty(t, mafiaView.PendingSaveId)

	guardianView := s.BuildView(s.GuardianId, start.Add(6*time.Second))
	assert.Equal(t, other, guardianView.PendingSaveId)
	assert.Empty(t, guardianView.PendingKillId)

	// Not even the dead reveal exposes pending actions.
	s.Players[target].Alive = false
	deadView := s.BuildView(target, start.Add(6*time.Second))
	assert.Empty(t, deadView.PendingKillId)
	assert.Empty(t, deadView.PendingSaveId)
}

func TestViewCooldownOnlyForMafia(t *testing.T) {
	s, _, start := startedState(t, 5, 5)
	target := pickVillager(t, s)
	require.NoError(t, s.RecordKill(s.MafiaId, target, start.Add(10*time.Second)))

	mafiaView := s.BuildView(s.MafiaId, start.Add(25*time.Second))
	assert.Equal(t, int64(45_000), mafiaView.CooldownMs)
	assert.True(t, mafiaView.KillUsed)

	// Elapsed cooldowns clamp to zero rather than going negative.
	lateView := s.BuildView(s.MafiaId, start.Add(100*time.Second))
	assert.Zero(t, lateView.CooldownMs)

	villagerView := s.BuildView(pickVillager(t, s, target), start.Add(25*time.Second))
	assert.Zero(t, villagerView.CooldownMs)
	assert.False(t, villagerView.KillUsed)
}

func TestViewCanChat(t *testing.T) {
	lobby := newTestState(4)
	assert.True(t, lobby.BuildView("p1", testEpoch).CanChat)

	s, _, start := startedState(t, 4, 5)
	villager := pickVillager(t, s)
	assert.True(t, s.BuildView(villager, start).CanChat)

	s.Players[villager].Alive = false
	assert.False(t, s.BuildView(villager, start).CanChat)
}

func TestViewTimeRemaining(t *testing.T) {
	s, _, start := startedState(t, 4, 5)

	view := s.BuildView("p1", start.Add(30*time.Second))
	assert.Equal(t, (90 * time.Second).Milliseconds(), view.TimeRemainingMs)

	// Clamped at zero once past the deadline.
	view = s.BuildView("p1", start.Add(RoundDuration+time.Second))
	assert.Zero(t, view.TimeRemainingMs)

	// Zero outside in_round.
	lobby := newTestState(4)
	assert.Zero(t, lobby.BuildView("p1", testEpoch).TimeRemainingMs)
}

func TestViewThreadsFilteredToViewer(t *testing.T) {
	s := newTestState(4)
	now := testEpoch
	s.AppendPrivate(s.Players["p1"], "p2", "hey p2", now)
	s.AppendPrivate(s.Players["p3"], "p4", "hey p4", now.Add(time.Second))
	s.AppendPrivate(s.Players["p2"], "p1", "hey back", now.Add(2*time.Second))
	s.AppendPrivate(s.Players["p1"], "p3", "hey p3", now.Add(3*time.Second))

	view := s.BuildView("p1", now.Add(4*time.Second))
	require.Len(t, view.Threads, 2)

	// Most recently active first, keyed to the peer.
	assert.Equal(t, "p3", view.Threads[0].PeerId)
	assert.Equal(t, "Player 3", view.Threads[0].PeerName)
	assert.Equal(t, "p2", view.Threads[1].PeerId)
	require.Len(t, view.Threads[1].Messages, 2)

	// p4 only ever talked to p3; p1's thread list must not contain it.
	for _, thread := range view.Threads {
		assert.NotEqual(t, "p4", thread.PeerId)
	}
}

func TestBuildRoundResult(t *testing.T) {
	s, _, start := startedState(t, 5, 5)
	target := pickVillager(t, s)
	require.NoError(t, s.RecordKill(s.MafiaId, target, start.Add(5*time.Second)))

	summary := s.ResolveRound(start.Add(RoundDuration))
	require.NotNil(t, summary)

	// The eliminated viewer gets the personal flag and the reveal block.
	deadResult := s.BuildRoundResult(*summary, target)
	assert.True(t, deadResult.YouWereEliminated)
	assert.Equal(t, s.MafiaId, deadResult.MafiaId)
	assert.NotEmpty(t, deadResult.MafiaName)

	// A surviving villager gets the public facts only.
	aliveResult := s.BuildRoundResult(*summary, pickVillager(t, s, target))
	assert.False(t, aliveResult.YouWereEliminated)
	assert.Equal(t, target, aliveResult.EliminatedId)
	assert.Empty(t, aliveResult.MafiaId)
}
