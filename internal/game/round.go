package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// StartGame moves the room from lobby into round 1. Host-only, requires at
// least MinPlayersToRun players. Roles come from a uniform shuffle of the
// roster: first id is mafia, second is guardian angel, the rest villagers.
func (s *RoomState) StartGame(actorId string, now time.Time, rng *rand.Rand) error {
	if s.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if actorId != s.HostId {
		return ErrNotHost
	}
	if len(s.Players) < MinPlayersToRun {
		return ErrNotEnoughPlayers
	}

	ids := s.PlayerIds()
	shuffleIds(rng, ids)
	s.MafiaId = ids[0]
	s.GuardianId = ids[1]

	for _, p := range s.Players {
		p.Alive = true
		p.EliminatedAt = nil
	}
	s.applyRoles()

	// A fresh game drops everything accumulated in the lobby.
	s.MainChat = s.MainChat[:0]
	s.PrivateChats = make(map[string][]ChatMessage)
	s.Rounds = s.Rounds[:0]

	s.Phase = PhaseInRound
	s.Round = 1
	ends := now.Add(RoundDuration)
	s.RoundEndsAt = &ends
	s.Winner = ""
	s.PendingKillId = ""
	s.PendingSaveId = ""
	s.LastKillAt = nil
	s.KillUsedRound = 0

	s.AppendSystem("The game has started. The mafia walks among you.", now)
	return nil
}

// RecordKill registers the mafia's pending kill for the current round.
// The round-number stamp, not the pending id, is what blocks a second
// attempt: even if the first target is later invalidated, the kill for
// this round is spent.
func (s *RoomState) RecordKill(actorId, targetId string, now time.Time) error {
	if s.Phase != PhaseInRound {
		return ErrWrongPhase
	}
	actor := s.Player(actorId)
	if actor == nil || actorId != s.MafiaId {
		return ErrNotMafia
	}
	if !actor.Alive {
		return ErrNotAlive
	}
	if s.KillUsedRound == s.Round {
		return ErrKillUsed
	}
	if s.LastKillAt != nil && now.Sub(*s.LastKillAt) < KillCooldown {
		return ErrCooldownActive
	}
	if targetId == actorId {
		return ErrSelfTarget
	}
	target := s.Player(targetId)
	if target == nil {
		return ErrInvalidTarget
	}
	if !target.Alive {
		return ErrTargetDead
	}

	s.PendingKillId = targetId
	s.LastKillAt = &now
	s.KillUsedRound = s.Round
	return nil
}

// RecordSave registers the guardian angel's pending shield. Self-save is
// allowed, there is no cooldown, and a later save overwrites an earlier
// one within the same round.
func (s *RoomState) RecordSave(actorId, targetId string) error {
	if s.Phase != PhaseInRound {
		return ErrWrongPhase
	}
	actor := s.Player(actorId)
	if actor == nil || actorId != s.GuardianId {
		return ErrNotGuardian
	}
	if !actor.Alive {
		return ErrNotAlive
	}
	target := s.Player(targetId)
	if target == nil {
		return ErrInvalidTarget
	}
	if !target.Alive {
		return ErrTargetDead
	}

	s.PendingSaveId = targetId
	return nil
}

// ResolveRound runs end-of-round resolution. It is a no-op outside
// in_round, which makes duplicate or late wake-ups harmless. The returned
// summary is nil only when the guard rejected the call.
func (s *RoomState) ResolveRound(now time.Time) *RoundSummary {
	if s.Phase != PhaseInRound {
		return nil
	}

	// Targets may have left or died since the action was recorded.
	if p := s.Player(s.PendingKillId); p == nil || !p.Alive {
		s.PendingKillId = ""
	}
	if p := s.Player(s.PendingSaveId); p == nil || !p.Alive {
		s.PendingSaveId = ""
	}

	summary := RoundSummary{
		Id:            uuid.NewString(),
		Round:         s.Round,
		PendingKillId: s.PendingKillId,
		PendingSaveId: s.PendingSaveId,
		ResolvedAt:    now,
	}

	switch {
	case s.PendingKillId != "" && s.PendingKillId == s.PendingSaveId:
		summary.SurvivedBySaveId = s.PendingKillId
		s.AppendSystem(fmt.Sprintf("%s was attacked, but the guardian angel intervened.", s.Player(s.PendingKillId).Name), now)
	case s.PendingKillId != "":
		target := s.Player(s.PendingKillId)
		target.Alive = false
		at := now
		target.EliminatedAt = &at
		summary.EliminatedId = target.Id
		s.AppendSystem(fmt.Sprintf("%s was eliminated during the night.", target.Name), now)
	default:
		s.AppendSystem("The night passed quietly. No one was eliminated.", now)
	}

	s.Rounds = append(s.Rounds, summary)
	s.PendingKillId = ""
	s.PendingSaveId = ""
	s.KillUsedRound = 0

	if winner, over := s.EvaluateWin(); over {
		s.finish(winner, now)
		return &summary
	}

	// The next round ends exactly one duration after the previous one, so
	// a late wake-up does not stretch the schedule.
	next := now.Add(RoundDuration)
	if s.RoundEndsAt != nil {
		next = s.RoundEndsAt.Add(RoundDuration)
	}
	s.Round++
	s.RoundEndsAt = &next
	return &summary
}

// EvaluateWin checks the two terminal conditions. Mafia wins once at most
// one non-mafia player is left alive; villagers win once the mafia is dead
// or absent.
func (s *RoomState) EvaluateWin() (Winner, bool) {
	aliveOthers := 0
	mafiaAlive := false
	for id, p := range s.Players {
		if !p.Alive {
			continue
		}
		if id == s.MafiaId {
			mafiaAlive = true
		} else {
			aliveOthers++
		}
	}

	if mafiaAlive && aliveOthers <= 1 {
		return WinnerMafia, true
	}
	if !mafiaAlive {
		return WinnerVillagers, true
	}
	return "", false
}

func (s *RoomState) finish(winner Winner, now time.Time) {
	s.Phase = PhaseEnded
	s.Winner = winner
	s.RoundEndsAt = nil
	switch winner {
	case WinnerMafia:
		s.AppendSystem("The mafia has taken over. Mafia wins.", now)
	case WinnerVillagers:
		s.AppendSystem("The mafia has been defeated. Villagers win.", now)
	}
}

// RemovePlayer deletes a player from the roster and repairs everything
// that referenced them: host, special roles, pending actions, and the win
// condition. Idempotent for ids that already left.
func (s *RoomState) RemovePlayer(id string, now time.Time, rng *rand.Rand) *Player {
	leaver := s.Player(id)
	if leaver == nil {
		return nil
	}
	delete(s.Players, id)

	if s.HostId == id {
		s.HostId = ""
		if remaining := s.PlayerIds(); len(remaining) > 0 {
			s.HostId = remaining[0]
		}
	}

	if s.PendingKillId == id {
		s.PendingKillId = ""
	}
	if s.PendingSaveId == id {
		s.PendingSaveId = ""
	}

	if s.MafiaId == id {
		s.MafiaId = ""
	}
	if s.GuardianId == id {
		s.GuardianId = ""
	}
	if s.Phase == PhaseInRound {
		s.backfillRoles(rng)

		if winner, over := s.EvaluateWin(); over {
			s.finish(winner, now)
		}
	}
	return leaver
}

// backfillRoles refills vacant special roles from the alive roster,
// keeping mafia and guardian on distinct players.
func (s *RoomState) backfillRoles(rng *rand.Rand) {
	alive := s.AliveIds()
	if s.MafiaId == "" {
		s.MafiaId = PickReplacement(rng, alive, s.GuardianId)
	}
	if s.GuardianId == "" {
		s.GuardianId = PickReplacement(rng, alive, s.MafiaId)
	}
	s.applyRoles()
}
