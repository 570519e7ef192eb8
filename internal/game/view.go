package game

import (
	"sort"
	"time"
)

// PlayerView is one roster entry as a specific viewer is allowed to see
// it. Role is empty unless the viewer may see it.
type PlayerView struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Alive  bool   `json:"alive"`
	IsHost bool   `json:"isHost"`
	Role   Role   `json:"role,omitempty"`
}

// ThreadView is a DM thread resolved to the viewer's peer, newest thread
// first in RoomView.Threads.
type ThreadView struct {
	PeerId   string        `json:"peerId"`
	PeerName string        `json:"peerName"`
	Messages []ChatMessage `json:"messages"`
}

// RoomView is the per-viewer projection of room state. Everything a client
// renders comes from here; the Presenter is the only place that decides
// what a viewer may know.
type RoomView struct {
	Code            string         `json:"code"`
	Phase           Phase          `json:"phase"`
	Round           int            `json:"round"`
	Winner          Winner         `json:"winner,omitempty"`
	HostId          string         `json:"hostId"`
	YouId           string         `json:"youId"`
	YourRole        Role           `json:"yourRole,omitempty"`
	YouAlive        bool           `json:"youAlive"`
	CanChat         bool           `json:"canChat"`
	TimeRemainingMs int64          `json:"timeRemainingMs"`
	Players         []PlayerView   `json:"players"`
	Chat            []ChatMessage  `json:"chat"`
	Threads         []ThreadView   `json:"threads"`
	Rounds          []RoundSummary `json:"rounds"`

	// Reveal block, present only for dead viewers and once the game ended.
	MafiaId    string `json:"mafiaId,omitempty"`
	GuardianId string `json:"guardianId,omitempty"`

	// Mafia-only fields.
	PendingKillId string `json:"pendingKillId,omitempty"`
	CooldownMs    int64  `json:"cooldownMs,omitempty"`
	KillUsed      bool   `json:"killUsed,omitempty"`

	// Guardian-only field.
	PendingSaveId string `json:"pendingSaveId,omitempty"`
}

// RoundResult is the per-viewer push sent once per round resolution.
type RoundResult struct {
	Round              int    `json:"round"`
	EliminatedId       string `json:"eliminatedId,omitempty"`
	EliminatedName     string `json:"eliminatedName,omitempty"`
	SurvivedBySaveId   string `json:"survivedBySaveId,omitempty"`
	SurvivedBySaveName string `json:"survivedBySaveName,omitempty"`
	YouWereEliminated  bool   `json:"youWereEliminated"`
	Winner             Winner `json:"winner,omitempty"`

	// Reveal block for viewers who are allowed the endgame/death reveal.
	MafiaId      string `json:"mafiaId,omitempty"`
	MafiaName    string `json:"mafiaName,omitempty"`
	GuardianId   string `json:"guardianId,omitempty"`
	GuardianName string `json:"guardianName,omitempty"`
}

// revealActiveFor reports whether hidden identities are exposed to this
// viewer: dead players see everything, and the endgame reveals to all.
func (s *RoomState) revealActiveFor(viewer *Player) bool {
	if s.Phase == PhaseEnded {
		return true
	}
	return viewer != nil && !viewer.Alive && s.Phase != PhaseLobby
}

// BuildView produces the filtered snapshot for one viewer.
func (s *RoomState) BuildView(viewerId string, now time.Time) RoomView {
	viewer := s.Player(viewerId)
	reveal := s.revealActiveFor(viewer)

	view := RoomView{
		Code:    s.Code,
		Phase:   s.Phase,
		Round:   s.Round,
		Winner:  s.Winner,
		HostId:  s.HostId,
		YouId:   viewerId,
		Chat:    s.MainChat,
		Rounds:  s.Rounds,
		Players: make([]PlayerView, 0, len(s.Players)),
		Threads: make([]ThreadView, 0),
	}

	if viewer != nil {
		view.YouAlive = viewer.Alive
		view.CanChat = s.Phase == PhaseLobby || viewer.Alive
		if s.Phase != PhaseLobby {
			view.YourRole = viewer.Role
		}
	}

	if s.Phase == PhaseInRound && s.RoundEndsAt != nil {
		if remaining := s.RoundEndsAt.Sub(now); remaining > 0 {
			view.TimeRemainingMs = remaining.Milliseconds()
		}
	}

	for _, id := range s.PlayerIds() {
		p := s.Players[id]
		pv := PlayerView{
			Id:     p.Id,
			Name:   p.Name,
			Alive:  p.Alive,
			IsHost: p.Id == s.HostId,
		}
		if s.Phase != PhaseLobby && (p.Id == viewerId || reveal) {
			pv.Role = p.Role
		}
		view.Players = append(view.Players, pv)
	}

	if reveal {
		view.MafiaId = s.MafiaId
		view.GuardianId = s.GuardianId
	}

	// Pending actions never leak past the role that recorded them, not
	// even after the reveal.
	if viewerId == s.MafiaId {
		view.PendingKillId = s.PendingKillId
		view.KillUsed = s.KillUsedRound == s.Round && s.Phase == PhaseInRound
		if s.LastKillAt != nil {
			if cd := KillCooldown - now.Sub(*s.LastKillAt); cd > 0 {
				view.CooldownMs = cd.Milliseconds()
			}
		}
	}
	if viewerId == s.GuardianId {
		view.PendingSaveId = s.PendingSaveId
	}

	view.Threads = s.buildThreads(viewerId)
	return view
}

// buildThreads filters DM threads down to the pairs involving the viewer,
// most recently active first.
func (s *RoomState) buildThreads(viewerId string) []ThreadView {
	threads := make([]ThreadView, 0)
	for key, msgs := range s.PrivateChats {
		peerId := PairPeer(key, viewerId)
		if peerId == "" || len(msgs) == 0 {
			continue
		}
		peerName := peerId
		if peer := s.Player(peerId); peer != nil {
			peerName = peer.Name
		}
		threads = append(threads, ThreadView{
			PeerId:   peerId,
			PeerName: peerName,
			Messages: msgs,
		})
	}
	sort.Slice(threads, func(i, j int) bool {
		a := threads[i].Messages[len(threads[i].Messages)-1].SentAt
		b := threads[j].Messages[len(threads[j].Messages)-1].SentAt
		if a.Equal(b) {
			return threads[i].PeerId < threads[j].PeerId
		}
		return a.After(b)
	})
	return threads
}

// BuildRoundResult produces the per-viewer resolution push for one round
// summary.
func (s *RoomState) BuildRoundResult(summary RoundSummary, viewerId string) RoundResult {
	viewer := s.Player(viewerId)
	result := RoundResult{
		Round:             summary.Round,
		EliminatedId:      summary.EliminatedId,
		SurvivedBySaveId:  summary.SurvivedBySaveId,
		YouWereEliminated: summary.EliminatedId != "" && summary.EliminatedId == viewerId,
		Winner:            s.Winner,
	}
	if p := s.Player(summary.EliminatedId); p != nil {
		result.EliminatedName = p.Name
	}
	if p := s.Player(summary.SurvivedBySaveId); p != nil {
		result.SurvivedBySaveName = p.Name
	}
	if s.revealActiveFor(viewer) {
		result.MafiaId = s.MafiaId
		result.GuardianId = s.GuardianId
		if p := s.Player(s.MafiaId); p != nil {
			result.MafiaName = p.Name
		}
		if p := s.Player(s.GuardianId); p != nil {
			result.GuardianName = p.Name
		}
	}
	return result
}
