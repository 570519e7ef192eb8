package game

import (
	"sort"
	"time"
)

const (
	RoundDuration    = 120 * time.Second
	KillCooldown     = 60 * time.Second
	MinPlayersToRun  = 4
	RoomCodeLength   = 5
	MainChatCap      = 200
	PrivateChatCap   = 120
	MaxNameLength    = 24
	MaxMessageLength = 500
)

type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhaseInRound Phase = "in_round"
	PhaseEnded   Phase = "ended"
)

type Role string

const (
	RoleVillager Role = "villager"
	RoleMafia    Role = "mafia"
	RoleGuardian Role = "guardian"
)

type Winner string

const (
	WinnerMafia     Winner = "mafia"
	WinnerVillagers Winner = "villagers"
)

type MessageKind string

const (
	KindSystem MessageKind = "system"
	KindChat   MessageKind = "chat"
)

type Player struct {
	Id           string     `json:"id"`
	Name         string     `json:"name"`
	Secret       string     `json:"secret"`
	Role         Role       `json:"role"`
	Alive        bool       `json:"alive"`
	JoinedAt     time.Time  `json:"joined_at"`
	JoinSeq      int        `json:"join_seq"`
	EliminatedAt *time.Time `json:"eliminated_at,omitempty"`
}

type ChatMessage struct {
	Id         string      `json:"id"`
	Kind       MessageKind `json:"kind"`
	SenderId   string      `json:"sender_id,omitempty"`
	SenderName string      `json:"sender_name,omitempty"`
	Text       string      `json:"text"`
	SentAt     time.Time   `json:"sent_at"`
}

// RoundSummary records one resolved round. Entries are append-only.
type RoundSummary struct {
	Id               string    `json:"id"`
	Round            int       `json:"round"`
	PendingKillId    string    `json:"pending_kill_id,omitempty"`
	PendingSaveId    string    `json:"pending_save_id,omitempty"`
	EliminatedId     string    `json:"eliminated_id,omitempty"`
	SurvivedBySaveId string    `json:"survived_by_save_id,omitempty"`
	ResolvedAt       time.Time `json:"resolved_at"`
}

// RoomState is everything about one game instance that survives a restart.
// It is owned by a single Room actor; nothing outside the actor loop may
// mutate it.
type RoomState struct {
	Code        string     `json:"code"`
	HostId      string     `json:"host_id"`
	Phase       Phase      `json:"phase"`
	Round       int        `json:"round"`
	RoundEndsAt *time.Time `json:"round_ends_at,omitempty"`
	Winner      Winner     `json:"winner,omitempty"`

	MafiaId    string `json:"mafia_id,omitempty"`
	GuardianId string `json:"guardian_id,omitempty"`

	PendingKillId string     `json:"pending_kill_id,omitempty"`
	PendingSaveId string     `json:"pending_save_id,omitempty"`
	LastKillAt    *time.Time `json:"last_kill_at,omitempty"`
	KillUsedRound int        `json:"kill_used_round,omitempty"`
	JoinCounter   int        `json:"join_counter,omitempty"`

	Players      map[string]*Player       `json:"players"`
	MainChat     []ChatMessage            `json:"main_chat"`
	PrivateChats map[string][]ChatMessage `json:"private_chats"`
	Rounds       []RoundSummary           `json:"rounds"`
}

func NewRoomState(code string) *RoomState {
	return &RoomState{
		Code:         code,
		Phase:        PhaseLobby,
		Players:      make(map[string]*Player),
		MainChat:     make([]ChatMessage, 0),
		PrivateChats: make(map[string][]ChatMessage),
		Rounds:       make([]RoundSummary, 0),
	}
}

func (s *RoomState) Player(id string) *Player {
	return s.Players[id]
}

// AliveIds returns alive player ids ordered by join time so that random
// selection over them is reproducible with a seeded source.
func (s *RoomState) AliveIds() []string {
	return s.sortedIds(func(p *Player) bool { return p.Alive })
}

func (s *RoomState) PlayerIds() []string {
	return s.sortedIds(func(p *Player) bool { return true })
}

func (s *RoomState) sortedIds(keep func(p *Player) bool) []string {
	ids := make([]string, 0, len(s.Players))
	for id, p := range s.Players {
		if keep(p) {
			ids = append(ids, id)
		}
	}
	sortByJoinTime(ids, s.Players)
	return ids
}

// sortByJoinTime orders by arrival. The join sequence number breaks
// timestamp ties, so "earliest joiner" stays deterministic even when two
// players land on the same clock reading.
func sortByJoinTime(ids []string, players map[string]*Player) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := players[ids[i]], players[ids[j]]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		if a.JoinSeq != b.JoinSeq {
			return a.JoinSeq < b.JoinSeq
		}
		return a.Id < b.Id
	})
}

func (s *RoomState) AliveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Alive {
			n++
		}
	}
	return n
}
