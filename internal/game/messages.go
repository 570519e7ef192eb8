package game

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PairKey builds the map key for the DM thread between two players. The
// pair is unordered, so both orderings produce the same key.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// PairPeer returns the other member of a pair key, or "" if the viewer is
// not part of the pair.
func PairPeer(key, viewerId string) string {
	a, b, ok := strings.Cut(key, "|")
	if !ok {
		return ""
	}
	switch viewerId {
	case a:
		return b
	case b:
		return a
	}
	return ""
}

// appendCapped appends to a FIFO log, evicting the oldest entry once the
// cap is reached.
func appendCapped(log []ChatMessage, msg ChatMessage, limit int) []ChatMessage {
	log = append(log, msg)
	if len(log) > limit {
		log = log[len(log)-limit:]
	}
	return log
}

func (s *RoomState) AppendMain(sender *Player, text string, now time.Time) ChatMessage {
	msg := ChatMessage{
		Id:         uuid.NewString(),
		Kind:       KindChat,
		SenderId:   sender.Id,
		SenderName: sender.Name,
		Text:       text,
		SentAt:     now,
	}
	s.MainChat = appendCapped(s.MainChat, msg, MainChatCap)
	return msg
}

func (s *RoomState) AppendSystem(text string, now time.Time) ChatMessage {
	msg := ChatMessage{
		Id:     uuid.NewString(),
		Kind:   KindSystem,
		Text:   text,
		SentAt: now,
	}
	s.MainChat = appendCapped(s.MainChat, msg, MainChatCap)
	return msg
}

func (s *RoomState) AppendPrivate(sender *Player, toId, text string, now time.Time) ChatMessage {
	msg := ChatMessage{
		Id:         uuid.NewString(),
		Kind:       KindChat,
		SenderId:   sender.Id,
		SenderName: sender.Name,
		Text:       text,
		SentAt:     now,
	}
	key := PairKey(sender.Id, toId)
	s.PrivateChats[key] = appendCapped(s.PrivateChats[key], msg, PrivateChatCap)
	return msg
}

// validateChatText enforces the shared bounds for chat and DM bodies.
func validateChatText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if len(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
