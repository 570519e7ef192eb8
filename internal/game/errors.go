package game

import "errors"

// Validation errors are surfaced verbatim in action acks, so the messages
// stay short and human-readable.
var (
	ErrRoomNotFound      = errors.New("lobby not found")
	ErrGameStarted       = errors.New("game already started")
	ErrCodeExhausted     = errors.New("duplicate code exhausted")
	ErrNotHost           = errors.New("only the host can start the game")
	ErrNotEnoughPlayers  = errors.New("need at least 4 players to start")
	ErrWrongPhase        = errors.New("not allowed in this phase")
	ErrNotMafia          = errors.New("you are not the mafia")
	ErrNotGuardian       = errors.New("you are not the guardian angel")
	ErrNotAlive          = errors.New("eliminated players cannot act")
	ErrKillUsed          = errors.New("kill already used this round")
	ErrCooldownActive    = errors.New("kill cooldown still active")
	ErrInvalidTarget     = errors.New("invalid target")
	ErrTargetDead        = errors.New("target is already eliminated")
	ErrSelfTarget        = errors.New("you cannot target yourself")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrMessageTooLong    = errors.New("message is too long")
	ErrUnknownRecipient  = errors.New("unknown recipient")
	ErrCannotChat        = errors.New("you cannot chat right now")
	ErrRateLimited       = errors.New("slow down")
	ErrSessionInvalid    = errors.New("session invalid")
	ErrUnknownActionType = errors.New("unknown action type")
)
