package game

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
)

// Session is one live connection attached to a logical player. A player
// may hold several sessions at once (extra tabs, reconnects).
type Session interface {
	// Push enqueues an outbound envelope; it must never block the caller.
	Push(msg any)
	// Invalidate tells the connection its session is gone and closes it.
	Invalidate()
}

// Room is the single-writer actor owning one game instance. Every inbound
// action, timer expiry and departure is funneled through the inbox and
// processed strictly one at a time, so no two mutations of the same room
// ever interleave. Snapshots are persisted before any broadcast goes out.
type Room struct {
	code  string
	state *RoomState

	store   SnapshotStore
	clock   Clock
	rng     *rand.Rand
	log     zerolog.Logger
	onEmpty func(code string)

	inbox chan event
	quit  chan struct{}

	conns map[Session]string
	timer Timer
}

type RoomConfig struct {
	Store   SnapshotStore
	Clock   Clock
	Rand    *rand.Rand
	Logger  zerolog.Logger
	OnEmpty func(code string)
}

type event interface{}

type joinReply struct {
	playerId string
	secret   string
	err      error
}

type evJoin struct {
	name  string
	reply chan joinReply
}

type evAttach struct {
	sess     Session
	playerId string
	secret   string
}

type evDetach struct {
	sess Session
}

type evAction struct {
	sess   Session
	action Action
}

type evRoundExpired struct {
	round int
}

type evClose struct{}

func NewRoom(state *RoomState, cfg RoomConfig) *Room {
	return &Room{
		code:    state.Code,
		state:   state,
		store:   cfg.Store,
		clock:   cfg.Clock,
		rng:     cfg.Rand,
		log:     cfg.Logger.With().Str("room", state.Code).Logger(),
		onEmpty: cfg.OnEmpty,
		inbox:   make(chan event, 256),
		quit:    make(chan struct{}),
		conns:   make(map[Session]string),
	}
}

// Start launches the actor loop. A room revived mid-round schedules its
// wake-up immediately so an overdue resolution catches up.
func (r *Room) Start() {
	if r.state.Phase == PhaseInRound {
		r.scheduleRoundEnd()
	}
	go r.run()
}

func (r *Room) Code() string { return r.code }

// Join registers a new player. Serialized through the actor like every
// other mutation; blocks until the room answers or ctx expires.
func (r *Room) Join(ctx context.Context, name string) (playerId, secret string, err error) {
	reply := make(chan joinReply, 1)
	select {
	case r.inbox <- evJoin{name: name, reply: reply}:
	case <-r.quit:
		return "", "", ErrRoomNotFound
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
	select {
	case res := <-reply:
		return res.playerId, res.secret, res.err
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

// Attach presents (playerId, secret) for an open connection. On mismatch
// the session is invalidated instead of returning an error: the transport
// only ever learns outcomes through pushes.
func (r *Room) Attach(sess Session, playerId, secret string) {
	r.post(evAttach{sess: sess, playerId: playerId, secret: secret})
}

func (r *Room) Detach(sess Session) {
	r.post(evDetach{sess: sess})
}

func (r *Room) Dispatch(sess Session, action Action) {
	r.post(evAction{sess: sess, action: action})
}

// Close tears the room down regardless of roster. Used when a freshly
// created room never received its first player, so the usual empty-roster
// teardown can never trigger.
func (r *Room) Close() {
	r.post(evClose{})
}

func (r *Room) post(ev event) {
	select {
	case r.inbox <- ev:
	case <-r.quit:
	}
}

func (r *Room) run() {
	for {
		select {
		case <-r.quit:
			return
		case ev := <-r.inbox:
			switch ev := ev.(type) {
			case evJoin:
				r.handleJoin(ev)
			case evAttach:
				r.handleAttach(ev)
			case evDetach:
				r.handleDetach(ev)
			case evAction:
				r.handleAction(ev)
			case evRoundExpired:
				r.handleRoundExpired(ev)
			case evClose:
				r.teardown()
			}
		}
	}
}

func (r *Room) handleJoin(ev evJoin) {
	if r.state.Phase != PhaseLobby {
		ev.reply <- joinReply{err: ErrGameStarted}
		return
	}

	now := r.clock.Now()
	r.state.JoinCounter++
	player := &Player{
		Id:       uuid.NewString(),
		Name:     SanitizeName(ev.name),
		Secret:   uuid.NewString(),
		Role:     RoleVillager,
		Alive:    true,
		JoinedAt: now,
		JoinSeq:  r.state.JoinCounter,
	}
	r.state.Players[player.Id] = player
	if r.state.HostId == "" {
		r.state.HostId = player.Id
	}
	r.state.AppendSystem(fmt.Sprintf("%s joined the lobby.", player.Name), now)

	r.persist()
	r.broadcastState()
	r.log.Info().Str("player", player.Id).Int("roster", len(r.state.Players)).Msg("player joined")
	ev.reply <- joinReply{playerId: player.Id, secret: player.Secret}
}

func (r *Room) handleAttach(ev evAttach) {
	player := r.state.Player(ev.playerId)
	if player == nil || player.Secret != ev.secret {
		ev.sess.Push(Message[ErrorData]{Type: TypeSessionInvalid, Data: ErrorData{Error: ErrSessionInvalid.Error()}})
		ev.sess.Invalidate()
		return
	}
	r.conns[ev.sess] = player.Id
	ev.sess.Push(Message[RoomView]{Type: TypeState, Data: r.state.BuildView(player.Id, r.clock.Now())})
	r.log.Debug().Str("player", player.Id).Msg("session attached")
}

// handleDetach drops one session. Only when a player's last session is
// gone do they count as departed; closing one of several tabs is not a
// leave.
func (r *Room) handleDetach(ev evDetach) {
	playerId, ok := r.conns[ev.sess]
	if !ok {
		return
	}
	delete(r.conns, ev.sess)
	for _, pid := range r.conns {
		if pid == playerId {
			return
		}
	}
	r.departPlayer(playerId, "disconnected")
}

func (r *Room) handleAction(ev evAction) {
	playerId, ok := r.conns[ev.sess]
	if !ok || r.state.Player(playerId) == nil {
		ev.sess.Push(Message[ErrorData]{Type: TypeSessionInvalid, Data: ErrorData{Error: ErrSessionInvalid.Error()}})
		ev.sess.Invalidate()
		delete(r.conns, ev.sess)
		return
	}

	action := ev.action
	now := r.clock.Now()
	var err error

	switch action.Type {
	case ActionStartGame:
		if err = r.state.StartGame(playerId, now, r.rng); err == nil {
			r.scheduleRoundEnd()
		}
	case ActionSendMain:
		err = r.sendMain(playerId, action.Text, now)
	case ActionSendPrivate:
		err = r.sendPrivate(playerId, action.ToId, action.Text, now)
	case ActionMafiaKill:
		err = r.state.RecordKill(playerId, action.TargetId, now)
	case ActionGuardianSave:
		err = r.state.RecordSave(playerId, action.TargetId)
	case ActionLeaveLobby:
		ev.sess.Push(okAck(action.ReqId))
		r.departPlayer(playerId, "left")
		return
	default:
		err = ErrUnknownActionType
	}

	if err != nil {
		// Rejected actions leave state untouched and produce no broadcast.
		ev.sess.Push(errAck(action.ReqId, err))
		return
	}

	r.persist()
	ev.sess.Push(okAck(action.ReqId))
	r.broadcastState()
}

func (r *Room) sendMain(playerId, text string, now time.Time) error {
	player := r.state.Player(playerId)
	if r.state.Phase != PhaseLobby && !player.Alive {
		return ErrCannotChat
	}
	if err := validateChatText(text); err != nil {
		return err
	}
	r.state.AppendMain(player, text, now)
	return nil
}

func (r *Room) sendPrivate(playerId, toId, text string, now time.Time) error {
	player := r.state.Player(playerId)
	if r.state.Phase != PhaseLobby && !player.Alive {
		return ErrCannotChat
	}
	if err := validateChatText(text); err != nil {
		return err
	}
	if toId == "" || toId == playerId || r.state.Player(toId) == nil {
		return ErrUnknownRecipient
	}
	r.state.AppendPrivate(player, toId, text, now)
	return nil
}

// handleRoundExpired runs resolution for a wake-up. Stale timers (from a
// round that already resolved through some other path) are dropped by the
// round-number check on top of ResolveRound's own phase guard.
func (r *Room) handleRoundExpired(ev evRoundExpired) {
	if r.state.Phase != PhaseInRound || ev.round != r.state.Round {
		return
	}
	summary := r.state.ResolveRound(r.clock.Now())
	if summary == nil {
		return
	}
	if r.state.Phase == PhaseInRound {
		r.scheduleRoundEnd()
	} else {
		r.stopTimer()
	}

	r.persist()
	r.pushRoundResult(*summary)
	r.broadcastState()
	r.log.Info().Int("round", summary.Round).Str("eliminated", summary.EliminatedId).Msg("round resolved")
}

// departPlayer removes a player entirely: explicit leave and last-socket
// disconnect land here. Idempotent for players already gone.
func (r *Room) departPlayer(playerId, verb string) {
	now := r.clock.Now()
	leaver := r.state.RemovePlayer(playerId, now, r.rng)
	if leaver == nil {
		return
	}

	for sess, pid := range r.conns {
		if pid == playerId {
			delete(r.conns, sess)
			sess.Push(Message[ErrorData]{Type: TypeSessionInvalid, Data: ErrorData{Error: ErrSessionInvalid.Error()}})
			sess.Invalidate()
		}
	}

	if len(r.state.Players) == 0 {
		r.teardown()
		return
	}

	r.state.AppendSystem(fmt.Sprintf("%s %s.", leaver.Name, verb), now)
	if r.state.Phase != PhaseInRound {
		r.stopTimer()
	}

	r.persist()
	r.broadcastState()
	r.log.Info().Str("player", playerId).Str("reason", verb).Msg("player departed")
}

// teardown destroys the room once the roster is empty: expected lifecycle,
// not a failure.
func (r *Room) teardown() {
	r.stopTimer()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Delete(ctx, r.code); err != nil {
		r.log.Error().Err(err).Msg("failed to delete snapshot")
	}

	for sess := range r.conns {
		delete(r.conns, sess)
		sess.Invalidate()
	}
	close(r.quit)
	if r.onEmpty != nil {
		r.onEmpty(r.code)
	}
	r.log.Info().Msg("room torn down")
}

func (r *Room) scheduleRoundEnd() {
	r.stopTimer()
	if r.state.RoundEndsAt == nil {
		return
	}
	round := r.state.Round
	delay := r.state.RoundEndsAt.Sub(r.clock.Now())
	if delay < 0 {
		delay = 0
	}
	r.timer = r.clock.AfterFunc(delay, func() {
		r.post(evRoundExpired{round: round})
	})
}

func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// persist writes the snapshot before anything is broadcast, so a crash
// between mutate and persist is never observable by other viewers.
func (r *Room) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Save(ctx, r.state); err != nil {
		r.log.Error().Err(err).Msg("failed to persist snapshot")
	}
}

type outboundPush struct {
	sess Session
	msg  any
}

// broadcastState sends the per-viewer projection to every attached
// session. One view is built per player, then fanned out to all of that
// player's sessions. A slow or broken session never blocks the others:
// Push is non-blocking and the fan-out is parallel.
func (r *Room) broadcastState() {
	now := r.clock.Now()
	views := make(map[string]Message[RoomView], len(r.conns))
	batch := make([]outboundPush, 0, len(r.conns))
	for sess, playerId := range r.conns {
		msg, ok := views[playerId]
		if !ok {
			msg = Message[RoomView]{Type: TypeState, Data: r.state.BuildView(playerId, now)}
			views[playerId] = msg
		}
		batch = append(batch, outboundPush{sess: sess, msg: msg})
	}
	iter.ForEach(batch, func(p *outboundPush) {
		p.sess.Push(p.msg)
	})
}

func (r *Room) pushRoundResult(summary RoundSummary) {
	results := make(map[string]Message[RoundResult], len(r.conns))
	batch := make([]outboundPush, 0, len(r.conns))
	for sess, playerId := range r.conns {
		msg, ok := results[playerId]
		if !ok {
			msg = Message[RoundResult]{Type: TypeRoundResult, Data: r.state.BuildRoundResult(summary, playerId)}
			results[playerId] = msg
		}
		batch = append(batch, outboundPush{sess: sess, msg: msg})
	}
	iter.ForEach(batch, func(p *outboundPush) {
		p.sess.Push(p.msg)
	})
}
