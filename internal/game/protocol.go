package game

// Message is the outbound push envelope shared by every server-to-client
// payload.
type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Action kinds accepted over an established connection.
const (
	ActionStartGame    = "start_game"
	ActionSendMain     = "send_main_message"
	ActionSendPrivate  = "send_private_message"
	ActionMafiaKill    = "mafia_kill"
	ActionGuardianSave = "guardian_save"
	ActionLeaveLobby   = "leave_lobby"
)

// Outbound envelope types.
const (
	TypeAck            = "ack"
	TypeState          = "state"
	TypeRoundResult    = "round_result"
	TypeError          = "error"
	TypeSessionInvalid = "session_invalid"
)

// Action is the inbound envelope. Payload fields not used by the given
// action type are ignored.
type Action struct {
	Type     string `json:"type"`
	ReqId    string `json:"reqId,omitempty"`
	Text     string `json:"text,omitempty"`
	ToId     string `json:"toId,omitempty"`
	TargetId string `json:"targetId,omitempty"`
}

// Ack answers exactly one inbound action, correlated by ReqId when the
// client supplied one.
type Ack struct {
	ReqId string `json:"reqId,omitempty"`
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type ErrorData struct {
	Error string `json:"error"`
}

func okAck(reqId string) Message[Ack] {
	return Message[Ack]{Type: TypeAck, Data: Ack{ReqId: reqId, Ok: true}}
}

func errAck(reqId string, err error) Message[Ack] {
	return Message[Ack]{Type: TypeAck, Data: Ack{ReqId: reqId, Ok: false, Error: err.Error()}}
}
