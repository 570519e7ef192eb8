package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/h-harder/onlinemafia/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler attaches a connection to a room. The player proves
// ownership of an existing seat with the (playerId, secret) pair handed
// out at join time; multiple concurrent sockets per player are fine.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerId := r.URL.Query().Get("playerId")
	secret := r.URL.Query().Get("secret")

	room, err := s.registry.Lookup(r.Context(), code)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := game.NewConn(ws, s.log.With().Str("room", room.Code()).Str("player", playerId).Logger())
	go conn.WriteLoop()
	room.Attach(conn, playerId, secret)
	conn.ReadLoop(room)
}
