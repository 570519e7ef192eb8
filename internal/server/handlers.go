package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/h-harder/onlinemafia/internal/game"
)

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	Code     string `json:"code"`
	PlayerId string `json:"playerId"`
	Secret   string `json:"secret"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed payload"})
		return
	}

	code, playerId, secret, err := s.registry.CreateRoom(r.Context(), req.Name)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create room")
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, joinResponse{Code: code, PlayerId: playerId, Secret: secret})
}

func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed payload"})
		return
	}

	code := mux.Vars(r)["code"]
	gotCode, playerId, secret, err := s.joinRoom(r, code, req.Name)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, joinResponse{Code: gotCode, PlayerId: playerId, Secret: secret})
}

func (s *Server) joinRoom(r *http.Request, code, name string) (string, string, string, error) {
	normalized, ok := game.NormalizeCode(code)
	if !ok {
		return "", "", "", game.ErrRoomNotFound
	}
	playerId, secret, err := s.registry.JoinRoom(r.Context(), normalized, name)
	if err != nil {
		return "", "", "", err
	}
	return normalized, playerId, secret, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrGameStarted):
		return http.StatusConflict
	case errors.Is(err, game.ErrCodeExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
