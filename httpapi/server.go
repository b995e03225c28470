// Package httpapi is the thin HTTP transport over the chat service.
// Handlers validate the session credential first, translate DTOs, and map
// the shared error taxonomy onto stable wire codes; no business logic
// lives here.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/creastat/dialog"
	"github.com/creastat/dialog/auth"
	"github.com/creastat/dialog/chat"
	"github.com/creastat/dialog/questionnaire"
	"github.com/creastat/dialog/session"
)

// Server routes the session endpoints.
type Server struct {
	auth   *auth.Authenticator
	svc    *chat.Service
	logger *zap.Logger
}

// NewServer builds the handler tree.
func NewServer(authenticator *auth.Authenticator, svc *chat.Service, logger *zap.Logger) http.Handler {
	s := &Server{auth: authenticator, svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", s.handleIssueToken)
	mux.HandleFunc("POST /ask", s.requireSession(s.handleAsk))
	mux.HandleFunc("POST /questionnaire", s.requireSession(s.handleQuestionnaire))
	mux.HandleFunc("GET /questionnaire/result", s.requireSession(s.handleQuestionnaireResult))
	mux.HandleFunc("GET /history", s.requireSession(s.handleGetHistory))
	mux.HandleFunc("DELETE /history", s.requireSession(s.handleClearHistory))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type tokenResponse struct {
	Credential string `json:"credential"`
	SessionID  string `json:"session_id"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Reply string `json:"reply"`
}

type questionnaireRequest struct {
	AgeMonths int                               `json:"age_months"`
	Answers   map[string][]questionnaire.Answer `json:"answers"`
}

type turnResponse struct {
	Human     string    `json:"human"`
	Assistant string    `json:"assistant"`
	At        time.Time `json:"at"`
}

type historyResponse struct {
	Turns []turnResponse `json:"turns"`
}

type clearedResponse struct {
	Cleared bool `json:"cleared"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.NewSessionID()
	credential, err := s.auth.Issue(sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Credential: credential, SessionID: sessionID})
}

// requireSession validates the bearer credential before anything else
// runs. Authentication failures are terminal: no other component is
// touched.
func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		credential, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || credential == "" {
			s.writeError(w, dialog.ErrInvalidCredential)
			return
		}
		sessionID, err := s.auth.Validate(credential)
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, sessionID)
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, dialog.ErrValidation)
		return
	}

	reply, err := s.svc.Ask(r.Context(), sessionID, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Reply: reply})
}

func (s *Server) handleQuestionnaire(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req questionnaireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, dialog.ErrValidation)
		return
	}

	result, err := s.svc.SubmitQuestionnaire(r.Context(), sessionID, req.AgeMonths, req.Answers)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuestionnaireResult(w http.ResponseWriter, r *http.Request, sessionID string) {
	result, err := s.svc.QuestionnaireResult(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request, sessionID string) {
	turns, err := s.svc.History(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Turns: toTurnResponses(turns)})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request, sessionID string) {
	alsoQuestionnaire := r.URL.Query().Get("questionnaire") == "1"
	if err := s.svc.ClearHistory(r.Context(), sessionID, alsoQuestionnaire); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clearedResponse{Cleared: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var statusByCode = map[string]int{
	"invalid_credential": http.StatusUnauthorized,
	"expired_credential": http.StatusUnauthorized,
	"store_unavailable":  http.StatusServiceUnavailable,
	"upstream_timeout":   http.StatusGatewayTimeout,
	"prompt_too_large":   http.StatusRequestEntityTooLarge,
	"validation_error":   http.StatusBadRequest,
	"not_found":          http.StatusNotFound,
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, message := dialog.Coded(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
		s.logger.Error("request failed", zap.Error(err))
	} else if !errors.Is(err, dialog.ErrInvalidCredential) && !errors.Is(err, dialog.ErrExpiredCredential) {
		s.logger.Warn("request failed", zap.String("code", code), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func toTurnResponses(turns []session.Turn) []turnResponse {
	out := make([]turnResponse, len(turns))
	for i, t := range turns {
		out[i] = turnResponse{Human: t.Human, Assistant: t.Assistant, At: t.At}
	}
	return out
}
