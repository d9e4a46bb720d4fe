package handler

import (
	"encoding/json"
	"net/http"
	"oj_workbench/internal/api/middleware"
	"oj_workbench/internal/app/service"
	"oj_workbench/internal/common"

	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	sessions *service.SessionManager
}

func NewSessionHandler(sm *service.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sm}
}

func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.openSession) // POST /api/v1/sessions
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Delete("/", h.closeSession)
		r.Put("/code", h.editCode)
		r.Put("/language", h.switchLanguage)
		r.Post("/submissions", h.submit)
		r.Get("/submissions", h.listSubmissions)
	})
}

type OpenSessionRequest struct {
	ProblemID int64  `json:"problem_id"`
	Language  string `json:"language"`
}

type EditCodeRequest struct {
	Code string `json:"code"`
}

type SwitchLanguageRequest struct {
	Language string `json:"language"`
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) openSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	s, err := h.sessions.Open(r.Context(), userID, req.ProblemID, req.Language)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, s.View())
}

func (h *SessionHandler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, s.View())
}

func (h *SessionHandler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) editCode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req EditCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := s.Edit(req.Code); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) switchLanguage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SwitchLanguageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := s.SwitchLanguage(r.Context(), req.Language); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, s.View())
}

// submit starts judging the session's current code; the verdict shows up in
// the session's history.
func (h *SessionHandler) submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if _, err := s.Submit(r.Context()); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, s.View())
}

func (h *SessionHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, s.History())
}
