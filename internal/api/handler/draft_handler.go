package handler

import (
	"encoding/json"
	"net/http"
	"oj_workbench/internal/app/service"
	"oj_workbench/internal/common"
	"oj_workbench/internal/domain/model"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type DraftHandler struct {
	draftService *service.DraftService
}

func NewDraftHandler(ds *service.DraftService) *DraftHandler {
	return &DraftHandler{draftService: ds}
}

func (h *DraftHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{problemID}/{language}", h.getDraft)
	r.Put("/{problemID}/{language}", h.saveDraft)
	r.Delete("/{problemID}/{language}", h.deleteDraft)
}

type DraftResponse struct {
	ProblemID int64      `json:"problem_id"`
	Language  string     `json:"language"`
	Content   string     `json:"content"`
	Restored  bool       `json:"restored"`
	SavedAt   *time.Time `json:"saved_at,omitempty"`
}

type SaveDraftRequest struct {
	Content string `json:"content"`
}

type SaveDraftResponse struct {
	Saved bool `json:"saved"`
}

func draftKeyFromURL(r *http.Request) (int64, string, error) {
	problemID, err := strconv.ParseInt(chi.URLParam(r, "problemID"), 10, 64)
	if err != nil {
		return 0, "", common.Errorf("invalid problem id %q: %w", chi.URLParam(r, "problemID"), common.ErrValidation)
	}
	return problemID, chi.URLParam(r, "language"), nil
}

// getDraft answers with the saved draft, or the language template when none exists.
func (h *DraftHandler) getDraft(w http.ResponseWriter, r *http.Request) {
	problemID, language, err := draftKeyFromURL(r)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	draft, ok, err := h.draftService.Load(r.Context(), problemID, language)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	resp := DraftResponse{ProblemID: problemID, Language: language}
	if ok && draft.Content != "" {
		resp.Content = draft.Content
		resp.Restored = true
		if !draft.SavedAt.IsZero() {
			savedAt := draft.SavedAt
			resp.SavedAt = &savedAt
		}
	} else {
		resp.Content = model.DefaultTemplate(language)
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *DraftHandler) saveDraft(w http.ResponseWriter, r *http.Request) {
	problemID, language, err := draftKeyFromURL(r)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	var req SaveDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	saved, err := h.draftService.Save(r.Context(), problemID, language, req.Content)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, SaveDraftResponse{Saved: saved})
}

func (h *DraftHandler) deleteDraft(w http.ResponseWriter, r *http.Request) {
	problemID, language, err := draftKeyFromURL(r)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	if err := h.draftService.Delete(r.Context(), problemID, language); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
