package handler

import (
	"net/http"
	"oj_workbench/internal/common"
	"oj_workbench/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type LanguageHandler struct{}

func NewLanguageHandler() *LanguageHandler {
	return &LanguageHandler{}
}

func (h *LanguageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listLanguages) // GET /api/v1/languages
}

func (h *LanguageHandler) listLanguages(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, model.Languages())
}
