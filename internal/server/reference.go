package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")
	sites, err := s.store.Sites(r.Context(), companyID)
	if err != nil {
		zap.L().Error("sites fetch failed", zap.String("company_id", companyID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load sites")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sites": sites})
}

func (s *Server) handleTemplateNames(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")
	names, err := s.store.TemplateNames(r.Context(), companyID)
	if err != nil {
		zap.L().Error("template names fetch failed", zap.String("company_id", companyID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load template names")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"names": names})
}

func (s *Server) handleComplianceTemplates(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")
	templates, err := s.store.ComplianceTemplates(r.Context(), companyID)
	if err != nil {
		zap.L().Error("compliance templates fetch failed", zap.String("company_id", companyID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load compliance templates")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"templates": templates})
}
