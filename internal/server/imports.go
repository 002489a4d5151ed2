package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gastroops/opsdeck/internal/importer"
	"github.com/gastroops/opsdeck/internal/model"
)

// handleImport executes a one-shot import of reviewed templates. On a
// fully successful batch the wizard session named in the request is
// cleared so a page reload starts fresh.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		respondError(w, http.StatusTooManyRequests, "too many import requests, try again shortly")
		return
	}

	var req model.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyID == "" {
		respondError(w, http.StatusBadRequest, "company_id is required")
		return
	}

	result, err := s.exec.Run(r.Context(), &req)
	if err != nil {
		if errors.Is(err, importer.ErrNothingIncluded) || errors.Is(err, importer.ErrNoSites) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("import failed", zap.String("company_id", req.CompanyID), zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, model.ImportResult{
			Error: "import failed",
		})
		return
	}

	if result.Success && req.SessionID != "" {
		if err := s.sessions.Clear(r.Context(), req.SessionID); err != nil {
			zap.L().Warn("session clear after import failed",
				zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// handleDeleteImport removes everything a previous Trail import created.
func (s *Server) handleDeleteImport(w http.ResponseWriter, r *http.Request) {
	var req model.DeleteImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyID == "" {
		respondError(w, http.StatusBadRequest, "company_id is required")
		return
	}

	result, err := s.exec.DeleteTrail(r.Context(), req.CompanyID)
	if err != nil {
		zap.L().Error("delete import failed", zap.String("company_id", req.CompanyID), zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, model.DeleteImportResult{
			Error: "delete failed",
		})
		return
	}
	respondJSON(w, http.StatusOK, result)
}
