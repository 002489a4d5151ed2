package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gastroops/opsdeck/internal/matcher"
	"github.com/gastroops/opsdeck/internal/model"
	"github.com/gastroops/opsdeck/internal/trail"
	"github.com/gastroops/opsdeck/internal/wizard"
)

// handleUpload accepts a multipart Trail CSV export, parses it into
// templates, marks duplicates against the company's existing list and
// opens a wizard session at the review step.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.Import.MaxUploadBytes
	// Allow some slack for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	if err := r.ParseMultipartForm(4 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("file exceeds %dMB limit", maxBytes>>20))
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	companyID := r.FormValue("company_id")
	if companyID == "" {
		respondError(w, http.StatusBadRequest, "company_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".csv" {
		respondError(w, http.StatusBadRequest, "only .csv files are supported")
		return
	}
	if header.Size > maxBytes {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("file exceeds %dMB limit", maxBytes>>20))
		return
	}

	parsed, err := trail.Parse(file)
	if err != nil {
		if errors.Is(err, trail.ErrNoTaskColumn) {
			respondError(w, http.StatusBadRequest, "could not find a task description column")
			return
		}
		respondError(w, http.StatusBadRequest, "could not parse CSV file")
		return
	}

	// Fetch the reference data the review step needs in parallel.
	var names []string
	var sites []model.Site
	var library []model.ComplianceTemplate
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		names, err = s.store.TemplateNames(ctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		sites, err = s.store.Sites(ctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		library, err = s.store.ComplianceTemplates(ctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		zap.L().Error("upload reference fetch failed", zap.String("company_id", companyID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load company data")
		return
	}

	templates, dupWarning := matcher.MarkDuplicates(parsed.Templates, names)
	warnings := parsed.Warnings
	if dupWarning != "" {
		warnings = append(warnings, dupWarning)
	}

	state := model.WizardState{
		Step:      model.StepReview,
		Templates: templates,
		TotalRows: parsed.TotalRows,
		DateRange: parsed.DateRange,
		SiteName:  parsed.SiteName,
		Warnings:  warnings,
	}
	wizard.AutoSelectSite(&state, sites)

	session, err := s.sessions.Create(r.Context(), companyID, state)
	if err != nil {
		zap.L().Error("session create failed", zap.String("company_id", companyID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, uploadResponse{
		Session:             session,
		Sites:               sites,
		ComplianceTemplates: library,
	})
}

// uploadResponse bundles the new session with the reference data the
// review step renders, saving clients two follow-up calls.
type uploadResponse struct {
	Session             *model.ImportSession       `json:"session"`
	Sites               []model.Site               `json:"sites"`
	ComplianceTemplates []model.ComplianceTemplate `json:"compliance_templates"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, wizard.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		zap.L().Error("session get failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, wizard.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		zap.L().Error("session get failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	var state model.WizardState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.sessions.Update(r.Context(), session, state); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		zap.L().Error("session delete failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
