package wizard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/gastroops/opsdeck/internal/model"
)

// ErrSessionNotFound is returned when a wizard session id is unknown, which
// happens after a successful import clears it.
var ErrSessionNotFound = eris.New("wizard: session not found")

// SessionStore is the persistence surface sessions need from the store.
type SessionStore interface {
	GetImportSession(ctx context.Context, id string) (*model.ImportSession, error)
	SaveImportSession(ctx context.Context, session *model.ImportSession) error
	DeleteImportSession(ctx context.Context, id string) error
}

// Sessions persists wizard state between steps so a reload resumes where
// the user left off. State at the results step is never written: the
// import call is one-shot and must not be replayable from stored state.
type Sessions struct {
	store SessionStore
	now   func() time.Time
}

// NewSessions creates a session manager over the given store.
func NewSessions(store SessionStore) *Sessions {
	return &Sessions{store: store, now: time.Now}
}

// Create persists a fresh session for a parsed upload and returns it.
func (s *Sessions) Create(ctx context.Context, companyID string, state model.WizardState) (*model.ImportSession, error) {
	if err := ValidateState(&state); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	session := &model.ImportSession{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveImportSession(ctx, session); err != nil {
		return nil, eris.Wrap(err, "wizard: create session")
	}
	return session, nil
}

// Get loads a session by id.
func (s *Sessions) Get(ctx context.Context, id string) (*model.ImportSession, error) {
	session, err := s.store.GetImportSession(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "wizard: get session")
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Update validates a state replacement against the session's current step
// and persists it. Writes are skipped while the wizard sits at the results
// step.
func (s *Sessions) Update(ctx context.Context, session *model.ImportSession, state model.WizardState) error {
	if err := ValidateState(&state); err != nil {
		return err
	}
	if err := ValidateTransition(session.State.Step, &state); err != nil {
		return err
	}
	session.State = state
	if state.Step == model.StepResults {
		return nil
	}
	session.UpdatedAt = s.now().UTC()
	if err := s.store.SaveImportSession(ctx, session); err != nil {
		return eris.Wrap(err, "wizard: update session")
	}
	return nil
}

// Clear removes a session, either after a successful import or when the
// user resets back to an empty upload step.
func (s *Sessions) Clear(ctx context.Context, id string) error {
	if err := s.store.DeleteImportSession(ctx, id); err != nil {
		return eris.Wrap(err, "wizard: clear session")
	}
	return nil
}
