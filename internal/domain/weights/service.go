package weights

import (
	"context"
	"strings"
	"time"

	"pet-wellness/internal/domain/profiles"
	"pet-wellness/internal/platform/apperr"

	"github.com/google/uuid"
)

// ProfileWriter es la parte del profile store que usa el historial: registrar
// un peso también actualiza el peso actual del perfil.
type ProfileWriter interface {
	Fetch(ctx context.Context, sessionID string) (*profiles.Profile, error)
	Save(ctx context.Context, sessionID string, patch profiles.Patch) (*profiles.Profile, error)
}

type Service struct {
	repo     Repository
	profiles ProfileWriter
	now      func() time.Time
	newID    func() string
}

func NewService(repo Repository, pw ProfileWriter) *Service {
	return &Service{
		repo:     repo,
		profiles: pw,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type RecordInput struct {
	Weight float64
	// RecordedAt zero => ahora.
	RecordedAt time.Time
}

func (s *Service) Record(ctx context.Context, ownerUserID string, in RecordInput) (Entry, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Entry{}, &apperr.AuthenticationError{Reason: "session required"}
	}

	w := in.Weight
	if err := (profiles.Patch{Weight: &w}).Validate(); err != nil {
		return Entry{}, err
	}

	p, err := s.profiles.Fetch(ctx, ownerUserID)
	if err != nil {
		return Entry{}, err
	}
	if p == nil {
		return Entry{}, apperr.Validation("profile", "must exist before recording weights")
	}

	now := s.now()
	at := in.RecordedAt
	if at.IsZero() {
		at = now
	}
	if at.After(now.Add(time.Minute)) {
		return Entry{}, apperr.Validation("recordedAt", "must not be in the future")
	}

	e := Entry{
		ID:          s.newID(),
		OwnerUserID: ownerUserID,
		Weight:      w,
		RecordedAt:  at.UTC(),
	}

	latest, err := s.repo.ListByOwner(ctx, ownerUserID, 1)
	if err != nil {
		return Entry{}, apperr.Persistence("list weights", err)
	}

	// Perfil antes que historial: una falla nunca deja una entrada sin su
	// peso aplicado. Una medición retroactiva no pisa el peso actual.
	if len(latest) == 0 || !e.RecordedAt.Before(latest[0].RecordedAt) {
		if _, err := s.profiles.Save(ctx, ownerUserID, profiles.Patch{Weight: &w}); err != nil {
			return Entry{}, err
		}
	}

	if err := s.repo.Add(ctx, e); err != nil {
		return Entry{}, apperr.Persistence("add weight", err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, ownerUserID string, limit int) ([]Entry, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, &apperr.AuthenticationError{Reason: "session required"}
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	items, err := s.repo.ListByOwner(ctx, ownerUserID, limit)
	if err != nil {
		return nil, apperr.Persistence("list weights", err)
	}
	return items, nil
}
