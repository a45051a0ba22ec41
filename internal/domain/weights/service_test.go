package weights

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"pet-wellness/internal/domain/profiles"
	"pet-wellness/internal/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	items  []Entry
	addErr error
}

func (r *testRepo) Add(ctx context.Context, e Entry) error {
	if r.addErr != nil {
		return r.addErr
	}
	r.items = append(r.items, e)
	return nil
}

func (r *testRepo) ListByOwner(ctx context.Context, owner string, limit int) ([]Entry, error) {
	out := make([]Entry, 0)
	for _, e := range r.items {
		if e.OwnerUserID == owner {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type testProfiles struct {
	current *profiles.Profile
	saves   []profiles.Patch
	saveErr error
}

func (p *testProfiles) Fetch(ctx context.Context, sessionID string) (*profiles.Profile, error) {
	return p.current, nil
}

func (p *testProfiles) Save(ctx context.Context, sessionID string, patch profiles.Patch) (*profiles.Profile, error) {
	if p.saveErr != nil {
		return nil, p.saveErr
	}
	p.saves = append(p.saves, patch)
	next := patch.Apply(*p.current)
	p.current = &next
	return &next, nil
}

var now = time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)

func newTestService(repo Repository, pw ProfileWriter) *Service {
	s := NewService(repo, pw)
	s.now = func() time.Time { return now }
	s.newID = func() string { return "w-1" }
	return s
}

func TestRecord_AddsEntryAndUpdatesProfileWeight(t *testing.T) {
	repo := &testRepo{}
	pw := &testProfiles{current: &profiles.Profile{ID: "p-1", OwnerUserID: "u-1", Weight: 12}}
	svc := newTestService(repo, pw)

	e, err := svc.Record(context.Background(), "u-1", RecordInput{Weight: 11.4})
	require.NoError(t, err)

	assert.Equal(t, "w-1", e.ID)
	assert.Equal(t, now, e.RecordedAt)
	require.Len(t, repo.items, 1)
	require.Len(t, pw.saves, 1)
	assert.Equal(t, 11.4, pw.current.Weight)
}

func TestRecord_BackdatedEntryKeepsCurrentWeight(t *testing.T) {
	repo := &testRepo{items: []Entry{{ID: "w-0", OwnerUserID: "u-1", Weight: 12, RecordedAt: now.Add(-time.Hour)}}}
	pw := &testProfiles{current: &profiles.Profile{ID: "p-1", OwnerUserID: "u-1", Weight: 12}}
	svc := newTestService(repo, pw)

	_, err := svc.Record(context.Background(), "u-1", RecordInput{Weight: 14, RecordedAt: now.AddDate(0, 0, -10)})
	require.NoError(t, err)

	assert.Len(t, repo.items, 2)
	assert.Empty(t, pw.saves)
	assert.Equal(t, 12.0, pw.current.Weight)
}

func TestRecord_Validation(t *testing.T) {
	repo := &testRepo{}
	pw := &testProfiles{current: &profiles.Profile{ID: "p-1", OwnerUserID: "u-1"}}
	svc := newTestService(repo, pw)

	for _, w := range []float64{0, 0.05, 101} {
		_, err := svc.Record(context.Background(), "u-1", RecordInput{Weight: w})
		assert.True(t, apperr.IsValidation(err), "weight %v", w)
	}

	_, err := svc.Record(context.Background(), "u-1", RecordInput{Weight: 10, RecordedAt: now.Add(time.Hour)})
	assert.True(t, apperr.IsValidation(err))

	assert.Empty(t, repo.items)
}

func TestRecord_RequiresProfile(t *testing.T) {
	repo := &testRepo{}
	svc := newTestService(repo, &testProfiles{})

	_, err := svc.Record(context.Background(), "u-1", RecordInput{Weight: 10})
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, repo.items)
}

func TestRecord_PersistenceError(t *testing.T) {
	repo := &testRepo{addErr: errors.New("down")}
	pw := &testProfiles{current: &profiles.Profile{ID: "p-1", OwnerUserID: "u-1"}}
	svc := newTestService(repo, pw)

	_, err := svc.Record(context.Background(), "u-1", RecordInput{Weight: 10})
	assert.True(t, apperr.IsPersistence(err))
	// el perfil ya quedó con el peso; un reintento lo reescribe igual
	assert.Len(t, pw.saves, 1)
	assert.Empty(t, repo.items)
}

func TestList_ClampsLimit(t *testing.T) {
	repo := &testRepo{}
	for i := 0; i < 40; i++ {
		repo.items = append(repo.items, Entry{ID: "w", OwnerUserID: "u-1", Weight: 10, RecordedAt: now.Add(time.Duration(-i) * time.Hour)})
	}
	svc := newTestService(repo, &testProfiles{})

	items, err := svc.List(context.Background(), "u-1", 0)
	require.NoError(t, err)
	assert.Len(t, items, DefaultListLimit)

	items, err = svc.List(context.Background(), "u-1", 1000)
	require.NoError(t, err)
	assert.Len(t, items, 40)
}

func TestRecord_ProfileSaveFailureLeavesNoEntry(t *testing.T) {
	repo := &testRepo{}
	pw := &testProfiles{
		current: &profiles.Profile{ID: "p-1", OwnerUserID: "u-1", Weight: 12},
		saveErr: apperr.Persistence("put profile", errors.New("down")),
	}
	svc := newTestService(repo, pw)

	_, err := svc.Record(context.Background(), "u-1", RecordInput{Weight: 11.4})
	assert.True(t, apperr.IsPersistence(err))
	assert.Empty(t, repo.items)
	assert.Equal(t, 12.0, pw.current.Weight)

	// el reintento registra una sola entrada
	pw.saveErr = nil
	_, err = svc.Record(context.Background(), "u-1", RecordInput{Weight: 11.4})
	require.NoError(t, err)
	assert.Len(t, repo.items, 1)
	assert.Equal(t, 11.4, pw.current.Weight)
}
