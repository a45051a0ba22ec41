package firestore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pet-wellness/internal/domain/profiles"
	"pet-wellness/internal/domain/session"
	"pet-wellness/internal/domain/weights"
)

func TestErrorClassification(t *testing.T) {
	assert.True(t, isNotFound(status.Error(codes.NotFound, "missing")))
	assert.False(t, isNotFound(errors.New("boom")))
	assert.False(t, isNotFound(nil))
	assert.True(t, isAlreadyExists(status.Error(codes.AlreadyExists, "dup")))
}

func TestProfileDocumentRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := profiles.Profile{
		ID:          "pet-1",
		OwnerUserID: "u-1",
		Name:        "Luna",
		Species:     profiles.SpeciesDog,
		Age:         4,
		Weight:      12.5,
		HealthGoal:  profiles.GoalImproveJoints,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	assert.Equal(t, p, toProfileDocument(p).toProfile())
}

// Los tests de integración necesitan el emulador (FIRESTORE_EMULATOR_HOST).
func emulatorClient(t *testing.T) (*UserRepo, *ProfileRepo, *WeightRepo) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	c, err := Open(context.Background(), "pet-wellness-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewUserRepo(c), NewProfileRepo(c), NewWeightRepo(c)
}

func TestEmulator_UsersProfilesWeights(t *testing.T) {
	users, profs, ws := emulatorClient(t)
	ctx := context.Background()
	uid := "u-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err := users.Get(ctx, uid)
	assert.ErrorIs(t, err, session.ErrUserNotFound)
	assert.ErrorIs(t, users.SetSubscribed(ctx, uid, true), session.ErrUserNotFound)

	require.NoError(t, users.Create(ctx, session.User{ID: uid, CreatedAt: now, UpdatedAt: now}))
	assert.ErrorIs(t, users.Create(ctx, session.User{ID: uid}), session.ErrUserExists)
	require.NoError(t, users.SetSubscribed(ctx, uid, true))
	u, err := users.Get(ctx, uid)
	require.NoError(t, err)
	assert.True(t, u.Subscribed)

	_, err = profs.Get(ctx, uid)
	assert.ErrorIs(t, err, profiles.ErrNotFound)
	p := profiles.Profile{ID: "pet-1", OwnerUserID: uid, Name: "Luna", Species: profiles.SpeciesDog, Weight: 10, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, profs.Put(ctx, p))
	got, err := profs.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "Luna", got.Name)
	require.NoError(t, profs.Delete(ctx, uid))
	require.NoError(t, profs.Delete(ctx, uid))

	require.NoError(t, ws.Add(ctx, weights.Entry{ID: "w-1", OwnerUserID: uid, Weight: 10, RecordedAt: now.Add(-time.Hour)}))
	require.NoError(t, ws.Add(ctx, weights.Entry{ID: "w-2", OwnerUserID: uid, Weight: 11, RecordedAt: now}))
	list, err := ws.ListByOwner(ctx, uid, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "w-2", list[0].ID)
}
