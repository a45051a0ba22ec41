package gating

import (
	"context"
	"errors"
	"testing"

	mem "pet-wellness/internal/adapters/storage/memory"
	"pet-wellness/internal/domain/session"
	"pet-wellness/internal/platform/apperr"
	"pet-wellness/internal/platform/changefeed"
	"pet-wellness/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tierOnly session.Tier

func (t tierOnly) Tier() session.Tier { return session.Tier(t) }

func TestIsAllowed(t *testing.T) {
	all := []Feature{
		FeatureMealPlan, FeatureSupplements, FeatureActivities, FeatureCognitiveStimulation,
		FeatureNutritionAnalysis, FeatureLongevityScore, FeatureEnrichmentPlan,
		FeaturePreventionAdvice, FeatureTextFromImage, FeatureWellnessTips,
	}

	for _, f := range all {
		// pro puede todo
		assert.True(t, IsAllowed(tierOnly(session.TierPro), f), "pro %s", f)
		// free solo lo no restringido
		assert.Equal(t, !IsRestricted(f), IsAllowed(tierOnly(session.TierFree), f), "free %s", f)
	}

	assert.True(t, IsAllowed(tierOnly(session.TierFree), Feature("unknown")))
	assert.False(t, IsAllowed(nil, FeatureMealPlan))
	assert.True(t, IsAllowed(nil, FeatureWellnessTips))
}

// countingWriter cuenta escrituras y delega en el manager.
type countingWriter struct {
	next   SubscriptionWriter
	writes int
	err    error
}

func (w *countingWriter) SetSubscribed(ctx context.Context, id string, v bool) error {
	w.writes++
	if w.err != nil {
		return w.err
	}
	return w.next.SetSubscribed(ctx, id, v)
}

func openFree(t *testing.T) (*session.Manager, *session.Context) {
	t.Helper()
	m := session.NewManager(mem.NewUserRepo(), changefeed.NewHub(), session.Options{})
	sc, err := m.Open(context.Background(), auth.Claims{UserID: "u-1"})
	require.NoError(t, err)
	require.Equal(t, session.TierFree, sc.Tier())
	return m, sc
}

func TestRedeem_FlipsOnceAndIsIdempotent(t *testing.T) {
	m, sc := openFree(t)
	w := &countingWriter{next: m}
	r := NewRedeemer("PETPRO2025", w)

	ok, err := r.Redeem(context.Background(), sc, " petpro2025 ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, session.TierPro, sc.Tier())
	assert.True(t, IsAllowed(sc, FeatureMealPlan))

	ok, err = r.Redeem(context.Background(), sc, "PETPRO2025")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, w.writes)
}

func TestRedeem_WrongCodeHasNoEffect(t *testing.T) {
	m, sc := openFree(t)
	w := &countingWriter{next: m}
	r := NewRedeemer("PETPRO2025", w)

	ok, err := r.Redeem(context.Background(), sc, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, w.writes)
	assert.Equal(t, session.TierFree, sc.Tier())
}

func TestRedeem_NoSecretConfiguredNeverMatches(t *testing.T) {
	m, sc := openFree(t)
	w := &countingWriter{next: m}
	r := NewRedeemer("  ", w)

	ok, err := r.Redeem(context.Background(), sc, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, w.writes)
}

func TestRedeem_WriteFailure(t *testing.T) {
	m, sc := openFree(t)
	w := &countingWriter{next: m, err: apperr.Persistence("set subscribed", errors.New("down"))}
	r := NewRedeemer("code", w)

	ok, err := r.Redeem(context.Background(), sc, "CODE")
	assert.False(t, ok)
	assert.True(t, apperr.IsPersistence(err))
	assert.Equal(t, session.TierFree, sc.Tier())
}
