package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	memcache "pet-wellness/internal/adapters/cache/memory"
	"pet-wellness/internal/platform/apperr"
	"pet-wellness/internal/platform/changefeed"
	"pet-wellness/internal/ports/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	mu    sync.Mutex
	items map[string]Profile
	puts  int

	getErr    error
	putErr    error
	deleteErr error
}

func newTestRepo() *testRepo {
	return &testRepo{items: map[string]Profile{}}
}

func (r *testRepo) Get(ctx context.Context, owner string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return Profile{}, r.getErr
	}
	p, ok := r.items[owner]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *testRepo) Put(ctx context.Context, p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.items[p.OwnerUserID] = p
	r.puts++
	return nil
}

func (r *testRepo) Delete(ctx context.Context, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.items, owner)
	return nil
}

func (r *testRepo) set(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.OwnerUserID] = p
}

// brokenCache falla en todo.
type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}
func (brokenCache) Delete(context.Context, string) error { return errCacheDown }

func newTestStore(repo Repository, c cache.Cache) *Store {
	s := NewStore(repo, c, changefeed.NewHub(), StoreOptions{})
	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	n := 0
	s.newID = func() string {
		n++
		return "pet-" + string(rune('0'+n))
	}
	return s
}

func ptr[T any](v T) *T { return &v }

func onboardingPatch() Patch {
	return Patch{
		Name:       ptr("Milo"),
		Species:    ptr(SpeciesDog),
		Breed:      ptr("Beagle"),
		Age:        ptr(4.0),
		Weight:     ptr(12.5),
		HealthGoal: ptr(GoalMaintainWeight),
	}
}

func cachedProfile(t *testing.T, c cache.Cache, sessionID string) (Profile, bool) {
	t.Helper()
	raw, err := c.Get(context.Background(), cacheKey(sessionID))
	if errors.Is(err, cache.ErrMiss) {
		return Profile{}, false
	}
	require.NoError(t, err)
	var p Profile
	require.NoError(t, json.Unmarshal(raw, &p))
	return p, true
}

func TestSave_CreatesOnFirstSaveAndCaches(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	c := memcache.New()
	s := newTestStore(repo, c)

	p, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)
	assert.Equal(t, "pet-1", p.ID)
	assert.Equal(t, "u-1", p.OwnerUserID)
	assert.Equal(t, "Milo", p.Name)
	assert.False(t, p.Subscribed)

	stored, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, *p, stored)

	cached, ok := cachedProfile(t, c, "u-1")
	require.True(t, ok)
	assert.True(t, cached.sameAs(*p))
}

func TestSave_MergeOnlySuppliedFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newTestRepo(), memcache.New())

	_, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)

	p, err := s.Save(ctx, "u-1", Patch{Weight: ptr(11.0)})
	require.NoError(t, err)

	assert.Equal(t, "pet-1", p.ID)
	assert.Equal(t, "Milo", p.Name)
	assert.Equal(t, SpeciesDog, p.Species)
	assert.Equal(t, "Beagle", p.Breed)
	assert.Equal(t, 4.0, p.Age)
	assert.Equal(t, 11.0, p.Weight)
}

func TestSave_MergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newTestRepo(), memcache.New())

	_, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)

	patch := Patch{Allergies: ptr("pollo"), Age: ptr(5.0)}
	first, err := s.Save(ctx, "u-1", patch)
	require.NoError(t, err)
	second, err := s.Save(ctx, "u-1", patch)
	require.NoError(t, err)

	assert.Equal(t, *first, *second)
}

func TestSave_RangeViolationRejectedWithoutWrite(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	c := memcache.New()
	s := newTestStore(repo, c)

	cases := []Patch{
		{Age: ptr(31.0)},
		{Age: ptr(-1.0)},
		{Weight: ptr(0.05)},
		{Weight: ptr(100.5)},
		{Species: ptr(Species("parrot"))},
		{HealthGoal: ptr(HealthGoal("get_big"))},
		{Name: ptr("   ")},
		{AvatarURL: ptr("not a url")},
	}

	for _, patch := range cases {
		_, err := s.Save(ctx, "u-1", patch)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	}

	assert.Equal(t, 0, repo.puts)
	_, ok := cachedProfile(t, c, "u-1")
	assert.False(t, ok)
}

func TestSave_FirstSaveRequiresNameAndSpecies(t *testing.T) {
	s := newTestStore(newTestRepo(), memcache.New())

	_, err := s.Save(context.Background(), "u-1", Patch{Weight: ptr(3.0)})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestSave_PersistenceFailureLeavesCacheUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	c := memcache.New()
	s := newTestStore(repo, c)

	before, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)

	repo.putErr = errors.New("network down")
	_, err = s.Save(ctx, "u-1", Patch{Name: ptr("Rocky")})
	require.Error(t, err)
	assert.True(t, apperr.IsPersistence(err))

	cached, ok := cachedProfile(t, c, "u-1")
	require.True(t, ok)
	assert.Equal(t, "Milo", cached.Name)
	assert.True(t, cached.sameAs(*before))
}

func TestSave_CacheFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	s := newTestStore(repo, brokenCache{})

	p, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)
	assert.Equal(t, "Milo", p.Name)

	got, err := s.Load(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Milo", got.Name)

	require.NoError(t, s.Clear(ctx, "u-1"))
}

func TestClear_ThenLoadReturnsNothingAndCacheIsClean(t *testing.T) {
	ctx := context.Background()
	c := memcache.New()
	s := newTestStore(newTestRepo(), c)

	_, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "u-1"))

	got, err := s.Load(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, ok := cachedProfile(t, c, "u-1")
	assert.False(t, ok)
}

func TestClear_RemoteFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	c := memcache.New()
	s := newTestStore(repo, c)

	_, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)

	repo.deleteErr = errors.New("permission denied")
	err = s.Clear(ctx, "u-1")
	require.Error(t, err)
	assert.True(t, apperr.IsPersistence(err))

	_, ok := cachedProfile(t, c, "u-1")
	assert.True(t, ok)
}

func TestLoad_ServesCacheThenRemoteWins(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	c := memcache.New()
	s := newTestStore(repo, c)

	stale, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)

	// otro dispositivo cambió el registro remoto
	remote := *stale
	remote.Name = "Milo II"
	remote.UpdatedAt = stale.UpdatedAt.Add(time.Minute)
	repo.set(remote)

	var mu sync.Mutex
	var changes []Change
	cancel, err := s.Subscribe(ctx, "u-1", func(ch Change) {
		mu.Lock()
		changes = append(changes, ch)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	got, err := s.Load(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Milo", got.Name)

	s.Wait()

	cached, ok := cachedProfile(t, c, "u-1")
	require.True(t, ok)
	assert.Equal(t, "Milo II", cached.Name)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 1)
	assert.Equal(t, changefeed.OpReconciled, changes[0].Op)
	require.NotNil(t, changes[0].Profile)
	assert.Equal(t, "Milo II", changes[0].Profile.Name)
}

func TestLoad_RemoteNotFoundRemovesCachedCopy(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	c := memcache.New()
	s := newTestStore(repo, c)

	_, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)

	// borrado desde otro dispositivo
	require.NoError(t, repo.Delete(ctx, "u-1"))

	var got []Change
	var mu sync.Mutex
	cancel, err := s.Subscribe(ctx, "u-1", func(ch Change) {
		mu.Lock()
		got = append(got, ch)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	_, err = s.Load(ctx, "u-1")
	require.NoError(t, err)
	s.Wait()

	_, ok := cachedProfile(t, c, "u-1")
	assert.False(t, ok)

	again, err := s.Load(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, again)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Profile)
}

func TestLoad_RemoteErrorKeepsCache(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()
	c := memcache.New()
	s := newTestStore(repo, c)

	_, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)

	repo.getErr = errors.New("unavailable")
	got, err := s.Load(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	s.Wait()

	_, ok := cachedProfile(t, c, "u-1")
	assert.True(t, ok)
}

func TestFetch_PersistenceError(t *testing.T) {
	repo := newTestRepo()
	repo.getErr = errors.New("unavailable")
	s := newTestStore(repo, memcache.New())

	_, err := s.Fetch(context.Background(), "u-1")
	require.Error(t, err)
	assert.True(t, apperr.IsPersistence(err))
}

func TestCache_IsPerSession(t *testing.T) {
	ctx := context.Background()
	c := memcache.New()
	s := newTestStore(newTestRepo(), c)

	_, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)

	got, err := s.Load(ctx, "u-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newTestRepo(), memcache.New())

	calls := 0
	cancel, err := s.Subscribe(ctx, "u-1", func(Change) { calls++ })
	require.NoError(t, err)

	_, err = s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	cancel()
	cancel()

	_, err = s.Save(ctx, "u-1", Patch{Age: ptr(6.0)})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestStore_RequiresSession(t *testing.T) {
	s := newTestStore(newTestRepo(), memcache.New())

	_, err := s.Load(context.Background(), " ")
	assert.True(t, apperr.IsAuthentication(err))

	_, err = s.Save(context.Background(), "", onboardingPatch())
	assert.True(t, apperr.IsAuthentication(err))
}

func TestSetSubscribed_MirrorsFlagOnExistingProfile(t *testing.T) {
	repo := newTestRepo()
	c := memcache.New()
	s := newTestStore(repo, c)
	ctx := context.Background()

	// sin perfil no escribe nada
	require.NoError(t, s.SetSubscribed(ctx, "u-1", true))
	assert.Equal(t, 0, repo.puts)

	_, err := s.Save(ctx, "u-1", onboardingPatch())
	require.NoError(t, err)

	require.NoError(t, s.SetSubscribed(ctx, "u-1", true))
	got, err := s.Fetch(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, got.Subscribed)
	assert.Equal(t, "Milo", got.Name)

	cached, ok := cachedProfile(t, c, "u-1")
	require.True(t, ok)
	assert.True(t, cached.Subscribed)

	// mismo valor => sin escritura
	puts := repo.puts
	require.NoError(t, s.SetSubscribed(ctx, "u-1", true))
	assert.Equal(t, puts, repo.puts)

	repo.getErr = errors.New("store down")
	assert.True(t, apperr.IsPersistence(s.SetSubscribed(ctx, "u-1", false)))
}

func TestSave_SeedsSubscriptionOnCreate(t *testing.T) {
	repo := newTestRepo()
	s := NewStore(repo, memcache.New(), changefeed.NewHub(), StoreOptions{
		SubscriptionOf: func(ctx context.Context, sessionID string) (bool, error) {
			return sessionID == "pro-user", nil
		},
	})
	ctx := context.Background()

	p, err := s.Save(ctx, "pro-user", onboardingPatch())
	require.NoError(t, err)
	assert.True(t, p.Subscribed)

	p, err = s.Save(ctx, "free-user", onboardingPatch())
	require.NoError(t, err)
	assert.False(t, p.Subscribed)

	failing := NewStore(newTestRepo(), memcache.New(), changefeed.NewHub(), StoreOptions{
		SubscriptionOf: func(context.Context, string) (bool, error) {
			return false, errors.New("users down")
		},
	})
	_, err = failing.Save(ctx, "u-2", onboardingPatch())
	assert.True(t, apperr.IsPersistence(err))
}
