package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/docsmith/backend/models"
	"github.com/docsmith/backend/repositories"
	"github.com/docsmith/backend/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUserRepository is an in-memory UserRepository that enforces the same
// uniqueness rules as the real storage layer and can inject a create
// conflict to simulate a lost first-creation race.
type fakeUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User

	// conflictOnCreate makes the next Create fail with ErrConflict after
	// inserting a competing record, mimicking a concurrent winner.
	conflictOnCreate *models.User

	createCalls int
	updateCalls int
}

func newFakeRepo() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserRepository) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++

	if f.conflictOnCreate != nil {
		winner := f.conflictOnCreate
		f.conflictOnCreate = nil
		f.users[winner.ID] = winner
		return repositories.ErrConflict
	}

	for _, existing := range f.users {
		if existing.Username == user.Username {
			return repositories.ErrConflict
		}
		if user.NationalID != "" && existing.NationalID == user.NationalID {
			return repositories.ErrConflict
		}
	}

	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user, ok := f.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepository) GetByNationalID(_ context.Context, nationalID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.NationalID != "" && user.NationalID == nationalID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepository) Update(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++

	stored, ok := f.users[user.ID]
	if !ok {
		return repositories.ErrNotFound
	}

	for id, other := range f.users {
		if id == user.ID {
			continue
		}
		if other.Username == user.Username {
			return repositories.ErrConflict
		}
		if user.NationalID != "" && other.NationalID == user.NationalID {
			return repositories.ErrConflict
		}
	}

	stored.Username = user.Username
	stored.DisplayName = user.DisplayName
	stored.Email = user.Email
	stored.NationalID = user.NationalID
	stored.UpdatedAt = user.UpdatedAt
	stored.UpdatedBy = user.UpdatedBy
	return nil
}

func (f *fakeUserRepository) List(_ context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users := make([]*models.User, 0, len(f.users))
	for _, user := range f.users {
		clone := *user
		users = append(users, &clone)
	}
	return users, nil
}

func newTestService() (*Service, *fakeUserRepository) {
	repo := newFakeRepo()
	return NewService(repo, zap.NewNop()), repo
}

func mustAssertion(t *testing.T, username, displayName, email, nationalID string) *Assertion {
	t.Helper()
	a, err := NewAssertion(username, displayName, email, nationalID)
	require.NoError(t, err)
	return a
}

func TestReconcileCreatesOnFirstSight(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	assertion := mustAssertion(t, "alice", "Alice A", "alice@example.com", "123.456.789-09")

	principal, err := svc.Reconcile(ctx, assertion)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, principal.UserID)
	assert.Equal(t, models.RoleUser, principal.Role, "fresh records always get the default role")
	assert.Equal(t, AuthorityUser, principal.Authority)
	assert.Equal(t, "12345678909", principal.NationalID)

	stored, err := repo.GetByID(ctx, principal.UserID)
	require.NoError(t, err)
	assert.Equal(t, "12345678909", stored.NationalID, "stored form is digits-only")
}

func TestReconcileIsIdempotent(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	assertion := mustAssertion(t, "alice", "Alice A", "", "12345678909")

	first, err := svc.Reconcile(ctx, assertion)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := svc.Reconcile(ctx, assertion)
		require.NoError(t, err)
		assert.Equal(t, first.UserID, again.UserID)
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "repeated reconciliation never duplicates the record")
}

func TestReconcileUpdatesProfileButNotRole(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	first, err := svc.Reconcile(ctx, mustAssertion(t, "alice", "Alice A", "", "123.456.789-09"))
	require.NoError(t, err)

	// Promote out of band, as an administrative action would.
	repo.mu.Lock()
	repo.users[first.UserID].Role = models.RoleAdmin
	repo.mu.Unlock()

	second, err := svc.Reconcile(ctx, mustAssertion(t, "alice", "Alice B", "alice@new.example.com", "12345678909"))
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)

	stored, err := repo.GetByID(ctx, first.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", stored.DisplayName)
	assert.Equal(t, "alice@new.example.com", stored.Email)
	assert.Equal(t, models.RoleAdmin, stored.Role, "reconciliation never rewrites the role")
}

func TestReconcileNationalIDTakesPrecedenceOverUsername(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	r1, err := svc.Reconcile(ctx, mustAssertion(t, "alice-old", "Alice A", "", "12345678909"))
	require.NoError(t, err)
	r2, err := svc.Reconcile(ctx, mustAssertion(t, "bob", "Bob B", "", ""))
	require.NoError(t, err)

	// The assertion carries R1's national id but R2's username would match
	// too if usernames were consulted first.
	// The national id wins and R1 absorbs the new username.
	resolved, err := svc.Reconcile(ctx, mustAssertion(t, "alice-new", "Alice A", "", "123.456.789-09"))
	require.NoError(t, err)
	assert.Equal(t, r1.UserID, resolved.UserID)

	updated, err := repo.GetByID(ctx, r1.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice-new", updated.Username)

	untouched, err := repo.GetByID(ctx, r2.UserID)
	require.NoError(t, err)
	assert.Equal(t, "bob", untouched.Username, "the username-matched record stays untouched")
}

func TestReconcileFallsBackToUsernameWithoutNationalID(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Reconcile(ctx, mustAssertion(t, "carol", "Carol C", "", ""))
	require.NoError(t, err)

	second, err := svc.Reconcile(ctx, mustAssertion(t, "carol", "Carol Updated", "", ""))
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
}

func TestReconcileRetriesOnceOnCreateConflict(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	// A concurrent request wins the create race just before ours commits.
	winner := models.NewUser("alice", "Alice Winner", "", "12345678909")
	repo.conflictOnCreate = winner

	principal, err := svc.Reconcile(ctx, mustAssertion(t, "alice", "Alice Retry", "", "123.456.789-09"))
	require.NoError(t, err, "a lost create race is recovered, not surfaced")

	assert.Equal(t, winner.ID, principal.UserID, "retry converges on the winner's record")

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1, "the race leaves exactly one record behind")

	// Last write wins: the retried update overwrote the winner's fields.
	assert.Equal(t, "Alice Retry", users[0].DisplayName)
	assert.Equal(t, 1, repo.createCalls)
	assert.Equal(t, 1, repo.updateCalls)
}

func TestReconcileSurfacesSecondConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// Two distinct records already exist; asserting R1's national id together
	// with R2's username makes the update conflict and cannot converge.
	_, err := svc.Reconcile(ctx, mustAssertion(t, "alice", "Alice A", "", "12345678909"))
	require.NoError(t, err)
	_, err = svc.Reconcile(ctx, mustAssertion(t, "bob", "Bob B", "", ""))
	require.NoError(t, err)

	_, err = svc.Reconcile(ctx, mustAssertion(t, "bob", "Alice A", "", "12345678909"))
	require.Error(t, err)
	assert.True(t, services.IsConflictError(err))
}

func TestReconcileScenario(t *testing.T) {
	// First sight creates with role USER and normalized national id;
	// resubmission with a changed display name updates in place.
	svc, repo := newTestService()
	ctx := context.Background()

	first, err := svc.Reconcile(ctx, mustAssertion(t, "alice", "Alice A", "", "123.456.789-09"))
	require.NoError(t, err)

	created, err := repo.GetByID(ctx, first.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.Equal(t, "12345678909", created.NationalID)

	second, err := svc.Reconcile(ctx, mustAssertion(t, "alice", "Alice B", "", "123.456.789-09"))
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, models.RoleUser, second.Role)

	updated, err := repo.GetByID(ctx, first.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.DisplayName)
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, mustAssertion(t, "alice", "Alice A", "", "12345678909"))
	require.NoError(t, err)

	t.Run("found by raw national id", func(t *testing.T) {
		user, err := svc.CurrentUser(ctx, "123.456.789-09")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := svc.CurrentUser(ctx, "999.999.999-99")
		assert.True(t, services.IsNotFoundError(err))
	})

	t.Run("empty national id", func(t *testing.T) {
		_, err := svc.CurrentUser(ctx, "")
		assert.True(t, services.IsNotFoundError(err))
	})
}

func TestReconcilePropagatesStorageFailures(t *testing.T) {
	repo := &failingRepo{err: errors.New("connection refused")}
	svc := NewService(repo, zap.NewNop())

	_, err := svc.Reconcile(context.Background(), mustAssertion(t, "alice", "Alice A", "", ""))
	require.Error(t, err)
	assert.True(t, services.IsInternalError(err))
}

// failingRepo fails every operation with a fixed error.
type failingRepo struct {
	err error
}

func (f *failingRepo) Create(context.Context, *models.User) error { return f.err }
func (f *failingRepo) GetByID(context.Context, uuid.UUID) (*models.User, error) {
	return nil, f.err
}
func (f *failingRepo) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, f.err
}
func (f *failingRepo) GetByNationalID(context.Context, string) (*models.User, error) {
	return nil, f.err
}
func (f *failingRepo) Update(context.Context, *models.User) error { return f.err }
func (f *failingRepo) List(context.Context) ([]*models.User, error) {
	return nil, f.err
}
