package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/vettta06/devteam-ai/internal/common"
	"github.com/vettta06/devteam-ai/internal/dbx"
	"github.com/vettta06/devteam-ai/internal/server/auth"
	"github.com/vettta06/devteam-ai/internal/server/config"
	"github.com/vettta06/devteam-ai/internal/server/models"
	refreshtokensrepo "github.com/vettta06/devteam-ai/internal/server/repositories/refreshtokens"
	tasksrepo "github.com/vettta06/devteam-ai/internal/server/repositories/tasks"
	usersrepo "github.com/vettta06/devteam-ai/internal/server/repositories/users"
	"github.com/vettta06/devteam-ai/internal/server/security"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newUserService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewUserService(db, rm, cfg)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	return h
}

// fakeUsersRepo keeps users in memory, keyed by id and email.
type fakeUsersRepo struct {
	byID map[string]*models.User
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrEmailTaken
		}
	}
	u.CreatedAt = time.Now()
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByConfirmationToken(ctx context.Context, token string) (*models.User, error) {
	for _, u := range f.byID {
		if token != "" && u.ConfirmationToken == token {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return common.ErrorNotFound
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsersRepo) List(ctx context.Context, skip, limit int) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// memRefreshRepo behaves like the real store: unique tokens, absent reads as
// not found, deletes are no-ops when absent.
type memRefreshRepo struct {
	mu      sync.Mutex
	records map[string]*models.RefreshToken
}

func newMemRefreshRepo() *memRefreshRepo {
	return &memRefreshRepo{records: map[string]*models.RefreshToken{}}
}

func (m *memRefreshRepo) Create(ctx context.Context, userID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[token]; ok {
		return common.ErrDuplicateToken
	}
	m.records[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (m *memRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[token]; ok {
		return r, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memRefreshRepo) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, token)
	return nil
}

func (m *memRefreshRepo) Consume(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[token]; !ok {
		return common.ErrorNotFound
	}
	delete(m.records, token)
	return nil
}

func (m *memRefreshRepo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type fakeRepoManager struct {
	u usersrepo.Repository
	r refreshtokensrepo.Repository
	t tasksrepo.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Tasks(db dbx.DBTX) tasksrepo.Repository                 { return m.t }

// --- tests ---

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)

	user := &models.User{ID: "u1", Email: "a@b.com", PasswordHash: mustHash(t, "1234"), IsActive: true}
	store := newMemRefreshRepo()
	rm := &fakeRepoManager{u: newFakeUsersRepo(user), r: store}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "a@b.com", "1234")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty token in pair: %+v", pair)
	}
	if store.len() != 1 {
		t.Fatalf("refresh token not persisted")
	}
}

func TestLogin_BadCredentials_SameError(t *testing.T) {
	db, _ := newSQLMockDB(t)

	user := &models.User{ID: "u1", Email: "a@b.com", PasswordHash: mustHash(t, "1234"), IsActive: true}
	rm := &fakeRepoManager{u: newFakeUsersRepo(user), r: newMemRefreshRepo()}
	s := newUserService(t, db, rm)

	_, errNoUser := s.Login(context.Background(), "nobody@b.com", "1234")
	_, errBadPass := s.Login(context.Background(), "a@b.com", "wrong")

	if !errors.Is(errNoUser, common.ErrorUnauthorized) {
		t.Fatalf("unknown user: expected common.ErrorUnauthorized, got %v", errNoUser)
	}
	if !errors.Is(errBadPass, common.ErrorUnauthorized) {
		t.Fatalf("wrong password: expected common.ErrorUnauthorized, got %v", errBadPass)
	}
	if errNoUser.Error() != errBadPass.Error() {
		t.Fatalf("errors must be indistinguishable, got %q vs %q", errNoUser, errBadPass)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)

	user := &models.User{ID: "u1", Email: "a@b.com", PasswordHash: mustHash(t, "1234"), IsActive: true}
	rm := &fakeRepoManager{u: newFakeUsersRepo(user), r: newMemRefreshRepo()}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "a@b.com", "1234")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	got, err := s.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("wrong user: %+v", got)
	}
}

func TestAuthenticate_RefreshTokenRejected(t *testing.T) {
	db, _ := newSQLMockDB(t)

	user := &models.User{ID: "u1", Email: "a@b.com", PasswordHash: mustHash(t, "1234"), IsActive: true}
	rm := &fakeRepoManager{u: newFakeUsersRepo(user), r: newMemRefreshRepo()}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "a@b.com", "1234")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	_, err = s.Authenticate(context.Background(), pair.RefreshToken)
	if !errors.Is(err, common.ErrorUnauthenticated) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	db, _ := newSQLMockDB(t)

	user := &models.User{ID: "u1", Email: "a@b.com", PasswordHash: mustHash(t, "1234"), IsActive: true}
	users := newFakeUsersRepo(user)
	rm := &fakeRepoManager{u: users, r: newMemRefreshRepo()}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "a@b.com", "1234")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if err := users.Delete(context.Background(), "u1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	_, err = s.Authenticate(context.Background(), pair.AccessToken)
	if !errors.Is(err, common.ErrorUnauthenticated) {
		t.Fatalf("expected common.ErrorUnauthenticated for deleted user, got %v", err)
	}
}

func TestRefresh_RotatesSingleUse(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	user := &models.User{ID: "u1", Email: "a@b.com", PasswordHash: mustHash(t, "1234"), IsActive: true}
	store := newMemRefreshRepo()
	rm := &fakeRepoManager{u: newFakeUsersRepo(user), r: store}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "a@b.com", "1234")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	next, err := s.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatalf("rotation must mint a brand-new refresh token")
	}
	if store.len() != 1 {
		t.Fatalf("store must hold exactly the new token, has %d", store.len())
	}

	// the consumed token reads as never issued
	_, err = s.Refresh(context.Background(), pair.RefreshToken)
	if !errors.Is(err, common.ErrorUnauthenticated) {
		t.Fatalf("second use of a refresh token must fail, got %v", err)
	}
}

// racingRefreshRepo holds every successful Find at a barrier until all
// expected readers have seen the record, reproducing the interleaving where
// concurrent rotations of one token both pass the lookup before either
// delete lands.
type racingRefreshRepo struct {
	*memRefreshRepo
	findBarrier *sync.WaitGroup
}

func (r *racingRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	record, err := r.memRefreshRepo.Find(ctx, token)
	if err == nil {
		r.findBarrier.Done()
		r.findBarrier.Wait()
	}
	return record, err
}

func TestRefresh_ConcurrentRotationSingleWinner(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectRollback()

	user := &models.User{ID: "u1", Email: "a@b.com", PasswordHash: mustHash(t, "1234"), IsActive: true}
	store := newMemRefreshRepo()

	var barrier sync.WaitGroup
	barrier.Add(2)
	rm := &fakeRepoManager{
		u: newFakeUsersRepo(user),
		r: &racingRefreshRepo{memRefreshRepo: store, findBarrier: &barrier},
	}
	s := newUserService(t, db, rm)

	token, err := auth.GenerateToken("u1", auth.TokenRefresh, []byte("k"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if err := store.Create(context.Background(), "u1", token, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.Refresh(context.Background(), token)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, common.ErrorUnauthenticated):
			losses++
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("got %d winners and %d losers, want exactly one of each", wins, losses)
	}
	if store.len() != 1 {
		t.Fatalf("store must hold exactly the winner's token, has %d", store.len())
	}
}

func TestRefresh_NeverIssuedToken(t *testing.T) {
	db, _ := newSQLMockDB(t)

	rm := &fakeRepoManager{u: newFakeUsersRepo(), r: newMemRefreshRepo()}
	s := newUserService(t, db, rm)

	_, err := s.Refresh(context.Background(), "not-a-real-token")
	if !errors.Is(err, common.ErrorUnauthenticated) {
		t.Fatalf("expected common.ErrorUnauthenticated, got %v", err)
	}
}

func TestRefresh_ExpiredRecordIsPurged(t *testing.T) {
	db, _ := newSQLMockDB(t)

	store := newMemRefreshRepo()
	rm := &fakeRepoManager{u: newFakeUsersRepo(), r: store}
	s := newUserService(t, db, rm)

	// a record whose stored expiry lies behind the token's own claim
	token, err := auth.GenerateToken("u1", auth.TokenRefresh, []byte("k"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	store.records[token] = &models.RefreshToken{
		UserID:  "u1",
		Token:   token,
		Expires: time.Now().Add(-time.Minute),
	}

	_, err = s.Refresh(context.Background(), token)
	if !errors.Is(err, common.ErrorUnauthenticated) {
		t.Fatalf("expected common.ErrorUnauthenticated for expired token, got %v", err)
	}
	if store.len() != 0 {
		t.Fatalf("expired record must be deleted from the store")
	}
}

func TestLogout_Idempotent(t *testing.T) {
	db, _ := newSQLMockDB(t)

	user := &models.User{ID: "u1", Email: "a@b.com", PasswordHash: mustHash(t, "1234"), IsActive: true}
	store := newMemRefreshRepo()
	rm := &fakeRepoManager{u: newFakeUsersRepo(user), r: store}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "a@b.com", "1234")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if err := s.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if store.len() != 0 {
		t.Fatalf("refresh token not revoked")
	}
	if err := s.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("second Logout must be a no-op, got %v", err)
	}
	if err := s.Logout(context.Background(), "garbage"); err != nil {
		t.Fatalf("Logout of a never-issued token must not fail, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)

	rm := &fakeRepoManager{u: newFakeUsersRepo(), r: newMemRefreshRepo()}
	s := newUserService(t, db, rm)

	u1, err := s.Register(context.Background(), "a@b.com", "1234")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u1.ID == "" || u1.ConfirmationToken == "" {
		t.Fatalf("missing generated fields: %+v", u1)
	}

	_, err = s.Register(context.Background(), "a@b.com", "5678")
	if !errors.Is(err, common.ErrEmailTaken) {
		t.Fatalf("expected common.ErrEmailTaken, got %v", err)
	}
}

func TestConfirmEmail_ClearsToken(t *testing.T) {
	db, _ := newSQLMockDB(t)

	rm := &fakeRepoManager{u: newFakeUsersRepo(), r: newMemRefreshRepo()}
	s := newUserService(t, db, rm)

	u, err := s.Register(context.Background(), "a@b.com", "1234")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	confirmed, err := s.ConfirmEmail(context.Background(), u.ConfirmationToken)
	if err != nil {
		t.Fatalf("ConfirmEmail error: %v", err)
	}
	if !confirmed.IsActive || confirmed.ConfirmationToken != "" {
		t.Fatalf("unexpected state after confirm: %+v", confirmed)
	}

	_, err = s.ConfirmEmail(context.Background(), u.ConfirmationToken)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("reusing a confirmation token must fail, got %v", err)
	}
}
