package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
	"github.com/arkadem/campus-platform-iam/internal/infra/security"
	"github.com/arkadem/campus-platform-iam/internal/repository"
)

// fakeClock is a movable time source shared between services and the store.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memItem struct {
	value     string
	expiresAt time.Time
}

// memStore is an in-memory TransientStore with TTL semantics driven by the
// fake clock.
type memStore struct {
	mu    sync.Mutex
	clock *fakeClock
	items map[string]memItem
}

func newMemStore(clock *fakeClock) *memStore {
	return &memStore{clock: clock, items: map[string]memItem{}}
}

func (s *memStore) get(key string) (memItem, bool) {
	item, ok := s.items[key]
	if !ok {
		return memItem{}, false
	}
	if !item.expiresAt.IsZero() && !s.clock.Now().Before(item.expiresAt) {
		delete(s.items, key)
		return memItem{}, false
	}
	return item, true
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.get(key)
	if !ok {
		return "", repository.ErrNotFound
	}
	return item.value, nil
}

func (s *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := memItem{value: value}
	if ttl > 0 {
		item.expiresAt = s.clock.Now().Add(ttl)
	}
	s.items[key] = item
	return nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.get(key)
	return ok, nil
}

func (s *memStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.get(key)
	if !ok {
		s.items[key] = memItem{value: "1"}
		return 1, nil
	}
	n, err := strconv.ParseInt(item.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	item.value = strconv.FormatInt(n, 10)
	s.items[key] = item
	return n, nil
}

func (s *memStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.get(key)
	if !ok {
		return nil
	}
	item.expiresAt = s.clock.Now().Add(ttl)
	s.items[key] = item
	return nil
}

// fakeNotifier records outgoing mail and can be told to fail.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("relay refused")
	}
	n.sent = append(n.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

// fakePublisher counts lifecycle events.
type fakePublisher struct {
	mu          sync.Mutex
	registered  []domain.AccountRegisteredEvent
	locked      []domain.LoginLockedEvent
	pwChanged   []domain.PasswordChangedEvent
	deactivated []domain.AccountDeactivatedEvent
}

func (p *fakePublisher) PublishAccountRegistered(_ context.Context, e domain.AccountRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, e)
	return nil
}

func (p *fakePublisher) PublishLoginLocked(_ context.Context, e domain.LoginLockedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = append(p.locked, e)
	return nil
}

func (p *fakePublisher) PublishPasswordChanged(_ context.Context, e domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pwChanged = append(p.pwChanged, e)
	return nil
}

func (p *fakePublisher) PublishAccountDeactivated(_ context.Context, e domain.AccountDeactivatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deactivated = append(p.deactivated, e)
	return nil
}

// fakeAccountRepo is an in-memory AccountRepository keyed by id and email.
type fakeAccountRepo struct {
	mu      sync.Mutex
	byID    map[string]domain.Account
	creates int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: map[string]domain.Account{}}
}

func (r *fakeAccountRepo) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	for _, existing := range r.byID {
		if existing.Email == account.Email {
			return repository.ErrDuplicate
		}
	}
	r.byID[account.ID] = account
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.byID[id]; ok {
		copy := account
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.byID {
		if account.Email == email {
			copy := account
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAccountRepo) Update(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[account.ID]; !ok {
		return repository.ErrNotFound
	}
	r.byID[account.ID] = account
	return nil
}

func (r *fakeAccountRepo) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = changedAt
	r.byID[id] = account
	return nil
}

func (r *fakeAccountRepo) UpdateStatus(_ context.Context, id string, status domain.AccountStatus, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.Status = status
	account.UpdatedAt = changedAt
	r.byID[id] = account
	return nil
}

// fakeCache is a ProfileCache that records evictions.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]domain.Account
	evicted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]domain.Account{}}
}

func (c *fakeCache) Read(_ context.Context, id string) (*domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if account, ok := c.entries[id]; ok {
		copy := account
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (c *fakeCache) Write(_ context.Context, account domain.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[account.ID] = account
	return nil
}

func (c *fakeCache) Evict(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.evicted = append(c.evicted, id)
	return nil
}

// authFixture wires the full lifecycle stack against in-memory fakes.
type authFixture struct {
	clock     *fakeClock
	store     *memStore
	accounts  *fakeAccountRepo
	notifier  *fakeNotifier
	publisher *fakePublisher
	cache     *fakeCache

	verification *VerificationService
	guard        *LoginGuard
	tokens       *SessionTokenService
	auth         *AuthService
	profile      *AccountService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	log := zaptest.NewLogger(t)
	clock := newFakeClock()
	store := newMemStore(clock)
	accounts := newFakeAccountRepo()
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}
	cache := newFakeCache()

	verification := NewVerificationService(store, notifier, VerificationConfig{}, log)
	guard := NewLoginGuard(store, publisher, LoginGuardConfig{}, log).WithClock(clock.Now)

	signer, err := security.NewJWTSigner("test-secret-for-unit-tests", "campus-iam", 15*time.Minute)
	if err != nil {
		t.Fatalf("create signer: %v", err)
	}
	tokens := NewSessionTokenService(store, signer, 7*24*time.Hour)

	auth := NewAuthService(accounts, cache, verification, guard, tokens, publisher, AuthConfig{
		EmailSuffix:          "@whut.edu.cn",
		ReactivationCooldown: 10 * 24 * time.Hour,
		MinPasswordScore:     0,
	}, log).WithClock(clock.Now)

	profile := NewAccountService(accounts, cache, tokens, 0, publisher, log)
	profile.WithClock(clock.Now)

	return &authFixture{
		clock:        clock,
		store:        store,
		accounts:     accounts,
		notifier:     notifier,
		publisher:    publisher,
		cache:        cache,
		verification: verification,
		guard:        guard,
		tokens:       tokens,
		auth:         auth,
		profile:      profile,
	}
}

// issuedCode digs the last mailed code out of the notifier.
func (f *authFixture) issuedCode(t *testing.T) string {
	t.Helper()
	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if len(f.notifier.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	body := f.notifier.sent[len(f.notifier.sent)-1].body
	for i := 0; i+4 <= len(body); i++ {
		if isDigits(body[i : i+4]) {
			return body[i : i+4]
		}
	}
	t.Fatalf("no code found in mail body: %q", body)
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// registerAccount runs the full registration flow and returns the account.
func (f *authFixture) registerAccount(t *testing.T, email, password string) *domain.Account {
	t.Helper()
	ctx := context.Background()

	if err := f.auth.SendRegistrationCode(ctx, email); err != nil {
		t.Fatalf("send registration code: %v", err)
	}
	account, err := f.auth.Register(ctx, RegisterInput{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		Code:            f.issuedCode(t),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return account
}
