package devapi

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/idm-forms/pkg/errors"
)

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// BcryptHasher hashes with bcrypt at Cost, or bcrypt.DefaultCost when zero.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New(errors.ErrCodeMissingRequired, "password cannot be empty")
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.InternalWrap(err, "failed to hash password")
	}
	return string(hashed), nil
}

// Verify reports a mismatch as false with a nil error.
func (h BcryptHasher) Verify(password, hash string) (bool, error) {
	if password == "" || hash == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if stderrors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, errors.InternalWrap(err, "failed to verify password")
}

// UserStore keeps accounts in memory, indexed by id and by lower-cased email.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]User
	byEmail map[string]uuid.UUID
	hasher  PasswordHasher
	now     func() time.Time
}

func NewUserStore(hasher PasswordHasher) *UserStore {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &UserStore{
		byID:    make(map[uuid.UUID]User),
		byEmail: make(map[string]uuid.UUID),
		hasher:  hasher,
		now:     time.Now,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a new account. A taken email is an ErrCodeUserAlreadyExists error.
func (s *UserStore) Create(ctx context.Context, name, email, password string) (User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(email)
	if _, taken := s.byEmail[key]; taken {
		return User{}, errors.New(errors.ErrCodeUserAlreadyExists, "Email is already registered.")
	}
	u := User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	s.byID[u.ID] = u
	s.byEmail[key] = u.ID
	return u, nil
}

// Authenticate returns the account for email when password matches. Unknown
// emails and wrong passwords give the same ErrCodeInvalidCredentials error.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[emailKey(email)]
	u := s.byID[id]
	s.mu.RUnlock()

	if !ok {
		return User{}, errors.New(errors.ErrCodeInvalidCredentials, MsgInvalidCredentials)
	}
	match, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return User{}, err
	}
	if !match {
		return User{}, errors.New(errors.ErrCodeInvalidCredentials, MsgInvalidCredentials)
	}
	return u, nil
}

func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, errors.NotFound("user", id.String())
	}
	return u, nil
}

func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
