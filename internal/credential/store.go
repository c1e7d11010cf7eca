// Package credential is the out-of-scope boundary the session supervisor
// consumes: account creation, password hashing, and token minting are
// explicitly not part of the simulation core (spec §1). This is a minimal
// in-memory stand-in sized only to make cmd/server link and run
// end-to-end — production deployments would swap it for a real account
// service behind the same four operations.
package credential

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers unknown username or password mismatch.
var ErrInvalidCredentials = errors.New("credential: invalid username or password")

// ErrTokenInvalid covers an unknown, stale, or superseded token.
var ErrTokenInvalid = errors.New("credential: invalid or expired token")

// Account is the record returned by a successful token verification.
type Account struct {
	ID             int64
	Username       string
	BoundSessionID uuid.UUID
	Expiry         time.Time
}

type record struct {
	id       int64
	username string
	hash     []byte

	sessionID uuid.UUID
	expiry    time.Time
	hasBind   bool
}

// Store is a bcrypt-backed account table plus the session-binding state the
// supervisor needs, grounded on the same bcrypt-and-signed-token shape the
// pack's session-oriented game server (L1JGO) and this repo's own teacher
// (its cookie signer) use for their account layers.
type Store struct {
	mu       sync.Mutex
	byName   map[string]*record
	byID     map[int64]*record
	nextID   int64
	tokenTTL time.Duration
}

// NewStore returns an empty store. tokenTTL bounds how long a token minted
// by Login remains valid.
func NewStore(tokenTTL time.Duration) *Store {
	return &Store{
		byName:   make(map[string]*record),
		byID:     make(map[int64]*record),
		tokenTTL: tokenTTL,
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *Store) Register(username, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[username]; exists {
		return 0, errors.New("credential: username already registered")
	}
	s.nextID++
	r := &record{id: s.nextID, username: username, hash: hash}
	s.byName[username] = r
	s.byID[r.id] = r
	return r.id, nil
}

// Login verifies a password and mints a fresh opaque token, binding the
// session id it encodes to the account (evicting any prior binding). The
// returned token is "<account-id>.<session-uuid>.<random-hex>" — opaque to
// the session package, which only ever hands it back to VerifyToken.
func (s *Store) Login(username, password string) (string, error) {
	s.mu.Lock()
	r, ok := s.byName[username]
	s.mu.Unlock()
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(r.hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	sessionID := uuid.New()
	s.mu.Lock()
	r.sessionID = sessionID
	r.expiry = time.Now().Add(s.tokenTTL)
	r.hasBind = true
	s.mu.Unlock()

	nonce := make([]byte, 8)
	_, _ = rand.Read(nonce)
	return encodeToken(r.id, sessionID) + "." + hex.EncodeToString(nonce), nil
}

// VerifyToken resolves a bearer token to its account iff the token's
// session id is still the one currently bound and has not expired.
func (s *Store) VerifyToken(token string) (Account, error) {
	accountID, sessionID, ok := decodeToken(token)
	if !ok {
		return Account{}, ErrTokenInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[accountID]
	if !ok || !r.hasBind || r.sessionID != sessionID || time.Now().After(r.expiry) {
		return Account{}, ErrTokenInvalid
	}
	return Account{ID: r.id, Username: r.username, BoundSessionID: r.sessionID, Expiry: r.expiry}, nil
}

// BindSession rebinds accountID to sessionID until expiry, replacing any
// prior binding.
func (s *Store) BindSession(accountID int64, sessionID uuid.UUID, expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.byID[accountID]; ok {
		r.sessionID = sessionID
		r.expiry = expiry
		r.hasBind = true
	}
}

// ClearSession removes accountID's session binding entirely.
func (s *Store) ClearSession(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.byID[accountID]; ok {
		r.hasBind = false
	}
}

// AccountByName looks up an account id by username without touching
// session state.
func (s *Store) AccountByName(username string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byName[username]
	if !ok {
		return 0, false
	}
	return r.id, true
}
