package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"backend/internal/model"
)

// TokenStore is the persisted session storage contract: save a durable
// token record, load it back by the opaque token string, clear it.
// Clearing an absent token is a no-op.
type TokenStore interface {
	Save(ctx context.Context, rec *model.SessionToken, secret string) error
	Load(ctx context.Context, token string) (*model.SessionToken, error)
	Clear(ctx context.Context, token string) error
}

// MintToken creates a fresh durable token for a session. The raw token
// handed to the client is "<id>.<secret>"; stores persist only a hash
// of the secret half.
func MintToken(sess model.Session, ttl time.Duration) (raw string, rec *model.SessionToken, secret string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", nil, "", err
	}
	secret = base64.RawURLEncoding.EncodeToString(buf)
	id := uuid.New()
	rec = &model.SessionToken{
		ID:        id,
		UserID:    sess.UserID,
		Email:     sess.Email,
		FirstName: sess.FirstName,
		LastName:  sess.LastName,
		Role:      string(sess.Role),
		ExpiresAt: time.Now().Add(ttl),
	}
	return id.String() + "." + secret, rec, secret, nil
}

// SplitToken separates the raw token into its id and secret halves.
func SplitToken(raw string) (id uuid.UUID, secret string, err error) {
	head, tail, ok := strings.Cut(raw, ".")
	if !ok {
		return uuid.Nil, "", ErrTokenNotFound
	}
	id, err = uuid.Parse(head)
	if err != nil {
		return uuid.Nil, "", ErrTokenNotFound
	}
	return id, tail, nil
}

// MemoryStore keeps token records in process memory. Used by tests and
// single-node development setups.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[uuid.UUID]memoryRecord
}

type memoryRecord struct {
	rec    model.SessionToken
	secret string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[uuid.UUID]memoryRecord)}
}

func (s *MemoryStore) Save(_ context.Context, rec *model.SessionToken, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.ID] = memoryRecord{rec: *rec, secret: secret}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, token string) (*model.SessionToken, error) {
	id, secret, err := SplitToken(token)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	entry, ok := s.recs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrTokenNotFound
	}
	if subtle.ConstantTimeCompare([]byte(entry.secret), []byte(secret)) != 1 {
		return nil, ErrTokenNotFound
	}
	if time.Now().After(entry.rec.ExpiresAt) {
		return nil, ErrTokenNotFound
	}
	rec := entry.rec
	return &rec, nil
}

func (s *MemoryStore) Clear(_ context.Context, token string) error {
	id, _, err := SplitToken(token)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	delete(s.recs, id)
	s.mu.Unlock()
	return nil
}
