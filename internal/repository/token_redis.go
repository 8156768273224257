package repository

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"backend/internal/model"
	"backend/internal/session"
)

const redisTokenPrefix = "session:token:"

// redisTokenStore persists session tokens in Redis with a TTL matching
// the token expiry, for multi-node deployments.
type redisTokenStore struct {
	client *redis.Client
}

type redisTokenPayload struct {
	Record     model.SessionToken `json:"record"`
	SecretHash string             `json:"secret_hash"`
}

// NewRedisTokenStore returns a redis-backed session.TokenStore.
func NewRedisTokenStore(client *redis.Client) session.TokenStore {
	return &redisTokenStore{client: client}
}

func (s *redisTokenStore) Save(ctx context.Context, rec *model.SessionToken, secret string) error {
	payload := redisTokenPayload{Record: *rec, SecretHash: hashSecret(secret)}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, redisTokenPrefix+rec.ID.String(), raw, ttl).Err()
}

func (s *redisTokenStore) Load(ctx context.Context, token string) (*model.SessionToken, error) {
	id, secret, err := session.SplitToken(token)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.Get(ctx, redisTokenPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrTokenNotFound
		}
		return nil, err
	}
	var payload redisTokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, session.ErrTokenNotFound
	}
	if subtle.ConstantTimeCompare([]byte(payload.SecretHash), []byte(hashSecret(secret))) != 1 {
		return nil, session.ErrTokenNotFound
	}
	return &payload.Record, nil
}

func (s *redisTokenStore) Clear(ctx context.Context, token string) error {
	id, _, err := session.SplitToken(token)
	if err != nil {
		return nil
	}
	return s.client.Del(ctx, redisTokenPrefix+id.String()).Err()
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
