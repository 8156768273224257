package repository

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"backend/internal/model"
	"backend/internal/session"
)

// tokenRepository persists session tokens in Postgres. Only a bcrypt
// hash of the token secret is stored; a leaked table cannot be replayed.
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository returns a gorm-backed session.TokenStore.
func NewTokenRepository(db *gorm.DB) session.TokenStore {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Save(ctx context.Context, rec *model.SessionToken, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	stored := *rec
	stored.SecretHash = string(hash)
	return r.db.WithContext(ctx).Create(&stored).Error
}

func (r *tokenRepository) Load(ctx context.Context, token string) (*model.SessionToken, error) {
	id, secret, err := session.SplitToken(token)
	if err != nil {
		return nil, err
	}
	var rec model.SessionToken
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrTokenNotFound
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.SecretHash), []byte(secret)) != nil {
		return nil, session.ErrTokenNotFound
	}
	if time.Now().After(rec.ExpiresAt) {
		// Expired rows are cleaned up lazily on access.
		_ = r.db.WithContext(ctx).Delete(&model.SessionToken{}, "id = ?", id).Error
		return nil, session.ErrTokenNotFound
	}
	return &rec, nil
}

func (r *tokenRepository) Clear(ctx context.Context, token string) error {
	id, _, err := session.SplitToken(token)
	if err != nil {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&model.SessionToken{}, "id = ?", id).Error
}
