package authclient

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"backend/internal/model"
)

var (
	ErrInvalidToken = errors.New("authclient: invalid token")
	ErrExpiredToken = errors.New("authclient: token expired")
)

// ParseSession validates an access token against the shared HMAC
// secret and rebuilds the session it describes. The role claim is kept
// verbatim even when outside the known set: the evaluator treats
// unknown roles as a configuration defect and fails closed.
func ParseSession(tokenString string, secret []byte) (*model.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}
	roleStr, ok := claims["role"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	role, _ := model.ParseRole(roleStr)

	sess := &model.Session{
		UserID: userID,
		Role:   role,
	}
	if v, ok := claims["email"].(string); ok {
		sess.Email = v
	}
	if v, ok := claims["first_name"].(string); ok {
		sess.FirstName = v
	}
	if v, ok := claims["last_name"].(string); ok {
		sess.LastName = v
	}
	if v, ok := claims["iat"].(float64); ok {
		sess.IssuedAt = time.Unix(int64(v), 0)
	}
	if v, ok := claims["exp"].(float64); ok {
		sess.ExpiresAt = time.Unix(int64(v), 0)
	}
	return sess, nil
}

// SignSession issues an access token for a session. Mirrors the claim
// layout the authentication service uses, so locally issued tokens
// (tests, dev mode) validate the same way.
func SignSession(sess model.Session, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        sess.UserID.String(),
		"email":      sess.Email,
		"first_name": sess.FirstName,
		"last_name":  sess.LastName,
		"role":       string(sess.Role),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}
