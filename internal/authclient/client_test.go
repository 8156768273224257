package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/model"
	"backend/internal/session"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Email != "rider@laundry.test" || req.Password != "correct" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		token, err := SignSession(model.Session{
			UserID: uuid.New(),
			Email:  req.Email,
			Role:   model.RoleRider,
		}, testSecret, time.Hour)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(tokenEnvelope{Token: token, RefreshToken: "refresh-1"})
	})
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken != "refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		token, err := SignSession(model.Session{
			UserID: uuid.New(),
			Role:   model.RoleRider,
		}, testSecret, time.Hour)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(tokenEnvelope{Token: token, RefreshToken: "refresh-2"})
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientLogin(t *testing.T) {
	srv := newAuthServer(t)
	c := New(srv.URL, testSecret, nil)

	res, err := c.Login(context.Background(), "rider@laundry.test", "correct")
	require.NoError(t, err)
	assert.Equal(t, model.RoleRider, res.Session.Role)
	assert.Equal(t, "refresh-1", res.RefreshToken)
	assert.NotEmpty(t, res.AccessToken)

	// The issued token validates locally.
	sess, err := c.Validate(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Session.UserID, sess.UserID)
}

func TestClientLoginBadCredentials(t *testing.T) {
	srv := newAuthServer(t)
	c := New(srv.URL, testSecret, nil)

	_, err := c.Login(context.Background(), "rider@laundry.test", "wrong")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
}

func TestClientRefresh(t *testing.T) {
	srv := newAuthServer(t)
	c := New(srv.URL, testSecret, nil)

	res, err := c.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", res.RefreshToken)

	_, err = c.Refresh(context.Background(), "expired")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
}

func TestClientLogout(t *testing.T) {
	srv := newAuthServer(t)
	c := New(srv.URL, testSecret, nil)

	assert.NoError(t, c.Logout(context.Background(), "some-token"))
}

func TestClientRejectsForeignToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := SignSession(model.Session{UserID: uuid.New(), Role: model.RoleRider}, []byte("rogue"), time.Hour)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(tokenEnvelope{Token: token})
	}))
	defer srv.Close()

	c := New(srv.URL, testSecret, nil)
	_, err := c.Login(context.Background(), "a@b.c", "pw")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
