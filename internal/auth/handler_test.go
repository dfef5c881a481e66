package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/gymsuite/internal/auth"
	"github.com/odyssey-erp/gymsuite/internal/shared"
	_ "github.com/odyssey-erp/gymsuite/testing"
)

const testSecret = "0123456789abcdef-test"

type stubRepo struct {
	user    *auth.User
	touched int
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) TouchLogin(ctx context.Context, userID int64) error {
	s.touched++
	return nil
}

func newRepo(t *testing.T) *stubRepo {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &stubRepo{user: &auth.User{ID: 5, Email: "clerk@gym.local", PasswordHash: string(hashed), CompanyID: 1, BranchIDs: []int64{2}, IsActive: true}}
}

func newRouter(svc *auth.Service) chi.Router {
	r := chi.NewRouter()
	r.Route("/auth", auth.NewHandler(nil, svc).MountRoutes)
	r.Group(func(r chi.Router) {
		r.Use(svc.Middleware)
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			rc, _ := shared.RequestFromContext(r.Context())
			_ = json.NewEncoder(w).Encode(rc)
		})
		r.With(auth.RequireAdmin).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func TestLoginIssuesTokenCarryingBranchScope(t *testing.T) {
	repo := newRepo(t)
	svc := auth.NewService(repo, testSecret, time.Hour, "USD")
	router := newRouter(svc)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"clerk@gym.local","password":"correctpass"}`)))
	require.Equal(t, http.StatusOK, res.Code)
	var token auth.Token
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &token))
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, 1, repo.touched)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	var rc shared.RequestContext
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &rc))
	assert.Equal(t, int64(5), rc.UserID)
	assert.Equal(t, []int64{2}, rc.AllowedBranches)
	assert.False(t, rc.IsAdmin)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := auth.NewService(newRepo(t), testSecret, time.Hour, "USD")
	res := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"clerk@gym.local","password":"wrongpass"}`)))
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMiddlewareRejectsForeignAndMissingTokens(t *testing.T) {
	repo := newRepo(t)
	svc := auth.NewService(repo, testSecret, time.Hour, "USD")
	other := auth.NewService(repo, "another-secret-value-123", time.Hour, "USD")
	foreign, err := other.IssueToken(repo.user)
	require.NoError(t, err)

	router := newRouter(svc)
	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer " + foreign.AccessToken} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusUnauthorized, res.Code, header)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	repo := newRepo(t)
	svc := auth.NewService(repo, testSecret, time.Millisecond, "USD")
	token, err := svc.IssueToken(repo.user)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = svc.ParseToken(token.AccessToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}
