package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/config"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/repository"
	"humanityclub/site/internal/respond"
	"humanityclub/site/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[string]models.User

func (f fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	u, ok := f[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type authFixture struct {
	now    time.Time
	issuer *security.TokenIssuer
	router *gin.Engine
}

func setupAuth(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	issuer, err := security.NewTokenIssuer(config.SecurityConfig{
		JWTAccessSecret:  "access-secret",
		JWTRefreshSecret: "refresh-secret",
		JWTAccessTTL:     15 * time.Minute,
		JWTRefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	f.issuer = issuer.WithClock(func() time.Time { return f.now })

	token := "stored-refresh"
	users := fakeUsers{
		"admin-1": {ID: "admin-1", Email: "admin@hco.org", Role: models.UserRoleAdmin, PasswordHash: []byte("hash"), RefreshToken: &token},
		"user-1":  {ID: "user-1", Email: "user@hco.org", Role: models.UserRoleUser},
	}

	r := gin.New()
	protected := r.Group("/", Auth(f.issuer, users))
	protected.GET("/me", func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		respond.OK(c, gin.H{"id": user.ID, "hasHash": user.PasswordHash != nil, "hasRefresh": user.RefreshToken != nil})
	})
	protected.GET("/admin", IsAdmin(), func(c *gin.Context) { respond.OK(c, nil) })
	f.router = r
	return f
}

func (f *authFixture) get(t *testing.T, path, authorization string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func (f *authFixture) bearer(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	pair, err := f.issuer.Issue(userID, string(role))
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func TestAuthRejectsMissingOrMalformedHeader(t *testing.T) {
	f := setupAuth(t)

	for _, header := range []string{"", "Token abc", "Bearer", "Bearer   "} {
		status, body := f.get(t, "/me", header)
		require.Equal(t, http.StatusUnauthorized, status, header)
		require.Equal(t, "Please login to access this resource", body["message"])
		require.Equal(t, string(apperr.KindToken), body["kind"])
	}
}

func TestAuthAcceptsValidToken(t *testing.T) {
	f := setupAuth(t)

	status, body := f.get(t, "/me", f.bearer(t, "admin-1", models.UserRoleAdmin))
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	require.Equal(t, "admin-1", data["id"])
	require.Equal(t, false, data["hasHash"])
	require.Equal(t, false, data["hasRefresh"])
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	f := setupAuth(t)
	header := f.bearer(t, "admin-1", models.UserRoleAdmin)

	f.now = f.now.Add(16 * time.Minute)
	status, body := f.get(t, "/me", header)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Token expired", body["message"])
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	f := setupAuth(t)

	status, body := f.get(t, "/me", "Bearer not.a.jwt")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid token", body["message"])
}

func TestAuthRejectsDeletedUser(t *testing.T) {
	f := setupAuth(t)

	status, body := f.get(t, "/me", f.bearer(t, "ghost", models.UserRoleAdmin))
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "User not found", body["message"])
}

func TestIsAdmin(t *testing.T) {
	f := setupAuth(t)

	status, _ := f.get(t, "/admin", f.bearer(t, "admin-1", models.UserRoleAdmin))
	require.Equal(t, http.StatusOK, status)

	status, body := f.get(t, "/admin", f.bearer(t, "user-1", models.UserRoleUser))
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "Access denied: Admin only resource", body["message"])
}

func TestIsAdminUsesStoredRole(t *testing.T) {
	f := setupAuth(t)

	// A token claiming admin for a user whose stored role is user is refused.
	status, _ := f.get(t, "/admin", f.bearer(t, "user-1", models.UserRoleAdmin))
	require.Equal(t, http.StatusForbidden, status)
}

func TestIsAdminWithoutAuth(t *testing.T) {
	r := gin.New()
	r.GET("/", IsAdmin(), func(c *gin.Context) { respond.OK(c, nil) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
