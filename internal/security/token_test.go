package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"humanityclub/site/internal/config"
)

func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		JWTAccessSecret:  "access-secret-for-tests",
		JWTRefreshSecret: "refresh-secret-for-tests",
		JWTAccessTTL:     15 * time.Minute,
		JWTRefreshTTL:    7 * 24 * time.Hour,
	}
}

func newTestIssuer(t *testing.T, now *time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecurityConfig())
	require.NoError(t, err)
	return issuer.WithClock(func() time.Time { return *now })
}

func TestNewTokenIssuerRejectsMisconfiguration(t *testing.T) {
	t.Parallel()

	cfg := testSecurityConfig()
	cfg.JWTRefreshSecret = ""
	_, err := NewTokenIssuer(cfg)
	require.Error(t, err)

	cfg = testSecurityConfig()
	cfg.JWTRefreshSecret = cfg.JWTAccessSecret
	_, err = NewTokenIssuer(cfg)
	require.Error(t, err)

	cfg = testSecurityConfig()
	cfg.JWTAccessTTL = 0
	_, err = NewTokenIssuer(cfg)
	require.Error(t, err)
}

func TestIssueAndParse(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, &now)

	pair, err := issuer.Issue("user-1", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, now.Add(15*time.Minute), pair.AccessExpiresAt)
	require.Equal(t, now.Add(7*24*time.Hour), pair.RefreshExpiresAt)

	access, err := issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", access.UserID)
	require.Equal(t, "admin", access.Role)

	refresh, err := issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", refresh.UserID)
}

func TestAccessTokenExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, &now)

	pair, err := issuer.Issue("user-1", "user")
	require.NoError(t, err)

	now = now.Add(14 * time.Minute)
	_, err = issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = issuer.ParseAccess(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenExpired)

	// The refresh token outlives the access token.
	_, err = issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	now := time.Now()
	issuer := newTestIssuer(t, &now)

	pair, err := issuer.Issue("user-1", "admin")
	require.NoError(t, err)

	_, err = issuer.ParseAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.ParseRefresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseRejectsForeignSignatures(t *testing.T) {
	t.Parallel()

	now := time.Now()
	issuer := newTestIssuer(t, &now)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS512, AccessClaims{
		UserID: "user-1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := forged.SignedString([]byte("someone-elses-secret"))
	require.NoError(t, err)

	_, err = issuer.ParseAccess(signed)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.ParseAccess("not-a-token")
	require.ErrorIs(t, err, ErrTokenInvalid)
	require.False(t, errors.Is(err, ErrTokenExpired))
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	now := time.Now()
	issuer := newTestIssuer(t, &now)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		UserID: "user-1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(signed)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	t.Parallel()

	now := time.Now()
	issuer := newTestIssuer(t, &now)

	first, err := issuer.Issue("user-1", "admin")
	require.NoError(t, err)
	second, err := issuer.Issue("user-1", "admin")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
}
