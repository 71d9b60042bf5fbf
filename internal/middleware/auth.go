package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/repository"
	"humanityclub/site/internal/respond"
	"humanityclub/site/internal/security"
)

const (
	currentUserKey  = "current_user"
	accessClaimsKey = "access_claims"
)

var (
	ErrLoginRequired = apperr.New(apperr.KindToken, "Please login to access this resource")
	ErrTokenExpired  = apperr.New(apperr.KindToken, "Token expired")
	ErrTokenInvalid  = apperr.New(apperr.KindToken, "Invalid token")
	ErrUserNotFound  = apperr.New(apperr.KindToken, "User not found")
)

type AccessVerifier interface {
	ParseAccess(token string) (*security.AccessClaims, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

// Auth verifies the bearer access token and attaches the account it names,
// stripped of credential fields, to the request.
func Auth(tokens AccessVerifier, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := BearerToken(c)
		if !ok {
			respond.Abort(c, ErrLoginRequired)
			return
		}

		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				respond.Abort(c, ErrTokenExpired)
				return
			}
			respond.Abort(c, ErrTokenInvalid)
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				respond.Abort(c, ErrUserNotFound)
				return
			}
			respond.Abort(c, apperr.Wrap(err, apperr.KindInternal, "Authentication error"))
			return
		}

		c.Set(accessClaimsKey, *claims)
		c.Set(currentUserKey, user.Public())

		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the account attached by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
