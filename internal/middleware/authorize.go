package middleware

import (
	"github.com/gin-gonic/gin"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/respond"
)

var (
	ErrAdminOnly        = apperr.New(apperr.KindForbidden, "Access denied: Admin only resource")
	ErrInsufficientRole = apperr.New(apperr.KindForbidden, "Access denied: insufficient role")
)

// RequireRoles must run after Auth; without an attached user it answers 401.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return requireRoles(ErrInsufficientRole, roles...)
}

func IsAdmin() gin.HandlerFunc {
	return requireRoles(ErrAdminOnly, models.UserRoleAdmin)
}

func requireRoles(denied error, roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			respond.Abort(c, ErrLoginRequired)
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			respond.Abort(c, denied)
			return
		}

		c.Next()
	}
}
