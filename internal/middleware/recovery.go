package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/respond"
)

// Recovery answers a panicking handler with the generic internal error.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}
			zerolog.Ctx(c.Request.Context()).Error().
				Interface("panic", r).
				Str("route", c.FullPath()).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			respond.Abort(c, apperr.Wrap(fmt.Errorf("panic: %v", r), apperr.KindInternal, "Internal server error"))
		}()
		c.Next()
	}
}
