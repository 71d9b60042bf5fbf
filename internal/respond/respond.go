// Package respond writes the API's JSON envelope.
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"humanityclub/site/internal/apperr"
)

const exposeDetailKey = "respond.expose_detail"

// Envelope wraps every successful response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorEnvelope wraps every failure. Detail is only filled outside
// production.
type ErrorEnvelope struct {
	Success bool        `json:"success"`
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
	Detail  string      `json:"detail,omitempty"`
}

// ExposeDetail installs the per-engine switch that lets error details reach
// clients.
func ExposeDetail(expose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(exposeDetailKey, expose)
		c.Next()
	}
}

func JSON(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func OK(c *gin.Context, data any) {
	JSON(c, http.StatusOK, "", data)
}

// Error answers with the envelope for err. Untyped errors become a generic
// internal error; the original is recorded on the context for the request
// logger.
func Error(c *gin.Context, err error) {
	status, body := envelopeFor(c, err)
	c.JSON(status, body)
}

// Abort is Error followed by aborting the handler chain.
func Abort(c *gin.Context, err error) {
	status, body := envelopeFor(c, err)
	c.AbortWithStatusJSON(status, body)
}

func envelopeFor(c *gin.Context, err error) (int, ErrorEnvelope) {
	_ = c.Error(err)

	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Wrap(err, apperr.KindInternal, "Internal server error")
	}

	body := ErrorEnvelope{
		Success: false,
		Kind:    appErr.Kind,
		Message: appErr.Message,
	}
	if c.GetBool(exposeDetailKey) {
		body.Detail = appErr.Detail
		if body.Detail == "" && appErr.Err != nil {
			body.Detail = appErr.Err.Error()
		}
	}
	return appErr.Kind.HTTPStatus(), body
}
