package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/respond"
)

type contactRequest struct {
	Name    string `json:"name" binding:"required,notblank"`
	Email   string `json:"email" binding:"required,notblank,email"`
	Message string `json:"message" binding:"required,notblank,max=5000"`
}

var (
	errContactFields  = apperr.New(apperr.KindValidation, "Please fill in all fields")
	errContactEmail   = apperr.New(apperr.KindValidation, "Please enter a valid email")
	errContactTooLong = apperr.New(apperr.KindValidation, "Message is too long")

	contactRules = fieldRules{
		"Name":        errContactFields,
		"Email":       errContactFields,
		"Email.email": errContactEmail,
		"Message":     errContactFields,
		"Message.max": errContactTooLong,
	}
)

func (h HandlerSet) SendContact(c *gin.Context) {
	var req contactRequest
	if err := bindJSON(c, &req, contactRules); err != nil {
		respond.Error(c, err)
		return
	}

	if err := h.deps.Contact.Submit(c.Request.Context(), req.Name, req.Email, req.Message); err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Your message has been sent successfully! We will get back to you soon.", nil)
}
