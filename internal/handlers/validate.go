package handlers

import (
	"errors"
	"io"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"humanityclub/site/internal/apperr"
)

var (
	errBadBody        = apperr.New(apperr.KindValidation, "Invalid request body")
	errInvalidRequest = apperr.New(apperr.KindValidation, "Invalid request")

	registerOnce sync.Once
)

// registerValidators adds the tags the request DTOs use beyond the
// validator defaults.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("notblank", validators.NotBlank)
		}
	})
}

// fieldRules maps a failed binding tag to the message the client sees.
// Keys are "Field.tag" or just "Field".
type fieldRules map[string]*apperr.Error

func (r fieldRules) translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(err, apperr.KindValidation, errBadBody.Message)
	}
	fe := verrs[0]
	if rule, ok := r[fe.Field()+"."+fe.Tag()]; ok {
		return rule
	}
	if rule, ok := r[fe.Field()]; ok {
		return rule
	}
	return apperr.Wrap(err, apperr.KindValidation, errInvalidRequest.Message)
}

// bindJSON decodes an optional JSON body and runs its binding tags. An empty
// body is validated as the zero value so required fields still fail.
func bindJSON(c *gin.Context, dst any, rules fieldRules) error {
	err := c.ShouldBindJSON(dst)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(dst)
	}
	if err != nil {
		return rules.translate(err)
	}
	return nil
}
