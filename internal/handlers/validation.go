package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/review-portal/internal/errors"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/services"
)

var registerOnce sync.Once

// RegisterValidators adds the enum tags used in request bindings to gin's
// validator: role, decision and encryption_level.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		tags := map[string]validator.Func{
			"role": func(fl validator.FieldLevel) bool {
				return models.Role(fl.Field().String()).Valid()
			},
			"decision": func(fl validator.FieldLevel) bool {
				return models.Decision(fl.Field().String()).Valid()
			},
			"encryption_level": func(fl validator.FieldLevel) bool {
				switch services.EncryptionLevel(fl.Field().String()) {
				case services.EncryptionStandard, services.EncryptionHigh:
					return true
				}
				return false
			},
		}
		for tag, fn := range tags {
			if err = v.RegisterValidation(tag, fn); err != nil {
				return
			}
		}
	})
	return err
}

// respondBindError reports which fields failed validation.
func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, services.ErrFileTooLarge)
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			details[fe.Field()] = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		} else {
			details[fe.Field()] = fe.Tag()
		}
	}
	apierrors.BadRequestWithDetails(c, "Invalid request body", details)
}
