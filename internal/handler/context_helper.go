package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academia-api/internal/middleware"
	"github.com/noah-isme/academia-api/internal/models"
	"github.com/noah-isme/academia-api/internal/validation"
	appErrors "github.com/noah-isme/academia-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

// historyFilter reads the optional from/to query dates.
func historyFilter(c *gin.Context) (models.PaymentHistoryFilter, error) {
	var filter models.PaymentHistoryFilter
	var fields []appErrors.FieldError

	from, err := validation.ParseOptionalDate("from", c.Query("from"))
	if err != nil {
		fields = append(fields, fieldOf(err))
	}
	to, err := validation.ParseOptionalDate("to", c.Query("to"))
	if err != nil {
		fields = append(fields, fieldOf(err))
	}
	if len(fields) > 0 {
		return filter, appErrors.Validation(fields...)
	}
	filter.From = from
	filter.To = to
	return filter, nil
}

func fieldOf(err error) appErrors.FieldError {
	var fe appErrors.FieldError
	if errors.As(err, &fe) {
		return fe
	}
	return appErrors.FieldError{Message: err.Error()}
}
