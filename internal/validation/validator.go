package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/academia-api/internal/models"
	appErrors "github.com/noah-isme/academia-api/pkg/errors"
)

var personName = regexp.MustCompile(`^[a-zA-ZáàâãéèêíìîóòôõúùûçÇÁÀÂÃÉÈÊÍÌÎÓÒÔÕÚÙÛ\s]*$`)

// New builds a validator with the gym specific tags registered and field
// names reported by their json tag.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personName.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("sex", func(fl validator.FieldLevel) bool {
		return models.Sex(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("paymentmethod", func(fl validator.FieldLevel) bool {
		return models.PaymentMethod(fl.Field().String()).Valid()
	})
	return v
}

// FromValidator translates validator output into field-tagged messages.
func FromValidator(err error) []appErrors.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []appErrors.FieldError{{Message: err.Error()}}
	}
	out := make([]appErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		// dive errors name the element, e.g. modality_ids[1]
		if i := strings.IndexByte(field, '['); i > 0 {
			field = field[:i]
		}
		out = append(out, appErrors.FieldError{Field: field, Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("select at least %s", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "personname":
		return "only letters and spaces are allowed"
	case "sex":
		return "must be one of M, F, O"
	case "paymentmethod":
		return "must be one of PIX, CARD, CASH, BANK_TRANSFER"
	case "uuid":
		return "must be a valid identifier"
	}
	return "is invalid"
}

// Collector accumulates field errors so every problem is reported at once.
type Collector struct {
	fields []appErrors.FieldError
}

// Add records err when it is non-nil. FieldErrors keep their field tag.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	var fe appErrors.FieldError
	if errors.As(err, &fe) {
		c.fields = append(c.fields, fe)
		return
	}
	c.fields = append(c.fields, appErrors.FieldError{Message: err.Error()})
}

// AddField records a message against field.
func (c *Collector) AddField(field, message string) {
	c.fields = append(c.fields, appErrors.FieldError{Field: field, Message: message})
}

// Struct runs tag based validation on s.
func (c *Collector) Struct(v *validator.Validate, s interface{}) {
	if err := v.Struct(s); err != nil {
		c.fields = append(c.fields, FromValidator(err)...)
	}
}

// Has reports whether field already carries an error.
func (c *Collector) Has(field string) bool {
	for _, f := range c.fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns a ValidationError with everything collected, or nil.
func (c *Collector) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return appErrors.Validation(c.fields...)
}
