package validate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	MsgRequired      = "this field is required"
	MsgNumber        = "must be a number"
	MsgPositive      = "must be above $0.0"
	MsgMaxPrice      = "must not be greater than 100000"
	MsgDecimalPlaces = "must have at most 2 decimal places"
	MsgUUID          = "must be a valid UUID"
	MsgImage         = "upload a valid image, the file you uploaded was either not an image or a corrupted image"
)

var maxPrice = decimal.NewFromInt(100000)

var (
	once     sync.Once
	validate *validator.Validate
)

// Get returns the shared validator. Field names in errors follow the json tags.
func Get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
		v.RegisterValidation("positive", isPositive)
		v.RegisterValidation("max_price", isBelowMaxPrice)
		v.RegisterValidation("decimal_places", hasTwoDecimalPlaces)
		validate = v
	})
	return validate
}

func isPositive(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return true
	}
	return d.IsPositive()
}

func isBelowMaxPrice(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return true
	}
	return d.LessThanOrEqual(maxPrice)
}

func hasTwoDecimalPlaces(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return true
	}
	return d.Equal(d.Truncate(2))
}

// FieldErrors maps a json field path such as "price" or "cart_items[0].quantity"
// to the messages explaining why it was rejected.
type FieldErrors map[string][]string

func NewFieldError(field string, message string) FieldErrors {
	return FieldErrors{field: {message}}
}

func (f FieldErrors) Add(field string, message string) {
	f[field] = append(f[field], message)
}

func (f FieldErrors) Merge(other FieldErrors) {
	for field, messages := range other {
		f[field] = append(f[field], messages...)
	}
}

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(f[field], ", ")))
	}
	return "invalid fields " + strings.Join(parts, "; ")
}

// Struct validates s and converts validation failures into FieldErrors.
func Struct(c context.Context, s interface{}) error {
	err := Get().StructCtx(c, s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	return Translate(validationErrors)
}

func Translate(validationErrors validator.ValidationErrors) FieldErrors {
	fieldErrors := FieldErrors{}
	for _, fe := range validationErrors {
		fieldErrors.Add(fieldPath(fe), message(fe))
	}
	return fieldErrors
}

// fieldPath drops the struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "numeric", "number":
		return MsgNumber
	case "positive":
		return MsgPositive
	case "max_price":
		return MsgMaxPrice
	case "decimal_places":
		return MsgDecimalPlaces
	case "uuid", "uuid4":
		return MsgUUID
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must have at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must have no more than %s characters", fe.Param())
		}
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed on %s validation", fe.Tag())
	}
}
