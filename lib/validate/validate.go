package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	instance *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return instance
}

// FieldError is one failed rule; Value is the rejected input with pointers dereferenced.
type FieldError struct {
	Field string
	Tag   string
	Param string
	Value string
}

func (e FieldError) String() string {
	if e.Param != "" {
		return fmt.Sprintf("%s %s=%s", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Tag)
}

// Errors lists failed rules in struct field order.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fieldErr := range e {
		parts = append(parts, fieldErr.String())
	}
	return strings.Join(parts, "; ")
}

// Struct validates a single struct object; the error lists failing fields by json name
func Struct(s interface{}) error {
	if s == nil {
		return fmt.Errorf("is nil")
	}
	if !isStruct(s) {
		return fmt.Errorf("not a struct")
	}
	var validationErrors validator.ValidationErrors
	var invalidValidationError *validator.InvalidValidationError

	err := get().Struct(s)
	if err == nil {
		return nil
	}

	if errors.As(err, &validationErrors) {
		list := make(Errors, 0, len(validationErrors))
		for _, fieldErr := range validationErrors {
			list = append(list, FieldError{
				Field: fieldErr.Field(),
				Tag:   fieldErr.Tag(),
				Param: fieldErr.Param(),
				Value: valueString(fieldErr.Value()),
			})
		}
		return list
	} else if errors.As(err, &invalidValidationError) {
		return fmt.Errorf("invalid validation error: %w", err)
	} else {
		return fmt.Errorf("unknown validation error: %w", err)
	}
}

func valueString(v interface{}) string {
	r := reflect.ValueOf(v)
	for r.Kind() == reflect.Ptr {
		if r.IsNil() {
			return ""
		}
		r = r.Elem()
	}
	if !r.IsValid() {
		return ""
	}
	return fmt.Sprint(r.Interface())
}

func isStruct(s interface{}) bool {
	r := reflect.TypeOf(s)
	if r.Kind() == reflect.Ptr {
		r = r.Elem()
	}
	return r.Kind() == reflect.Struct
}
