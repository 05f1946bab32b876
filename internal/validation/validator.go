// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Package validation wraps a process-wide go-playground/validator instance
// with the custom tags Airlake needs:
//
//   - yearmonth: string in "YYYY-MM" form
//   - parameter: pollutant code such as pm25, pm10, no2, o3
//   - sqlident: lowercase SQL identifier, used for schema names that are
//     rendered into SQL templates
//
// Field names in error messages come from the `query`, `koanf` or `json`
// tags so that messages name what the operator actually typed.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	parameterPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.]{0,31}$`)
	sqlIdentPattern  = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Value   interface{}
	Message string
}

// Error returns the human-readable message.
func (e FieldError) Error() string {
	return e.Message
}

// Error collects every failed rule of one Struct call.
type Error struct {
	Fields []FieldError
}

// Error joins the field messages.
func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Details returns the field errors in a JSON friendly shape.
func (e *Error) Details() map[string]interface{} {
	fields := make([]map[string]interface{}, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = map[string]interface{}{"field": f.Field, "tag": f.Tag, "message": f.Message}
	}
	return map[string]interface{}{"fields": fields}
}

// Validator returns the singleton validator with custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(fieldName)
		mustRegister(v, "yearmonth", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01", fl.Field().String())
			return err == nil
		})
		mustRegister(v, "parameter", func(fl validator.FieldLevel) bool {
			return parameterPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "sqlident", func(fl validator.FieldLevel) bool {
			return sqlIdentPattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// fieldName picks the name the operator sees for a struct field.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"query", "koanf", "json"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Struct validates s. It returns nil or an *Error.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		field := fieldPath(fe)
		out.Fields[i] = FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: translate(field, fe),
		}
	}
	return out
}

// fieldPath drops the root struct name from the namespace:
// "Config.database.path" becomes "database.path".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Var validates a single value against tag.
func Var(field string, value interface{}, tag string) error {
	err := Validator().Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &Error{Fields: []FieldError{{
			Field:   field,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   value,
			Message: translate(field, fe),
		}}}
	}
	return fmt.Errorf("%s: %w", field, err)
}

var messages = map[string]string{
	"required":  "%s is required",
	"yearmonth": "%s must be a month in YYYY-MM form",
	"parameter": "%s must be a lowercase pollutant code such as pm25",
	"sqlident":  "%s must be a lowercase SQL identifier",
	"url":       "%s must be a valid URL",
	"unique":    "%s must not contain duplicates",
	"dive":      "%s contains an invalid element",
}

var paramMessages = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
}

func translate(field string, fe validator.FieldError) string {
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := paramMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
