// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed struct field.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// RequestError collects the field errors of one query request.
type RequestError struct {
	Fields []FieldError
}

// Error joins the field messages.
func (e *RequestError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		messages[i] = f.Message
	}
	return strings.Join(messages, "; ")
}

// Details returns the field errors in the shape used by the API error envelope.
func (e *RequestError) Details() map[string]interface{} {
	if len(e.Fields) == 1 {
		f := e.Fields[0]
		return map[string]interface{}{"field": f.Field, "tag": f.Tag, "param": f.Param}
	}
	fields := make([]map[string]interface{}, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = map[string]interface{}{"field": f.Field, "tag": f.Tag, "message": f.Message}
	}
	return map[string]interface{}{"fields": fields}
}

// GetValidator returns the process-wide validator. Safe for concurrent use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates s against its `validate` tags.
// Returns nil on success.
//
//	req := recentRequest{Limit: limit}
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Details())
//	}
func ValidateStruct(s interface{}) *RequestError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestError{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := make([]FieldError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translateError(fe),
		}
	}
	return &RequestError{Fields: out}
}

// ValidateVar validates a single value against a tag built at runtime, e.g.
// a limit whose maximum comes from configuration. field names the value in
// the returned errors.
//
//	if verr := validation.ValidateVar("limit", limit, fmt.Sprintf("min=1,max=%d", maxPage)); verr != nil {
//	    ...
//	}
func ValidateVar(field string, value interface{}, tag string) *RequestError {
	err := GetValidator().Var(value, tag)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestError{Fields: []FieldError{{Field: field, Tag: "unknown", Message: err.Error()}}}
	}

	out := make([]FieldError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: fieldMessage(field, fe.Tag(), fe.Param()),
		}
	}
	return &RequestError{Fields: out}
}

func translateError(fe validator.FieldError) string {
	return fieldMessage(fe.Field(), fe.Tag(), fe.Param())
}

func fieldMessage(name, tag, param string) string {
	field := strings.ToLower(name)

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
