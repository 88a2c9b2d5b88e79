package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError is one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field of a config.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	var b strings.Builder
	b.WriteString("configuration validation failed:")
	for _, err := range e {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator returns the problems found in one part of a config.
type Validator func() ValidationErrors

// Validate runs validators in order and returns their combined errors, or nil.
func Validate(validators ...Validator) error {
	var all ValidationErrors
	for _, validator := range validators {
		all = append(all, validator()...)
	}
	if all.HasErrors() {
		return all
	}
	return nil
}

// CollectErrors drops the nil results of Require* checks.
func CollectErrors(errs ...*ValidationError) ValidationErrors {
	var result ValidationErrors
	for _, err := range errs {
		if err != nil {
			result = append(result, *err)
		}
	}
	return result
}

// WhenSet runs check only when value is non-empty.
func WhenSet(value string, check func() *ValidationError) *ValidationError {
	if value == "" {
		return nil
	}
	return check()
}

func RequireNonEmpty(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func RequirePositive(field string, value int) *ValidationError {
	if value <= 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be positive, got %d", value)}
	}
	return nil
}

func RequirePositiveFloat(field string, value float64) *ValidationError {
	if value <= 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be positive, got %g", value)}
	}
	return nil
}

// RequireDuration parses value with ParseDuration and checks it is at least min.
func RequireDuration(field, value string, min time.Duration) *ValidationError {
	d, err := ParseDuration(value)
	if err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid duration %q", value)}
	}
	if d < min {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be at least %v, got %v", min, d)}
	}
	return nil
}

// RequireValidURL checks value is an absolute http or https URL.
func RequireValidURL(field, value string) *ValidationError {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	u, err := url.Parse(value)
	if err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: field, Message: "URL must have a scheme (http:// or https://)"}
	}
	if u.Host == "" {
		return &ValidationError{Field: field, Message: "URL must have a host"}
	}
	return nil
}
