package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tendant/idm-forms/pkg/errors"
)

// MinPasswordLength is the shortest password the signup form accepts.
const MinPasswordLength = 6

// Field names as they appear on the wire and in UpdateField.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldRemember        = "remember"
)

// Messages reported to the user.
const (
	MsgNameRequired     = "Name is required."
	MsgEmailRequired    = "Email is required."
	MsgEmailInvalid     = "Email is invalid."
	MsgPasswordRequired = "Password is required."
	MsgPasswordMismatch = "Passwords do not match."
)

// MsgPasswordTooShort is reported when a signup password is under MinPasswordLength.
var MsgPasswordTooShort = fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// LoginValues is the subset of form values the login validator reads.
type LoginValues struct {
	Email    string
	Password string
}

// SignupValues is the subset of form values the signup validator reads.
type SignupValues struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// FieldError is one field-level problem.
type FieldError struct {
	Field   string
	Code    errors.ErrorCode
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors is an ordered collection of field problems.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := "validation failed:"
	for _, fe := range e {
		msg += fmt.Sprintf("\n  - %s", fe.Error())
	}
	return msg
}

// HasErrors returns true if there are any field errors
func (e FieldErrors) HasErrors() bool {
	return len(e) > 0
}

// Messages returns the user-facing messages in report order.
func (e FieldErrors) Messages() []string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return msgs
}

// AsError converts the collection into a structured VALIDATION_FAILED error,
// or nil when empty. Details map each field to its first message.
func (e FieldErrors) AsError() error {
	if len(e) == 0 {
		return nil
	}
	details := make(map[string]interface{}, len(e))
	for _, fe := range e {
		if _, ok := details[fe.Field]; !ok {
			details[fe.Field] = fe.Message
		}
	}
	return errors.ValidationFailed(details)
}

// EmailValid reports whether s looks like local@domain.tld after trimming.
func EmailValid(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// LoginFields validates the login form. All applicable errors are collected;
// a missing value is reported instead of, never alongside, a format error.
func LoginFields(v LoginValues) FieldErrors {
	var errs FieldErrors
	errs = checkEmail(errs, v.Email)
	if v.Password == "" {
		errs = append(errs, FieldError{FieldPassword, errors.ErrCodeMissingRequired, MsgPasswordRequired})
	}
	return errs
}

// SignupFields validates the signup form. The confirmation check runs even
// when the password itself is missing or too short.
func SignupFields(v SignupValues) FieldErrors {
	var errs FieldErrors
	if strings.TrimSpace(v.Name) == "" {
		errs = append(errs, FieldError{FieldName, errors.ErrCodeMissingRequired, MsgNameRequired})
	}
	errs = checkEmail(errs, v.Email)
	switch {
	case v.Password == "":
		errs = append(errs, FieldError{FieldPassword, errors.ErrCodeMissingRequired, MsgPasswordRequired})
	case utf8.RuneCountInString(v.Password) < MinPasswordLength:
		errs = append(errs, FieldError{FieldPassword, errors.ErrCodeValueTooShort, MsgPasswordTooShort})
	}
	if v.Password != v.ConfirmPassword {
		errs = append(errs, FieldError{FieldConfirmPassword, errors.ErrCodePasswordMismatch, MsgPasswordMismatch})
	}
	return errs
}

// Login returns the login form's error messages; empty means valid.
func Login(v LoginValues) []string {
	return LoginFields(v).Messages()
}

// Signup returns the signup form's error messages; empty means valid.
func Signup(v SignupValues) []string {
	return SignupFields(v).Messages()
}

// FirstError returns the first message, or "" when there is none.
func FirstError(msgs []string) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0]
}

func checkEmail(errs FieldErrors, email string) FieldErrors {
	if strings.TrimSpace(email) == "" {
		return append(errs, FieldError{FieldEmail, errors.ErrCodeMissingRequired, MsgEmailRequired})
	}
	if !EmailValid(email) {
		return append(errs, FieldError{FieldEmail, errors.ErrCodeInvalidFormat, MsgEmailInvalid})
	}
	return errs
}
