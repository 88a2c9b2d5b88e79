package form

import (
	"fmt"
	"strings"

	"github.com/tendant/idm-forms/pkg/errors"
	"github.com/tendant/idm-forms/pkg/validate"
)

// Values holds everything the user typed into one form instance. The login
// form only uses Email, Password and Remember.
type Values struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Remember        bool
}

// UpdateField sets one field by its wire name. Strings go to the text fields,
// a bool goes to "remember".
func (v *Values) UpdateField(name string, value any) error {
	if name == validate.FieldRemember {
		b, ok := value.(bool)
		if !ok {
			return errors.InvalidInput(name, fmt.Sprintf("expected bool, got %T", value))
		}
		v.Remember = b
		return nil
	}

	var target *string
	switch name {
	case validate.FieldName:
		target = &v.Name
	case validate.FieldEmail:
		target = &v.Email
	case validate.FieldPassword:
		target = &v.Password
	case validate.FieldConfirmPassword:
		target = &v.ConfirmPassword
	default:
		return errors.InvalidInput("field", fmt.Sprintf("unknown field %q", name))
	}

	s, ok := value.(string)
	if !ok {
		return errors.InvalidInput(name, fmt.Sprintf("expected string, got %T", value))
	}
	*target = s
	return nil
}

// LoginRequest is the JSON body posted by the login form.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// SignupRequest is the JSON body posted by the signup form. The password
// confirmation never leaves the client.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (v Values) loginRequest() LoginRequest {
	return LoginRequest{
		Email:    strings.TrimSpace(v.Email),
		Password: v.Password,
		Remember: v.Remember,
	}
}

func (v Values) signupRequest() SignupRequest {
	return SignupRequest{
		Name:     strings.TrimSpace(v.Name),
		Email:    strings.TrimSpace(v.Email),
		Password: v.Password,
	}
}

func (v Values) loginErrors() []string {
	return validate.Login(validate.LoginValues{Email: v.Email, Password: v.Password})
}

func (v Values) signupErrors() []string {
	return validate.Signup(validate.SignupValues{
		Name:            v.Name,
		Email:           v.Email,
		Password:        v.Password,
		ConfirmPassword: v.ConfirmPassword,
	})
}
