package prompt

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/idm-forms/pkg/validate"
)

type stubDriver struct {
	inputs    []string
	passwords []string
	confirms  []bool
	messages  []string
	rejected  []string
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	if len(s.inputs) == 0 {
		return "", stderrors.New("no input scripted")
	}
	v := s.inputs[0]
	s.inputs = s.inputs[1:]
	if cfg.Validator != nil {
		if err := cfg.Validator(v); err != nil {
			s.rejected = append(s.rejected, err.Error())
		}
	}
	return v, nil
}

func (s *stubDriver) Password(_ context.Context, cfg InputConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	if len(s.passwords) == 0 {
		return "", stderrors.New("no password scripted")
	}
	v := s.passwords[0]
	s.passwords = s.passwords[1:]
	return v, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.messages = append(s.messages, cfg.Message)
	if len(s.confirms) == 0 {
		return false, stderrors.New("no confirm scripted")
	}
	v := s.confirms[0]
	s.confirms = s.confirms[1:]
	return v, nil
}

func TestFill_Login(t *testing.T) {
	d := &stubDriver{inputs: []string{"ada@example.com"}, passwords: []string{"secret"}, confirms: []bool{true}}
	var email, password string
	var remember bool

	require.NoError(t, Fill(context.Background(), d, Fields{Email: &email, Password: &password, Remember: &remember}))
	assert.Equal(t, "ada@example.com", email)
	assert.Equal(t, "secret", password)
	assert.True(t, remember)
	assert.Equal(t, []string{"Email:", "Password:", "Remember me?"}, d.messages)
}

func TestFill_SkipsProvidedValues(t *testing.T) {
	d := &stubDriver{}
	name, email, password, confirm := "Ada", "ada@example.com", "secret1", "secret1"
	remember := false

	require.NoError(t, Fill(context.Background(), d, Fields{
		Name: &name, Email: &email, Password: &password, ConfirmPassword: &confirm, Remember: &remember,
	}))
	assert.Empty(t, d.messages)
	assert.False(t, remember)
}

func TestFill_Signup(t *testing.T) {
	d := &stubDriver{inputs: []string{"Ada", "not-an-email"}, passwords: []string{"secret1", "secret2"}}
	var name, email, password, confirm string

	require.NoError(t, Fill(context.Background(), d, Fields{Name: &name, Email: &email, Password: &password, ConfirmPassword: &confirm}))
	assert.Equal(t, []string{"Name:", "Email:", "Password:", "Confirm password:"}, d.messages)
	assert.Equal(t, "secret2", confirm)
	assert.Equal(t, []string{validate.MsgEmailInvalid}, d.rejected)
}

func TestFill_PropagatesDriverError(t *testing.T) {
	var email string
	err := Fill(context.Background(), &stubDriver{}, Fields{Email: &email})
	assert.EqualError(t, err, "no input scripted")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, emailValidator("a@b.co"))
	assert.EqualError(t, emailValidator(" "), validate.MsgEmailRequired)
	assert.EqualError(t, required(validate.MsgNameRequired)(""), validate.MsgNameRequired)
	assert.EqualError(t, required(validate.MsgNameRequired)("  "), validate.MsgNameRequired)

	assert.EqualError(t, passwordValidator(""), validate.MsgPasswordRequired)
	assert.NoError(t, passwordValidator("   "))
	assert.Empty(t, validate.Login(validate.LoginValues{Email: "a@b.co", Password: "   "}))
}

func TestSurveyDriver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SurveyDriver{}.Input(ctx, InputConfig{Message: "Email:"})
	assert.ErrorIs(t, err, context.Canceled)
}
