package prompt

import (
	"context"
	"errors"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/tendant/idm-forms/pkg/validate"
)

// ErrAborted is returned when the user interrupts a prompt with Ctrl+C.
var ErrAborted = errors.New("prompt: aborted")

// InputConfig configures a single line prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// Driver asks the questions. Tests script answers with a stub.
type Driver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Password(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
}

// SurveyDriver prompts on the terminal.
type SurveyDriver struct {
	Opts []survey.AskOpt
}

func (d SurveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	p := &survey.Input{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	if err := survey.AskOne(p, &out, d.askOpts(cfg.Validator)...); err != nil {
		return "", translate(err)
	}
	return out, nil
}

func (d SurveyDriver) Password(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	p := &survey.Password{Message: cfg.Message, Help: cfg.Help}
	if err := survey.AskOne(p, &out, d.askOpts(cfg.Validator)...); err != nil {
		return "", translate(err)
	}
	return out, nil
}

func (d SurveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	p := &survey.Confirm{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	if err := survey.AskOne(p, &out, d.Opts...); err != nil {
		return false, translate(err)
	}
	return out, nil
}

func (d SurveyDriver) askOpts(v func(string) error) []survey.AskOpt {
	opts := append([]survey.AskOpt(nil), d.Opts...)
	if v != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return v(s)
		}))
	}
	return opts
}

func translate(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// Fields the prompter can fill. Values already set are not asked again.
type Fields struct {
	Name            *string
	Email           *string
	Password        *string
	ConfirmPassword *string
	Remember        *bool
}

// Fill asks for every non-nil field that is still empty. Remember is only
// asked when Email or Password had to be prompted.
func Fill(ctx context.Context, d Driver, f Fields) error {
	asked := false
	if f.Name != nil && strings.TrimSpace(*f.Name) == "" {
		v, err := d.Input(ctx, InputConfig{Message: "Name:", Validator: required(validate.MsgNameRequired)})
		if err != nil {
			return err
		}
		*f.Name = v
		asked = true
	}
	if f.Email != nil && strings.TrimSpace(*f.Email) == "" {
		v, err := d.Input(ctx, InputConfig{Message: "Email:", Validator: emailValidator})
		if err != nil {
			return err
		}
		*f.Email = v
		asked = true
	}
	if f.Password != nil && *f.Password == "" {
		v, err := d.Password(ctx, InputConfig{Message: "Password:", Validator: passwordValidator})
		if err != nil {
			return err
		}
		*f.Password = v
		asked = true
	}
	if f.ConfirmPassword != nil && *f.ConfirmPassword == "" {
		v, err := d.Password(ctx, InputConfig{Message: "Confirm password:"})
		if err != nil {
			return err
		}
		*f.ConfirmPassword = v
		asked = true
	}
	if f.Remember != nil && !*f.Remember && asked {
		v, err := d.Confirm(ctx, ConfirmConfig{Message: "Remember me?"})
		if err != nil {
			return err
		}
		*f.Remember = v
	}
	return nil
}

func required(msg string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(msg)
		}
		return nil
	}
}

// passwordValidator only rejects an empty answer. Passwords are never trimmed.
func passwordValidator(s string) error {
	if s == "" {
		return errors.New(validate.MsgPasswordRequired)
	}
	return nil
}

func emailValidator(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New(validate.MsgEmailRequired)
	}
	if !validate.EmailValid(s) {
		return errors.New(validate.MsgEmailInvalid)
	}
	return nil
}
