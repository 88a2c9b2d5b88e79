package form

import (
	"context"
)

// LoginForm drives the login form: email, password and "remember me".
type LoginForm struct {
	*controller
}

// NewLoginForm creates a login form posting to DefaultLoginEndpoint unless
// WithEndpoint says otherwise.
func NewLoginForm(poster Poster, opts ...Option) *LoginForm {
	return &LoginForm{controller: newController(poster, DefaultLoginEndpoint, opts)}
}

// Submit validates and, if the values are valid, posts them. Validation
// problems and server or network failures end up in State().Errors, not in
// the returned error, which is only ErrSubmissionInFlight. Values are kept
// after a failure so the user can fix them.
func (f *LoginForm) Submit(ctx context.Context) error {
	values, ok, err := f.begin(Values.loginErrors)
	if err != nil || !ok {
		return err
	}

	res := f.post(ctx, values.loginRequest())
	f.finish(res, nil)

	if !res.OK() {
		return nil
	}
	if f.settings.onSuccess != nil {
		f.settings.onSuccess(res.Payload)
		return nil
	}
	f.settings.logger.Info("Login succeeded", "endpoint", f.settings.endpoint, "status", res.Status)
	return nil
}
