package form

import (
	"context"
)

// SignupForm drives the signup form: name, email, password and confirmation.
type SignupForm struct {
	*controller
}

func NewSignupForm(poster Poster, opts ...Option) *SignupForm {
	return &SignupForm{controller: newController(poster, DefaultSignupEndpoint, opts)}
}

// Submit validates and posts the form. On success the values are cleared and
// State().Success holds SignupSuccessMessage. The returned error is only
// ErrSubmissionInFlight.
func (f *SignupForm) Submit(ctx context.Context) error {
	values, ok, err := f.begin(Values.signupErrors)
	if err != nil || !ok {
		return err
	}

	res := f.post(ctx, values.signupRequest())
	f.finish(res, func(v *Values, s *State) {
		*v = Values{}
		s.Success = SignupSuccessMessage
	})
	if res.OK() {
		f.settings.logger.Info("Signup succeeded", "endpoint", f.settings.endpoint)
	}
	return nil
}
