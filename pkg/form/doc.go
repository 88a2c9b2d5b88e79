// Package form holds the state of the login and signup forms and runs their
// submit cycle.
//
// A form instance owns its Values and a State (phase, loading flag, error
// messages, success message). Views observe it through Subscribe and mutate
// it through UpdateField and Submit:
//
//	f := form.NewLoginForm(submit.New(submit.WithBaseURL(base)),
//		form.WithOnSuccess(func(payload any) { /* navigate */ }))
//	unsubscribe := f.Subscribe(func(s form.Snapshot) { render(s) })
//	defer unsubscribe()
//
//	f.UpdateField("email", "ada@example.com")
//	f.UpdateField("password", "secret")
//	f.Submit(ctx)
//
// One submit cycle moves Idle → Validating → Idle (invalid input) or
// Idle → Validating → Submitting → Idle. Loading is true only while
// Submitting, and Submit returns ErrSubmissionInFlight without touching the
// network when called during that time.
//
// Once the request is sent it always runs to completion: cancelling the
// context passed to Submit does not abort it. Call Detach when the view goes
// away so late results do not reach it.
package form
