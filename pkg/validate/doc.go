// Package validate checks login and signup form values before anything is sent.
//
// Both validators collect every applicable problem in a fixed order and
// return the messages in that order. For a single field, "required" always
// wins over "invalid": an empty email reports MsgEmailRequired and never
// MsgEmailInvalid. Callers that only want to show one message can use
// FirstError.
//
//	msgs := validate.Signup(validate.SignupValues{
//		Name:            "Ada",
//		Email:           "ada@example.com",
//		Password:        "secret1",
//		ConfirmPassword: "secret1",
//	})
//	if len(msgs) > 0 {
//		// show msgs
//	}
//
// The functions are pure: no I/O, no shared state.
package validate
