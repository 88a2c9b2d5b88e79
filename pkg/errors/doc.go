// Package errors provides structured error handling with error codes for idm-forms.
//
// Every failure in the form core, the catalog client and the dev API is an
// *Error carrying a typed code, a human-readable message that can be shown to
// the user as is, optional details and an optional wrapped cause.
//
// # Taxonomy
//
//   - Validation: ErrCodeValidationFailed, with per-field codes
//     ErrCodeMissingRequired, ErrCodeInvalidFormat, ErrCodeValueTooShort and
//     ErrCodePasswordMismatch. Detected before any network activity.
//   - ErrCodeRequestFailed: the server answered with a non-success status.
//     The "status" detail holds the HTTP status code.
//   - ErrCodeTransportFailed: the request never produced a response.
//
// # Basic Usage
//
//	err := errors.New(errors.ErrCodeUserAlreadyExists, "email already registered")
//
//	if errors.IsCode(err, errors.ErrCodeUserAlreadyExists) {
//		// Handle conflict
//	}
//
//	// Display text for the user
//	msg := errors.GetMessage(err)
//
// # HTTP Status Code Mapping
//
// The dev API turns structured errors into responses with
// MapErrorCodeToHTTPStatus:
//   - ErrCodeInvalidInput → 400 Bad Request
//   - ErrCodeInvalidCredentials → 401 Unauthorized
//   - ErrCodeNotFound → 404 Not Found
//   - ErrCodeUserAlreadyExists → 409 Conflict
//   - ErrCodeRateLimitExceeded → 429 Too Many Requests
//   - ErrCodeInternal → 500 Internal Server Error
package errors
