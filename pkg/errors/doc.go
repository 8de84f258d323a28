// Package errors provides structured error handling with error codes for the
// CyberGuard server.
//
// Every service-level failure carries a typed ErrorCode; the API layer maps
// the code to an HTTP status via MapErrorCodeToHTTPStatus and renders a
// generic body,
// so internal detail never reaches the client.
//
// Creating errors with codes:
//
//	err := errors.New(errors.ErrCodeAccountNotFound, "account not found")
//	err := errors.Wrap(dbErr, errors.ErrCodeStoreUnavailable, "failed to query store")
//
// Inspecting errors:
//
//	if errors.IsCode(err, errors.ErrCodeAccountLocked) { ... }
//	code := errors.GetCode(err)
package errors
