package auth

import "fmt"

// AuthError is returned when the token endpoint cannot issue a credential.
// No upstream item can be fetched until a later exchange succeeds.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream auth error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream auth error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AuthError) Unwrap() error {
	return e.Err
}
