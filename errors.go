package noahark

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConnectionInFlightTimeout = errors.New("timed out waiting for in-flight hub connection attempt")
	ErrConnectionManagerClosed   = errors.New("connection manager is closed")
	ErrMissingRequiredFields     = errors.New("emergency case is missing required fields")
	ErrInvalidCredentials        = errors.New("invalid username or password")
)

// ConnectionError is returned by Connect when the hub transport could not
// be established.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("hub connection to %s failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RequiredFieldsError lists the required case fields that were blank.
type RequiredFieldsError struct {
	Missing []string
}

func (e *RequiredFieldsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredFields, strings.Join(e.Missing, ", "))
}

func (e *RequiredFieldsError) Is(target error) bool {
	return target == ErrMissingRequiredFields
}

// GenericError Provides access to the body, error and model on returned errors.
type GenericError struct {
	status int
	body   []byte
	error  string
	model  interface{}
}

// Error returns non-empty string if there was an error.
func (e GenericError) Error() string {
	return e.error
}

// StatusCode returns the HTTP status of the failed response.
func (e GenericError) StatusCode() int {
	return e.status
}

// Body returns the raw bytes of the response
func (e GenericError) Body() []byte {
	return e.body
}

// Model returns the unpacked model of the error
func (e GenericError) Model() interface{} {
	return e.model
}
