package checkin

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentity means no token could be extracted for the openid.
	ErrInvalidIdentity = errors.New("error getting accessToken, maybe your openid is invalid")
	// ErrUnresolvableEnrollment means profile, course or fallback config lacked a required field.
	ErrUnresolvableEnrollment = errors.New("error getting join data, maybe your openid is invalid or given nid/cardNo is invalid")
)

// RemoteRejection is returned when the join endpoint answers with a non-success status.
type RemoteRejection struct {
	Status  string
	Message string
}

func (e *RemoteRejection) Error() string {
	return fmt.Sprintf("check-in rejected (status %s): %s", e.Status, e.Message)
}

// TransportError wraps network, HTTP and decoding failures of a single call.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
