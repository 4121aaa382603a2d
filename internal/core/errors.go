package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound = "room_not_found"
	ErrCodeCallNotFound = "call_not_found"
	ErrCodeUserNotFound = "user_not_found"
	ErrCodeInvalidState = "invalid_state"
	ErrCodeConflict     = "conflict"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrCallNotFound = errors.New("call not found")
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidState = errors.New("invalid call state")
	ErrNotInCall    = errors.New("not part of this call")
	ErrConflict     = errors.New("resource already exists")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// errorFor maps a domain error onto the wire-level code taxonomy.
func errorFor(err error) *CoreError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRoomNotFound):
		return coreError(ErrCodeRoomNotFound, err.Error())
	case errors.Is(err, ErrCallNotFound):
		return coreError(ErrCodeCallNotFound, err.Error())
	case errors.Is(err, ErrUserNotFound):
		return coreError(ErrCodeUserNotFound, err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrNotInCall):
		return coreError(ErrCodeInvalidState, err.Error())
	case errors.Is(err, ErrConflict):
		return coreError(ErrCodeConflict, err.Error())
	default:
		return coreError(ErrCodeBadRequest, err.Error())
	}
}
