package network

import "errors"

// Errors returned when an action reference cannot be resolved. They are
// raised before any state is touched.
var (
	ErrActionIndex   = errors.New("action index out of range")
	ErrUnknownTarget = errors.New("unknown target address")
	ErrUnknownAction = errors.New("unknown exploit or privilege escalation")
	ErrActionType    = errors.New("unknown action type")
	ErrActionVector  = errors.New("malformed action vector")
)
