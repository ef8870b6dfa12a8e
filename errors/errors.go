package errors

import "fmt"

var (
	ErrUnauthorized      = fmt.Errorf("unauthorized")
	ErrThreadNotFound    = fmt.Errorf("thread not found")
	ErrEmptyParticipants = fmt.Errorf("no participants provided")
	ErrMissingUserID     = fmt.Errorf("missing userId")
	ErrMissingThreadID   = fmt.Errorf("missing threadId")
)
