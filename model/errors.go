package model

import "fmt"

// ProgrammerError marks a state machine bug, e.g. opening a database
// transaction on a fiber that already has one. Never retried.
type ProgrammerError struct {
	Message string
}

func (e ProgrammerError) Error() string {
	return fmt.Sprintf("programmer error: %s", e.Message)
}

func NewProgrammerError(format string, args ...any) ProgrammerError {
	return ProgrammerError{Message: fmt.Sprintf(format, args...)}
}
