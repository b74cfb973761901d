package amplipi

import "fmt"

// TimeoutError indicates the controller did not answer within the client timeout.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("amplipi %s timed out", e.Op)
}

// UnreachableError indicates the controller could not be reached at all.
type UnreachableError struct {
	Op  string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("amplipi %s failed: %v", e.Op, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// RejectedError indicates the controller answered with a non-2xx status.
type RejectedError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *RejectedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("amplipi %s rejected: http %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("amplipi %s rejected: http %d", e.Op, e.StatusCode)
}
