package navigation

import "fmt"

// Error is returned when a navigation ran out of retries. Err is the last
// transport failure, if any attempt had one.
type Error struct {
	URL      string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("failed after %d tries navigating to %s", e.Attempts, e.URL)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
