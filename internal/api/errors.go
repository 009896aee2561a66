package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is returned for any failed call: transport failures carry Err,
// non-2xx responses carry Status and the server's message.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
