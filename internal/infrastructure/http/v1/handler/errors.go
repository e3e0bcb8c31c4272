package handler

import "errors"

var (
	ErrMethodNotAllowed = errors.New("Method not allowed")
	ErrNotFound         = errors.New("not found")

	errURLNotFound = notFound("URL not found")
)

// notFoundError carries the response body of a 404 and matches ErrNotFound.
type notFoundError struct {
	msg string
}

func notFound(msg string) error {
	return &notFoundError{msg: msg}
}

func (e *notFoundError) Error() string {
	return e.msg
}

func (e *notFoundError) Is(target error) bool {
	return target == ErrNotFound
}
