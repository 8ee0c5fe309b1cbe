package service

import (
    "errors"

    "github.com/iliyamo/ekklesia-certificates/internal/repository"
)

// ErrInvalid marks caller mistakes: missing fields, unknown types.
var ErrInvalid = errors.New("invalid input")

// Error carries a client-facing message for one of the sentinel kinds
// (ErrInvalid, repository.ErrNotFound, repository.ErrConflict,
// repository.ErrForbidden).
type Error struct {
    Kind error
    Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func invalid(msg string) error   { return &Error{Kind: ErrInvalid, Msg: msg} }
func notFound(msg string) error  { return &Error{Kind: repository.ErrNotFound, Msg: msg} }
func conflict(msg string) error  { return &Error{Kind: repository.ErrConflict, Msg: msg} }
func forbidden(msg string) error { return &Error{Kind: repository.ErrForbidden, Msg: msg} }
