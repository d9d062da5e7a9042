package checkout

import (
	"errors"
	"fmt"
	"strings"
)

type Stage int

const (
	StageCart Stage = iota
	StageLogin
	StageShipping
	StageReview
	StageSuccess
)

func (s Stage) Path() string {
	switch s {
	case StageLogin:
		return "/login"
	case StageShipping:
		return "/checkout"
	case StageReview:
		return "/order-review"
	case StageSuccess:
		return "/order-success"
	default:
		return "/cart"
	}
}

func (s Stage) String() string {
	switch s {
	case StageLogin:
		return "login"
	case StageShipping:
		return "shipping"
	case StageReview:
		return "review"
	case StageSuccess:
		return "success"
	default:
		return "cart"
	}
}

// RedirectError is a failed stage precondition. The caller sends the user to
// To; ReturnTo, when set, is where to resume afterwards.
type RedirectError struct {
	To       Stage
	ReturnTo string
	Reason   string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s: %s", e.To.Path(), e.Reason)
}

// ValidationError lists the form fields that block a stage transition.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

func AsRedirect(err error) (*RedirectError, bool) {
	var r *RedirectError
	ok := errors.As(err, &r)
	return r, ok
}

func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	ok := errors.As(err, &v)
	return v, ok
}
