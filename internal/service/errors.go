package service

import (
	ierr "github.com/itqanpos/ITQN/internal/errors"
)

func errUnauthenticated() error {
	return ierr.NewError("missing actor").
		WithHint("authentication is required").
		Mark(ierr.ErrUnauthenticated)
}

func errPermissionDenied(role string) error {
	return ierr.Newf("role %q may not approve or reject orders", role).
		WithHint("you do not have permission to approve or reject orders").
		Mark(ierr.ErrPermissionDenied)
}

func errInvalidArgument(hint string) error {
	return ierr.NewError("invalid argument: " + hint).
		WithHint(hint).
		Mark(ierr.ErrInvalidArgument)
}

func errNotFound(entity string) error {
	return ierr.NewError(entity + " does not exist").
		WithHint(entity + " not found").
		Mark(ierr.ErrNotFound)
}
