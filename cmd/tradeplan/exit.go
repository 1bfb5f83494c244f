package main

import (
	"errors"

	"github.com/ksred/tradeplan/internal/backup"
	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/ksred/tradeplan/internal/plan"
	"github.com/ksred/tradeplan/internal/reconcile"
)

const (
	exitOK           = 0
	exitRuntime      = 1
	exitUsage        = 2
	exitPrecondition = 3
	exitValidation   = 4
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCodeFor maps an error returned by a command to the process status.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var coded *exitError
	if errors.As(err, &coded) {
		return coded.code
	}

	var validationErr *reconcile.ValidationError
	var fieldErr *plan.FieldError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &fieldErr), errors.Is(err, plan.ErrMissingColumn):
		return exitValidation
	case errors.Is(err, catalog.ErrNoAccounts):
		return exitUsage
	case errors.Is(err, backup.ErrSourceMissing), errors.Is(err, catalog.ErrNotFound):
		return exitPrecondition
	}
	return exitRuntime
}
