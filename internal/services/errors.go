package services

import (
	"errors"
	"fmt"

	"fintrack/internal/core"
)

var (
	// ErrReconciliation means a balance or budget leg failed and the
	// enclosing write was rolled back.
	ErrReconciliation = errors.New("reconciliation failed")
	// ErrMaterialization marks a recurring template that could not be
	// materialized. Other templates of the same run are unaffected.
	ErrMaterialization = errors.New("materialization failed")
)

type ReconciliationError struct {
	Op            string
	TransactionID int64
	Err           error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s of transaction %d: %v", e.Op, e.TransactionID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

func (e *ReconciliationError) Is(target error) bool { return target == ErrReconciliation }

type MaterializationError struct {
	TemplateID int64
	Date       core.Date
	Err        error
}

func (e *MaterializationError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("materialize template %d: %v", e.TemplateID, e.Err)
	}
	return fmt.Sprintf("materialize template %d on %s: %v", e.TemplateID, e.Date, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

func (e *MaterializationError) Is(target error) bool { return target == ErrMaterialization }
