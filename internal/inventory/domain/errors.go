package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrContention         = errors.New("contention")
)

// Error is a classified ledger failure.
type Error struct {
	Kind      error
	Op        string
	BranchID  uint
	ProductID uint
	Message   string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Kind != nil:
		b.WriteString(e.Kind.Error())
	default:
		b.WriteString("unknown error")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the classification of err, or nil for unclassified errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrInsufficientStock, ErrInvariantViolation, ErrContention} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func Validation(op, message string) *Error {
	return &Error{Kind: ErrValidation, Op: op, Message: message}
}

func NotFound(op, message string, branchID, productID uint) *Error {
	return &Error{Kind: ErrNotFound, Op: op, BranchID: branchID, ProductID: productID, Message: message}
}

func InsufficientStock(op string, branchID, productID uint, available, requested int) *Error {
	return &Error{
		Kind:      ErrInsufficientStock,
		Op:        op,
		BranchID:  branchID,
		ProductID: productID,
		Message: fmt.Sprintf("insufficient stock for product ID %d at branch %d: available %d, requested %d",
			productID, branchID, available, requested),
	}
}

func InvariantViolation(op, message string, branchID, productID uint) *Error {
	return &Error{Kind: ErrInvariantViolation, Op: op, BranchID: branchID, ProductID: productID, Message: message}
}

func Contention(op string, cause error) *Error {
	return &Error{Kind: ErrContention, Op: op, Message: "could not acquire row lock, retry later", Err: cause}
}
