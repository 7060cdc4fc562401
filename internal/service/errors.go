package service

import (
	"errors"
)

// Kind classifies a failure so transports can map it to a stable status.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidState
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation_failed"
	default:
		return "internal"
	}
}

// Error is a recognized business outcome. Instances below are sentinels;
// call sites add context with fmt.Errorf("%w: ...", ErrX) and callers match
// with errors.Is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrCardNotFound           = &Error{Kind: KindNotFound, Message: "card not found"}
	ErrTransactionNotFound    = &Error{Kind: KindNotFound, Message: "transaction not found"}
	ErrDuplicateCard          = &Error{Kind: KindConflict, Message: "card with this PAN already exists"}
	ErrDuplicateReference     = &Error{Kind: KindConflict, Message: "transaction reference already exists"}
	ErrInvalidCardState       = &Error{Kind: KindInvalidState, Message: "invalid card state"}
	ErrInvalidValidationCode  = &Error{Kind: KindValidation, Message: "invalid validation number"}
	ErrCancellationNotAllowed = &Error{Kind: KindValidation, Message: "transaction cannot be cancelled"}
	ErrInvalidInput           = &Error{Kind: KindValidation, Message: "invalid input"}
)

// KindOf reports the kind of err. Anything that is not a recognized
// business error is KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
