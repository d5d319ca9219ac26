package ledger

import (
	"errors"
	"fmt"

	"github.com/mmynk/grocerysplit/internal/calculator"
	"github.com/mmynk/grocerysplit/internal/lifecycle"
	"github.com/mmynk/grocerysplit/internal/models"
	"github.com/mmynk/grocerysplit/internal/storage"
)

// Kind classifies ledger failures so transports can pick a status without
// inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
	KindIntegrity
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindIntegrity:
		return "integrity"
	case KindDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

var (
	ErrActorRequired    = errors.New("acting user is required")
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends   = errors.New("users are already friends")
	ErrDuplicateRequest = errors.New("an active friend request already exists between these users")
	ErrStatusConflict   = errors.New("status changed since it was read")
	ErrAlreadyMember    = errors.New("user already has a membership in this group")
	ErrNotMember        = errors.New("user is not an accepted member of the group")
	ErrNotAdmin         = errors.New("only group admins can invite members")
	ErrNotCreator       = errors.New("only the expense creator can do this")
	ErrNotParticipant   = errors.New("user is not part of this expense")
	ErrNotInPair        = errors.New("user is not part of the requested pair")
	ErrInvalidInput     = errors.New("invalid input")
)

// Error is the error type returned by every Service operation.
type Error struct {
	Kind Kind
	Op   string
	// Msg is safe to show to clients. Empty for integrity and dependency
	// errors, which carry Ref instead.
	Msg string
	// Ref correlates an opaque client message with the server log line.
	Ref string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Public returns the client-facing message.
func (e *Error) Public() string {
	switch e.Kind {
	case KindIntegrity, KindDependency, KindUnknown:
		return fmt.Sprintf("internal error (ref %s)", e.Ref)
	}
	if e.Msg != "" {
		return e.Msg
	}
	return e.Err.Error()
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}

// IsStatusConflict reports whether err is an optimistic-concurrency miss
// rather than a transition the state machine forbids.
func IsStatusConflict(err error) bool {
	return errors.Is(err, ErrStatusConflict)
}

// IsDuplicate reports whether err was caused by an existing record.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateRequest) || errors.Is(err, ErrAlreadyMember) || errors.Is(err, ErrAlreadyFriends)
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

var validationErrors = []error{
	ErrActorRequired,
	ErrSelfRequest,
	ErrInvalidInput,
	models.ErrInvalidScope,
	calculator.ErrInvalidParticipantSet,
	calculator.ErrWeightsDoNotSumTo100,
	calculator.ErrNonPositiveTotal,
	calculator.ErrUnknownSplitMode,
	calculator.ErrInvalidWeight,
	calculator.ErrItemTotalMismatch,
	calculator.ErrItemsDoNotMatch,
	lifecycle.ErrUnknownAction,
	lifecycle.ErrUnknownStatus,
}

var authorizationErrors = []error{
	lifecycle.ErrNotAddressee,
	lifecycle.ErrNotRequester,
	lifecycle.ErrNotShareOwner,
	lifecycle.ErrNotInvitee,
	ErrNotMember,
	ErrNotAdmin,
	ErrNotCreator,
	ErrNotParticipant,
	ErrNotInPair,
}

var conflictErrors = []error{
	lifecycle.ErrInvalidTransition,
	ErrStatusConflict,
	ErrDuplicateRequest,
	ErrAlreadyFriends,
	ErrAlreadyMember,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classify maps an error from the calculator, lifecycle or storage layers to
// its Kind. Storage sentinels that carry ledger meaning are translated by
// the caller first.
func classify(op string, err error) *Error {
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	switch {
	case isAny(err, validationErrors):
		return newError(KindValidation, op, err)
	case isAny(err, authorizationErrors):
		return newError(KindAuthorization, op, err)
	case isAny(err, conflictErrors):
		return newError(KindConflict, op, err)
	case errors.Is(err, storage.ErrStatusMismatch):
		return newError(KindConflict, op, fmt.Errorf("%w: %w", ErrStatusConflict, err))
	case errors.Is(err, storage.ErrNotFound):
		return newError(KindNotFound, op, err)
	case errors.Is(err, calculator.ErrUnbalancedLedger), errors.Is(err, calculator.ErrShareSumMismatch):
		return newError(KindIntegrity, op, err)
	default:
		return newError(KindDependency, op, err)
	}
}
