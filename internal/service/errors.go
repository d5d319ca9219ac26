package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/grocerysplit/internal/ledger"
	"github.com/mmynk/grocerysplit/internal/lifecycle"
)

var errUnauthenticated = errors.New("authentication required")

// toConnectError maps a ledger error to a Connect status. Internal details
// of integrity and dependency failures stay in the server log.
func toConnectError(err error) error {
	var le *ledger.Error
	if !errors.As(err, &le) {
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}

	code := connect.CodeInternal
	switch le.Kind {
	case ledger.KindValidation:
		code = connect.CodeInvalidArgument
	case ledger.KindAuthorization:
		code = connect.CodePermissionDenied
	case ledger.KindNotFound:
		code = connect.CodeNotFound
	case ledger.KindConflict:
		switch {
		case ledger.IsDuplicate(err):
			code = connect.CodeAlreadyExists
		case ledger.IsStatusConflict(err):
			code = connect.CodeAborted
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			code = connect.CodeFailedPrecondition
		default:
			code = connect.CodeAborted
		}
	case ledger.KindDependency:
		code = connect.CodeUnavailable
	}
	return connect.NewError(code, errors.New(le.Public()))
}
