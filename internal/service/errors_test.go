package service

import (
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/grocerysplit/internal/ledger"
	"github.com/mmynk/grocerysplit/internal/lifecycle"
)

func TestToConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{"validation", &ledger.Error{Kind: ledger.KindValidation, Op: "op", Err: ledger.ErrInvalidInput}, connect.CodeInvalidArgument},
		{"authorization", &ledger.Error{Kind: ledger.KindAuthorization, Op: "op", Err: ledger.ErrNotCreator}, connect.CodePermissionDenied},
		{"not found", &ledger.Error{Kind: ledger.KindNotFound, Op: "op", Err: errors.New("gone")}, connect.CodeNotFound},
		{"invalid transition", &ledger.Error{Kind: ledger.KindConflict, Op: "op", Err: lifecycle.ErrInvalidTransition}, connect.CodeFailedPrecondition},
		{"concurrent update", &ledger.Error{Kind: ledger.KindConflict, Op: "op", Err: fmt.Errorf("%w: share", ledger.ErrStatusConflict)}, connect.CodeAborted},
		{"duplicate", &ledger.Error{Kind: ledger.KindConflict, Op: "op", Err: ledger.ErrDuplicateRequest}, connect.CodeAlreadyExists},
		{"integrity", &ledger.Error{Kind: ledger.KindIntegrity, Op: "op", Ref: "r1", Err: errors.New("sum mismatch")}, connect.CodeInternal},
		{"dependency", &ledger.Error{Kind: ledger.KindDependency, Op: "op", Ref: "r2", Err: errors.New("db down")}, connect.CodeUnavailable},
		{"foreign", errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toConnectError(tt.err)
			if code := connect.CodeOf(got); code != tt.want {
				t.Errorf("code = %v, want %v", code, tt.want)
			}
		})
	}

	var connectErr *connect.Error
	err := toConnectError(&ledger.Error{Kind: ledger.KindDependency, Op: "op", Ref: "abc", Err: errors.New("password=hunter2")})
	if !errors.As(err, &connectErr) || connectErr.Message() != "internal error (ref abc)" {
		t.Errorf("dependency error leaked details: %v", err)
	}
}
