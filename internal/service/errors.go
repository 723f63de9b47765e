package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/pledgeboard/internal/auth"
	"github.com/mmynk/pledgeboard/internal/models"
)

// toConnectError maps domain errors to Connect codes. The code is the
// machine-readable kind; the message is for people.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	code := connect.CodeInternal
	switch {
	// Checked first: a failed settlement may wrap a state error from the store.
	case errors.Is(err, models.ErrSettlementFailed):
		code = connect.CodeInternal
	case errors.Is(err, models.ErrValidation):
		code = connect.CodeInvalidArgument
	case errors.Is(err, models.ErrPermissionDenied):
		code = connect.CodePermissionDenied
	case errors.Is(err, models.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, models.ErrInvalidState):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, models.ErrConflict):
		code = connect.CodeAlreadyExists
	case errors.Is(err, auth.ErrInvalidCredentials):
		code = connect.CodeUnauthenticated
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	}
	return connect.NewError(code, err)
}

// fail logs a failed operation and returns the Connect error for it.
// Client mistakes are logged at Warn, everything else at Error.
func fail(op string, err error, attrs ...any) error {
	connectErr := toConnectError(err)
	attrs = append(attrs, "code", connectErr.Code(), "error", err)
	switch connectErr.Code() {
	case connect.CodeInternal, connect.CodeUnknown:
		slog.Error(op+" failed", attrs...)
	default:
		slog.Warn(op+" failed", attrs...)
	}
	return connectErr
}
