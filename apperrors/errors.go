// apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

const (
	ErrConfigLoad          = "CONFIG_LOAD_ERROR"
	ErrRemoteUnavailable   = "REMOTE_UNAVAILABLE"
	ErrRemoteRejected      = "REMOTE_REJECTED"
	ErrDuplicateAccount    = "DUPLICATE_ACCOUNT"
	ErrInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrNoSession           = "NO_SESSION"
	ErrNotFound            = "NOT_FOUND"
	ErrLocalStore          = "LOCAL_STORE_ERROR"
	ErrWalletUnavailable   = "WALLET_UNAVAILABLE"
	ErrWalletRejected      = "WALLET_REJECTED"
	ErrContractCall        = "CONTRACT_CALL_ERROR"
	ErrInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrInvalidInput        = "INVALID_INPUT"
	ErrMetadataUpload      = "METADATA_UPLOAD_ERROR"
	ErrForbidden           = "FORBIDDEN"
)

// Postgres SQLSTATE codes the remote backend reacts to.
const (
	PgErrUniqueViolation     = "23505"
	PgErrForeignKeyViolation = "23503"
	PgErrNotNullViolation    = "23502"
	PgErrConnectionFailure   = "08006"
)

// Code returns the AppError code carried by err, or "" when err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return Code(err) == code
}

// FromPg wraps a database error, promoting unique violations to ErrDuplicateAccount.
func FromPg(message string, err error) *AppError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case PgErrUniqueViolation:
			return New(ErrDuplicateAccount, message, err)
		case PgErrForeignKeyViolation, PgErrNotNullViolation:
			return New(ErrRemoteRejected, message, err)
		}
	}
	return New(ErrRemoteUnavailable, message, err)
}
