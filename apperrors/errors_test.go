package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestCodeAndIs(t *testing.T) {
	err := New(ErrNotFound, "missing", nil)
	wrapped := fmt.Errorf("lookup: %w", err)

	if Code(wrapped) != ErrNotFound || !Is(wrapped, ErrNotFound) {
		t.Errorf("expected NOT_FOUND through wrapping, got %q", Code(wrapped))
	}
	if Code(errors.New("plain")) != "" {
		t.Error("plain errors carry no code")
	}
	if err.Error() != "[NOT_FOUND] missing" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := New(ErrLocalStore, "write failed", cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if err.Error() != "[LOCAL_STORE_ERROR] write failed: disk full" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestFromPg(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unique violation", &pgconn.PgError{Code: PgErrUniqueViolation}, ErrDuplicateAccount},
		{"foreign key", &pgconn.PgError{Code: PgErrForeignKeyViolation}, ErrRemoteRejected},
		{"not null", fmt.Errorf("insert: %w", &pgconn.PgError{Code: PgErrNotNullViolation}), ErrRemoteRejected},
		{"connection", &pgconn.PgError{Code: PgErrConnectionFailure}, ErrRemoteUnavailable},
		{"non pg", errors.New("timeout"), ErrRemoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromPg("op", tt.err).Code; got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
