package services

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrPermissionDenied means the caller's plan role is below the required level
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound means the referenced plan, schedule, member or place does not exist
	// or does not belong to the stated parent
	ErrNotFound = errors.New("not found")
	// ErrConflict means a concurrent mutation broke the assumptions of this one.
	// Nothing was written; the caller may retry the whole operation.
	ErrConflict = errors.New("conflicting concurrent update, retry")
	// ErrInvalidArgument is returned for malformed input
	ErrInvalidArgument = errors.New("invalid argument")

	// errResolutionRace is raised when another transaction inserted the same
	// external place id first. PlaceResolver always recovers from it.
	errResolutionRace = errors.New("place resolution race")
)

// PostgreSQL SQLSTATE codes that mean "retry the transaction"
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// translateTxError maps storage-level failures onto the service taxonomy.
// Errors already in the taxonomy pass through unchanged.
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return ErrConflict
		}
	}
	return err
}
