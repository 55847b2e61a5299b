package application

import (
	"errors"
	"fmt"

	"github.com/oksasatya/go-odata-api/internal/domain/repository"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateEntity      = errors.New("Entity already exists")
	ErrDuplicateAssociation = errors.New("Association already exists")
	ErrForeignKeyConflict   = errors.New("Foreign key conflict found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrForbidden            = errors.New("forbidden")
)

// TelemetrySuffix is appended to conflict and server error messages.
const TelemetrySuffix = "\nSee telemetry for full details"

// translate maps repository errors onto the application sentinels.
// dup is returned for duplicate keys.
func translate(err error, dup error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repository.ErrDuplicateKey):
		return fmt.Errorf("%w: %v", dup, err)
	case errors.Is(err, repository.ErrForeignKeyConflict):
		return fmt.Errorf("%w: %v", ErrForeignKeyConflict, err)
	}
	return err
}

func notFound(kind string, id int) error {
	return fmt.Errorf("%w: %s %d does not exist", ErrNotFound, kind, id)
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
