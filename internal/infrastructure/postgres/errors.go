package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-odata-api/internal/domain/repository"
)

// classify maps driver errors onto the repository sentinels. SQLSTATE codes
// are checked first, message text second.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", repository.ErrDuplicateKey, pgErr.Message)
		case "23503":
			return fmt.Errorf("%w: %s", repository.ErrForeignKeyConflict, pgErr.Message)
		case "42P01", "P0002":
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pgErr.Message)
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"):
		return fmt.Errorf("%w: %v", repository.ErrDuplicateKey, err)
	case strings.Contains(msg, "foreign key"), strings.Contains(msg, "reference constraint"):
		return fmt.Errorf("%w: %v", repository.ErrForeignKeyConflict, err)
	case strings.Contains(msg, "does not exist"):
		return fmt.Errorf("%w: %v", repository.ErrNotFound, err)
	}
	return err
}
