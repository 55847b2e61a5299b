package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	"github.com/oksasatya/go-odata-api/internal/domain/repository"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewUserRepository(mock), mock
}

func sampleUser() *entity.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &entity.User{
		ID:        1,
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     "ann@example.com",
		Audit:     entity.Audit{CreatedDate: now, CreatedBy: "seed", LastModifiedDate: now, LastModifiedBy: "seed"},
	}
}

func userColumns() []string {
	return []string{
		"id", "first_name", "middle_name", "last_name", "email", "phone",
		"created_date", "created_by", "last_modified_date", "last_modified_by",
	}
}

func userRow(rows *pgxmock.Rows, u *entity.User) *pgxmock.Rows {
	return rows.AddRow(
		u.ID, u.FirstName, u.MiddleName, u.LastName, u.Email, u.Phone,
		u.CreatedDate, u.CreatedBy, u.LastModifiedDate, u.LastModifiedBy,
	)
}

func TestUserRepository_Create_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.ID = 0

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.FirstName, nil, u.LastName, u.Email, nil,
			u.CreatedDate, u.CreatedBy, u.LastModifiedDate, u.LastModifiedBy).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(42))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, 42, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_ExplicitIDAdvancesSequence(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.ID = 500

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.FirstName, nil, u.LastName, u.Email, nil,
			u.CreatedDate, u.CreatedBy, u.LastModifiedDate, u.LastModifiedBy, 500).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(500))
	mock.ExpectExec("SELECT setval\\(pg_get_serial_sequence\\('users', 'id'\\)").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, 500, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateKey(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"users_pkey\""})

	err := repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs(u.ID).
		WillReturnRows(userRow(pgxmock.NewRows(userColumns()), u))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.FirstName, got.FirstName)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.CreatedDate, got.CreatedDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs(99).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), 99)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestUserRepository_List_WithScopeAndFilter(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	q, err := odata.ParseQuery(map[string][]string{"$filter": {"lastName eq 'Lee'"}}, odata.V2.Users, odata.Options{})
	require.NoError(t, err)

	u := sampleUser()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id IN \\(SELECT user_id FROM user_addresses WHERE address_id = \\$1\\) AND last_name = \\$2").
		WithArgs(5, "Lee").
		WillReturnRows(userRow(pgxmock.NewRows(userColumns()), u))

	users, err := repo.List(context.Background(), q, repository.Scope{AddressID: 5})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, u.ID, users[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListByAddresses(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	rows := pgxmock.NewRows(append([]string{"address_id"}, userColumns()...))
	rows.AddRow(3, u.ID, u.FirstName, u.MiddleName, u.LastName, u.Email, u.Phone,
		u.CreatedDate, u.CreatedBy, u.LastModifiedDate, u.LastModifiedBy)
	mock.ExpectQuery("FROM user_addresses ua JOIN users u").
		WithArgs([]int{3, 4}).
		WillReturnRows(rows)

	byAddress, err := repo.ListByAddresses(context.Background(), []int{3, 4})
	require.NoError(t, err)
	assert.Len(t, byAddress[3], 1)
	assert.Empty(t, byAddress[4])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	mock.ExpectExec("UPDATE users SET").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), u)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_Delete_ForeignKeyConflict(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM users WHERE id =").
		WithArgs(1).
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "update or delete on table \"users\" violates foreign key constraint"})

	err := repo.Delete(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrForeignKeyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
