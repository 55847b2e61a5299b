package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	"github.com/oksasatya/go-odata-api/internal/domain/repository"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

var usersTable = table{name: "users", columns: []column{
	{prop: "id", name: "id"},
	{prop: "firstName", name: "first_name"},
	{prop: "middleName", name: "middle_name", nullable: true},
	{prop: "lastName", name: "last_name"},
	{prop: "email", name: "email", nullable: true},
	{prop: "phone", name: "phone", nullable: true},
	{prop: "createdDate", name: "created_date"},
	{prop: "createdBy", name: "created_by", nullable: true},
	{prop: "lastModifiedDate", name: "last_modified_date"},
	{prop: "lastModifiedBy", name: "last_modified_by", nullable: true},
}}

const usersByAddressScope = "id IN (SELECT user_id FROM user_addresses WHERE address_id = $1)"

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func scanUser(row pgx.Row, extra ...any) (entity.User, error) {
	var u entity.User
	dest := append(extra,
		&u.ID, &u.FirstName, &u.MiddleName, &u.LastName, &u.Email, &u.Phone,
		&u.CreatedDate, &u.CreatedBy, &u.LastModifiedDate, &u.LastModifiedBy,
	)
	err := row.Scan(dest...)
	return u, err
}

func collectUsers(rows pgx.Rows) ([]entity.User, error) {
	defer rows.Close()
	users := make([]entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify(err)
		}
		users = append(users, u)
	}
	return users, classify(rows.Err())
}

func userScope(scope repository.Scope) (string, []any) {
	if scope.AddressID != 0 {
		return usersByAddressScope, []any{scope.AddressID}
	}
	return "", nil
}

func (r *UserRepository) List(ctx context.Context, q *odata.Query, scope repository.Scope) ([]entity.User, error) {
	where, args := userScope(scope)
	sql, args, err := buildList(usersTable, q, where, args...)
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	return collectUsers(rows)
}

func (r *UserRepository) Count(ctx context.Context, q *odata.Query, scope repository.Scope) (int, error) {
	where, args := userScope(scope)
	sql, args, err := buildCount(usersTable, q, where, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*entity.User, error) {
	row := conn(ctx, r.db).QueryRow(ctx, "SELECT "+usersTable.selectList()+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []int) ([]entity.User, error) {
	rows, err := conn(ctx, r.db).Query(ctx, "SELECT "+usersTable.selectList()+" FROM users WHERE id = ANY($1) ORDER BY id", ids)
	if err != nil {
		return nil, classify(err)
	}
	return collectUsers(rows)
}

func (r *UserRepository) ListByAddresses(ctx context.Context, addressIDs []int) (map[int][]entity.User, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT ua.address_id, `+usersTable.selectAs("u")+`
		FROM user_addresses ua JOIN users u ON u.id = ua.user_id
		WHERE ua.address_id = ANY($1)
		ORDER BY ua.address_id, u.id`, addressIDs)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	out := make(map[int][]entity.User, len(addressIDs))
	for rows.Next() {
		var addressID int
		u, err := scanUser(rows, &addressID)
		if err != nil {
			return nil, classify(err)
		}
		out[addressID] = append(out[addressID], u)
	}
	return out, classify(rows.Err())
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	args := []any{
		u.FirstName, nullIfEmpty(u.MiddleName), u.LastName, nullIfEmpty(u.Email), nullIfEmpty(u.Phone),
		u.CreatedDate, nullIfEmpty(u.CreatedBy), u.LastModifiedDate, nullIfEmpty(u.LastModifiedBy),
	}
	sql := `INSERT INTO users (first_name, middle_name, last_name, email, phone,
		created_date, created_by, last_modified_date, last_modified_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if u.ID != 0 {
		args = append(args, u.ID)
		sql = `INSERT INTO users (first_name, middle_name, last_name, email, phone,
		created_date, created_by, last_modified_date, last_modified_by, id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	}
	explicit := u.ID != 0
	if err := conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&u.ID); err != nil {
		return classify(err)
	}
	if explicit {
		return syncIdentity(ctx, conn(ctx, r.db), "users")
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE users SET
		first_name = $2, middle_name = $3, last_name = $4, email = $5, phone = $6,
		created_date = $7, created_by = $8, last_modified_date = $9, last_modified_by = $10
		WHERE id = $1`,
		u.ID, u.FirstName, nullIfEmpty(u.MiddleName), u.LastName, nullIfEmpty(u.Email), nullIfEmpty(u.Phone),
		u.CreatedDate, nullIfEmpty(u.CreatedBy), u.LastModifiedDate, nullIfEmpty(u.LastModifiedBy),
	)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	tag, err := conn(ctx, r.db).Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// syncIdentity moves table's id sequence past its highest id so generated
// keys do not collide with explicitly inserted ones.
func syncIdentity(ctx context.Context, db DBTX, table string) error {
	_, err := db.Exec(ctx, `SELECT setval(pg_get_serial_sequence('`+table+`', 'id'),
		GREATEST((SELECT max(id) FROM `+table+`), 1))`)
	return classify(err)
}
