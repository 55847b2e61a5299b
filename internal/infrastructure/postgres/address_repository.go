package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	"github.com/oksasatya/go-odata-api/internal/domain/repository"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

var addressesTable = table{name: "addresses", columns: []column{
	{prop: "id", name: "id"},
	{prop: "streetNumber", name: "street_number"},
	{prop: "streetName", name: "street_name"},
	{prop: "streetName2", name: "street_name2", nullable: true},
	{prop: "city", name: "city"},
	{prop: "state", name: "state"},
	{prop: "zipCode", name: "zip_code"},
	{prop: "name", name: "name", nullable: true},
	{prop: "type", name: "type"},
	{prop: "suite", name: "suite", nullable: true},
	{prop: "createdDate", name: "created_date"},
	{prop: "createdBy", name: "created_by", nullable: true},
	{prop: "lastModifiedDate", name: "last_modified_date"},
	{prop: "lastModifiedBy", name: "last_modified_by", nullable: true},
}}

const addressesByUserScope = "id IN (SELECT address_id FROM user_addresses WHERE user_id = $1)"

type AddressRepository struct {
	db DBTX
}

func NewAddressRepository(db DBTX) *AddressRepository {
	return &AddressRepository{db: db}
}

var _ repository.AddressRepository = (*AddressRepository)(nil)

func scanAddress(row pgx.Row, extra ...any) (entity.Address, error) {
	var (
		a   entity.Address
		typ *int16
	)
	dest := append(extra,
		&a.ID, &a.StreetNumber, &a.StreetName, &a.StreetName2, &a.City, &a.State, &a.ZipCode,
		&a.Name, &typ, &a.Suite,
		&a.CreatedDate, &a.CreatedBy, &a.LastModifiedDate, &a.LastModifiedBy,
	)
	if err := row.Scan(dest...); err != nil {
		return a, err
	}
	if typ != nil {
		t := entity.AddressType(*typ)
		a.Type = &t
	}
	return a, nil
}

func addressTypeArg(t *entity.AddressType) any {
	if t == nil {
		return nil
	}
	return int16(*t)
}

func collectAddresses(rows pgx.Rows) ([]entity.Address, error) {
	defer rows.Close()
	out := make([]entity.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, a)
	}
	return out, classify(rows.Err())
}

func addressScope(scope repository.Scope) (string, []any) {
	if scope.UserID != 0 {
		return addressesByUserScope, []any{scope.UserID}
	}
	return "", nil
}

func (r *AddressRepository) List(ctx context.Context, q *odata.Query, scope repository.Scope) ([]entity.Address, error) {
	where, args := addressScope(scope)
	sql, args, err := buildList(addressesTable, q, where, args...)
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	return collectAddresses(rows)
}

func (r *AddressRepository) Count(ctx context.Context, q *odata.Query, scope repository.Scope) (int, error) {
	where, args := addressScope(scope)
	sql, args, err := buildCount(addressesTable, q, where, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (r *AddressRepository) GetByID(ctx context.Context, id int) (*entity.Address, error) {
	row := conn(ctx, r.db).QueryRow(ctx, "SELECT "+addressesTable.selectList()+" FROM addresses WHERE id = $1", id)
	a, err := scanAddress(row)
	if err != nil {
		return nil, classify(err)
	}
	return &a, nil
}

func (r *AddressRepository) GetByIDs(ctx context.Context, ids []int) ([]entity.Address, error) {
	rows, err := conn(ctx, r.db).Query(ctx, "SELECT "+addressesTable.selectList()+" FROM addresses WHERE id = ANY($1) ORDER BY id", ids)
	if err != nil {
		return nil, classify(err)
	}
	return collectAddresses(rows)
}

func (r *AddressRepository) ListByUsers(ctx context.Context, userIDs []int) (map[int][]entity.Address, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT ua.user_id, `+addressesTable.selectAs("a")+`
		FROM user_addresses ua JOIN addresses a ON a.id = ua.address_id
		WHERE ua.user_id = ANY($1)
		ORDER BY ua.user_id, a.id`, userIDs)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	out := make(map[int][]entity.Address, len(userIDs))
	for rows.Next() {
		var userID int
		a, err := scanAddress(rows, &userID)
		if err != nil {
			return nil, classify(err)
		}
		out[userID] = append(out[userID], a)
	}
	return out, classify(rows.Err())
}

func (r *AddressRepository) args(a *entity.Address) []any {
	return []any{
		a.StreetNumber, a.StreetName, nullIfEmpty(a.StreetName2), a.City, a.State, a.ZipCode,
		nullIfEmpty(a.Name), addressTypeArg(a.Type), nullIfEmpty(a.Suite),
		a.CreatedDate, nullIfEmpty(a.CreatedBy), a.LastModifiedDate, nullIfEmpty(a.LastModifiedBy),
	}
}

func (r *AddressRepository) Create(ctx context.Context, a *entity.Address) error {
	args := r.args(a)
	cols := `street_number, street_name, street_name2, city, state, zip_code, name, type, suite,
		created_date, created_by, last_modified_date, last_modified_by`
	vals := "$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13"
	explicit := a.ID != 0
	if explicit {
		args = append(args, a.ID)
		cols += ", id"
		vals += ", $14"
	}
	sql := "INSERT INTO addresses (" + cols + ") VALUES (" + vals + ") RETURNING id"
	if err := conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&a.ID); err != nil {
		return classify(err)
	}
	if explicit {
		return syncIdentity(ctx, conn(ctx, r.db), "addresses")
	}
	return nil
}

func (r *AddressRepository) Update(ctx context.Context, a *entity.Address) error {
	args := append([]any{a.ID}, r.args(a)...)
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE addresses SET
		street_number = $2, street_name = $3, street_name2 = $4, city = $5, state = $6, zip_code = $7,
		name = $8, type = $9, suite = $10,
		created_date = $11, created_by = $12, last_modified_date = $13, last_modified_by = $14
		WHERE id = $1`, args...)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, id int) error {
	tag, err := conn(ctx, r.db).Exec(ctx, "DELETE FROM addresses WHERE id = $1", id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
