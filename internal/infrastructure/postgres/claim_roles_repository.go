package postgres

import (
	"context"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	"github.com/oksasatya/go-odata-api/internal/domain/repository"
)

type ClaimRolesRepository struct {
	db DBTX
}

func NewClaimRolesRepository(db DBTX) *ClaimRolesRepository {
	return &ClaimRolesRepository{db: db}
}

var _ repository.ClaimRolesRepository = (*ClaimRolesRepository)(nil)

func (r *ClaimRolesRepository) Get(ctx context.Context, name string) (*entity.ClaimRoles, error) {
	c := &entity.ClaimRoles{}
	err := conn(ctx, r.db).QueryRow(ctx, "SELECT name, roles FROM claim_roles WHERE name = $1", name).
		Scan(&c.Name, &c.Roles)
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

func (r *ClaimRolesRepository) Upsert(ctx context.Context, c *entity.ClaimRoles) error {
	_, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO claim_roles (name, roles) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET roles = EXCLUDED.roles`, c.Name, c.Roles)
	return classify(err)
}
