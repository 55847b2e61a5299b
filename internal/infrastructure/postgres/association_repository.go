package postgres

import (
	"context"

	"github.com/oksasatya/go-odata-api/internal/domain/repository"
)

type AssociationRepository struct {
	db DBTX
}

func NewAssociationRepository(db DBTX) *AssociationRepository {
	return &AssociationRepository{db: db}
}

var _ repository.AssociationRepository = (*AssociationRepository)(nil)

func (r *AssociationRepository) Link(ctx context.Context, userID, addressID int) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		"INSERT INTO user_addresses (user_id, address_id) VALUES ($1, $2)", userID, addressID)
	return classify(err)
}

func (r *AssociationRepository) Unlink(ctx context.Context, userID, addressID int) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		"DELETE FROM user_addresses WHERE user_id = $1 AND address_id = $2", userID, addressID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
