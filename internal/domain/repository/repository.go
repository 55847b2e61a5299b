package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

// Errors returned by repository implementations after classifying driver errors.
var (
	ErrNotFound           = errors.New("does not exist")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrForeignKeyConflict = errors.New("foreign key conflict")
)

// Scope restricts a listing to the rows associated with another entity.
// The zero value means no restriction.
type Scope struct {
	UserID    int
	AddressID int
}

type UserRepository interface {
	List(ctx context.Context, q *odata.Query, scope Scope) ([]entity.User, error)
	Count(ctx context.Context, q *odata.Query, scope Scope) (int, error)
	GetByID(ctx context.Context, id int) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []int) ([]entity.User, error)
	// ListByAddresses returns the users of each address, keyed by address id.
	ListByAddresses(ctx context.Context, addressIDs []int) (map[int][]entity.User, error)
	Create(ctx context.Context, u *entity.User) error
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int) error
}

type AddressRepository interface {
	List(ctx context.Context, q *odata.Query, scope Scope) ([]entity.Address, error)
	Count(ctx context.Context, q *odata.Query, scope Scope) (int, error)
	GetByID(ctx context.Context, id int) (*entity.Address, error)
	GetByIDs(ctx context.Context, ids []int) ([]entity.Address, error)
	// ListByUsers returns the addresses of each user, keyed by user id.
	ListByUsers(ctx context.Context, userIDs []int) (map[int][]entity.Address, error)
	Create(ctx context.Context, a *entity.Address) error
	Update(ctx context.Context, a *entity.Address) error
	Delete(ctx context.Context, id int) error
}

// AssociationRepository manages the user/address many-to-many link.
type AssociationRepository interface {
	Link(ctx context.Context, userID, addressID int) error
	// Unlink returns ErrNotFound when the pair is not associated.
	Unlink(ctx context.Context, userID, addressID int) error
}

type NoteRepository interface {
	ListUserNotes(ctx context.Context, userIDs []int) (map[int][]entity.UserNote, error)
	CreateUserNote(ctx context.Context, n *entity.UserNote) error
	DeleteUserNote(ctx context.Context, userID, noteID int) error

	ListAddressNotes(ctx context.Context, addressIDs []int) (map[int][]entity.AddressNote, error)
	CreateAddressNote(ctx context.Context, n *entity.AddressNote) error
	DeleteAddressNote(ctx context.Context, addressID, noteID int) error
}

type ClaimRolesRepository interface {
	Get(ctx context.Context, name string) (*entity.ClaimRoles, error)
	Upsert(ctx context.Context, c *entity.ClaimRoles) error
}
