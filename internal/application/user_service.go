package application

import (
	"context"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	repo "github.com/oksasatya/go-odata-api/internal/domain/repository"
	"github.com/oksasatya/go-odata-api/internal/odata"
	"github.com/oksasatya/go-odata-api/pkg/validation"
)

const userKind = "user"

type UserService struct {
	*Store
}

func NewUserService(store *Store) *UserService {
	return &UserService{Store: store}
}

// Query lists users matching q, with the total count when q asks for it.
func (s *UserService) Query(ctx context.Context, q *odata.Query) (*Page[entity.User], error) {
	users, err := s.Users.List(ctx, q, repo.Scope{})
	if err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	page := &Page[entity.User]{Items: users}
	if q != nil && q.Count {
		n, err := s.Users.Count(ctx, q, repo.Scope{})
		if err != nil {
			return nil, translate(err, ErrDuplicateEntity)
		}
		page.Count = &n
	}
	if err := s.expandUsers(ctx, page.Items, q); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *UserService) Get(ctx context.Context, id int, q *odata.Query) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	one := []entity.User{*u}
	if err := s.expandUsers(ctx, one, q); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// Create stamps, validates and inserts users in one transaction.
func (s *UserService) Create(ctx context.Context, actor string, users []*entity.User) error {
	now := s.now()
	for _, u := range users {
		u.StampCreated(Actor(actor), now)
		if err := validation.Struct(u); err != nil {
			return invalidInput(err)
		}
	}
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, u := range users {
			if err := s.Users.Create(ctx, u); err != nil {
				return translate(err, ErrDuplicateEntity)
			}
			s.changed(ctx, userKind, "upsert", u.ID, *u)
		}
		return nil
	})
}

// Replace overwrites every property of user id except its key and creation stamps.
func (s *UserService) Replace(ctx context.Context, actor string, id int, u *entity.User) error {
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.Users.GetByID(ctx, id)
		if err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		u.ID = id
		u.CreatedDate, u.CreatedBy = current.CreatedDate, current.CreatedBy
		u.StampModified(Actor(actor), s.now())
		if err := validation.Struct(u); err != nil {
			return invalidInput(err)
		}
		if err := s.Users.Update(ctx, u); err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		s.changed(ctx, userKind, "upsert", u.ID, *u)
		return nil
	})
}

// Patch applies a delta to one user.
func (s *UserService) Patch(ctx context.Context, actor string, id int, delta map[string]any, et *odata.EntityType) (*entity.User, error) {
	var out *entity.User
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		u, err := s.Users.GetByID(ctx, id)
		if err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		if err := s.applyDelta(ctx, actor, u, delta, et); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

// PatchBulk applies every delta in one transaction. All targets are loaded
// with a single query; one missing key fails the whole request.
func (s *UserService) PatchBulk(ctx context.Context, actor string, deltas []map[string]any, et *odata.EntityType) ([]entity.User, error) {
	ids := make([]int, len(deltas))
	for i, d := range deltas {
		id, err := odata.DeltaKey(d, et)
		if err != nil {
			return nil, invalidInput(err)
		}
		ids[i] = id
	}
	var out []entity.User
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		found, err := s.Users.GetByIDs(ctx, ids)
		if err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		byID := make(map[int]*entity.User, len(found))
		for i := range found {
			byID[found[i].ID] = &found[i]
		}
		for _, id := range ids {
			if byID[id] == nil {
				return notFound(userKind, id)
			}
		}
		out = make([]entity.User, 0, len(deltas))
		for i, d := range deltas {
			u := byID[ids[i]]
			if err := s.applyDelta(ctx, actor, u, d, et); err != nil {
				return err
			}
			out = append(out, *u)
		}
		return nil
	})
	return out, err
}

func (s *UserService) applyDelta(ctx context.Context, actor string, u *entity.User, delta map[string]any, et *odata.EntityType) error {
	if err := odata.ApplyDelta(u, delta, et); err != nil {
		return invalidInput(err)
	}
	u.StampModified(Actor(actor), s.now())
	if err := validation.Struct(u); err != nil {
		return invalidInput(err)
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return translate(err, ErrDuplicateEntity)
	}
	s.changed(ctx, userKind, "upsert", u.ID, *u)
	return nil
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.Users.Delete(ctx, id); err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		s.changed(ctx, userKind, "delete", id, nil)
		return nil
	})
}

func (s *UserService) LinkAddress(ctx context.Context, userID, addressID int) error {
	return s.link(ctx, userID, addressID)
}

func (s *UserService) UnlinkAddress(ctx context.Context, userID, addressID int) error {
	return s.unlink(ctx, userID, addressID)
}

// Addresses lists the addresses of a user. A user without any address is
// reported as not found.
func (s *UserService) Addresses(ctx context.Context, userID int, q *odata.Query) (*Page[entity.Address], error) {
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	scope := repo.Scope{UserID: userID}
	total, err := s.Store.Addresses.Count(ctx, nil, scope)
	if err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	if total == 0 {
		return nil, notFound("addresses for user", userID)
	}
	addrs, err := s.Store.Addresses.List(ctx, q, scope)
	if err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	page := &Page[entity.Address]{Items: addrs}
	if q != nil && q.Count {
		n, err := s.Store.Addresses.Count(ctx, q, scope)
		if err != nil {
			return nil, translate(err, ErrDuplicateEntity)
		}
		page.Count = &n
	}
	if err := s.expandAddresses(ctx, page.Items, q); err != nil {
		return nil, err
	}
	return page, nil
}

// Notes lists the notes of a user; none is reported as not found.
func (s *UserService) Notes(ctx context.Context, userID int) ([]entity.UserNote, error) {
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	byUser, err := s.Store.Notes.ListUserNotes(ctx, []int{userID})
	if err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	notes := byUser[userID]
	if len(notes) == 0 {
		return nil, notFound("notes for user", userID)
	}
	return notes, nil
}

func (s *UserService) AddNote(ctx context.Context, userID int, n *entity.UserNote) error {
	n.UserID = userID
	if err := validation.Struct(n); err != nil {
		return invalidInput(err)
	}
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.Users.GetByID(ctx, userID); err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		return translate(s.Store.Notes.CreateUserNote(ctx, n), ErrDuplicateEntity)
	})
}

func (s *UserService) DeleteNote(ctx context.Context, userID, noteID int) error {
	return translate(s.Store.Notes.DeleteUserNote(ctx, userID, noteID), ErrDuplicateEntity)
}
