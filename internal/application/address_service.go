package application

import (
	"context"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	repo "github.com/oksasatya/go-odata-api/internal/domain/repository"
	"github.com/oksasatya/go-odata-api/internal/odata"
	"github.com/oksasatya/go-odata-api/pkg/validation"
)

const addressKind = "address"

type AddressService struct {
	*Store
}

func NewAddressService(store *Store) *AddressService {
	return &AddressService{Store: store}
}

func (s *AddressService) Query(ctx context.Context, q *odata.Query) (*Page[entity.Address], error) {
	addrs, err := s.Store.Addresses.List(ctx, q, repo.Scope{})
	if err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	page := &Page[entity.Address]{Items: addrs}
	if q != nil && q.Count {
		n, err := s.Store.Addresses.Count(ctx, q, repo.Scope{})
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

func (s *AddressService) Get(ctx context.Context, id int, q *odata.Query) (*entity.Address, error) {
	a, err := s.Store.Addresses.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	one := []entity.Address{*a}
	if err := s.expandAddresses(ctx, one, q); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (s *AddressService) Create(ctx context.Context, actor string, addrs []*entity.Address) error {
	now := s.now()
	for _, a := range addrs {
		a.StampCreated(Actor(actor), now)
		if err := validation.Struct(a); err != nil {
			return invalidInput(err)
		}
	}
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, a := range addrs {
			if err := s.Store.Addresses.Create(ctx, a); err != nil {
				return translate(err, ErrDuplicateEntity)
			}
			s.changed(ctx, addressKind, "upsert", a.ID, *a)
		}
		return nil
	})
}

func (s *AddressService) Replace(ctx context.Context, actor string, id int, a *entity.Address) error {
	a.ID = id
	return s.ReplaceBulk(ctx, actor, []*entity.Address{a})
}

// ReplaceBulk fully replaces every address; all must already exist.
func (s *AddressService) ReplaceBulk(ctx context.Context, actor string, addrs []*entity.Address) error {
	ids := make([]int, len(addrs))
	for i, a := range addrs {
		ids[i] = a.ID
	}
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		found, err := s.Store.Addresses.GetByIDs(ctx, ids)
		if err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		byID := make(map[int]entity.Address, len(found))
		for _, f := range found {
			byID[f.ID] = f
		}
		now := s.now()
		for _, a := range addrs {
			current, ok := byID[a.ID]
			if !ok {
				return notFound(addressKind, a.ID)
			}
			a.CreatedDate, a.CreatedBy = current.CreatedDate, current.CreatedBy
			a.StampModified(Actor(actor), now)
			if err := validation.Struct(a); err != nil {
				return invalidInput(err)
			}
			if err := s.Store.Addresses.Update(ctx, a); err != nil {
				return translate(err, ErrDuplicateEntity)
			}
			s.changed(ctx, addressKind, "upsert", a.ID, *a)
		}
		return nil
	})
}

func (s *AddressService) Patch(ctx context.Context, actor string, id int, delta map[string]any, et *odata.EntityType) (*entity.Address, error) {
	var out *entity.Address
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.Store.Addresses.GetByID(ctx, id)
		if err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		if err := s.applyDelta(ctx, actor, a, delta, et); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// PatchBulk applies every delta in one transaction; one missing key fails all.
func (s *AddressService) PatchBulk(ctx context.Context, actor string, deltas []map[string]any, et *odata.EntityType) ([]entity.Address, error) {
	ids := make([]int, len(deltas))
	for i, d := range deltas {
		id, err := odata.DeltaKey(d, et)
		if err != nil {
			return nil, invalidInput(err)
		}
		ids[i] = id
	}
	var out []entity.Address
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		found, err := s.Store.Addresses.GetByIDs(ctx, ids)
		if err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		byID := make(map[int]*entity.Address, len(found))
		for i := range found {
			byID[found[i].ID] = &found[i]
		}
		for _, id := range ids {
			if byID[id] == nil {
				return notFound(addressKind, id)
			}
		}
		out = make([]entity.Address, 0, len(deltas))
		for i, d := range deltas {
			a := byID[ids[i]]
			if err := s.applyDelta(ctx, actor, a, d, et); err != nil {
				return err
			}
			out = append(out, *a)
		}
		return nil
	})
	return out, err
}

func (s *AddressService) applyDelta(ctx context.Context, actor string, a *entity.Address, delta map[string]any, et *odata.EntityType) error {
	if err := odata.ApplyDelta(a, delta, et); err != nil {
		return invalidInput(err)
	}
	a.StampModified(Actor(actor), s.now())
	if err := validation.Struct(a); err != nil {
		return invalidInput(err)
	}
	if err := s.Store.Addresses.Update(ctx, a); err != nil {
		return translate(err, ErrDuplicateEntity)
	}
	s.changed(ctx, addressKind, "upsert", a.ID, *a)
	return nil
}

func (s *AddressService) Delete(ctx context.Context, id int) error {
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.Store.Addresses.Delete(ctx, id); err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		s.changed(ctx, addressKind, "delete", id, nil)
		return nil
	})
}

func (s *AddressService) LinkUser(ctx context.Context, addressID, userID int) error {
	return s.link(ctx, userID, addressID)
}

func (s *AddressService) UnlinkUser(ctx context.Context, addressID, userID int) error {
	return s.unlink(ctx, userID, addressID)
}

// Users lists the users of an address. An address without users is reported as not found.
func (s *AddressService) Users(ctx context.Context, addressID int, q *odata.Query) (*Page[entity.User], error) {
	if _, err := s.Store.Addresses.GetByID(ctx, addressID); err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	scope := repo.Scope{AddressID: addressID}
	total, err := s.Store.Users.Count(ctx, nil, scope)
	if err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	if total == 0 {
		return nil, notFound("users for address", addressID)
	}
	users, err := s.Store.Users.List(ctx, q, scope)
	if err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	page := &Page[entity.User]{Items: users}
	if q != nil && q.Count {
		n, err := s.Store.Users.Count(ctx, q, scope)
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

func (s *AddressService) Notes(ctx context.Context, addressID int) ([]entity.AddressNote, error) {
	if _, err := s.Store.Addresses.GetByID(ctx, addressID); err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	byAddress, err := s.Store.Notes.ListAddressNotes(ctx, []int{addressID})
	if err != nil {
		return nil, translate(err, ErrDuplicateEntity)
	}
	notes := byAddress[addressID]
	if len(notes) == 0 {
		return nil, notFound("notes for address", addressID)
	}
	return notes, nil
}

func (s *AddressService) AddNote(ctx context.Context, addressID int, n *entity.AddressNote) error {
	n.AddressID = addressID
	if err := validation.Struct(n); err != nil {
		return invalidInput(err)
	}
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.Store.Addresses.GetByID(ctx, addressID); err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		return translate(s.Store.Notes.CreateAddressNote(ctx, n), ErrDuplicateEntity)
	})
}

func (s *AddressService) DeleteNote(ctx context.Context, addressID, noteID int) error {
	return translate(s.Store.Notes.DeleteAddressNote(ctx, addressID, noteID), ErrDuplicateEntity)
}
