package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	repo "github.com/oksasatya/go-odata-api/internal/domain/repository"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

// AnonymousActor stamps writes made without an authenticated principal.
const AnonymousActor = "Anonymous"

// Actor returns the principal name, or AnonymousActor when empty.
func Actor(name string) string {
	if name == "" {
		return AnonymousActor
	}
	return name
}

// TxRunner is implemented by postgres.TxManager.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	AfterCommit(ctx context.Context, fn func(ctx context.Context))
}

// EventSink receives committed entity writes. telemetry.Tracker implements it.
type EventSink interface {
	EntityChanged(ctx context.Context, entity, op string, id int, doc any)
}

// Page is one result page of a collection query.
type Page[T any] struct {
	Items []T
	Count *int
}

// Store bundles the repositories shared by the entity services.
type Store struct {
	Users     repo.UserRepository
	Addresses repo.AddressRepository
	Links     repo.AssociationRepository
	Notes     repo.NoteRepository
	Tx        TxRunner
	Events    EventSink
	Logger    *logrus.Logger
	Now       func() time.Time
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// changed publishes an entity event once the surrounding transaction commits.
func (s *Store) changed(ctx context.Context, kind, op string, id int, doc any) {
	if s.Events == nil {
		return
	}
	s.Tx.AfterCommit(ctx, func(ctx context.Context) {
		s.Events.EntityChanged(ctx, kind, op, id, doc)
	})
}

func (s *Store) expandUsers(ctx context.Context, users []entity.User, q *odata.Query) error {
	if len(users) == 0 || (!q.Expands("addresses") && !q.Expands("notes")) {
		return nil
	}
	ids := make([]int, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	if q.Expands("addresses") {
		byUser, err := s.Addresses.ListByUsers(ctx, ids)
		if err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		for i := range users {
			users[i].Addresses = byUser[users[i].ID]
		}
	}
	if q.Expands("notes") {
		byUser, err := s.Notes.ListUserNotes(ctx, ids)
		if err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		for i := range users {
			users[i].Notes = byUser[users[i].ID]
		}
	}
	return nil
}

func (s *Store) expandAddresses(ctx context.Context, addrs []entity.Address, q *odata.Query) error {
	if len(addrs) == 0 || (!q.Expands("users") && !q.Expands("notes")) {
		return nil
	}
	ids := make([]int, len(addrs))
	for i, a := range addrs {
		ids[i] = a.ID
	}
	if q.Expands("users") {
		byAddress, err := s.Users.ListByAddresses(ctx, ids)
		if err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		for i := range addrs {
			addrs[i].Users = byAddress[addrs[i].ID]
		}
	}
	if q.Expands("notes") {
		byAddress, err := s.Notes.ListAddressNotes(ctx, ids)
		if err != nil {
			return translate(err, ErrDuplicateEntity)
		}
		for i := range addrs {
			addrs[i].Notes = byAddress[addrs[i].ID]
		}
	}
	return nil
}

// link associates a user and an address after checking both exist.
func (s *Store) link(ctx context.Context, userID, addressID int) error {
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureBoth(ctx, userID, addressID); err != nil {
			return err
		}
		return translate(s.Links.Link(ctx, userID, addressID), ErrDuplicateAssociation)
	})
}

func (s *Store) unlink(ctx context.Context, userID, addressID int) error {
	return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureBoth(ctx, userID, addressID); err != nil {
			return err
		}
		return translate(s.Links.Unlink(ctx, userID, addressID), ErrDuplicateAssociation)
	})
}

func (s *Store) ensureBoth(ctx context.Context, userID, addressID int) error {
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		return translate(err, ErrDuplicateEntity)
	}
	if _, err := s.Addresses.GetByID(ctx, addressID); err != nil {
		return translate(err, ErrDuplicateEntity)
	}
	return nil
}
