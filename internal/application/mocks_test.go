package application

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	repo "github.com/oksasatya/go-odata-api/internal/domain/repository"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) List(ctx context.Context, q *odata.Query, scope repo.Scope) ([]entity.User, error) {
	args := m.Called(ctx, q, scope)
	users, _ := args.Get(0).([]entity.User)
	return users, args.Error(1)
}

func (m *mockUsers) Count(ctx context.Context, q *odata.Query, scope repo.Scope) (int, error) {
	args := m.Called(ctx, q, scope)
	return args.Int(0), args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id int) (*entity.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockUsers) GetByIDs(ctx context.Context, ids []int) ([]entity.User, error) {
	args := m.Called(ctx, ids)
	users, _ := args.Get(0).([]entity.User)
	return users, args.Error(1)
}

func (m *mockUsers) ListByAddresses(ctx context.Context, ids []int) (map[int][]entity.User, error) {
	args := m.Called(ctx, ids)
	out, _ := args.Get(0).(map[int][]entity.User)
	return out, args.Error(1)
}

func (m *mockUsers) Create(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUsers) Update(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUsers) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

type mockAddresses struct{ mock.Mock }

func (m *mockAddresses) List(ctx context.Context, q *odata.Query, scope repo.Scope) ([]entity.Address, error) {
	args := m.Called(ctx, q, scope)
	out, _ := args.Get(0).([]entity.Address)
	return out, args.Error(1)
}

func (m *mockAddresses) Count(ctx context.Context, q *odata.Query, scope repo.Scope) (int, error) {
	args := m.Called(ctx, q, scope)
	return args.Int(0), args.Error(1)
}

func (m *mockAddresses) GetByID(ctx context.Context, id int) (*entity.Address, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*entity.Address)
	return a, args.Error(1)
}

func (m *mockAddresses) GetByIDs(ctx context.Context, ids []int) ([]entity.Address, error) {
	args := m.Called(ctx, ids)
	out, _ := args.Get(0).([]entity.Address)
	return out, args.Error(1)
}

func (m *mockAddresses) ListByUsers(ctx context.Context, ids []int) (map[int][]entity.Address, error) {
	args := m.Called(ctx, ids)
	out, _ := args.Get(0).(map[int][]entity.Address)
	return out, args.Error(1)
}

func (m *mockAddresses) Create(ctx context.Context, a *entity.Address) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAddresses) Update(ctx context.Context, a *entity.Address) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAddresses) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

type mockLinks struct{ mock.Mock }

func (m *mockLinks) Link(ctx context.Context, userID, addressID int) error {
	return m.Called(ctx, userID, addressID).Error(0)
}

func (m *mockLinks) Unlink(ctx context.Context, userID, addressID int) error {
	return m.Called(ctx, userID, addressID).Error(0)
}

type mockNotes struct{ mock.Mock }

func (m *mockNotes) ListUserNotes(ctx context.Context, ids []int) (map[int][]entity.UserNote, error) {
	args := m.Called(ctx, ids)
	out, _ := args.Get(0).(map[int][]entity.UserNote)
	return out, args.Error(1)
}

func (m *mockNotes) CreateUserNote(ctx context.Context, n *entity.UserNote) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotes) DeleteUserNote(ctx context.Context, userID, noteID int) error {
	return m.Called(ctx, userID, noteID).Error(0)
}

func (m *mockNotes) ListAddressNotes(ctx context.Context, ids []int) (map[int][]entity.AddressNote, error) {
	args := m.Called(ctx, ids)
	out, _ := args.Get(0).(map[int][]entity.AddressNote)
	return out, args.Error(1)
}

func (m *mockNotes) CreateAddressNote(ctx context.Context, n *entity.AddressNote) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotes) DeleteAddressNote(ctx context.Context, addressID, noteID int) error {
	return m.Called(ctx, addressID, noteID).Error(0)
}

type mockClaimRoles struct{ mock.Mock }

func (m *mockClaimRoles) Get(ctx context.Context, name string) (*entity.ClaimRoles, error) {
	args := m.Called(ctx, name)
	c, _ := args.Get(0).(*entity.ClaimRoles)
	return c, args.Error(1)
}

func (m *mockClaimRoles) Upsert(ctx context.Context, c *entity.ClaimRoles) error {
	return m.Called(ctx, c).Error(0)
}

// fakeTx runs work inline and fires hooks only when it succeeded.
type fakeTx struct {
	hooks     []func(context.Context)
	committed int
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.hooks = nil
	if err := fn(ctx); err != nil {
		f.hooks = nil
		return err
	}
	f.committed++
	for _, h := range f.hooks {
		h(ctx)
	}
	f.hooks = nil
	return nil
}

func (f *fakeTx) AfterCommit(_ context.Context, fn func(context.Context)) {
	f.hooks = append(f.hooks, fn)
}

type recordedEvent struct {
	kind, op string
	id       int
}

type eventRecorder struct {
	events []recordedEvent
}

func (r *eventRecorder) EntityChanged(_ context.Context, kind, op string, id int, _ any) {
	r.events = append(r.events, recordedEvent{kind: kind, op: op, id: id})
}
