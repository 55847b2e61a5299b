package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	repo "github.com/oksasatya/go-odata-api/internal/domain/repository"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

func newAddressFixture() (*AddressService, *mockAddresses, *mockUsers, *mockLinks, *eventRecorder) {
	users, addrs, links := &mockUsers{}, &mockAddresses{}, &mockLinks{}
	events := &eventRecorder{}
	svc := NewAddressService(&Store{
		Users:     users,
		Addresses: addrs,
		Links:     links,
		Notes:     &mockNotes{},
		Tx:        &fakeTx{},
		Events:    events,
		Now:       func() time.Time { return fixedTime },
	})
	return svc, addrs, users, links, events
}

func validAddress(id int) entity.Address {
	return entity.Address{
		ID: id, StreetNumber: 12, StreetName: "Main Street",
		City: "Springfield", State: "IL", ZipCode: "62701",
	}
}

func TestAddressService_ReplaceBulk_AllMustExist(t *testing.T) {
	svc, addrs, _, _, events := newAddressFixture()
	addrs.On("GetByIDs", mock.Anything, []int{1, 2}).Return([]entity.Address{validAddress(1)}, nil)

	a1, a2 := validAddress(1), validAddress(2)
	err := svc.ReplaceBulk(context.Background(), "alice", []*entity.Address{&a1, &a2})

	assert.ErrorIs(t, err, ErrNotFound)
	addrs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.Empty(t, events.events)
}

func TestAddressService_Replace_PreservesCreated(t *testing.T) {
	svc, addrs, _, _, events := newAddressFixture()
	stored := validAddress(3)
	stored.CreatedBy = "seed"
	stored.CreatedDate = time.Date(2021, 3, 3, 0, 0, 0, 0, time.UTC)
	addrs.On("GetByIDs", mock.Anything, []int{3}).Return([]entity.Address{stored}, nil)
	addrs.On("Update", mock.Anything, mock.AnythingOfType("*entity.Address")).Return(nil)

	in := validAddress(0)
	in.City = "Shelbyville"
	require.NoError(t, svc.Replace(context.Background(), "", 3, &in))

	assert.Equal(t, 3, in.ID)
	assert.Equal(t, "seed", in.CreatedBy)
	assert.Equal(t, AnonymousActor, in.LastModifiedBy)
	assert.Equal(t, fixedTime, in.LastModifiedDate)
	assert.Equal(t, []recordedEvent{{kind: "address", op: "upsert", id: 3}}, events.events)
}

func TestAddressService_Patch_EnumByName(t *testing.T) {
	svc, addrs, _, _, _ := newAddressFixture()
	stored := validAddress(5)
	addrs.On("GetByID", mock.Anything, 5).Return(&stored, nil)
	addrs.On("Update", mock.Anything, mock.AnythingOfType("*entity.Address")).Return(nil)

	out, err := svc.Patch(context.Background(), "alice", 5, map[string]any{"type": "Business", "createdBy": "mallory"}, odata.V2.Addresses)

	require.NoError(t, err)
	require.NotNil(t, out.Type)
	assert.Equal(t, entity.Business, *out.Type)
	assert.Empty(t, out.CreatedBy)
}

func TestAddressService_Patch_InvalidValue(t *testing.T) {
	svc, addrs, _, _, _ := newAddressFixture()
	stored := validAddress(5)
	addrs.On("GetByID", mock.Anything, 5).Return(&stored, nil)

	_, err := svc.Patch(context.Background(), "alice", 5, map[string]any{"zipCode": "1"}, odata.V2.Addresses)

	assert.ErrorIs(t, err, ErrInvalidInput)
	addrs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAddressService_Users_NoneIsNotFound(t *testing.T) {
	svc, addrs, users, _, _ := newAddressFixture()
	stored := validAddress(8)
	addrs.On("GetByID", mock.Anything, 8).Return(&stored, nil)
	users.On("Count", mock.Anything, (*odata.Query)(nil), repo.Scope{AddressID: 8}).Return(0, nil)

	_, err := svc.Users(context.Background(), 8, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	users.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddressService_Users(t *testing.T) {
	svc, addrs, users, _, _ := newAddressFixture()
	stored := validAddress(8)
	scope := repo.Scope{AddressID: 8}
	q := &odata.Query{}
	addrs.On("GetByID", mock.Anything, 8).Return(&stored, nil)
	users.On("Count", mock.Anything, (*odata.Query)(nil), scope).Return(2, nil)
	users.On("List", mock.Anything, q, scope).Return([]entity.User{{ID: 1}, {ID: 2}}, nil)

	page, err := svc.Users(context.Background(), 8, q)

	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Nil(t, page.Count)
}

func TestAddressService_LinkUser_ArgumentOrder(t *testing.T) {
	svc, addrs, users, links, _ := newAddressFixture()
	stored := validAddress(4)
	users.On("GetByID", mock.Anything, 9).Return(&entity.User{ID: 9}, nil)
	addrs.On("GetByID", mock.Anything, 4).Return(&stored, nil)
	links.On("Link", mock.Anything, 9, 4).Return(nil)

	require.NoError(t, svc.LinkUser(context.Background(), 4, 9))
	links.AssertExpectations(t)
}

func TestAddressService_UnlinkUser_NotLinked(t *testing.T) {
	svc, addrs, users, links, _ := newAddressFixture()
	stored := validAddress(4)
	users.On("GetByID", mock.Anything, 9).Return(&entity.User{ID: 9}, nil)
	addrs.On("GetByID", mock.Anything, 4).Return(&stored, nil)
	links.On("Unlink", mock.Anything, 9, 4).Return(repo.ErrNotFound)

	assert.ErrorIs(t, svc.UnlinkUser(context.Background(), 4, 9), ErrNotFound)
}

func TestAddressService_Delete_PublishesAfterCommit(t *testing.T) {
	svc, addrs, _, _, events := newAddressFixture()
	addrs.On("Delete", mock.Anything, 6).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), 6))
	assert.Equal(t, []recordedEvent{{kind: "address", op: "delete", id: 6}}, events.events)
}
