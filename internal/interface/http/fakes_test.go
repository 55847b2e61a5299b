package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	repo "github.com/oksasatya/go-odata-api/internal/domain/repository"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

// memDB is an in-memory store behind the repository interfaces. It ignores
// $filter and $orderby; paging and the key order are honored.
type memDB struct {
	mu        sync.Mutex
	users     map[int]entity.User
	addresses map[int]entity.Address
	links     map[[2]int]bool
	userNotes map[int]entity.UserNote
	// pinned users fail to delete with a foreign key conflict.
	pinned map[int]bool
	nextID int
}

func newMemDB() *memDB {
	return &memDB{
		users:     map[int]entity.User{},
		addresses: map[int]entity.Address{},
		links:     map[[2]int]bool{},
		userNotes: map[int]entity.UserNote{},
		pinned:    map[int]bool{},
	}
}

func (db *memDB) id() int {
	db.nextID++
	return db.nextID
}

type memSnapshot struct {
	users     map[int]entity.User
	addresses map[int]entity.Address
	links     map[[2]int]bool
	nextID    int
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := memSnapshot{users: map[int]entity.User{}, addresses: map[int]entity.Address{}, links: map[[2]int]bool{}, nextID: db.nextID}
	for k, v := range db.users {
		s.users[k] = v
	}
	for k, v := range db.addresses {
		s.addresses[k] = v
	}
	for k, v := range db.links {
		s.links[k] = v
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users, db.addresses, db.links, db.nextID = s.users, s.addresses, s.links, s.nextID
}

type memUnit struct {
	db   *memDB
	snap memSnapshot
}

func (u *memUnit) Commit(context.Context) error { return nil }

func (u *memUnit) Rollback(context.Context) error {
	u.db.restore(u.snap)
	return nil
}

func (db *memDB) begin(ctx context.Context) (context.Context, UnitOfWork, error) {
	return ctx, &memUnit{db: db, snap: db.snapshot()}, nil
}

// memTx runs work directly; rollback is only modeled by memDB.begin.
type memTx struct{}

func (memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

func (memTx) AfterCommit(ctx context.Context, fn func(ctx context.Context)) { fn(ctx) }

func pageOf[T any](items []T, q *odata.Query) []T {
	if q == nil {
		return items
	}
	if q.Skip >= len(items) {
		return []T{}
	}
	items = items[q.Skip:]
	if q.Top != nil && *q.Top < len(items) {
		items = items[:*q.Top]
	}
	return items
}

func notFound(kind string, id int) error {
	return fmt.Errorf("%s %d %w", kind, id, repo.ErrNotFound)
}

type memUsers struct{ db *memDB }

func (r memUsers) scoped(scope repo.Scope) []entity.User {
	var out []entity.User
	for id, u := range r.db.users {
		if scope.AddressID != 0 && !r.db.links[[2]int{id, scope.AddressID}] {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memUsers) List(_ context.Context, q *odata.Query, scope repo.Scope) ([]entity.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return pageOf(r.scoped(scope), q), nil
}

func (r memUsers) Count(_ context.Context, _ *odata.Query, scope repo.Scope) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.scoped(scope)), nil
}

func (r memUsers) GetByID(_ context.Context, id int) (*entity.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (r memUsers) GetByIDs(_ context.Context, ids []int) ([]entity.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []entity.User
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r memUsers) ListByAddresses(_ context.Context, addressIDs []int) (map[int][]entity.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[int][]entity.User{}
	for _, aid := range addressIDs {
		out[aid] = r.scoped(repo.Scope{AddressID: aid})
	}
	return out, nil
}

func (r memUsers) Create(_ context.Context, u *entity.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, other := range r.db.users {
		if u.Email != "" && other.Email == u.Email {
			return fmt.Errorf("users_email_key: %w", repo.ErrDuplicateKey)
		}
	}
	u.ID = r.db.id()
	r.db.users[u.ID] = *u
	return nil
}

func (r memUsers) Update(_ context.Context, u *entity.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[u.ID]; !ok {
		return notFound("user", u.ID)
	}
	r.db.users[u.ID] = *u
	return nil
}

func (r memUsers) Delete(_ context.Context, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return notFound("user", id)
	}
	if r.db.pinned[id] {
		return fmt.Errorf("user_notes_user_id_fkey: %w", repo.ErrForeignKeyConflict)
	}
	delete(r.db.users, id)
	return nil
}

type memAddresses struct{ db *memDB }

func (r memAddresses) scoped(scope repo.Scope) []entity.Address {
	var out []entity.Address
	for id, a := range r.db.addresses {
		if scope.UserID != 0 && !r.db.links[[2]int{scope.UserID, id}] {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memAddresses) List(_ context.Context, q *odata.Query, scope repo.Scope) ([]entity.Address, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return pageOf(r.scoped(scope), q), nil
}

func (r memAddresses) Count(_ context.Context, _ *odata.Query, scope repo.Scope) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.scoped(scope)), nil
}

func (r memAddresses) GetByID(_ context.Context, id int) (*entity.Address, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.addresses[id]
	if !ok {
		return nil, notFound("address", id)
	}
	return &a, nil
}

func (r memAddresses) GetByIDs(_ context.Context, ids []int) ([]entity.Address, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []entity.Address
	for _, id := range ids {
		if a, ok := r.db.addresses[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memAddresses) ListByUsers(_ context.Context, userIDs []int) (map[int][]entity.Address, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[int][]entity.Address{}
	for _, uid := range userIDs {
		out[uid] = r.scoped(repo.Scope{UserID: uid})
	}
	return out, nil
}

func (r memAddresses) Create(_ context.Context, a *entity.Address) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a.ID = r.db.id()
	r.db.addresses[a.ID] = *a
	return nil
}

func (r memAddresses) Update(_ context.Context, a *entity.Address) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.addresses[a.ID]; !ok {
		return notFound("address", a.ID)
	}
	r.db.addresses[a.ID] = *a
	return nil
}

func (r memAddresses) Delete(_ context.Context, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.addresses[id]; !ok {
		return notFound("address", id)
	}
	delete(r.db.addresses, id)
	return nil
}

type memLinks struct{ db *memDB }

func (r memLinks) Link(_ context.Context, userID, addressID int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := [2]int{userID, addressID}
	if r.db.links[k] {
		return fmt.Errorf("user_address_pkey: %w", repo.ErrDuplicateKey)
	}
	r.db.links[k] = true
	return nil
}

func (r memLinks) Unlink(_ context.Context, userID, addressID int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := [2]int{userID, addressID}
	if !r.db.links[k] {
		return fmt.Errorf("association %w", repo.ErrNotFound)
	}
	delete(r.db.links, k)
	return nil
}

type memNotes struct{ db *memDB }

func (r memNotes) ListUserNotes(_ context.Context, userIDs []int) (map[int][]entity.UserNote, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[int][]entity.UserNote{}
	for _, n := range r.db.userNotes {
		for _, id := range userIDs {
			if n.UserID == id {
				out[id] = append(out[id], n)
			}
		}
	}
	return out, nil
}

func (r memNotes) CreateUserNote(_ context.Context, n *entity.UserNote) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n.ID = r.db.id()
	r.db.userNotes[n.ID] = *n
	return nil
}

func (r memNotes) DeleteUserNote(_ context.Context, userID, noteID int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.userNotes[noteID]
	if !ok || n.UserID != userID {
		return notFound("note", noteID)
	}
	delete(r.db.userNotes, noteID)
	return nil
}

func (r memNotes) ListAddressNotes(context.Context, []int) (map[int][]entity.AddressNote, error) {
	return map[int][]entity.AddressNote{}, nil
}

func (r memNotes) CreateAddressNote(_ context.Context, n *entity.AddressNote) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n.ID = r.db.id()
	return nil
}

func (r memNotes) DeleteAddressNote(_ context.Context, _, noteID int) error {
	return notFound("note", noteID)
}
