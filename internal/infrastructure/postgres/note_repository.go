package postgres

import (
	"context"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	"github.com/oksasatya/go-odata-api/internal/domain/repository"
)

type NoteRepository struct {
	db DBTX
}

func NewNoteRepository(db DBTX) *NoteRepository {
	return &NoteRepository{db: db}
}

var _ repository.NoteRepository = (*NoteRepository)(nil)

type noteRow struct {
	id, owner int
	note      string
}

// listNotes reads id, owner id and text from table for the given owners.
func (r *NoteRepository) listNotes(ctx context.Context, table, ownerCol string, owners []int) ([]noteRow, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		"SELECT id, "+ownerCol+", note FROM "+table+" WHERE "+ownerCol+" = ANY($1) ORDER BY id", owners)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	var out []noteRow
	for rows.Next() {
		var n noteRow
		if err := rows.Scan(&n.id, &n.owner, &n.note); err != nil {
			return nil, classify(err)
		}
		out = append(out, n)
	}
	return out, classify(rows.Err())
}

func (r *NoteRepository) createNote(ctx context.Context, table, ownerCol string, owner int, note string) (int, error) {
	var id int
	err := conn(ctx, r.db).QueryRow(ctx,
		"INSERT INTO "+table+" ("+ownerCol+", note) VALUES ($1, $2) RETURNING id", owner, note).Scan(&id)
	return id, classify(err)
}

func (r *NoteRepository) deleteNote(ctx context.Context, table, ownerCol string, owner, id int) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		"DELETE FROM "+table+" WHERE id = $1 AND "+ownerCol+" = $2", id, owner)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *NoteRepository) ListUserNotes(ctx context.Context, userIDs []int) (map[int][]entity.UserNote, error) {
	rows, err := r.listNotes(ctx, "user_notes", "user_id", userIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[int][]entity.UserNote, len(userIDs))
	for _, n := range rows {
		out[n.owner] = append(out[n.owner], entity.UserNote{ID: n.id, UserID: n.owner, Note: n.note})
	}
	return out, nil
}

func (r *NoteRepository) CreateUserNote(ctx context.Context, n *entity.UserNote) error {
	id, err := r.createNote(ctx, "user_notes", "user_id", n.UserID, n.Note)
	if err != nil {
		return err
	}
	n.ID = id
	return nil
}

func (r *NoteRepository) DeleteUserNote(ctx context.Context, userID, noteID int) error {
	return r.deleteNote(ctx, "user_notes", "user_id", userID, noteID)
}

func (r *NoteRepository) ListAddressNotes(ctx context.Context, addressIDs []int) (map[int][]entity.AddressNote, error) {
	rows, err := r.listNotes(ctx, "address_notes", "address_id", addressIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[int][]entity.AddressNote, len(addressIDs))
	for _, n := range rows {
		out[n.owner] = append(out[n.owner], entity.AddressNote{ID: n.id, AddressID: n.owner, Note: n.note})
	}
	return out, nil
}

func (r *NoteRepository) CreateAddressNote(ctx context.Context, n *entity.AddressNote) error {
	id, err := r.createNote(ctx, "address_notes", "address_id", n.AddressID, n.Note)
	if err != nil {
		return err
	}
	n.ID = id
	return nil
}

func (r *NoteRepository) DeleteAddressNote(ctx context.Context, addressID, noteID int) error {
	return r.deleteNote(ctx, "address_notes", "address_id", addressID, noteID)
}
