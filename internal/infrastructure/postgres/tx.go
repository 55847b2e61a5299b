package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type txKey struct{}

type txState struct {
	tx    pgx.Tx
	root  *txState
	hooks []func(context.Context)
	// mark is the root's hook count when this savepoint opened.
	mark int
}

func (s *txState) top() *txState {
	if s.root != nil {
		return s.root
	}
	return s
}

func stateFrom(ctx context.Context) *txState {
	s, _ := ctx.Value(txKey{}).(*txState)
	return s
}

// conn returns the transaction carried by ctx, or db.
func conn(ctx context.Context, db DBTX) DBTX {
	if s := stateFrom(ctx); s != nil {
		return s.tx
	}
	return db
}

// TxManager runs units of work in transactions carried through the context,
// so repositories called with that context join the transaction.
type TxManager struct {
	db Beginner
}

func NewTxManager(db Beginner) *TxManager {
	return &TxManager{db: db}
}

// Unit is an open transaction bound to a context.
type Unit struct {
	state *txState
}

// Begin opens a transaction, or a savepoint when ctx already carries one.
func (m *TxManager) Begin(ctx context.Context) (context.Context, *Unit, error) {
	parent := stateFrom(ctx)
	var (
		tx  pgx.Tx
		err error
	)
	if parent != nil {
		tx, err = parent.tx.Begin(ctx)
	} else {
		tx, err = m.db.Begin(ctx)
	}
	if err != nil {
		return ctx, nil, fmt.Errorf("begin tx: %w", err)
	}
	st := &txState{tx: tx}
	if parent != nil {
		st.root = parent.top()
		st.mark = len(st.root.hooks)
	}
	return context.WithValue(ctx, txKey{}, st), &Unit{state: st}, nil
}

// Commit commits the unit. For an outermost transaction the after-commit
// hooks run once the commit succeeded.
func (u *Unit) Commit(ctx context.Context) error {
	if err := u.state.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	if u.state.root == nil {
		hooks := u.state.hooks
		u.state.hooks = nil
		for _, h := range hooks {
			h(ctx)
		}
	}
	return nil
}

// Rollback discards the unit along with the hooks registered inside it.
func (u *Unit) Rollback(ctx context.Context) error {
	if top := u.state.root; top == nil {
		u.state.hooks = nil
	} else if len(top.hooks) > u.state.mark {
		top.hooks = top.hooks[:u.state.mark]
	}
	if err := u.state.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

// RunInTx runs fn in a transaction and commits when fn returns nil.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, unit, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(txCtx); err != nil {
		_ = unit.Rollback(ctx)
		return err
	}
	return unit.Commit(ctx)
}

// AfterCommit defers fn until the outermost transaction in ctx commits.
// Without a transaction fn runs immediately.
func (m *TxManager) AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	s := stateFrom(ctx)
	if s == nil {
		fn(ctx)
		return
	}
	top := s.top()
	top.hooks = append(top.hooks, fn)
}
