package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/gigbook/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is satisfied by *pgxpool.Pool.
type Pool interface {
	DB
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Store struct {
	pool Pool
}

func NewStore(pool Pool) *Store {
	return &Store{
		pool: pool,
	}
}

func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// InTx runs fn in a serializable transaction with repositories bound to it.
// Serialization failures are reported as repository.ErrSerialization so the
// caller can retry.
func (s *Store) InTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	err := s.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
		return fn(ctx, txRepos{store: s, tx: tx})
	})
	if err != nil && IsRetryable(err) {
		return fmt.Errorf("%w: %w", repository.ErrSerialization, err)
	}

	return err
}

func (s *Store) Profiles() repository.Profiles           { return s.profiles() }
func (s *Store) Bookings() repository.BookingRequests    { return s.bookings() }
func (s *Store) Calendar() repository.CalendarEvents     { return s.calendar() }
func (s *Store) Contracts() repository.Contracts         { return s.contracts() }
func (s *Store) Notifications() repository.Notifications { return s.notifications() }

func (s *Store) profiles() *ProfileRepo           { return &ProfileRepo{pool: s.pool} }
func (s *Store) bookings() *BookingRepo           { return &BookingRepo{pool: s.pool} }
func (s *Store) calendar() *CalendarRepo          { return &CalendarRepo{pool: s.pool} }
func (s *Store) contracts() *ContractRepo         { return &ContractRepo{pool: s.pool} }
func (s *Store) notifications() *NotificationRepo { return &NotificationRepo{pool: s.pool} }

type txRepos struct {
	store *Store
	tx    DB
}

func (r txRepos) Profiles() repository.Profiles        { return r.store.profiles().With(r.tx) }
func (r txRepos) Bookings() repository.BookingRequests { return r.store.bookings().With(r.tx) }
func (r txRepos) Calendar() repository.CalendarEvents  { return r.store.calendar().With(r.tx) }
func (r txRepos) Contracts() repository.Contracts      { return r.store.contracts().With(r.tx) }
func (r txRepos) Notifications() repository.Notifications {
	return r.store.notifications().With(r.tx)
}

var _ repository.Store = (*Store)(nil)
