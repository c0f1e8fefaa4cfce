package uow

import (
	"context"
	"errors"

	"github.com/kirinyoku/gigbook/internal/repository"
)

const defaultAttempts = 3

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work.
type UoW struct {
	store    repository.Store
	attempts int
}

func NewUoW(store repository.Store) *UoW {
	return &UoW{store: store, attempts: defaultAttempts}
}

// Do runs fn inside a transaction, retrying it from scratch when the database
// reports a serialization failure. Hooks registered through after run once,
// only after the attempt that committed.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error,
) error {
	var err error

	for attempt := 1; attempt <= u.attempts; attempt++ {
		var hooks []AfterCommit

		err = u.store.InTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil {
			for _, h := range hooks {
				h(ctx)
			}
			return nil
		}

		if !errors.Is(err, repository.ErrSerialization) || ctx.Err() != nil {
			return err
		}
	}

	return err
}
