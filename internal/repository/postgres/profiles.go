package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
)

type ProfileRepo struct {
	pool DB
	db   DB
}

func (r *ProfileRepo) With(db DB) *ProfileRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ProfileRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const profileColumns = `id, user_id, type, name, location, bio, image_url, is_active, created_at, deleted_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var typ string

	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&typ,
		&p.Name,
		&p.Location,
		&p.Bio,
		&p.ImageURL,
		&p.IsActive,
		&p.CreatedAt,
		&p.DeletedAt,
	); err != nil {
		return nil, err
	}

	p.Type = domain.ProfileType(typ)
	return &p, nil
}

// Create inserts a profile and fills in its ID and creation time.
//
// Returns:
//   - error: repository.ErrConflict if the user already has an active or an
//     audience profile.
func (r *ProfileRepo) Create(ctx context.Context, p *domain.Profile) error {
	const op = "postgres.ProfileRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO profiles(user_id, type, name, location, bio, image_url, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		p.UserID, string(p.Type), p.Name, p.Location, p.Bio, p.ImageURL, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get retrieves a non-deleted profile by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the profile does not exist or is deleted.
func (r *ProfileRepo) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	const op = "postgres.ProfileRepo.Get"

	p, err := scanProfile(r.handle().QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles
		 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

func (r *ProfileRepo) GetActiveByUser(ctx context.Context, userID int64) (*domain.Profile, error) {
	const op = "postgres.ProfileRepo.GetActiveByUser"

	p, err := scanProfile(r.handle().QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles
		 WHERE user_id = $1 AND is_active AND deleted_at IS NULL`,
		userID,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

func (r *ProfileRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Profile, error) {
	const op = "postgres.ProfileRepo.ListByUser"

	rows, err := r.handle().Query(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles
		 WHERE user_id = $1 AND deleted_at IS NULL
		 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ProfileRepo) CountByUserAndType(
	ctx context.Context,
	userID int64,
	t domain.ProfileType,
) (int, error) {
	const op = "postgres.ProfileRepo.CountByUserAndType"

	var n int
	if err := r.handle().QueryRow(ctx,
		`SELECT count(*)
		 FROM profiles
		 WHERE user_id = $1 AND type = $2 AND deleted_at IS NULL`,
		userID, string(t),
	).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func (r *ProfileRepo) DeactivateAll(ctx context.Context, userID int64) error {
	const op = "postgres.ProfileRepo.DeactivateAll"

	if _, err := r.handle().Exec(ctx,
		`UPDATE profiles SET is_active = FALSE WHERE user_id = $1 AND is_active`,
		userID,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ProfileRepo) SetActive(ctx context.Context, id int64) error {
	const op = "postgres.ProfileRepo.SetActive"

	tag, err := r.handle().Exec(ctx,
		`UPDATE profiles SET is_active = TRUE WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *ProfileRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	const op = "postgres.ProfileRepo.SoftDelete"

	tag, err := r.handle().Exec(ctx,
		`UPDATE profiles
		 SET deleted_at = $2, is_active = FALSE
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// PurgeDeleted hard-deletes profiles soft-deleted before the cutoff.
func (r *ProfileRepo) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	const op = "postgres.ProfileRepo.PurgeDeleted"

	tag, err := r.handle().Exec(ctx,
		`DELETE FROM profiles WHERE deleted_at IS NOT NULL AND deleted_at <= $1`,
		before,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}
