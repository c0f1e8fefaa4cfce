package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
)

type CalendarRepo struct {
	pool DB
	db   DB
}

func (r *CalendarRepo) With(db DB) *CalendarRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CalendarRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const calendarColumns = `id, profile_id, title, date, start_time, end_time, type, status,
	client, location, notes, budget, is_private`

func scanCalendarEvent(row pgx.Row) (*domain.CalendarEvent, error) {
	var (
		e      domain.CalendarEvent
		date   time.Time
		typ    string
		status string
	)

	if err := row.Scan(
		&e.ID,
		&e.ProfileID,
		&e.Title,
		&date,
		&e.StartTime,
		&e.EndTime,
		&typ,
		&status,
		&e.Client,
		&e.Location,
		&e.Notes,
		&e.Budget,
		&e.IsPrivate,
	); err != nil {
		return nil, err
	}

	e.Date = domain.DateOf(date)
	e.Type = domain.EventType(typ)
	e.Status = domain.EventStatus(status)
	return &e, nil
}

func (r *CalendarRepo) Create(ctx context.Context, e *domain.CalendarEvent) error {
	const op = "postgres.CalendarRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO calendar_events(
			profile_id, title, date, start_time, end_time, type, status,
			client, location, notes, budget, is_private)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		e.ProfileID,
		e.Title,
		e.Date.Time,
		e.StartTime,
		e.EndTime,
		string(e.Type),
		string(e.Status),
		e.Client,
		e.Location,
		e.Notes,
		e.Budget,
		e.IsPrivate,
	).Scan(&e.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CalendarRepo) Get(ctx context.Context, id int64) (*domain.CalendarEvent, error) {
	const op = "postgres.CalendarRepo.Get"

	e, err := scanCalendarEvent(r.handle().QueryRow(ctx,
		`SELECT `+calendarColumns+` FROM calendar_events WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return e, nil
}

// ListForProfile returns the profile's persisted events dated within
// [from, to], ordered by date and start time.
func (r *CalendarRepo) ListForProfile(
	ctx context.Context,
	profileID int64,
	from, to domain.Date,
) ([]domain.CalendarEvent, error) {
	const op = "postgres.CalendarRepo.ListForProfile"

	rows, err := r.handle().Query(ctx,
		`SELECT `+calendarColumns+`
		 FROM calendar_events
		 WHERE profile_id = $1 AND date BETWEEN $2 AND $3
		 ORDER BY date, start_time, id`,
		profileID, from.Time, to.Time,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.CalendarEvent
	for rows.Next() {
		e, err := scanCalendarEvent(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CalendarRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.CalendarRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM calendar_events WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
