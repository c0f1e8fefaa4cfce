package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/gigbook/internal/domain"
)

type ContractRepo struct {
	pool DB
	db   DB
}

func (r *ContractRepo) With(db DB) *ContractRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ContractRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const proposalColumns = `id, booking_request_id, proposed_by, proposed_to, title, description,
	terms, payment, requirements, attachments, status, expires_at, accepted_at, rejected_at,
	created_at, updated_at`

func scanProposal(row pgx.Row) (*domain.ContractProposal, error) {
	var (
		p                                 domain.ContractProposal
		terms, payment, reqs, attachments []byte
		status                            string
	)

	if err := row.Scan(
		&p.ID,
		&p.BookingRequestID,
		&p.ProposedBy,
		&p.ProposedTo,
		&p.Title,
		&p.Description,
		&terms,
		&payment,
		&reqs,
		&attachments,
		&status,
		&p.ExpiresAt,
		&p.AcceptedAt,
		&p.RejectedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	docs := []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"terms", terms, &p.Terms},
		{"payment", payment, &p.Payment},
		{"requirements", reqs, &p.Requirements},
		{"attachments", attachments, &p.Attachments},
	}
	for _, d := range docs {
		if len(d.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(d.raw, d.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.name, err)
		}
	}

	p.Status = domain.ProposalStatus(status)
	return &p, nil
}

// Create inserts a proposal. Terms, payment, requirements and attachments are
// stored as JSONB documents.
func (r *ContractRepo) Create(ctx context.Context, p *domain.ContractProposal) error {
	const op = "postgres.ContractRepo.Create"

	terms, err := json.Marshal(p.Terms)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	payment, err := json.Marshal(p.Payment)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	reqs, err := json.Marshal(p.Requirements)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	attachments := p.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	att, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err = r.handle().QueryRow(ctx,
		`INSERT INTO contract_proposals(
			booking_request_id, proposed_by, proposed_to, title, description,
			terms, payment, requirements, attachments, status, expires_at,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		 RETURNING id`,
		p.BookingRequestID,
		p.ProposedBy,
		p.ProposedTo,
		p.Title,
		p.Description,
		terms,
		payment,
		reqs,
		att,
		string(p.Status),
		p.ExpiresAt,
		p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	p.UpdatedAt = p.CreatedAt
	return nil
}

func (r *ContractRepo) Get(ctx context.Context, id int64) (*domain.ContractProposal, error) {
	const op = "postgres.ContractRepo.Get"

	p, err := scanProposal(r.handle().QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM contract_proposals WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

func (r *ContractRepo) ListForProfile(ctx context.Context, profileID int64) ([]domain.ContractProposal, error) {
	const op = "postgres.ContractRepo.ListForProfile"

	rows, err := r.handle().Query(ctx,
		`SELECT `+proposalColumns+`
		 FROM contract_proposals
		 WHERE proposed_by = $1 OR proposed_to = $1
		 ORDER BY created_at DESC, id DESC`,
		profileID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.ContractProposal
	for rows.Next() {
		p, err := scanProposal(rows)
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

// TransitionStatus moves the proposal to `to` while its status is one of
// from, stamping accepted_at or rejected_at for those targets.
func (r *ContractRepo) TransitionStatus(
	ctx context.Context,
	id int64,
	from []domain.ProposalStatus,
	to domain.ProposalStatus,
	at time.Time,
) (bool, error) {
	const op = "postgres.ContractRepo.TransitionStatus"

	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}

	tag, err := r.handle().Exec(ctx,
		`UPDATE contract_proposals
		 SET status = $3::text,
		     updated_at = $4,
		     accepted_at = CASE WHEN $3::text = 'accepted' THEN $4 ELSE accepted_at END,
		     rejected_at = CASE WHEN $3::text = 'rejected' THEN $4 ELSE rejected_at END
		 WHERE id = $1 AND status = ANY($2)`,
		id, allowed, string(to), at,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *ContractRepo) ExpireDue(ctx context.Context, now time.Time, profileID int64) ([]int64, error) {
	const op = "postgres.ContractRepo.ExpireDue"

	rows, err := r.handle().Query(ctx,
		`UPDATE contract_proposals
		 SET status = 'expired', updated_at = $1
		 WHERE status IN ('pending', 'negotiating')
		   AND expires_at IS NOT NULL
		   AND expires_at <= $1
		   AND ($2::bigint = 0 OR proposed_by = $2 OR proposed_to = $2)
		 RETURNING id`,
		now, profileID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ids, nil
}

func (r *ContractRepo) AddNegotiation(ctx context.Context, n *domain.ContractNegotiation) error {
	const op = "postgres.ContractRepo.AddNegotiation"

	var changes []byte
	if len(n.ProposedChanges) > 0 {
		changes = n.ProposedChanges
	}

	err := r.handle().QueryRow(ctx,
		`INSERT INTO contract_negotiations(proposal_id, profile_id, message, proposed_changes, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		n.ProposalID, n.ProfileID, n.Message, changes, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ListNegotiations returns the negotiation log in creation order.
func (r *ContractRepo) ListNegotiations(ctx context.Context, proposalID int64) ([]domain.ContractNegotiation, error) {
	const op = "postgres.ContractRepo.ListNegotiations"

	rows, err := r.handle().Query(ctx,
		`SELECT id, proposal_id, profile_id, message, proposed_changes, created_at
		 FROM contract_negotiations
		 WHERE proposal_id = $1
		 ORDER BY created_at, id`,
		proposalID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.ContractNegotiation
	for rows.Next() {
		var (
			n       domain.ContractNegotiation
			changes []byte
		)
		if err := rows.Scan(&n.ID, &n.ProposalID, &n.ProfileID, &n.Message, &changes, &n.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		if len(changes) > 0 {
			n.ProposedChanges = json.RawMessage(changes)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// AddSignature records an acceptance.
//
// Returns:
//   - error: repository.ErrConflict if the profile already signed the proposal.
func (r *ContractRepo) AddSignature(ctx context.Context, s *domain.ContractSignature) error {
	const op = "postgres.ContractRepo.AddSignature"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO contract_signatures(proposal_id, profile_id, ip_address, user_agent, signed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		s.ProposalID, s.ProfileID, s.IPAddress, s.UserAgent, s.SignedAt,
	).Scan(&s.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ContractRepo) ListSignatures(ctx context.Context, proposalID int64) ([]domain.ContractSignature, error) {
	const op = "postgres.ContractRepo.ListSignatures"

	rows, err := r.handle().Query(ctx,
		`SELECT id, proposal_id, profile_id, ip_address, user_agent, signed_at
		 FROM contract_signatures
		 WHERE proposal_id = $1
		 ORDER BY signed_at, id`,
		proposalID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ContractSignature, error) {
		var s domain.ContractSignature
		err := row.Scan(&s.ID, &s.ProposalID, &s.ProfileID, &s.IPAddress, &s.UserAgent, &s.SignedAt)
		return s, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
