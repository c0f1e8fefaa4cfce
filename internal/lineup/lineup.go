// Package lineup keeps a contract's performer list in a dense 1..N order with
// the Headliner pinned to the last slot.
package lineup

import (
	"sort"

	"github.com/google/uuid"
	"github.com/kirinyoku/gigbook/internal/domain"
)

const field = "terms.performers"

var (
	ErrNoHeadliner        = domain.ValidationError{Field: field, Reason: "lineup needs exactly one Headliner"}
	ErrDuplicateHeadliner = domain.ValidationError{Field: field, Reason: "lineup already has a Headliner"}
	ErrDuplicateID        = domain.ValidationError{Field: field, Reason: "performer ids must be unique"}
	ErrHeadlinerPinned    = domain.ValidationError{Field: field, Reason: "the Headliner cannot be removed while support acts remain"}
	ErrPerformerNotFound  = domain.ValidationError{Field: field, Reason: "performer not found"}
)

// Validate checks that a non-empty lineup has exactly one Headliner and no
// repeated ids.
func Validate(l []domain.PerformerRole) error {
	if len(l) == 0 {
		return nil
	}

	headliners := 0
	seen := make(map[string]struct{}, len(l))
	for _, p := range l {
		if p.IsHeadliner() {
			headliners++
		}
		if p.ID == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			return ErrDuplicateID
		}
		seen[p.ID] = struct{}{}
	}

	switch {
	case headliners == 0:
		return ErrNoHeadliner
	case headliners > 1:
		return ErrDuplicateHeadliner
	}

	return nil
}

// Normalize returns a copy of l sorted by order, with support acts numbered
// 1..k and the Headliner at k+1. Performers without an id get one.
func Normalize(l []domain.PerformerRole) ([]domain.PerformerRole, error) {
	if err := Validate(l); err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return []domain.PerformerRole{}, nil
	}

	var (
		headliner domain.PerformerRole
		support   = make([]domain.PerformerRole, 0, len(l)-1)
	)
	for _, p := range l {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.IsHeadliner() {
			p.Role = domain.RoleHeadliner
			headliner = p
			continue
		}
		p.Role = domain.RoleSupport
		support = append(support, p)
	}

	sort.SliceStable(support, func(i, j int) bool {
		return support[i].PerformanceOrder < support[j].PerformanceOrder
	})

	out := make([]domain.PerformerRole, 0, len(l))
	for i, p := range support {
		p.PerformanceOrder = i + 1
		out = append(out, p)
	}
	headliner.PerformanceOrder = len(support) + 1

	return append(out, headliner), nil
}

// Add appends p as the last support act, or installs it as the Headliner if
// it is one and the lineup has none.
func Add(l []domain.PerformerRole, p domain.PerformerRole) ([]domain.PerformerRole, error) {
	if p.Role == "" && !p.IsHeadliner() {
		p.Role = domain.RoleSupport
	}

	if p.IsHeadliner() {
		for _, q := range l {
			if q.IsHeadliner() {
				return nil, ErrDuplicateHeadliner
			}
		}
	}
	// Past every support act; Normalize moves the Headliner behind it.
	p.PerformanceOrder = len(l) + 1

	return Normalize(append(clone(l), p))
}

// Remove drops the performer with id and compacts the remaining order. The
// Headliner can only be removed when it is the last performer left.
func Remove(l []domain.PerformerRole, id string) ([]domain.PerformerRole, error) {
	idx := indexOf(l, id)
	if idx < 0 {
		return nil, ErrPerformerNotFound
	}
	if l[idx].IsHeadliner() && len(l) > 1 {
		return nil, ErrHeadlinerPinned
	}

	rest := make([]domain.PerformerRole, 0, len(l)-1)
	rest = append(rest, l[:idx]...)
	rest = append(rest, l[idx+1:]...)

	return Normalize(rest)
}

// Reorder moves a support act to newOrder, clamped to the support range.
// Acts strictly between the old and new slots shift by one toward the gap
// and the Headliner stays last. Asking to move the Headliner changes nothing.
func Reorder(l []domain.PerformerRole, id string, newOrder int) ([]domain.PerformerRole, error) {
	norm, err := Normalize(l)
	if err != nil {
		return nil, err
	}

	idx := indexOf(norm, id)
	if idx < 0 {
		return nil, ErrPerformerNotFound
	}
	if norm[idx].IsHeadliner() {
		return norm, nil
	}

	supportCount := len(norm) - 1
	target := min(max(newOrder, 1), supportCount)
	from := norm[idx].PerformanceOrder

	for i := range norm {
		p := &norm[i]
		if p.IsHeadliner() || i == idx {
			continue
		}
		switch {
		case target < from && p.PerformanceOrder >= target && p.PerformanceOrder < from:
			p.PerformanceOrder++
		case target > from && p.PerformanceOrder > from && p.PerformanceOrder <= target:
			p.PerformanceOrder--
		}
	}
	norm[idx].PerformanceOrder = target

	return Normalize(norm)
}

func indexOf(l []domain.PerformerRole, id string) int {
	for i, p := range l {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func clone(l []domain.PerformerRole) []domain.PerformerRole {
	out := make([]domain.PerformerRole, len(l))
	copy(out, l)
	return out
}
