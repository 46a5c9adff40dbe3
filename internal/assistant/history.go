package assistant

import (
	"context"
	"sort"
)

const defaultPageSize = 50

// HistoryProjector reconstructs client-displayable turn lists from the store.
type HistoryProjector struct {
	store Store
}

// NewHistoryProjector creates a history projector.
func NewHistoryProjector(store Store) *HistoryProjector {
	if store == nil {
		panic("assistant: store cannot be nil")
	}
	return &HistoryProjector{store: store}
}

// Project returns one page of a patient's history, sorted ascending by
// timestamp. Page 1 is the most recent slice; higher pages walk older slices
// so a client can "load older" and merge without duplicates (turns are
// deduplicated by ID before paging).
func (p *HistoryProjector) Project(ctx context.Context, patientID string, page, pageSize int) ([]Turn, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	all, err := p.store.GetAll(ctx, patientID, 0)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(all))
	turns := make([]Turn, 0, len(all))
	for _, t := range all {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		turns = append(turns, t)
	}

	// Storage order already tends chronological, but arrival order is not
	// guaranteed; sort on read. Stable keeps same-timestamp turns in append order.
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Timestamp.Before(turns[j].Timestamp)
	})

	end := len(turns) - (page-1)*pageSize
	if end <= 0 {
		return []Turn{}, nil
	}
	start := end - pageSize
	if start < 0 {
		start = 0
	}
	return turns[start:end], nil
}
