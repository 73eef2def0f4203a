package leads

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
type MemoryRepo struct {
	mu       sync.Mutex
	leads    map[string]Lead
	viewings []PropertyViewing
	order    []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{leads: map[string]Lead{}}
}

func (r *MemoryRepo) CreateLead(ctx context.Context, l Lead) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = l
	r.order = append(r.order, l.ID)
	return nil
}

func (r *MemoryRepo) GetLead(ctx context.Context, id string) (Lead, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	return l, ok, nil
}

func (r *MemoryRepo) UpdateLead(ctx context.Context, l Lead) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = l
	return nil
}

func (r *MemoryRepo) ListLeads(ctx context.Context) ([]Lead, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Lead, 0, len(r.leads))
	// Newest first, matching the Postgres ordering.
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.leads[r.order[i]])
	}
	return out, nil
}

func (r *MemoryRepo) LeadsWithPhone(ctx context.Context) ([]Lead, error) {
	all, err := r.ListLeads(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, l := range all {
		if l.Phone != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *MemoryRepo) SaveLeadWithViewing(ctx context.Context, l Lead, v PropertyViewing) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = l
	r.viewings = append(r.viewings, v)
	return nil
}

func (r *MemoryRepo) ViewingsForLead(ctx context.Context, leadID string) ([]PropertyViewing, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []PropertyViewing
	for _, v := range r.viewings {
		if v.LeadID == leadID {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
