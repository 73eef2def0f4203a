package calls

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
// Insertion order stands in for created_at ordering so same-instant tests stay
// deterministic.
type MemoryRepo struct {
	mu    sync.Mutex
	calls []Call
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) CreateCall(ctx context.Context, c Call) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return nil
}

func (r *MemoryRepo) GetCall(ctx context.Context, id string) (Call, bool, error) {
	return r.find(func(c Call) bool { return c.ID == id })
}

func (r *MemoryRepo) GetByConversationID(ctx context.Context, conversationID string) (Call, bool, error) {
	if conversationID == "" {
		return Call{}, false, nil
	}
	return r.find(func(c Call) bool { return c.ConversationID == conversationID })
}

func (r *MemoryRepo) GetByProviderCallID(ctx context.Context, providerCallID string) (Call, bool, error) {
	if providerCallID == "" {
		return Call{}, false, nil
	}
	return r.find(func(c Call) bool { return c.ProviderCallID == providerCallID })
}

func (r *MemoryRepo) LatestWithoutTranscriptForLead(ctx context.Context, leadID string) (Call, bool, error) {
	return r.findNewest(func(c Call) bool { return c.LeadID == leadID && !c.HasTranscript() })
}

func (r *MemoryRepo) LatestInProgressWithoutTranscript(ctx context.Context) (Call, bool, error) {
	return r.findNewest(func(c Call) bool { return c.Status == StatusInProgress && !c.HasTranscript() })
}

func (r *MemoryRepo) UpdateCall(ctx context.Context, c Call) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.calls {
		if r.calls[i].ID == c.ID {
			r.calls[i] = c
			return nil
		}
	}
	return nil
}

func (r *MemoryRepo) ListCallsForLead(ctx context.Context, leadID string) ([]Call, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Call
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].LeadID == leadID {
			out = append(out, r.calls[i])
		}
	}
	return out, nil
}

func (r *MemoryRepo) UnanalyzedCalls(ctx context.Context) ([]Call, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Call
	for _, c := range r.calls {
		if c.HasTranscript() && !c.Analyzed {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepo) find(match func(Call) bool) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if match(c) {
			return c, true, nil
		}
	}
	return Call{}, false, nil
}

func (r *MemoryRepo) findNewest(match func(Call) bool) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if match(r.calls[i]) {
			return r.calls[i], true, nil
		}
	}
	return Call{}, false, nil
}
