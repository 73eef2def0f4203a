package calls

import (
	"context"
	"errors"
	"time"

	"lead-call-platform/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("call not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Service drives call records through their lifecycle.
type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// CreateParams carries optional identifiers known at creation time. Outbound
// bridged calls typically start with only a provider call SID; agent-initiated
// calls start with a conversation id.
type CreateParams struct {
	LeadID         string
	ConversationID string
	ProviderCallID string
	SystemPrompt   string
	Status         Status
}

func (s *Service) Create(ctx context.Context, p CreateParams) (Call, error) {
	if p.LeadID == "" {
		return Call{}, ErrInvalidArgument
	}
	status := p.Status
	if status == "" {
		status = StatusInitiated
	}

	now := s.clock().UTC()
	c := Call{
		ID:             uuid.NewString(),
		LeadID:         p.LeadID,
		ConversationID: p.ConversationID,
		ProviderCallID: p.ProviderCallID,
		Status:         status,
		SystemPrompt:   p.SystemPrompt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateCall(ctx, c); err != nil {
		return Call{}, err
	}
	logger.From(ctx).Info("call created",
		"call_id", c.ID, "lead_id", c.LeadID, "status", c.Status,
		"conversation_id", c.ConversationID, "provider_call_id", c.ProviderCallID)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (Call, error) {
	if id == "" {
		return Call{}, ErrInvalidArgument
	}
	c, ok, err := s.repo.GetCall(ctx, id)
	if err != nil {
		return Call{}, err
	}
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (s *Service) GetByConversationID(ctx context.Context, conversationID string) (Call, bool, error) {
	if conversationID == "" {
		return Call{}, false, nil
	}
	return s.repo.GetByConversationID(ctx, conversationID)
}

func (s *Service) GetByProviderCallID(ctx context.Context, providerCallID string) (Call, bool, error) {
	if providerCallID == "" {
		return Call{}, false, nil
	}
	return s.repo.GetByProviderCallID(ctx, providerCallID)
}

func (s *Service) ListForLead(ctx context.Context, leadID string) ([]Call, error) {
	if leadID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListCallsForLead(ctx, leadID)
}

// Patch is a partial update; only non-nil fields are applied.
type Patch struct {
	ConversationID  *string
	ProviderCallID  *string
	Status          *Status
	Transcript      *string
	SystemPrompt    *string
	Analyzed        *bool
	DurationSeconds *int
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (Call, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Call{}, err
	}

	if p.ConversationID != nil {
		c.ConversationID = *p.ConversationID
	}
	if p.ProviderCallID != nil {
		c.ProviderCallID = *p.ProviderCallID
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Transcript != nil {
		c.Transcript = *p.Transcript
	}
	if p.SystemPrompt != nil {
		c.SystemPrompt = *p.SystemPrompt
	}
	if p.Analyzed != nil {
		c.Analyzed = *p.Analyzed
	}
	if p.DurationSeconds != nil {
		c.DurationSeconds = p.DurationSeconds
	}

	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpdateCall(ctx, c); err != nil {
		return Call{}, err
	}
	return c, nil
}

// AttachTranscript finds the call by conversation id, stores the transcript,
// and marks it completed. A false return means no call carries that id and
// the caller should fall back to the correlation cascade.
func (s *Service) AttachTranscript(ctx context.Context, conversationID, transcript string) (Call, bool, error) {
	if conversationID == "" || transcript == "" {
		return Call{}, false, nil
	}
	c, ok, err := s.repo.GetByConversationID(ctx, conversationID)
	if err != nil || !ok {
		return Call{}, false, err
	}

	c.Transcript = transcript
	c.Status = StatusCompleted
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpdateCall(ctx, c); err != nil {
		return Call{}, false, err
	}
	logger.From(ctx).Info("transcript attached", "call_id", c.ID, "conversation_id", conversationID, "chars", len(transcript))
	return c, true, nil
}

// PromoteProviderCallID upgrades a call known only by its telephony SID to
// the authoritative conversation id. The SID stays on the record as a
// secondary correlator.
func (s *Service) PromoteProviderCallID(ctx context.Context, providerCallID, conversationID string) (Call, bool, error) {
	if providerCallID == "" || conversationID == "" {
		return Call{}, false, nil
	}
	c, ok, err := s.repo.GetByProviderCallID(ctx, providerCallID)
	if err != nil || !ok {
		return Call{}, false, err
	}

	c.ConversationID = conversationID
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpdateCall(ctx, c); err != nil {
		return Call{}, false, err
	}
	logger.From(ctx).Info("provider call id promoted",
		"call_id", c.ID, "provider_call_id", providerCallID, "conversation_id", conversationID)
	return c, true, nil
}

// MarkFailed moves the call to its failed terminal state.
func (s *Service) MarkFailed(ctx context.Context, id string) (Call, error) {
	failed := StatusFailed
	return s.Update(ctx, id, Patch{Status: &failed})
}

func (s *Service) MarkAnalyzed(ctx context.Context, id string) (Call, error) {
	analyzed := true
	return s.Update(ctx, id, Patch{Analyzed: &analyzed})
}

func (s *Service) LatestWithoutTranscript(ctx context.Context, leadID string) (Call, bool, error) {
	if leadID == "" {
		return Call{}, false, nil
	}
	return s.repo.LatestWithoutTranscriptForLead(ctx, leadID)
}

func (s *Service) LatestInProgressWithoutTranscript(ctx context.Context) (Call, bool, error) {
	return s.repo.LatestInProgressWithoutTranscript(ctx)
}

// Unanalyzed lists completed-transcript calls awaiting analysis.
func (s *Service) Unanalyzed(ctx context.Context) ([]Call, error) {
	return s.repo.UnanalyzedCalls(ctx)
}
