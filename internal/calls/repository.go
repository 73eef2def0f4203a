package calls

import "context"

// Repository abstracts call persistence.
type Repository interface {
	CreateCall(ctx context.Context, c Call) error
	GetCall(ctx context.Context, id string) (Call, bool, error)
	UpdateCall(ctx context.Context, c Call) error
	ListCallsForLead(ctx context.Context, leadID string) ([]Call, error)

	GetByConversationID(ctx context.Context, conversationID string) (Call, bool, error)
	GetByProviderCallID(ctx context.Context, providerCallID string) (Call, bool, error)

	// LatestWithoutTranscriptForLead returns the lead's newest call that has
	// no transcript yet, used for phone-based transcript correlation.
	LatestWithoutTranscriptForLead(ctx context.Context, leadID string) (Call, bool, error)

	// LatestInProgressWithoutTranscript scans globally, newest first. This
	// backs the recency fallback and can misattribute under concurrent
	// calls; callers treat it as a last resort.
	LatestInProgressWithoutTranscript(ctx context.Context) (Call, bool, error)

	UnanalyzedCalls(ctx context.Context) ([]Call, error)
}
