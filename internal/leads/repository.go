package leads

import "context"

// Repository abstracts lead and viewing persistence.
type Repository interface {
	CreateLead(ctx context.Context, l Lead) error
	GetLead(ctx context.Context, id string) (Lead, bool, error)
	UpdateLead(ctx context.Context, l Lead) error
	ListLeads(ctx context.Context) ([]Lead, error)

	// LeadsWithPhone returns leads that have a phone number on record,
	// for suffix-based phone correlation.
	LeadsWithPhone(ctx context.Context) ([]Lead, error)

	ViewingsForLead(ctx context.Context, leadID string) ([]PropertyViewing, error)

	// SaveLeadWithViewing persists the lead state and its viewing history
	// row as one unit of work; neither write lands without the other.
	SaveLeadWithViewing(ctx context.Context, l Lead, v PropertyViewing) error
}
