package leads

import (
	"context"
	"errors"
	"time"

	"lead-call-platform/pkg/logger"
	"lead-call-platform/pkg/phone"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("lead not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Service owns lead lifecycle and phase progression.
type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// CreateRequest carries intake data for a new lead. Everything except the
// phase is optional; intake webhooks send whatever they have.
type CreateRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	Postcode   string `json:"postcode,omitempty"`
	Budget     *int   `json:"budget,omitempty"`
	MoveInDate string `json:"move_in_date,omitempty"`

	Occupation     string         `json:"occupation,omitempty"`
	OccupationType OccupationType `json:"occupation_type,omitempty"`
	YearlyWage     *int           `json:"yearly_wage,omitempty"`
	ContractLength ContractLength `json:"contract_length,omitempty"`

	PropertyAddress string `json:"property_address,omitempty"`
	AddressLine1    string `json:"address_line_1,omitempty"`
	BedroomCount    *int   `json:"bedroom_count,omitempty"`
	BathroomCount   *int   `json:"bathroom_count,omitempty"`
	AvailabilityAt  string `json:"availability_at,omitempty"`
	PropertyCost    *int   `json:"property_cost,omitempty"`
	DepositCost     *int   `json:"deposit_cost,omitempty"`
	BillsIncluded   *bool  `json:"is_bills_included,omitempty"`
}

// Create stores a new lead in CONFIRM_INFO. The phone number is normalized
// to E.164 where possible so later suffix matching starts from clean input.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Lead, error) {
	now := s.clock().UTC()
	l := Lead{
		ID:    uuid.NewString(),
		Name:  req.Name,
		Email: req.Email,
		Phone: phone.NormalizeE164(req.Phone),

		Postcode:   req.Postcode,
		Budget:     req.Budget,
		MoveInDate: req.MoveInDate,

		Occupation:     req.Occupation,
		OccupationType: req.OccupationType,
		YearlyWage:     req.YearlyWage,
		ContractLength: req.ContractLength,

		PropertyAddress: req.PropertyAddress,
		AddressLine1:    req.AddressLine1,
		BedroomCount:    req.BedroomCount,
		BathroomCount:   req.BathroomCount,
		AvailabilityAt:  req.AvailabilityAt,
		PropertyCost:    req.PropertyCost,
		DepositCost:     req.DepositCost,
		BillsIncluded:   req.BillsIncluded,

		Phase:     PhaseConfirmInfo,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateLead(ctx, l); err != nil {
		return Lead{}, err
	}
	logger.From(ctx).Info("lead created", "lead_id", l.ID, "phase", l.Phase)
	return l, nil
}

func (s *Service) Get(ctx context.Context, id string) (Lead, error) {
	if id == "" {
		return Lead{}, ErrInvalidArgument
	}
	l, ok, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if !ok {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (s *Service) List(ctx context.Context) ([]Lead, error) {
	return s.repo.ListLeads(ctx)
}

// FindByPhone matches a caller number against stored leads on the last ten
// digits, tolerating country-code and formatting differences.
func (s *Service) FindByPhone(ctx context.Context, callerPhone string) (Lead, bool, error) {
	if callerPhone == "" {
		return Lead{}, false, nil
	}
	candidates, err := s.repo.LeadsWithPhone(ctx)
	if err != nil {
		return Lead{}, false, err
	}
	for _, l := range candidates {
		if phone.SameLine(l.Phone, callerPhone) {
			return l, true, nil
		}
	}
	return Lead{}, false, nil
}

// Advance re-evaluates the lead and moves it one phase forward if the
// progression rule holds. Repeated calls with no new data are no-ops.
func (s *Service) Advance(ctx context.Context, leadID string) (Lead, bool, error) {
	l, err := s.Get(ctx, leadID)
	if err != nil {
		return Lead{}, false, err
	}

	info := Evaluate(l)
	if !info.CanProgress || info.NextPhase == "" {
		return l, false, nil
	}

	from := l.Phase
	l.Phase = info.NextPhase
	l.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpdateLead(ctx, l); err != nil {
		return Lead{}, false, err
	}
	logger.From(ctx).Info("lead phase advanced", "lead_id", l.ID, "from", from, "to", l.Phase)
	return l, true, nil
}

// ApplyAgentUpdate applies an end-of-call batch update, persists it, and runs
// a single phase advance. When the update lands a complete viewing slot, a
// PropertyViewing history row is recorded alongside the lead mirror.
func (s *Service) ApplyAgentUpdate(ctx context.Context, leadID string, u AgentUpdate) (Lead, PhaseInfo, error) {
	l, err := s.Get(ctx, leadID)
	if err != nil {
		return Lead{}, PhaseInfo{}, err
	}

	hadViewing := l.ViewingDate != "" && l.ViewingTime != ""
	applyAgentUpdate(&l, u)

	now := s.clock().UTC()
	l.UpdatedAt = now

	touchedViewing := u.ViewingDate != "" || u.ViewingTime != ""
	if touchedViewing && !hadViewing && l.ViewingDate != "" && l.ViewingTime != "" {
		v := PropertyViewing{
			ID:              uuid.NewString(),
			LeadID:          l.ID,
			PropertyAddress: l.PropertyAddress,
			ViewingDate:     l.ViewingDate,
			ViewingTime:     l.ViewingTime,
			Status:          ViewingStatusScheduled,
			Notes:           l.ViewingNotes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.SaveLeadWithViewing(ctx, l, v); err != nil {
			return Lead{}, PhaseInfo{}, err
		}
		logger.From(ctx).Info("viewing recorded", "lead_id", l.ID, "viewing_id", v.ID)
	} else if err := s.repo.UpdateLead(ctx, l); err != nil {
		return Lead{}, PhaseInfo{}, err
	}

	if l, _, err = s.advanceLoaded(ctx, l); err != nil {
		return Lead{}, PhaseInfo{}, err
	}
	return l, Evaluate(l), nil
}

func (s *Service) advanceLoaded(ctx context.Context, l Lead) (Lead, bool, error) {
	info := Evaluate(l)
	if !info.CanProgress || info.NextPhase == "" {
		return l, false, nil
	}
	from := l.Phase
	l.Phase = info.NextPhase
	l.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpdateLead(ctx, l); err != nil {
		return Lead{}, false, err
	}
	logger.From(ctx).Info("lead phase advanced", "lead_id", l.ID, "from", from, "to", l.Phase)
	return l, true, nil
}

// BookViewing sets the current viewing on the lead, records a history row,
// and runs the phase advance.
func (s *Service) BookViewing(ctx context.Context, leadID, date, timeOfDay, notes string) (Lead, error) {
	if date == "" || timeOfDay == "" {
		return Lead{}, ErrInvalidArgument
	}
	l, _, err := s.applyViewing(ctx, leadID, date, timeOfDay, notes)
	return l, err
}

func (s *Service) applyViewing(ctx context.Context, leadID, date, timeOfDay, notes string) (Lead, bool, error) {
	l, err := s.Get(ctx, leadID)
	if err != nil {
		return Lead{}, false, err
	}

	now := s.clock().UTC()
	l.ViewingDate = date
	l.ViewingTime = timeOfDay
	if notes != "" {
		l.ViewingNotes = notes
	}
	l.UpdatedAt = now

	v := PropertyViewing{
		ID:              uuid.NewString(),
		LeadID:          l.ID,
		PropertyAddress: l.PropertyAddress,
		ViewingDate:     date,
		ViewingTime:     timeOfDay,
		Status:          ViewingStatusScheduled,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.SaveLeadWithViewing(ctx, l, v); err != nil {
		return Lead{}, false, err
	}

	return s.advanceLoaded(ctx, l)
}

// StoreTranscript mirrors the latest call transcript onto the lead.
func (s *Service) StoreTranscript(ctx context.Context, leadID, transcript string) (Lead, error) {
	if transcript == "" {
		return Lead{}, ErrInvalidArgument
	}
	l, err := s.Get(ctx, leadID)
	if err != nil {
		return Lead{}, err
	}
	l.CallTranscript = transcript
	l.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpdateLead(ctx, l); err != nil {
		return Lead{}, err
	}
	return l, nil
}

func (s *Service) Viewings(ctx context.Context, leadID string) ([]PropertyViewing, error) {
	if leadID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ViewingsForLead(ctx, leadID)
}
