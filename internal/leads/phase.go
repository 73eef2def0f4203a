package leads

// PhaseInfo is the result of evaluating a lead against the progression rules
// for its current phase.
type PhaseInfo struct {
	CurrentPhase      Phase    `json:"current_phase"`
	CanProgress       bool     `json:"can_progress"`
	MissingFields     []string `json:"missing_fields"`
	UnconfirmedFields []string `json:"unconfirmed_fields"`
	NextPhase         Phase    `json:"next_phase,omitempty"`
}

// requiredField pairs a field name with accessors for its value presence and
// confirmation flag. contract_length is tracked but never required.
type requiredField struct {
	name      string
	set       func(Lead) bool
	confirmed func(Lead) bool
}

var requiredFields = []requiredField{
	{"name", func(l Lead) bool { return l.Name != "" }, func(l Lead) bool { return l.NameConfirmed }},
	{"budget", func(l Lead) bool { return l.Budget != nil }, func(l Lead) bool { return l.BudgetConfirmed }},
	{"move_in_date", func(l Lead) bool { return l.MoveInDate != "" }, func(l Lead) bool { return l.MoveInDateConfirmed }},
	{"occupation", func(l Lead) bool { return l.Occupation != "" }, func(l Lead) bool { return l.OccupationConfirmed }},
	{"yearly_wage", func(l Lead) bool { return l.YearlyWage != nil }, func(l Lead) bool { return l.YearlyWageConfirmed }},
}

// Evaluate decides whether a lead may progress out of its current phase.
//
// CONFIRM_INFO requires every required field to be both set and confirmed.
// BOOKING_VIEWING requires a viewing date and time. There is no automatic
// transition out of VIEWING_BOOKED; closing out a lead is an external step.
func Evaluate(l Lead) PhaseInfo {
	info := PhaseInfo{
		CurrentPhase:      l.Phase,
		MissingFields:     []string{},
		UnconfirmedFields: []string{},
	}

	for _, f := range requiredFields {
		switch {
		case !f.set(l):
			info.MissingFields = append(info.MissingFields, f.name)
		case !f.confirmed(l):
			info.UnconfirmedFields = append(info.UnconfirmedFields, f.name)
		}
	}

	switch l.Phase {
	case PhaseConfirmInfo:
		if len(info.MissingFields) == 0 && len(info.UnconfirmedFields) == 0 {
			info.CanProgress = true
			info.NextPhase = PhaseBookingViewing
		}
	case PhaseBookingViewing:
		if l.ViewingDate != "" && l.ViewingTime != "" {
			info.CanProgress = true
			info.NextPhase = PhaseViewingBooked
		}
	}

	return info
}

// AgentUpdate is the end-of-call batch update. Confirm flags assert existing
// values; new values overwrite and count as confirmed in the same step.
// Viewing fields carry no confirmation semantics and apply as given.
type AgentUpdate struct {
	ConfirmName           bool `json:"confirm_name,omitempty"`
	ConfirmBudget         bool `json:"confirm_budget,omitempty"`
	ConfirmMoveInDate     bool `json:"confirm_move_in_date,omitempty"`
	ConfirmOccupation     bool `json:"confirm_occupation,omitempty"`
	ConfirmYearlyWage     bool `json:"confirm_yearly_wage,omitempty"`
	ConfirmContractLength bool `json:"confirm_contract_length,omitempty"`

	Name           string         `json:"name,omitempty"`
	Budget         *int           `json:"budget,omitempty"`
	MoveInDate     string         `json:"move_in_date,omitempty"`
	Occupation     string         `json:"occupation,omitempty"`
	YearlyWage     *int           `json:"yearly_wage,omitempty"`
	ContractLength ContractLength `json:"contract_length,omitempty"`

	ViewingDate  string `json:"viewing_date,omitempty"`
	ViewingTime  string `json:"viewing_time,omitempty"`
	ViewingNotes string `json:"viewing_notes,omitempty"`

	// Availability captured during the call. Slots arrive as a JSON array.
	// The booleans only ever flip to true within a single update.
	AvailabilitySlots       string `json:"availability_slots,omitempty"`
	AvailabilityNotes       string `json:"availability_notes,omitempty"`
	AvailabilityConfirmed   bool   `json:"availability_confirmed,omitempty"`
	LandlordApprovalPending bool   `json:"landlord_approval_pending,omitempty"`
}

// applyAgentUpdate mutates the lead per the batch contract, in order:
// confirmations of present values, then new values (self-confirming), then
// viewing fields. The caller persists and runs the phase advance.
func applyAgentUpdate(l *Lead, u AgentUpdate) {
	if u.ConfirmName && l.Name != "" {
		l.NameConfirmed = true
	}
	if u.ConfirmBudget && l.Budget != nil {
		l.BudgetConfirmed = true
	}
	if u.ConfirmMoveInDate && l.MoveInDate != "" {
		l.MoveInDateConfirmed = true
	}
	if u.ConfirmOccupation && l.Occupation != "" {
		l.OccupationConfirmed = true
	}
	if u.ConfirmYearlyWage && l.YearlyWage != nil {
		l.YearlyWageConfirmed = true
	}
	if u.ConfirmContractLength && l.ContractLength != "" {
		l.ContractLengthConfirmed = true
	}

	if u.Name != "" {
		l.Name = u.Name
		l.NameConfirmed = true
	}
	if u.Budget != nil {
		l.Budget = u.Budget
		l.BudgetConfirmed = true
	}
	if u.MoveInDate != "" {
		l.MoveInDate = u.MoveInDate
		l.MoveInDateConfirmed = true
	}
	if u.Occupation != "" {
		l.Occupation = u.Occupation
		l.OccupationConfirmed = true
	}
	if u.YearlyWage != nil {
		l.YearlyWage = u.YearlyWage
		l.YearlyWageConfirmed = true
	}
	if u.ContractLength != "" {
		l.ContractLength = u.ContractLength
		l.ContractLengthConfirmed = true
	}

	if u.ViewingDate != "" {
		l.ViewingDate = u.ViewingDate
	}
	if u.ViewingTime != "" {
		l.ViewingTime = u.ViewingTime
	}
	if u.ViewingNotes != "" {
		l.ViewingNotes = u.ViewingNotes
	}

	if u.AvailabilitySlots != "" {
		l.AvailabilitySlots = u.AvailabilitySlots
	}
	if u.AvailabilityNotes != "" {
		l.AvailabilityNotes = u.AvailabilityNotes
	}
	if u.AvailabilityConfirmed {
		l.AvailabilityConfirmed = true
	}
	if u.LandlordApprovalPending {
		l.LandlordApprovalPending = true
	}
}
