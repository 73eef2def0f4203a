package leads

import "time"

// Phase tracks where a lead sits in the qualification funnel.
// Phases only move forward and never skip a step.
type Phase string

const (
	PhaseConfirmInfo    Phase = "CONFIRM_INFO"
	PhaseBookingViewing Phase = "BOOKING_VIEWING"
	PhaseViewingBooked  Phase = "VIEWING_BOOKED"
	PhaseCompleted      Phase = "COMPLETED"
)

// ContractLength is the lead's tenancy length preference.
type ContractLength string

const (
	ContractLengthUnderSixMonths   ContractLength = "LT_SIX_MONTHS"
	ContractLengthSixMonths        ContractLength = "SIX_MONTHS"
	ContractLengthTwelveMonths     ContractLength = "TWELVE_MONTHS"
	ContractLengthOverTwelveMonths ContractLength = "GT_TWELVE_MONTHS"
)

// OccupationType is the coarse occupation bucket used for affordability checks.
type OccupationType string

const (
	OccupationEmployed OccupationType = "employed"
	OccupationStudent  OccupationType = "student"
	OccupationCruising OccupationType = "cruising"
)

// Lead represents a prospective tenant being qualified over the phone.
//
// Confirmation flags are independent of the values themselves: a field can be
// populated from an intake webhook and still be unconfirmed until the agent
// verifies it with the caller.
type Lead struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name,omitempty" db:"name"`
	Email string `json:"email,omitempty" db:"email"`
	Phone string `json:"phone,omitempty" db:"phone"`

	Postcode   string `json:"postcode,omitempty" db:"postcode"`
	Budget     *int   `json:"budget,omitempty" db:"budget"`
	MoveInDate string `json:"move_in_date,omitempty" db:"move_in_date"`

	Occupation     string         `json:"occupation,omitempty" db:"occupation"`
	OccupationType OccupationType `json:"occupation_type,omitempty" db:"occupation_type"`
	YearlyWage     *int           `json:"yearly_wage,omitempty" db:"yearly_wage"`
	ContractLength ContractLength `json:"contract_length,omitempty" db:"contract_length"`

	// Property context used by the prompt builder.
	AddressLine1   string `json:"address_line_1,omitempty" db:"address_line_1"`
	BedroomCount   *int   `json:"bedroom_count,omitempty" db:"bedroom_count"`
	BathroomCount  *int   `json:"bathroom_count,omitempty" db:"bathroom_count"`
	AvailabilityAt string `json:"availability_at,omitempty" db:"availability_at"`
	PropertyCost   *int   `json:"property_cost,omitempty" db:"property_cost"`
	DepositCost    *int   `json:"deposit_cost,omitempty" db:"deposit_cost"`
	BillsIncluded  *bool  `json:"is_bills_included,omitempty" db:"is_bills_included"`

	NameConfirmed           bool `json:"name_confirmed" db:"name_confirmed"`
	BudgetConfirmed         bool `json:"budget_confirmed" db:"budget_confirmed"`
	MoveInDateConfirmed     bool `json:"move_in_date_confirmed" db:"move_in_date_confirmed"`
	OccupationConfirmed     bool `json:"occupation_confirmed" db:"occupation_confirmed"`
	YearlyWageConfirmed     bool `json:"yearly_wage_confirmed" db:"yearly_wage_confirmed"`
	ContractLengthConfirmed bool `json:"contract_length_confirmed" db:"contract_length_confirmed"`

	Phase Phase `json:"phase" db:"phase"`

	// Current viewing, denormalized onto the lead. History lives in
	// property_viewings.
	ViewingDate     string `json:"viewing_date,omitempty" db:"viewing_date"`
	ViewingTime     string `json:"viewing_time,omitempty" db:"viewing_time"`
	ViewingNotes    string `json:"viewing_notes,omitempty" db:"viewing_notes"`
	PropertyAddress string `json:"property_address,omitempty" db:"property_address"`

	// AvailabilitySlots is a JSON-encoded list of proposed time slots.
	AvailabilitySlots       string `json:"availability_slots,omitempty" db:"availability_slots"`
	AvailabilityNotes       string `json:"availability_notes,omitempty" db:"availability_notes"`
	AvailabilityConfirmed   bool   `json:"availability_confirmed" db:"availability_confirmed"`
	LandlordApprovalPending bool   `json:"landlord_approval_pending" db:"landlord_approval_pending"`

	// CallTranscript mirrors the latest transcript for quick access.
	CallTranscript string `json:"call_transcript,omitempty" db:"call_transcript"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PropertyViewing is one scheduled appointment. A lead can accumulate many
// over time; the lead row mirrors only the current one.
type PropertyViewing struct {
	ID     string `json:"id" db:"id"`
	LeadID string `json:"lead_id" db:"lead_id"`

	PropertyAddress string `json:"property_address" db:"property_address"`
	ViewingDate     string `json:"viewing_date" db:"viewing_date"`
	ViewingTime     string `json:"viewing_time" db:"viewing_time"`

	Status ViewingStatus `json:"status" db:"status"`
	Notes  string        `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ViewingStatus string

const (
	ViewingStatusScheduled ViewingStatus = "scheduled"
	ViewingStatusCompleted ViewingStatus = "completed"
	ViewingStatusCancelled ViewingStatus = "cancelled"
)
