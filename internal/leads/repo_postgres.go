package leads

import (
	"context"
	"database/sql"
	"errors"

	"lead-call-platform/pkg/utils"
)

// PostgresRepo persists leads and viewings in Postgres.
//
// Text fields are NOT NULL DEFAULT '' so an empty string means unset;
// numeric optionals stay nullable and map to pointer fields.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const leadColumns = `
id, name, email, phone, postcode, budget, move_in_date,
occupation, occupation_type, yearly_wage, contract_length,
address_line_1, bedroom_count, bathroom_count, availability_at,
property_cost, deposit_cost, is_bills_included,
name_confirmed, budget_confirmed, move_in_date_confirmed,
occupation_confirmed, yearly_wage_confirmed, contract_length_confirmed,
phase, viewing_date, viewing_time, viewing_notes, property_address,
availability_slots, availability_notes, availability_confirmed,
landlord_approval_pending, call_transcript, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Postcode, &l.Budget, &l.MoveInDate,
		&l.Occupation, &l.OccupationType, &l.YearlyWage, &l.ContractLength,
		&l.AddressLine1, &l.BedroomCount, &l.BathroomCount, &l.AvailabilityAt,
		&l.PropertyCost, &l.DepositCost, &l.BillsIncluded,
		&l.NameConfirmed, &l.BudgetConfirmed, &l.MoveInDateConfirmed,
		&l.OccupationConfirmed, &l.YearlyWageConfirmed, &l.ContractLengthConfirmed,
		&l.Phase, &l.ViewingDate, &l.ViewingTime, &l.ViewingNotes, &l.PropertyAddress,
		&l.AvailabilitySlots, &l.AvailabilityNotes, &l.AvailabilityConfirmed,
		&l.LandlordApprovalPending, &l.CallTranscript, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func (r *PostgresRepo) CreateLead(ctx context.Context, l Lead) error {
	const q = `
INSERT INTO leads (` + leadColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
        $19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36)
`
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.Name, l.Email, l.Phone, l.Postcode, l.Budget, l.MoveInDate,
		l.Occupation, l.OccupationType, l.YearlyWage, l.ContractLength,
		l.AddressLine1, l.BedroomCount, l.BathroomCount, l.AvailabilityAt,
		l.PropertyCost, l.DepositCost, l.BillsIncluded,
		l.NameConfirmed, l.BudgetConfirmed, l.MoveInDateConfirmed,
		l.OccupationConfirmed, l.YearlyWageConfirmed, l.ContractLengthConfirmed,
		l.Phase, l.ViewingDate, l.ViewingTime, l.ViewingNotes, l.PropertyAddress,
		l.AvailabilitySlots, l.AvailabilityNotes, l.AvailabilityConfirmed,
		l.LandlordApprovalPending, l.CallTranscript, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) GetLead(ctx context.Context, id string) (Lead, bool, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	l, err := scanLead(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, false, nil
		}
		return Lead{}, false, err
	}
	return l, true, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx so the write statements
// can run standalone or inside SaveLeadWithViewing's transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *PostgresRepo) UpdateLead(ctx context.Context, l Lead) error {
	return updateLead(ctx, r.db, l)
}

func updateLead(ctx context.Context, ex execer, l Lead) error {
	const q = `
UPDATE leads SET
  name=$2, email=$3, phone=$4, postcode=$5, budget=$6, move_in_date=$7,
  occupation=$8, occupation_type=$9, yearly_wage=$10, contract_length=$11,
  address_line_1=$12, bedroom_count=$13, bathroom_count=$14, availability_at=$15,
  property_cost=$16, deposit_cost=$17, is_bills_included=$18,
  name_confirmed=$19, budget_confirmed=$20, move_in_date_confirmed=$21,
  occupation_confirmed=$22, yearly_wage_confirmed=$23, contract_length_confirmed=$24,
  phase=$25, viewing_date=$26, viewing_time=$27, viewing_notes=$28, property_address=$29,
  availability_slots=$30, availability_notes=$31, availability_confirmed=$32,
  landlord_approval_pending=$33, call_transcript=$34, updated_at=$35
WHERE id=$1
`
	_, err := ex.ExecContext(ctx, q,
		l.ID, l.Name, l.Email, l.Phone, l.Postcode, l.Budget, l.MoveInDate,
		l.Occupation, l.OccupationType, l.YearlyWage, l.ContractLength,
		l.AddressLine1, l.BedroomCount, l.BathroomCount, l.AvailabilityAt,
		l.PropertyCost, l.DepositCost, l.BillsIncluded,
		l.NameConfirmed, l.BudgetConfirmed, l.MoveInDateConfirmed,
		l.OccupationConfirmed, l.YearlyWageConfirmed, l.ContractLengthConfirmed,
		l.Phase, l.ViewingDate, l.ViewingTime, l.ViewingNotes, l.PropertyAddress,
		l.AvailabilitySlots, l.AvailabilityNotes, l.AvailabilityConfirmed,
		l.LandlordApprovalPending, l.CallTranscript, l.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) ListLeads(ctx context.Context) ([]Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC`
	return r.queryLeads(ctx, q)
}

func (r *PostgresRepo) LeadsWithPhone(ctx context.Context) ([]Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE phone <> '' ORDER BY created_at DESC`
	return r.queryLeads(ctx, q)
}

func (r *PostgresRepo) queryLeads(ctx context.Context, q string, args ...any) ([]Lead, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func insertViewing(ctx context.Context, ex execer, v PropertyViewing) error {
	const q = `
INSERT INTO property_viewings (
  id, lead_id, property_address, viewing_date, viewing_time, status, notes, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := ex.ExecContext(ctx, q,
		v.ID, v.LeadID, v.PropertyAddress, v.ViewingDate, v.ViewingTime,
		v.Status, v.Notes, v.CreatedAt, v.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) SaveLeadWithViewing(ctx context.Context, l Lead, v PropertyViewing) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := updateLead(ctx, tx, l); err != nil {
			return err
		}
		return insertViewing(ctx, tx, v)
	})
}

func (r *PostgresRepo) ViewingsForLead(ctx context.Context, leadID string) ([]PropertyViewing, error) {
	const q = `
SELECT id, lead_id, property_address, viewing_date, viewing_time, status, notes, created_at, updated_at
FROM property_viewings
WHERE lead_id = $1
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PropertyViewing
	for rows.Next() {
		var v PropertyViewing
		if err := rows.Scan(
			&v.ID, &v.LeadID, &v.PropertyAddress, &v.ViewingDate, &v.ViewingTime,
			&v.Status, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
