package calls

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists calls in Postgres.
//
// conversation_id and provider_call_id are stored as NULL when empty so the
// partial unique indexes only bite on real identifiers.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const callColumns = `
id, lead_id, COALESCE(conversation_id, ''), COALESCE(provider_call_id, ''),
status, transcript, system_prompt, analyzed, duration_seconds, created_at, updated_at`

func scanCall(row interface{ Scan(...any) error }) (Call, error) {
	var c Call
	err := row.Scan(
		&c.ID, &c.LeadID, &c.ConversationID, &c.ProviderCallID,
		&c.Status, &c.Transcript, &c.SystemPrompt, &c.Analyzed,
		&c.DurationSeconds, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *PostgresRepo) CreateCall(ctx context.Context, c Call) error {
	const q = `
INSERT INTO calls (
  id, lead_id, conversation_id, provider_call_id, status, transcript,
  system_prompt, analyzed, duration_seconds, created_at, updated_at
) VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11)
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.LeadID, c.ConversationID, c.ProviderCallID, c.Status, c.Transcript,
		c.SystemPrompt, c.Analyzed, c.DurationSeconds, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) GetCall(ctx context.Context, id string) (Call, bool, error) {
	q := `SELECT ` + callColumns + ` FROM calls WHERE id = $1`
	return r.getOne(ctx, q, id)
}

func (r *PostgresRepo) GetByConversationID(ctx context.Context, conversationID string) (Call, bool, error) {
	q := `SELECT ` + callColumns + ` FROM calls WHERE conversation_id = $1`
	return r.getOne(ctx, q, conversationID)
}

func (r *PostgresRepo) GetByProviderCallID(ctx context.Context, providerCallID string) (Call, bool, error) {
	q := `SELECT ` + callColumns + ` FROM calls WHERE provider_call_id = $1`
	return r.getOne(ctx, q, providerCallID)
}

func (r *PostgresRepo) LatestWithoutTranscriptForLead(ctx context.Context, leadID string) (Call, bool, error) {
	q := `SELECT ` + callColumns + `
FROM calls
WHERE lead_id = $1 AND transcript = ''
ORDER BY created_at DESC
LIMIT 1`
	return r.getOne(ctx, q, leadID)
}

func (r *PostgresRepo) LatestInProgressWithoutTranscript(ctx context.Context) (Call, bool, error) {
	q := `SELECT ` + callColumns + `
FROM calls
WHERE transcript = '' AND status = $1
ORDER BY created_at DESC
LIMIT 1`
	return r.getOne(ctx, q, StatusInProgress)
}

func (r *PostgresRepo) getOne(ctx context.Context, q string, args ...any) (Call, bool, error) {
	c, err := scanCall(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, false, nil
		}
		return Call{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) UpdateCall(ctx context.Context, c Call) error {
	const q = `
UPDATE calls SET
  lead_id=$2, conversation_id=NULLIF($3,''), provider_call_id=NULLIF($4,''),
  status=$5, transcript=$6, system_prompt=$7, analyzed=$8, duration_seconds=$9,
  updated_at=$10
WHERE id=$1
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.LeadID, c.ConversationID, c.ProviderCallID,
		c.Status, c.Transcript, c.SystemPrompt, c.Analyzed, c.DurationSeconds,
		c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) ListCallsForLead(ctx context.Context, leadID string) ([]Call, error) {
	q := `SELECT ` + callColumns + ` FROM calls WHERE lead_id = $1 ORDER BY created_at DESC`
	return r.queryCalls(ctx, q, leadID)
}

func (r *PostgresRepo) UnanalyzedCalls(ctx context.Context) ([]Call, error) {
	q := `SELECT ` + callColumns + `
FROM calls
WHERE transcript <> '' AND analyzed = false
ORDER BY created_at ASC`
	return r.queryCalls(ctx, q)
}

func (r *PostgresRepo) queryCalls(ctx context.Context, q string, args ...any) ([]Call, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
