package calls

import "time"

// Status is the call lifecycle state. completed and failed are terminal.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Call is one voice session tied to exactly one lead.
//
// Two identifiers correlate provider webhooks back to this record:
// ConversationID is the voice-agent conversation id and is authoritative.
// ProviderCallID is the telephony call SID, known before the agent connects
// on bridged outbound calls. Once the conversation id arrives, the record is
// promoted and ProviderCallID is kept only as a secondary correlator. Both
// are unique when present.
type Call struct {
	ID     string `json:"id" db:"id"`
	LeadID string `json:"lead_id" db:"lead_id"`

	ConversationID string `json:"conversation_id,omitempty" db:"conversation_id"`
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	Status Status `json:"status" db:"status"`

	// Transcript, once set, is the authoritative text for the session.
	Transcript   string `json:"transcript,omitempty" db:"transcript"`
	SystemPrompt string `json:"system_prompt,omitempty" db:"system_prompt"`

	Analyzed        bool `json:"analyzed" db:"analyzed"`
	DurationSeconds *int `json:"duration_seconds,omitempty" db:"duration_seconds"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasTranscript reports whether a transcript has been attached.
func (c Call) HasTranscript() bool { return c.Transcript != "" }

// Terminal reports whether the call is in a terminal state.
func (c Call) Terminal() bool { return c.Status == StatusCompleted || c.Status == StatusFailed }
