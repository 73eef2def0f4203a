// Package analyzer extracts structured lead updates from call transcripts
// using an LLM with forced JSON output.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lead-call-platform/internal/config"
	"lead-call-platform/internal/leads"
	"lead-call-platform/pkg/logger"

	"github.com/sashabaranov/go-openai"
)

var ErrNotConfigured = errors.New("analyzer not configured")

const extractionTemperature = 0.1

const systemPrompt = `You are analyzing a phone call transcript between Charlie (a property rental agent) and a potential tenant.

Extract the following information:
1. What information was confirmed (name, budget, move-in date, occupation, yearly income, contract length)
2. Lead availability for viewings (multiple time slots they mentioned)
3. Whether a specific viewing was booked (final confirmed date and time)
4. Any concerns or objections raised
5. Overall success of the call

Return JSON with this structure:
{
    "confirmations": {
        "name": {"confirmed": true/false, "value": "actual name if mentioned", "confidence": 0.0-1.0},
        "budget": {"confirmed": true/false, "value": number or null, "confidence": 0.0-1.0},
        "move_in_date": {"confirmed": true/false, "value": "date string or null", "confidence": 0.0-1.0},
        "occupation": {"confirmed": true/false, "value": "occupation or null", "confidence": 0.0-1.0},
        "yearly_wage": {"confirmed": true/false, "value": number or null, "confidence": 0.0-1.0},
        "contract_length": {"confirmed": true/false, "value": "6_months/12_months/etc or null", "confidence": 0.0-1.0}
    },
    "availability": {
        "slots_provided": true/false,
        "slots": [
            {"date": "Monday", "time": "2 PM", "notes": "preferred"}
        ],
        "confirmed": true/false,
        "landlord_approval_needed": true/false,
        "confidence": 0.0-1.0
    },
    "viewing": {
        "booked": true/false,
        "date": "date string or null",
        "time": "time string or null",
        "confidence": 0.0-1.0
    },
    "call_outcome": {
        "successful": true/false,
        "reason": "brief explanation",
        "follow_up_needed": true/false
    },
    "key_points": ["important points from the conversation"]
}`

// Confirmation is one extracted field with its confidence score.
// Value is a string, number, or null depending on the field.
type Confirmation struct {
	Confirmed  bool            `json:"confirmed"`
	Value      json.RawMessage `json:"value"`
	Confidence float64         `json:"confidence"`
}

type AvailabilitySlot struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Notes string `json:"notes,omitempty"`
}

type Availability struct {
	SlotsProvided          bool               `json:"slots_provided"`
	Slots                  []AvailabilitySlot `json:"slots"`
	Confirmed              bool               `json:"confirmed"`
	LandlordApprovalNeeded bool               `json:"landlord_approval_needed"`
	Confidence             float64            `json:"confidence"`
}

type Viewing struct {
	Booked     bool    `json:"booked"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	Confidence float64 `json:"confidence"`
}

type CallOutcome struct {
	Successful     bool   `json:"successful"`
	Reason         string `json:"reason"`
	FollowUpNeeded bool   `json:"follow_up_needed"`
}

// Result is the full extraction for one transcript.
type Result struct {
	Confirmations map[string]Confirmation `json:"confirmations"`
	Availability  Availability            `json:"availability"`
	Viewing       Viewing                 `json:"viewing"`
	CallOutcome   CallOutcome             `json:"call_outcome"`
	KeyPoints     []string                `json:"key_points"`
}

type Analyzer struct {
	client    *openai.Client
	model     string
	threshold float64
}

func New(cfg config.AnalyzerConfig) (*Analyzer, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, ErrNotConfigured
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = openai.GPT4oMini
	}
	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Analyzer{
		client:    openai.NewClient(cfg.OpenAIAPIKey),
		model:     model,
		threshold: threshold,
	}, nil
}

// Analyze runs the extraction over a transcript. The lead's current state is
// included as context so the model can tell new information from repeats.
func (a *Analyzer) Analyze(ctx context.Context, transcript string, l leads.Lead) (Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return Result{}, fmt.Errorf("empty transcript")
	}

	log := logger.From(ctx)
	log.Info("analyzing transcript", "lead_id", l.ID, "chars", len(transcript), "model", a.model)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(transcript, l)},
		},
		Temperature:    extractionTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("no choices in response")
	}

	var result Result
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return Result{}, fmt.Errorf("decode extraction: %w", err)
	}

	log.Info("analysis complete",
		"lead_id", l.ID,
		"confirmed_fields", confirmedCount(result.Confirmations),
		"viewing_booked", result.Viewing.Booked,
		"call_successful", result.CallOutcome.Successful,
		"tokens", resp.Usage.TotalTokens)
	return result, nil
}

func confirmedCount(m map[string]Confirmation) int {
	n := 0
	for _, c := range m {
		if c.Confirmed {
			n++
		}
	}
	return n
}

func userPrompt(transcript string, l leads.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this transcript:\n\n%s\n\n", transcript)
	b.WriteString("Existing information about this lead:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orNotProvided(l.Name))
	fmt.Fprintf(&b, "- Email: %s\n", orNotProvided(l.Email))
	fmt.Fprintf(&b, "- Phone: %s\n", orNotProvided(l.Phone))
	fmt.Fprintf(&b, "- Budget: %s per month\n", poundOr(l.Budget))
	fmt.Fprintf(&b, "- Move-in date: %s\n", orNotProvided(l.MoveInDate))
	fmt.Fprintf(&b, "- Occupation: %s\n", orNotProvided(l.Occupation))
	fmt.Fprintf(&b, "- Yearly wage: %s\n", poundOr(l.YearlyWage))
	fmt.Fprintf(&b, "- Contract length preference: %s\n", orNotProvided(string(l.ContractLength)))
	if l.PropertyAddress != "" {
		fmt.Fprintf(&b, "- Property address: %s\n", l.PropertyAddress)
	}
	fmt.Fprintf(&b, "\n- Current phase: %s\n", l.Phase)
	b.WriteString("\nConfirmation status:\n")
	fmt.Fprintf(&b, "- Name confirmed: %t\n", l.NameConfirmed)
	fmt.Fprintf(&b, "- Budget confirmed: %t\n", l.BudgetConfirmed)
	fmt.Fprintf(&b, "- Move-in date confirmed: %t\n", l.MoveInDateConfirmed)
	fmt.Fprintf(&b, "- Occupation confirmed: %t\n", l.OccupationConfirmed)
	fmt.Fprintf(&b, "- Yearly wage confirmed: %t\n", l.YearlyWageConfirmed)
	fmt.Fprintf(&b, "- Contract length confirmed: %t\n", l.ContractLengthConfirmed)
	if l.ViewingDate != "" || l.ViewingTime != "" {
		b.WriteString("\nExisting viewing:\n")
		fmt.Fprintf(&b, "- Date: %s\n", orNotProvided(l.ViewingDate))
		fmt.Fprintf(&b, "- Time: %s\n", orNotProvided(l.ViewingTime))
	}
	return b.String()
}

func orNotProvided(s string) string {
	if s == "" {
		return "Not provided"
	}
	return s
}

func poundOr(v *int) string {
	if v == nil {
		return "Not specified"
	}
	return fmt.Sprintf("£%d", *v)
}
