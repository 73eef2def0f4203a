// Package agent builds the system prompt and opening line handed to the
// hosted voice agent. Everything here is a pure function of a lead snapshot.
package agent

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"lead-call-platform/internal/leads"
)

// systemPromptTemplate is phase-agnostic; phase behavior is selected by the
// agent from the rendered variables. Placeholders use {name} syntax because
// that is what the hosted agent is configured around.
const systemPromptTemplate = `You are Charlie from Lobby, a real estate agent. Check {lead_phase} to understand the conversation goal.

Phase-specific behavior:
- CONFIRM_INFO: First confirm/collect {phase_missing_fields}. Once all information is confirmed, proceed to book a viewing.
- BOOKING_VIEWING: Offer slots from {available_viewing_slots}
- VIEWING_BOOKED: Viewing is on {viewing_date} at {viewing_time}

IMPORTANT: After your initial greeting, WAIT for the person to respond before proceeding with any details or questions.

NATURAL CONVERSATION RULES:
- Mention the property address ONCE when you first bring it up, then use "the property" or "it"
- Don't repeat information unnecessarily - be conversational
- Keep responses brief and natural (1-2 sentences)
- Don't over-confirm details that have already been agreed

Personality:
- Friendly and personable. You're Charlie from Lobby, a warm and enthusiastic property rental assistant
- Genuinely helpful; show real interest in helping tenants find their perfect home
- Natural conversationalist; speak like a real person on a phone call
- Enthusiastic and positive

Environment:
- Phone call context with real-time back-and-forth
- Property rental setting; focus on booking property viewings

Tone:
- Conversational and casual (e.g., "Great!", "Perfect!", "I see")
- Brief and concise (1-2 sentences)
- Warm but professional
- Flexible and adaptive, adjust to how the caller shares information

IMPORTANT: After your initial greeting and request to confirm details, WAIT for permission. If they say yes, proceed. If they're busy, offer to call back later.

VIEWING HOURS: Viewings can ONLY be booked between 9:00 AM and 5:00 PM on weekdays (Monday-Friday). Do not offer or accept viewing times outside these hours.

CRITICAL PROPERTY REFERENCE RULES:
- On first mention say: "the property at {property_address}"
- If it's a {property_bedrooms} property at {property_monthly_cost}/month, say: "that's £{price_per_room} per bedroom"

Lead context (if available):
- Name: {lead_name}
- Phone: {lead_phone}
- Budget: {lead_budget}
- Move-in date: {lead_move_in_date}
- Annual income: {lead_yearly_wage}
- Occupation: {lead_occupation}
- Contract length: {lead_contract_length}

Primary goal by phase:
- CONFIRM_INFO: Quickly confirm all required details, then immediately transition to booking a viewing in the same call
- BOOKING_VIEWING: Offer and agree a viewing time within viewing hours
- VIEWING_BOOKED: Confirm viewing on {viewing_date} at {viewing_time}

IMPORTANT: In CONFIRM_INFO phase, always progress to viewing booking after confirming details. Don't end the call without attempting to schedule a viewing.

Guardrails:
- One question at a time
- Always acknowledge responses before next question
- Use their name naturally: {lead_name_fallback}
- English only
- Immediate greeting when call connects
- Stay on topic: booking the viewing
`

const unknownCallerSystemPrompt = `You are Charlie from Lobby, a helpful real estate assistant.

You're speaking with someone who called our number but isn't in our system yet.

Your role:
- Be friendly and professional
- Ask how you can help them today
- If they're interested in property rentals, collect their basic details
- If they're calling about something else, try to assist or direct them appropriately

Keep responses brief and natural. Wait for them to explain why they're calling before proceeding.

Important: This caller is not in our current lead system, so treat this as a general inquiry call.`

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// render substitutes {placeholder} tokens from vars. Unknown placeholders
// become empty strings; raw template syntax must never reach the model.
func render(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(tok string) string {
		return vars[tok[1:len(tok)-1]]
	})
}

// MissingFields lists the confirmation gaps in agent-friendly wording,
// including the optional contract-length preference.
func MissingFields(l leads.Lead) []string {
	var out []string
	if l.Name == "" || !l.NameConfirmed {
		out = append(out, "name")
	}
	if l.Budget == nil || !l.BudgetConfirmed {
		out = append(out, "budget")
	}
	if l.MoveInDate == "" || !l.MoveInDateConfirmed {
		out = append(out, "move-in date")
	}
	if l.Occupation == "" || !l.OccupationConfirmed {
		out = append(out, "occupation")
	}
	if l.YearlyWage == nil || !l.YearlyWageConfirmed {
		out = append(out, "annual income")
	}
	if l.ContractLength == "" || !l.ContractLengthConfirmed {
		out = append(out, "contract length preference")
	}
	return out
}

// PricePerRoom returns round(monthly cost / bedrooms) as a string, or empty
// when either input is absent or bedrooms is zero. Never divides by zero.
func PricePerRoom(l leads.Lead) string {
	if l.PropertyCost == nil || l.BedroomCount == nil || *l.BedroomCount <= 0 {
		return ""
	}
	return strconv.Itoa(int(math.Round(float64(*l.PropertyCost) / float64(*l.BedroomCount))))
}

func intStr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// TemplateVariables builds the substitution map for the system prompt.
func TemplateVariables(l leads.Lead) map[string]string {
	missing := MissingFields(l)
	missingStr := "(none)"
	if len(missing) > 0 {
		missingStr = strings.Join(missing, ", ")
	}

	phase := string(l.Phase)
	if phase == "" {
		phase = "NEW"
	}

	nameFallback := l.Name
	if nameFallback == "" {
		nameFallback = "there"
	}

	return map[string]string{
		"lead_phase":              phase,
		"phase_missing_fields":    missingStr,
		"available_viewing_slots": "weekdays 9:00-17:00",
		"viewing_date":            l.ViewingDate,
		"viewing_time":            l.ViewingTime,
		"property_address":        l.PropertyAddress,
		"property_bedrooms":       intStr(l.BedroomCount),
		"property_monthly_cost":   intStr(l.PropertyCost),
		"price_per_room":          PricePerRoom(l),
		"lead_name":               l.Name,
		"lead_phone":              l.Phone,
		"lead_budget":             intStr(l.Budget),
		"lead_move_in_date":       l.MoveInDate,
		"lead_yearly_wage":        intStr(l.YearlyWage),
		"lead_occupation":         l.Occupation,
		"lead_contract_length":    string(l.ContractLength),
		"lead_name_fallback":      nameFallback,
	}
}

// SystemPrompt renders the full system prompt for a lead snapshot.
func SystemPrompt(l leads.Lead) string {
	return render(systemPromptTemplate, TemplateVariables(l))
}

// FirstMessage picks the opening line by phase, templated with the lead's
// name or a "there" fallback.
func FirstMessage(l leads.Lead) string {
	name := l.Name
	if name == "" {
		name = "there"
	}

	switch l.Phase {
	case leads.PhaseConfirmInfo:
		return fmt.Sprintf("Hi %s! I'm Charlie calling from Lobby about the property you enquired about. I need to confirm a few details before we can book your viewing. Do you have a moment?", name)
	case leads.PhaseBookingViewing:
		return fmt.Sprintf("Hello %s! I'm calling to help you schedule a property viewing. When would work best for you?", name)
	case leads.PhaseViewingBooked:
		date := l.ViewingDate
		if date == "" {
			date = "the scheduled date"
		}
		return fmt.Sprintf("Hi %s, I'm calling to confirm your viewing on %s.", name, date)
	case leads.PhaseCompleted:
		return fmt.Sprintf("Hello %s, thank you for your time. Is there anything else I can help you with?", name)
	default:
		return fmt.Sprintf("Hello %s, how can I assist you today?", name)
	}
}

// DynamicVariables is the flat key-value set handed to the agent, including
// the rendered system prompt and first message. Empty context values are
// dropped to keep the payload clean.
func DynamicVariables(l leads.Lead) map[string]string {
	vars := map[string]string{
		"lead_id":         l.ID,
		"customer_name":   l.Name,
		"customer_email":  l.Email,
		"customer_phone":  l.Phone,
		"postcode":        l.Postcode,
		"budget":          intStr(l.Budget),
		"move_in_date":    l.MoveInDate,
		"occupation":      l.Occupation,
		"yearly_wage":     intStr(l.YearlyWage),
		"contract_length": string(l.ContractLength),
		"current_phase":   string(l.Phase),
		"viewing_date":    l.ViewingDate,
		"viewing_time":    l.ViewingTime,
	}
	if vars["customer_name"] == "" {
		vars["customer_name"] = "there"
	}
	for k, v := range vars {
		if v == "" {
			delete(vars, k)
		}
	}

	vars["system_prompt"] = SystemPrompt(l)
	vars["first_message"] = FirstMessage(l)
	return vars
}

// UnknownCallerVariables is the safe generic set for callers we cannot
// attribute to any lead.
func UnknownCallerVariables(callerPhone string) map[string]string {
	vars := map[string]string{
		"first_message": "Hello! I'm Charlie from Lobby. How can I help you today?",
		"system_prompt": unknownCallerSystemPrompt,
		"customer_name": "there",
		"current_phase": "UNKNOWN_CALLER",
	}
	if callerPhone != "" {
		vars["customer_phone"] = callerPhone
	}
	return vars
}
