package analyzer

import (
	"encoding/json"
	"strconv"
	"strings"

	"lead-call-platform/internal/leads"
)

// ExtractUpdates folds an extraction result into a lead update, keeping only
// findings at or above the analyzer's confidence threshold.
func (a *Analyzer) ExtractUpdates(r Result) leads.AgentUpdate {
	return ExtractUpdates(r, a.threshold)
}

func ExtractUpdates(r Result, threshold float64) leads.AgentUpdate {
	var u leads.AgentUpdate

	for field, c := range r.Confirmations {
		if !c.Confirmed || c.Confidence < threshold {
			continue
		}
		switch field {
		case "name":
			u.ConfirmName = true
			if v := stringValue(c.Value); v != "" {
				u.Name = v
			}
		case "budget":
			u.ConfirmBudget = true
			if v := intValue(c.Value); v != nil {
				u.Budget = v
			}
		case "move_in_date":
			u.ConfirmMoveInDate = true
			if v := stringValue(c.Value); v != "" {
				u.MoveInDate = v
			}
		case "occupation":
			u.ConfirmOccupation = true
			if v := stringValue(c.Value); v != "" {
				u.Occupation = v
			}
		case "yearly_wage":
			u.ConfirmYearlyWage = true
			if v := intValue(c.Value); v != nil {
				u.YearlyWage = v
			}
		case "contract_length":
			u.ConfirmContractLength = true
			if v := stringValue(c.Value); v != "" {
				u.ContractLength = mapContractLength(v)
			}
		}
	}

	if r.Availability.SlotsProvided && r.Availability.Confidence >= threshold {
		if len(r.Availability.Slots) > 0 {
			if raw, err := json.Marshal(r.Availability.Slots); err == nil {
				u.AvailabilitySlots = string(raw)
			}
		}
		if r.Availability.Confirmed {
			u.AvailabilityConfirmed = true
		}
		if r.Availability.LandlordApprovalNeeded {
			u.LandlordApprovalPending = true
		}
	}

	if r.Viewing.Booked && r.Viewing.Confidence >= threshold {
		u.ViewingDate = r.Viewing.Date
		u.ViewingTime = r.Viewing.Time
	}

	return u
}

// mapContractLength folds the model's free-form answer ("6_months", "12",
// "six months") onto the stored enum. Unmappable answers pass through so a
// human can see what was said.
func mapContractLength(raw string) leads.ContractLength {
	switch {
	case strings.Contains(raw, "6"):
		return leads.ContractLengthSixMonths
	case strings.Contains(raw, "12"):
		return leads.ContractLengthTwelveMonths
	default:
		return leads.ContractLength(raw)
	}
}

func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// Numbers arrive unquoted for fields the model decided are numeric.
	return strings.TrimSpace(string(raw))
}

func intValue(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		v := int(n)
		return &v
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "£"))
	s = strings.ReplaceAll(s, ",", "")
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		v := int(f)
		return &v
	}
	return nil
}
