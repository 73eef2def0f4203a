package agent

import (
	"strings"
	"testing"

	"lead-call-platform/internal/leads"
)

func intPtr(v int) *int { return &v }

func TestSystemPromptLeavesNoPlaceholders(t *testing.T) {
	cases := []leads.Lead{
		{},
		{Phase: leads.PhaseConfirmInfo, Name: "Alex"},
		{Phase: leads.PhaseBookingViewing, PropertyAddress: "12 King Street", BedroomCount: intPtr(3), PropertyCost: intPtr(3000)},
		{Phase: leads.PhaseViewingBooked, ViewingDate: "2026-09-12", ViewingTime: "10:00"},
	}

	for _, l := range cases {
		prompt := SystemPrompt(l)
		if strings.Contains(prompt, "{") || strings.Contains(prompt, "}") {
			t.Fatalf("rendered prompt leaks placeholder syntax for %+v:\n%s", l, prompt)
		}
	}
}

func TestPricePerRoom(t *testing.T) {
	l := leads.Lead{BedroomCount: intPtr(3), PropertyCost: intPtr(3000)}
	if got := PricePerRoom(l); got != "1000" {
		t.Fatalf("price per room = %q, want 1000", got)
	}

	if got := PricePerRoom(leads.Lead{BedroomCount: intPtr(0), PropertyCost: intPtr(3000)}); got != "" {
		t.Fatalf("zero bedrooms must yield empty, got %q", got)
	}
	if got := PricePerRoom(leads.Lead{PropertyCost: intPtr(3000)}); got != "" {
		t.Fatalf("missing bedrooms must yield empty, got %q", got)
	}
	if got := PricePerRoom(leads.Lead{BedroomCount: intPtr(3)}); got != "" {
		t.Fatalf("missing cost must yield empty, got %q", got)
	}
}

func TestMissingFieldsWording(t *testing.T) {
	l := leads.Lead{Phase: leads.PhaseConfirmInfo, Name: "Alex", NameConfirmed: true}
	got := strings.Join(MissingFields(l), ", ")
	for _, want := range []string{"budget", "move-in date", "occupation", "annual income", "contract length preference"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing fields %q lacks %q", got, want)
		}
	}
	if strings.Contains(got, "name") && !strings.Contains(got, "move-in") {
		t.Fatalf("confirmed name must not be listed: %q", got)
	}
}

func TestMissingFieldsNoneSentinel(t *testing.T) {
	l := leads.Lead{
		Phase: leads.PhaseConfirmInfo,
		Name:  "Alex", NameConfirmed: true,
		Budget: intPtr(1200), BudgetConfirmed: true,
		MoveInDate: "2026-10-01", MoveInDateConfirmed: true,
		Occupation: "engineer", OccupationConfirmed: true,
		YearlyWage: intPtr(42000), YearlyWageConfirmed: true,
		ContractLength: leads.ContractLengthSixMonths, ContractLengthConfirmed: true,
	}
	if fields := MissingFields(l); len(fields) != 0 {
		t.Fatalf("expected no missing fields, got %v", fields)
	}
	if !strings.Contains(SystemPrompt(l), "(none)") {
		t.Fatalf("expected (none) sentinel in prompt")
	}
}

func TestFirstMessagePerPhase(t *testing.T) {
	l := leads.Lead{Name: "Alex", Phase: leads.PhaseConfirmInfo}
	if msg := FirstMessage(l); !strings.Contains(msg, "Alex") || !strings.Contains(msg, "confirm a few details") {
		t.Fatalf("unexpected CONFIRM_INFO message: %q", msg)
	}

	l.Phase = leads.PhaseViewingBooked
	if msg := FirstMessage(l); !strings.Contains(msg, "the scheduled date") {
		t.Fatalf("expected date fallback, got %q", msg)
	}

	l.Name = ""
	l.Phase = leads.PhaseBookingViewing
	if msg := FirstMessage(l); !strings.Contains(msg, "there") {
		t.Fatalf("expected name fallback, got %q", msg)
	}

	l.Phase = "SOMETHING_ELSE"
	if msg := FirstMessage(l); !strings.Contains(msg, "how can I assist you today") {
		t.Fatalf("expected default message, got %q", msg)
	}
}

func TestDynamicVariablesDropEmptyButKeepPrompt(t *testing.T) {
	l := leads.Lead{ID: "lead-1", Phase: leads.PhaseConfirmInfo}
	vars := DynamicVariables(l)

	if _, ok := vars["customer_email"]; ok {
		t.Fatalf("empty values must be dropped")
	}
	if vars["customer_name"] != "there" {
		t.Fatalf("customer_name fallback missing: %q", vars["customer_name"])
	}
	if vars["system_prompt"] == "" || vars["first_message"] == "" {
		t.Fatalf("prompt variables are mandatory")
	}
}

func TestUnknownCallerVariables(t *testing.T) {
	vars := UnknownCallerVariables("+447700900123")
	if vars["current_phase"] != "UNKNOWN_CALLER" {
		t.Fatalf("unexpected phase: %q", vars["current_phase"])
	}
	if vars["customer_phone"] != "+447700900123" {
		t.Fatalf("caller phone missing")
	}
	if _, ok := UnknownCallerVariables("")["customer_phone"]; ok {
		t.Fatalf("empty phone must not be set")
	}
}
