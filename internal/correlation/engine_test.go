package correlation

import (
	"context"
	"testing"

	"lead-call-platform/internal/calls"
	"lead-call-platform/internal/leads"
	"lead-call-platform/internal/voiceagent"
)

func newEngine(t *testing.T) (*Engine, *leads.Service, *calls.Service) {
	t.Helper()
	leadSvc := leads.NewService(leads.NewMemoryRepo())
	callSvc := calls.NewService(calls.NewMemoryRepo())
	return NewEngine(leadSvc, callSvc), leadSvc, callSvc
}

func TestResolveByConversationID(t *testing.T) {
	ctx := context.Background()
	e, leadSvc, callSvc := newEngine(t)

	l, err := leadSvc.Create(ctx, leads.CreateRequest{Name: "Jess", Phone: "+447700900123"})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if _, err := callSvc.Create(ctx, calls.CreateParams{
		LeadID: l.ID, ConversationID: "conv_1", Status: calls.StatusInProgress,
	}); err != nil {
		t.Fatalf("create call: %v", err)
	}

	res, err := e.Resolve(ctx, voiceagent.InboundPayload{ConversationID: "conv_1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Strategy != StrategyConversationID {
		t.Fatalf("strategy = %s", res.Strategy)
	}
	if !res.HasLead || res.Lead.ID != l.ID {
		t.Fatalf("wrong lead: %+v", res.Lead)
	}
	if res.Variables["customer_name"] != "Jess" {
		t.Fatalf("customer_name = %q", res.Variables["customer_name"])
	}
}

func TestResolveByPhoneCreatesCall(t *testing.T) {
	ctx := context.Background()
	e, leadSvc, callSvc := newEngine(t)

	l, _ := leadSvc.Create(ctx, leads.CreateRequest{Name: "Sam", Phone: "+447700900123"})

	res, err := e.Resolve(ctx, voiceagent.InboundPayload{
		CallerPhone:    "07700 900123",
		ConversationID: "conv_inbound",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Strategy != StrategyPhone {
		t.Fatalf("strategy = %s", res.Strategy)
	}
	if res.Lead.ID != l.ID {
		t.Fatalf("matched lead %s, want %s", res.Lead.ID, l.ID)
	}
	if !res.HasCall || res.Call.Status != calls.StatusInProgress {
		t.Fatalf("expected in-progress call, got %+v", res.Call)
	}

	got, ok, err := callSvc.GetByConversationID(ctx, "conv_inbound")
	if err != nil || !ok {
		t.Fatalf("created call not findable by conversation id: ok=%v err=%v", ok, err)
	}
	if got.LeadID != l.ID {
		t.Fatalf("call lead = %s, want %s", got.LeadID, l.ID)
	}
	if got.SystemPrompt == "" {
		t.Fatalf("expected system prompt stored on call")
	}
}

func TestResolveReusesCallKnownByProviderCallID(t *testing.T) {
	ctx := context.Background()
	e, leadSvc, callSvc := newEngine(t)

	l, _ := leadSvc.Create(ctx, leads.CreateRequest{Name: "Pat", Phone: "+447700900321"})
	existing, err := callSvc.Create(ctx, calls.CreateParams{
		LeadID: l.ID, ProviderCallID: "CA_bridge", Status: calls.StatusInitiated,
	})
	if err != nil {
		t.Fatalf("create call: %v", err)
	}

	payload := voiceagent.InboundPayload{CallerPhone: "07700 900321", CallSID: "CA_bridge"}
	for i := 0; i < 2; i++ {
		res, err := e.Resolve(ctx, payload)
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if res.Call.ID != existing.ID {
			t.Fatalf("resolve %d picked call %s, want %s", i, res.Call.ID, existing.ID)
		}
	}

	list, err := callSvc.ListForLead(ctx, l.ID)
	if err != nil {
		t.Fatalf("list calls: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("%d calls for lead, want the original only", len(list))
	}
}

func TestResolveUnknownCallerCreatesLead(t *testing.T) {
	ctx := context.Background()
	e, leadSvc, _ := newEngine(t)

	res, err := e.Resolve(ctx, voiceagent.InboundPayload{CallerPhone: "+447700900999"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Strategy != StrategyPhone {
		t.Fatalf("strategy = %s", res.Strategy)
	}
	if res.Lead.Name != "Unknown Caller" {
		t.Fatalf("lead name = %q", res.Lead.Name)
	}
	if res.Variables["current_phase"] != "UNKNOWN_CALLER" {
		t.Fatalf("current_phase = %q", res.Variables["current_phase"])
	}

	stored, err := leadSvc.Get(ctx, res.Lead.ID)
	if err != nil {
		t.Fatalf("unknown caller lead not persisted: %v", err)
	}
	if stored.Phone != "+447700900999" {
		t.Fatalf("phone = %q", stored.Phone)
	}
}

func TestResolveNoIdentifiers(t *testing.T) {
	ctx := context.Background()
	e, leadSvc, _ := newEngine(t)

	res, err := e.Resolve(ctx, voiceagent.InboundPayload{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Strategy != StrategyNone || res.HasLead || res.HasCall {
		t.Fatalf("expected empty resolution, got %+v", res)
	}
	if res.Variables["system_prompt"] == "" {
		t.Fatalf("generic variables must still carry a system prompt")
	}

	all, _ := leadSvc.List(ctx)
	if len(all) != 0 {
		t.Fatalf("no records should be created, got %d leads", len(all))
	}
}

func TestAttachTranscriptByConversationID(t *testing.T) {
	ctx := context.Background()
	e, leadSvc, callSvc := newEngine(t)

	l, _ := leadSvc.Create(ctx, leads.CreateRequest{Name: "Jess", Phone: "+447700900123"})
	callSvc.Create(ctx, calls.CreateParams{LeadID: l.ID, ConversationID: "conv_1", Status: calls.StatusInProgress})

	secs := 90
	att, err := e.AttachTranscript(ctx, voiceagent.TranscriptPayload{
		ConversationID:  "conv_1",
		Transcript:      "agent: hello\nuser: hi",
		DurationSeconds: &secs,
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if !att.Attached || att.Strategy != StrategyConversationID {
		t.Fatalf("attachment = %+v", att)
	}
	if att.Call.DurationSeconds == nil || *att.Call.DurationSeconds != 90 {
		t.Fatalf("duration = %v", att.Call.DurationSeconds)
	}

	got, _ := leadSvc.Get(ctx, l.ID)
	if got.CallTranscript != "agent: hello\nuser: hi" {
		t.Fatalf("lead transcript mirror = %q", got.CallTranscript)
	}
}

func TestAttachTranscriptByPhoneFallback(t *testing.T) {
	ctx := context.Background()
	e, leadSvc, callSvc := newEngine(t)

	l, _ := leadSvc.Create(ctx, leads.CreateRequest{Name: "Sam", Phone: "+447700900123"})
	c, _ := callSvc.Create(ctx, calls.CreateParams{LeadID: l.ID, Status: calls.StatusInProgress})

	att, err := e.AttachTranscript(ctx, voiceagent.TranscriptPayload{
		ConversationID: "conv_new",
		CallerPhone:    "07700 900123",
		Transcript:     "user: hello",
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if att.Strategy != StrategyPhone {
		t.Fatalf("strategy = %s", att.Strategy)
	}
	if att.Call.ID != c.ID {
		t.Fatalf("attached to %s, want %s", att.Call.ID, c.ID)
	}
	if att.Call.ConversationID != "conv_new" {
		t.Fatalf("conversation id not backfilled: %q", att.Call.ConversationID)
	}
	if att.Call.Status != calls.StatusCompleted {
		t.Fatalf("status = %s", att.Call.Status)
	}
}

func TestAttachTranscriptByProviderCallID(t *testing.T) {
	ctx := context.Background()
	e, leadSvc, callSvc := newEngine(t)

	l, _ := leadSvc.Create(ctx, leads.CreateRequest{Name: "Sam"})
	c, _ := callSvc.Create(ctx, calls.CreateParams{LeadID: l.ID, ProviderCallID: "CA555", Status: calls.StatusInProgress})

	att, err := e.AttachTranscript(ctx, voiceagent.TranscriptPayload{
		ConversationID: "conv_promoted",
		ProviderCallID: "CA555",
		Transcript:     "user: hello",
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if att.Strategy != StrategyProviderCallID {
		t.Fatalf("strategy = %s", att.Strategy)
	}

	got, _ := callSvc.Get(ctx, c.ID)
	if got.ConversationID != "conv_promoted" {
		t.Fatalf("conversation id = %q", got.ConversationID)
	}
	if got.ProviderCallID != "CA555" {
		t.Fatalf("provider call id dropped on promote: %q", got.ProviderCallID)
	}
}

func TestAttachTranscriptByRecency(t *testing.T) {
	ctx := context.Background()
	e, leadSvc, callSvc := newEngine(t)

	l, _ := leadSvc.Create(ctx, leads.CreateRequest{Name: "Sam"})
	older, _ := callSvc.Create(ctx, calls.CreateParams{LeadID: l.ID, Status: calls.StatusInProgress})
	newer, _ := callSvc.Create(ctx, calls.CreateParams{LeadID: l.ID, Status: calls.StatusInProgress})

	att, err := e.AttachTranscript(ctx, voiceagent.TranscriptPayload{
		Transcript: "user: hello",
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if att.Strategy != StrategyRecency {
		t.Fatalf("strategy = %s", att.Strategy)
	}
	if att.Call.ID != newer.ID {
		t.Fatalf("attached to %s, want newest %s", att.Call.ID, newer.ID)
	}

	got, _ := callSvc.Get(ctx, older.ID)
	if got.HasTranscript() {
		t.Fatalf("older call must stay untouched")
	}
}

func TestAttachTranscriptDiscards(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t)

	att, err := e.AttachTranscript(ctx, voiceagent.TranscriptPayload{
		ConversationID: "conv_orphan",
		Transcript:     "user: hello",
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if att.Attached || att.Strategy != StrategyNone {
		t.Fatalf("expected discard, got %+v", att)
	}
}

func TestAttachTranscriptEmptyTranscript(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t)

	att, err := e.AttachTranscript(ctx, voiceagent.TranscriptPayload{ConversationID: "conv_1"})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if att.Attached {
		t.Fatalf("empty transcript must not attach")
	}
}
