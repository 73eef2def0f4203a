package leads

import (
	"context"
	"testing"
)

func newTestService() *Service {
	return NewService(NewMemoryRepo())
}

func TestCreateStartsInConfirmInfo(t *testing.T) {
	s := newTestService()
	l, err := s.Create(context.Background(), CreateRequest{Name: "Alex", Phone: "07700 900123"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.Phase != PhaseConfirmInfo {
		t.Fatalf("phase = %s, want %s", l.Phase, PhaseConfirmInfo)
	}
	if l.Phone != "+447700900123" {
		t.Fatalf("phone not normalized: %q", l.Phone)
	}

	info := Evaluate(l)
	if info.CanProgress {
		t.Fatalf("name+phone only must not progress")
	}
}

func TestFindByPhoneSuffixMatch(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	created, err := s.Create(ctx, CreateRequest{Name: "Alex", Phone: "+447700900123"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, ok, err := s.FindByPhone(ctx, "07700900123")
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	if got.ID != created.ID {
		t.Fatalf("matched wrong lead %s", got.ID)
	}

	if _, ok, _ := s.FindByPhone(ctx, "+447700900999"); ok {
		t.Fatalf("expected no match for different number")
	}
}

func TestAdvanceIsIdempotent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	repo := s.repo.(*MemoryRepo)

	l := fullyConfirmedLead()
	l.ID = "lead-1"
	if err := repo.CreateLead(ctx, l); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, moved, err := s.Advance(ctx, "lead-1")
	if err != nil || !moved {
		t.Fatalf("first advance: moved=%v err=%v", moved, err)
	}
	if got.Phase != PhaseBookingViewing {
		t.Fatalf("phase = %s, want %s", got.Phase, PhaseBookingViewing)
	}

	got, moved, err = s.Advance(ctx, "lead-1")
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if moved || got.Phase != PhaseBookingViewing {
		t.Fatalf("advance must be idempotent, moved=%v phase=%s", moved, got.Phase)
	}
}

func TestApplyAgentUpdateAdvancesOnce(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	repo := s.repo.(*MemoryRepo)

	l := fullyConfirmedLead()
	l.ID = "lead-1"
	l.BudgetConfirmed = false
	if err := repo.CreateLead(ctx, l); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, info, err := s.ApplyAgentUpdate(ctx, "lead-1", AgentUpdate{ConfirmBudget: true})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.Phase != PhaseBookingViewing {
		t.Fatalf("phase = %s, want %s", got.Phase, PhaseBookingViewing)
	}
	if info.CurrentPhase != PhaseBookingViewing {
		t.Fatalf("info reflects stale phase: %+v", info)
	}
}

func TestApplyAgentUpdateRecordsViewing(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	repo := s.repo.(*MemoryRepo)

	l := fullyConfirmedLead()
	l.ID = "lead-1"
	l.Phase = PhaseBookingViewing
	l.PropertyAddress = "12 King Street"
	if err := repo.CreateLead(ctx, l); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, _, err := s.ApplyAgentUpdate(ctx, "lead-1", AgentUpdate{
		ViewingDate: "2026-09-12",
		ViewingTime: "10:00",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.Phase != PhaseViewingBooked {
		t.Fatalf("phase = %s, want %s", got.Phase, PhaseViewingBooked)
	}

	vs, err := s.Viewings(ctx, "lead-1")
	if err != nil {
		t.Fatalf("viewings: %v", err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected one viewing row, got %d", len(vs))
	}
	if vs[0].PropertyAddress != "12 King Street" || vs[0].Status != ViewingStatusScheduled {
		t.Fatalf("unexpected viewing row: %+v", vs[0])
	}
}

func TestBookViewing(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	repo := s.repo.(*MemoryRepo)

	l := fullyConfirmedLead()
	l.ID = "lead-1"
	l.Phase = PhaseBookingViewing
	if err := repo.CreateLead(ctx, l); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := s.BookViewing(ctx, "lead-1", "2026-09-15", "11:00", "ask for Sam")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if got.Phase != PhaseViewingBooked || got.ViewingDate != "2026-09-15" {
		t.Fatalf("unexpected lead after booking: phase=%s date=%s", got.Phase, got.ViewingDate)
	}

	if _, err := s.BookViewing(ctx, "lead-1", "", "11:00", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestStoreTranscriptMirror(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	l, err := s.Create(ctx, CreateRequest{Name: "Alex"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.StoreTranscript(ctx, l.ID, "agent: hi\nuser: hello")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if got.CallTranscript == "" {
		t.Fatalf("transcript not mirrored")
	}
}
