package promptcache

import (
	"context"
	"testing"
	"time"
)

func TestRefIsStableAndShort(t *testing.T) {
	e := Entry{LeadID: "lead-1", SystemPrompt: "prompt", FirstMessage: "hi", Variables: map[string]string{"a": "1", "b": "2"}}

	ref1 := Ref(e)
	ref2 := Ref(Entry{LeadID: "lead-1", SystemPrompt: "prompt", FirstMessage: "hi", Variables: map[string]string{"b": "2", "a": "1"}})
	if ref1 != ref2 {
		t.Fatalf("ref must not depend on map iteration order: %s vs %s", ref1, ref2)
	}
	if len(ref1) != 16 {
		t.Fatalf("ref length = %d, want 16", len(ref1))
	}

	e.FirstMessage = "hello"
	if Ref(e) == ref1 {
		t.Fatalf("different content must yield different ref")
	}
}

func TestMemoryPutGet(t *testing.T) {
	m := NewMemory(DefaultTTL)
	ctx := context.Background()

	e := Entry{LeadID: "lead-1", SystemPrompt: "prompt", FirstMessage: "hi"}
	ref := Ref(e)
	if err := m.Put(ctx, ref, e); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := m.Get(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.SystemPrompt != "prompt" {
		t.Fatalf("unexpected entry: %+v", got)
	}

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Fatalf("missing ref must not hit")
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Now()
	m.clock = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Put(ctx, "ref-1", Entry{LeadID: "lead-1"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "ref-1"); ok {
		t.Fatalf("expired entry must miss")
	}

	// Lazy sweep on insert drops expired entries.
	if err := m.Put(ctx, "ref-2", Entry{LeadID: "lead-2"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(m.entries) != 1 {
		t.Fatalf("expected sweep to leave one entry, got %d", len(m.entries))
	}
}
