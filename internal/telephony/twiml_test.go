package telephony

import (
	"net/url"
	"strings"
	"testing"

	"lead-call-platform/internal/calls"
)

func TestBridgeDocument(t *testing.T) {
	doc, err := BridgeDocument("wss://agent.example/convo", map[string]string{
		"lead_id":    "lead-1",
		"prompt_ref": "abc123",
		"empty":      "",
	})
	if err != nil {
		t.Fatalf("bridge document: %v", err)
	}

	if !strings.Contains(doc, `<Stream url="wss://agent.example/convo">`) {
		t.Fatalf("stream url missing:\n%s", doc)
	}
	if !strings.Contains(doc, `<Parameter name="lead_id" value="lead-1">`) {
		t.Fatalf("lead_id parameter missing:\n%s", doc)
	}
	if !strings.Contains(doc, `<Parameter name="prompt_ref" value="abc123">`) {
		t.Fatalf("prompt_ref parameter missing:\n%s", doc)
	}
	if strings.Contains(doc, `name="empty"`) {
		t.Fatalf("empty parameter should be dropped:\n%s", doc)
	}
	if !strings.HasPrefix(doc, "<?xml") {
		t.Fatalf("missing xml declaration:\n%s", doc)
	}
}

func TestBridgeDocumentStableOrder(t *testing.T) {
	params := map[string]string{"b": "2", "a": "1", "c": "3"}
	first, _ := BridgeDocument("wss://x", params)
	for i := 0; i < 10; i++ {
		again, _ := BridgeDocument("wss://x", params)
		if again != first {
			t.Fatalf("output not stable:\n%s\nvs\n%s", first, again)
		}
	}
	if strings.Index(first, `name="a"`) > strings.Index(first, `name="b"`) {
		t.Fatalf("parameters not sorted:\n%s", first)
	}
}

func TestFailureDocument(t *testing.T) {
	doc := FailureDocument("")
	if !strings.Contains(doc, "<Say>") || !strings.Contains(doc, "<Hangup>") {
		t.Fatalf("failure document malformed:\n%s", doc)
	}

	custom := FailureDocument("Goodbye.")
	if !strings.Contains(custom, "<Say>Goodbye.</Say>") {
		t.Fatalf("custom message missing:\n%s", custom)
	}
}

func TestParseStatusCallback(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("CallStatus", "Completed")
	form.Set("To", "+447700900123")
	form.Set("From", "+15550001111")
	form.Set("CallDuration", "63")

	cb := ParseStatusCallback(form)
	if cb.CallSID != "CA123" {
		t.Fatalf("call sid = %q", cb.CallSID)
	}
	if cb.CallStatus != "completed" {
		t.Fatalf("status = %q", cb.CallStatus)
	}
	if cb.DurationSeconds == nil || *cb.DurationSeconds != 63 {
		t.Fatalf("duration = %v", cb.DurationSeconds)
	}
}

func TestParseStatusCallbackNoDuration(t *testing.T) {
	cb := ParseStatusCallback(url.Values{"CallSid": {"CA1"}})
	if cb.DurationSeconds != nil {
		t.Fatalf("duration should be nil")
	}
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		in   string
		want calls.Status
	}{
		{"queued", calls.StatusInitiated},
		{"ringing", calls.StatusInitiated},
		{"in-progress", calls.StatusInProgress},
		{"completed", calls.StatusCompleted},
		{"busy", calls.StatusFailed},
		{"no-answer", calls.StatusFailed},
		{"failed", calls.StatusFailed},
		{"Canceled", calls.StatusFailed},
		{"something-new", ""},
	}
	for _, c := range cases {
		if got := MapStatus(c.in); got != c.want {
			t.Fatalf("MapStatus(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
