package voiceagent

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"
)

func signTimestamped(body []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "."))
	mac.Write(body)
	return fmt.Sprintf("t=%s,v0=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignatureTimestamped(t *testing.T) {
	body := []byte(`{"conversation_id":"conv_1"}`)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	header := signTimestamped(body, "secret", now)

	if !VerifySignature(body, header, "secret", now) {
		t.Fatalf("expected valid signature to verify")
	}
	if VerifySignature(body, header, "wrong", now) {
		t.Fatalf("wrong secret verified")
	}
	if VerifySignature([]byte("tampered"), header, "secret", now) {
		t.Fatalf("tampered body verified")
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	body := []byte(`{}`)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	header := signTimestamped(body, "secret", now.Add(-3*time.Hour))

	if VerifySignature(body, header, "secret", now) {
		t.Fatalf("stale timestamp verified")
	}
}

func TestVerifySignatureBodyOnlyFallback(t *testing.T) {
	body := []byte(`{"conversation_id":"conv_2"}`)
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(body)
	header := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !VerifySignature(body, header, "secret", time.Now()) {
		t.Fatalf("body-only signature rejected")
	}
}

func TestVerifySignatureEmptyInputs(t *testing.T) {
	if VerifySignature([]byte("x"), "", "secret", time.Now()) {
		t.Fatalf("empty header verified")
	}
	if VerifySignature([]byte("x"), "v0=abc", "", time.Now()) {
		t.Fatalf("empty secret verified")
	}
}

func TestParseInboundPayloadJSON(t *testing.T) {
	body := []byte(`{"conversation_id":"conv_9","caller_id":"+447700900123","agent_id":"agent_abc"}`)
	p := ParseInboundPayload(body, "application/json")

	if p.ConversationID != "conv_9" {
		t.Fatalf("conversation id = %q", p.ConversationID)
	}
	if p.CallerPhone != "+447700900123" {
		t.Fatalf("caller phone = %q", p.CallerPhone)
	}
	if p.AgentID != "agent_abc" {
		t.Fatalf("agent id = %q", p.AgentID)
	}
}

func TestParseInboundPayloadNestedDynamicVariables(t *testing.T) {
	body := []byte(`{
		"conversation_initiation_client_data": {
			"dynamic_variables": {
				"system__caller_id": "+447700900456",
				"system__call_sid": "CA123"
			}
		}
	}`)
	p := ParseInboundPayload(body, "application/json")

	if p.CallerPhone != "+447700900456" {
		t.Fatalf("caller phone = %q", p.CallerPhone)
	}
	if p.CallSID != "CA123" {
		t.Fatalf("call sid = %q", p.CallSID)
	}
}

func TestParseInboundPayloadForm(t *testing.T) {
	body := []byte("caller_id=%2B447700900789&conversation_id=conv_f")
	p := ParseInboundPayload(body, "application/x-www-form-urlencoded")

	if p.CallerPhone != "+447700900789" {
		t.Fatalf("caller phone = %q", p.CallerPhone)
	}
	if p.ConversationID != "conv_f" {
		t.Fatalf("conversation id = %q", p.ConversationID)
	}
}

func TestParseTranscriptPayloadTurnArray(t *testing.T) {
	body := []byte(`{
		"data": {
			"conversation_id": "conv_t",
			"transcript": [
				{"role": "agent", "message": "Hi, this is Charlie."},
				{"role": "user", "message": "Hello."},
				{"role": "agent", "message": ""}
			],
			"metadata": {"call_duration_secs": 42}
		}
	}`)
	p := ParseTranscriptPayload(body, "application/json")

	if p.ConversationID != "conv_t" {
		t.Fatalf("conversation id = %q", p.ConversationID)
	}
	want := "agent: Hi, this is Charlie.\nuser: Hello."
	if p.Transcript != want {
		t.Fatalf("transcript = %q, want %q", p.Transcript, want)
	}
	if p.DurationSeconds == nil || *p.DurationSeconds != 42 {
		t.Fatalf("duration = %v", p.DurationSeconds)
	}
}

func TestParseTranscriptPayloadFlatString(t *testing.T) {
	body := []byte(`{"conversation_id":"conv_s","transcript":"agent: hello\nuser: hi"}`)
	p := ParseTranscriptPayload(body, "application/json")

	if p.Transcript != "agent: hello\nuser: hi" {
		t.Fatalf("transcript = %q", p.Transcript)
	}
}

func TestParseTranscriptPayloadEmpty(t *testing.T) {
	p := ParseTranscriptPayload([]byte(`{}`), "application/json")
	if p.ConversationID != "" || p.Transcript != "" || p.DurationSeconds != nil {
		t.Fatalf("expected empty payload, got %+v", p)
	}
}

func TestSanitizeAgentID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"agent_abc123", "agent_abc123"},
		{"  agent_abc123  ", "agent_abc123"},
		{"https://elevenlabs.io/app/talk-to?agent_id=agent_xyz", "agent_xyz"},
		{"wss://api.elevenlabs.io/v1/convai/conversation/agent_ws1", "agent_ws1"},
		{"convai/agent_seg/extra", "agent_seg"},
		{"", ""},
	}
	for _, c := range cases {
		if got := sanitizeAgentID(c.in); got != c.want {
			t.Fatalf("sanitizeAgentID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
