package voiceagent

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// Provider webhook timestamps drift in practice; replays are tolerated
	// within this window.
	signaturePastTolerance   = 2 * time.Hour
	signatureFutureTolerance = 10 * time.Minute
)

// SignatureHeader returns the first signature header present on the request.
// The provider has shipped both spellings.
func SignatureHeader(get func(string) string) string {
	if v := get("Elevenlabs-Signature"); v != "" {
		return v
	}
	return get("X-Elevenlabs-Signature")
}

// VerifySignature checks a "t=<unix>,v0=<hex>" header against the raw body.
// The signed message is "<t>.<body>"; older provider versions signed the body
// alone, so that scheme is accepted as a fallback.
func VerifySignature(body []byte, header, secret string, now time.Time) bool {
	if secret == "" || header == "" {
		return false
	}

	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			ts = strings.TrimPrefix(part, "t=")
		case strings.HasPrefix(part, "v0="):
			sig = strings.TrimPrefix(part, "v0=")
		}
	}
	if sig == "" {
		return false
	}

	if ts != "" {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return false
		}
		at := time.Unix(unix, 0)
		if now.Sub(at) > signaturePastTolerance || at.Sub(now) > signatureFutureTolerance {
			return false
		}

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(ts + "."))
		mac.Write(body)
		if hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(strings.ToLower(sig))) {
			return true
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(strings.ToLower(sig)))
}

// InboundPayload is what the personalization webhook could extract from a
// request. Any field may be empty.
type InboundPayload struct {
	ConversationID string
	CallerPhone    string
	AgentID        string
	CallSID        string
}

// TranscriptPayload is the post-call webhook's extracted content.
type TranscriptPayload struct {
	ConversationID  string
	ProviderCallID  string
	CallerPhone     string
	Transcript      string
	DurationSeconds *int
}

// firstString walks candidate keys across the top level and common nested
// containers, returning the first non-empty string it finds.
func firstString(doc map[string]any, keys ...string) string {
	containers := []map[string]any{doc}
	for _, nested := range []string{"data", "metadata", "conversation_initiation_client_data"} {
		if m, ok := doc[nested].(map[string]any); ok {
			containers = append(containers, m)
			if dv, ok := m["dynamic_variables"].(map[string]any); ok {
				containers = append(containers, dv)
			}
			if meta, ok := m["metadata"].(map[string]any); ok {
				containers = append(containers, meta)
			}
		}
	}
	for _, key := range keys {
		for _, c := range containers {
			if v, ok := c[key]; ok {
				switch t := v.(type) {
				case string:
					if s := strings.TrimSpace(t); s != "" {
						return s
					}
				case float64:
					return strconv.FormatFloat(t, 'f', -1, 64)
				}
			}
		}
	}
	return ""
}

func decodeBody(body []byte, contentType string) map[string]any {
	doc := map[string]any{}
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(body, &doc); err == nil {
			return doc
		}
	}
	if strings.Contains(contentType, "form") || strings.Contains(trimmed, "=") {
		if values, err := url.ParseQuery(trimmed); err == nil {
			for k := range values {
				doc[k] = values.Get(k)
			}
		}
	}
	return doc
}

// ParseInboundPayload pulls identifiers out of a personalization request.
// The provider's payload shape varies by telephony integration, so every
// known spelling is tried.
func ParseInboundPayload(body []byte, contentType string) InboundPayload {
	doc := decodeBody(body, contentType)
	return InboundPayload{
		ConversationID: firstString(doc, "conversation_id", "conversationId"),
		CallerPhone: firstString(doc,
			"caller_id", "caller_number", "from", "user_phone",
			"customer_phone", "caller_phone", "phone", "system__caller_id"),
		AgentID: firstString(doc, "agent_id", "agentId"),
		CallSID: firstString(doc, "call_sid", "CallSid", "system__call_sid"),
	}
}

// ParseTranscriptPayload extracts the post-call conversation record. The
// transcript arrives either as a flat string or as an array of turn objects.
func ParseTranscriptPayload(body []byte, contentType string) TranscriptPayload {
	doc := decodeBody(body, contentType)

	p := TranscriptPayload{
		ConversationID: firstString(doc, "conversation_id", "conversationId"),
		ProviderCallID: firstString(doc, "call_sid", "CallSid", "system__call_sid", "provider_call_id"),
		CallerPhone: firstString(doc,
			"caller_id", "caller_number", "from", "user_phone",
			"customer_phone", "caller_phone", "phone", "system__caller_id"),
		Transcript: transcriptText(doc),
	}

	if secs := firstString(doc, "call_duration_secs", "duration_seconds", "call_duration"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil {
			p.DurationSeconds = &n
		}
	}
	return p
}

func transcriptText(doc map[string]any) string {
	containers := []map[string]any{doc}
	if m, ok := doc["data"].(map[string]any); ok {
		containers = append(containers, m)
		if a, ok := m["analysis"].(map[string]any); ok {
			containers = append(containers, a)
		}
	}
	for _, c := range containers {
		switch t := c["transcript"].(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case []any:
			var b strings.Builder
			for _, raw := range t {
				turn, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				role, _ := turn["role"].(string)
				msg, _ := turn["message"].(string)
				if msg == "" {
					continue
				}
				if role == "" {
					role = "unknown"
				}
				b.WriteString(role)
				b.WriteString(": ")
				b.WriteString(msg)
				b.WriteString("\n")
			}
			if b.Len() > 0 {
				return strings.TrimSpace(b.String())
			}
		}
		if s, ok := c["transcript_summary"].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
