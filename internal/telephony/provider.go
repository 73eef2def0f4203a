// Package telephony places outbound PSTN calls and renders the call-control
// documents that bridge an answered call into the voice agent.
package telephony

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"lead-call-platform/internal/calls"
)

// Dialer places an outbound call and returns the provider's call SID.
// Implementations must not block past the context deadline.
type Dialer interface {
	Dial(ctx context.Context, leadID, toNumber string) (string, error)
}

// StatusCallback is a telephony status webhook decoded from its form body.
type StatusCallback struct {
	CallSID         string
	CallStatus      string
	To              string
	From            string
	DurationSeconds *int
}

func ParseStatusCallback(form url.Values) StatusCallback {
	cb := StatusCallback{
		CallSID:    form.Get("CallSid"),
		CallStatus: strings.ToLower(form.Get("CallStatus")),
		To:         form.Get("To"),
		From:       form.Get("From"),
	}
	if raw := form.Get("CallDuration"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cb.DurationSeconds = &n
		}
	}
	return cb
}

// MapStatus folds the provider's status vocabulary onto the call lifecycle.
// Unknown statuses map to empty, meaning no transition.
func MapStatus(providerStatus string) calls.Status {
	switch strings.ToLower(providerStatus) {
	case "queued", "initiated", "ringing":
		return calls.StatusInitiated
	case "in-progress", "answered":
		return calls.StatusInProgress
	case "completed":
		return calls.StatusCompleted
	case "busy", "no-answer", "failed", "canceled":
		return calls.StatusFailed
	default:
		return ""
	}
}
