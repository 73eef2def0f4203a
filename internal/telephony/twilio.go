package telephony

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"lead-call-platform/internal/config"
	"lead-call-platform/pkg/logger"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrDialerNotConfigured = errors.New("telephony dialer not configured")

// statusCallbackEvents are the lifecycle transitions the provider reports
// back to the status webhook.
var statusCallbackEvents = []string{"initiated", "ringing", "answered", "completed"}

// TwilioDialer places calls through the Twilio REST API. Answered calls are
// pointed at the TwiML answer endpoint, which bridges them to the agent.
type TwilioDialer struct {
	client        *twilio.RestClient
	fromNumber    string
	publicBaseURL string
}

func NewTwilioDialer(cfg config.TwilioConfig, publicBaseURL string) (*TwilioDialer, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, ErrDialerNotConfigured
	}
	if publicBaseURL == "" {
		return nil, fmt.Errorf("%w: public base url required for callbacks", ErrDialerNotConfigured)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioDialer{
		client:        client,
		fromNumber:    cfg.FromNumber,
		publicBaseURL: publicBaseURL,
	}, nil
}

func (d *TwilioDialer) Dial(ctx context.Context, leadID, toNumber string) (string, error) {
	if toNumber == "" {
		return "", fmt.Errorf("dial: empty destination number")
	}

	answerURL := fmt.Sprintf("%s/twiml/answer?lead_id=%s", d.publicBaseURL, url.QueryEscape(leadID))

	params := &twilioapi.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(d.fromNumber)
	params.SetUrl(answerURL)
	params.SetMethod("POST")
	params.SetStatusCallback(d.publicBaseURL + "/webhooks/twilio/status")
	params.SetStatusCallbackMethod("POST")
	params.SetStatusCallbackEvent(statusCallbackEvents)
	params.SetMachineDetection("Enable")
	params.SetMachineDetectionTimeout(3)

	resp, err := d.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("create call: %w", err)
	}
	if resp.Sid == nil || *resp.Sid == "" {
		return "", fmt.Errorf("create call: provider returned no call sid")
	}

	logger.From(ctx).Info("outbound call placed",
		"lead_id", leadID, "call_sid", *resp.Sid)
	return *resp.Sid, nil
}
