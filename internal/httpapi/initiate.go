package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"lead-call-platform/internal/agent"
	"lead-call-platform/internal/calls"
	"lead-call-platform/internal/leads"
	"lead-call-platform/internal/promptcache"
	"lead-call-platform/internal/voiceagent"
	"lead-call-platform/pkg/logger"
	"lead-call-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// dialSlotTTL bounds how long a lead's dial slot stays held if the release
// path never runs. Long enough for initiation, short enough to self-heal.
const dialSlotTTL = 2 * time.Minute

var errNoDialSlot = errors.New("call already being placed for this lead")

// InitiateCall places an outbound call to a lead. The agent provider's own
// telephony is preferred; the PSTN dialer with a TwiML bridge is the
// fallback. A per-lead slot in Redis stops a webhook burst from dialing the
// same person twice.
func (h Handlers) InitiateCall(c *gin.Context) {
	ctx := c.Request.Context()

	l, err := h.Leads.Get(ctx, c.Param("lead_id"))
	if err != nil {
		abortLeadErr(c, err)
		return
	}

	call, err := h.placeCall(ctx, l)
	switch {
	case errors.Is(err, errNoDialSlot):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, call)
}

func (h Handlers) placeCall(ctx context.Context, l leads.Lead) (calls.Call, error) {
	if l.Phone == "" {
		return calls.Call{}, errors.New("lead has no phone number")
	}

	if h.Redis != nil {
		ok, err := utils.AcquireDialSlot(ctx, h.Redis, "dial_slot:"+l.ID, 1, dialSlotTTL)
		if err != nil {
			return calls.Call{}, err
		}
		if !ok {
			return calls.Call{}, errNoDialSlot
		}
	}

	call, err := h.dial(ctx, l)
	if err != nil && h.Redis != nil {
		if relErr := utils.ReleaseDialSlot(ctx, h.Redis, "dial_slot:"+l.ID); relErr != nil {
			logger.From(ctx).Warn("dial slot release failed", "lead_id", l.ID, "error", relErr)
		}
	}
	return call, err
}

func (h Handlers) dial(ctx context.Context, l leads.Lead) (calls.Call, error) {
	systemPrompt := agent.SystemPrompt(l)
	h.prewarmPrompt(ctx, l, systemPrompt)

	call, err := h.Calls.Create(ctx, calls.CreateParams{
		LeadID:       l.ID,
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		return calls.Call{}, err
	}

	patch, err := h.dialProvider(ctx, l)
	if err != nil {
		if _, failErr := h.Calls.MarkFailed(ctx, call.ID); failErr != nil {
			logger.From(ctx).Error("failed call not marked", "call_id", call.ID, "error", failErr)
		}
		return calls.Call{}, err
	}
	return h.Calls.Update(ctx, call.ID, patch)
}

// dialProvider places the call and returns the identifier the provider
// handed back. The agent's own telephony wins when it works; any failure
// other than a missing configuration falls through to the PSTN dialer.
func (h Handlers) dialProvider(ctx context.Context, l leads.Lead) (calls.Patch, error) {
	if h.Agent != nil {
		conversationID, err := h.Agent.OutboundCall(ctx, l.Phone)
		if err == nil {
			// Conversation-id assignment is the provider acknowledgment.
			inProgress := calls.StatusInProgress
			return calls.Patch{ConversationID: &conversationID, Status: &inProgress}, nil
		}
		if !errors.Is(err, voiceagent.ErrNotConfigured) {
			logger.From(ctx).Warn("agent outbound call failed, trying dialer", "lead_id", l.ID, "error", err)
		}
	}

	if h.Dialer == nil {
		return calls.Patch{}, errors.New("no outbound call path configured")
	}
	sid, err := h.Dialer.Dial(ctx, l.ID, l.Phone)
	if err != nil {
		return calls.Patch{}, err
	}
	return calls.Patch{ProviderCallID: &sid}, nil
}

// prewarmPrompt computes the agent variables at dial time so the TwiML
// answer path can hand over a ready reference instead of rebuilding. Cache
// failures are logged and ignored; the answer path rebuilds on a miss.
func (h Handlers) prewarmPrompt(ctx context.Context, l leads.Lead, systemPrompt string) string {
	if h.Prompts == nil {
		return ""
	}
	entry := promptcache.Entry{
		LeadID:       l.ID,
		SystemPrompt: systemPrompt,
		FirstMessage: agent.FirstMessage(l),
		Variables:    agent.DynamicVariables(l),
	}
	ref := promptcache.Ref(entry)
	if err := h.Prompts.Put(ctx, ref, entry); err != nil {
		logger.From(ctx).Warn("prompt prewarm failed", "lead_id", l.ID, "error", err)
		return ""
	}
	return ref
}
