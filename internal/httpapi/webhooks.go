package httpapi

import (
	"io"
	"net/http"
	"time"

	"lead-call-platform/internal/agent"
	"lead-call-platform/internal/calls"
	"lead-call-platform/internal/jobs"
	"lead-call-platform/internal/leads"
	"lead-call-platform/internal/telephony"
	"lead-call-platform/internal/voiceagent"
	"lead-call-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const webhookSecretHeader = "X-Webhook-Secret"

// LeadIntake receives new leads from external capture forms. Authenticated
// by a shared secret header. When auto-dial is on, a lead with a phone
// number gets called immediately.
func (h Handlers) LeadIntake(c *gin.Context) {
	if secret := h.Cfg.Webhook.LeadIntakeSecret; secret != "" {
		if c.GetHeader(webhookSecretHeader) != secret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
	}

	var req leads.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	l, err := h.Leads.Create(c.Request.Context(), req)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lead creation failed"})
		return
	}

	resp := gin.H{"lead_id": l.ID, "phase": l.Phase}
	if h.Cfg.App.AutoDialNewLeads && l.Phone != "" {
		call, err := h.placeCall(c.Request.Context(), l)
		if err != nil {
			logger.FromGin(c).Warn("auto-dial failed", "lead_id", l.ID, "error", err)
			resp["call_error"] = err.Error()
		} else {
			resp["call_id"] = call.ID
		}
	}
	c.JSON(http.StatusCreated, resp)
}

// verifyAgentSignature enforces the provider's HMAC header when a secret is
// configured. Returns false after writing the response.
func (h Handlers) verifyAgentSignature(c *gin.Context, body []byte) bool {
	secret := h.Cfg.Webhook.AgentSecret
	if secret == "" || h.Cfg.Webhook.AgentSkipVerify {
		return true
	}
	header := voiceagent.SignatureHeader(c.GetHeader)
	if !voiceagent.VerifySignature(body, header, secret, time.Now()) {
		logger.FromGin(c).Warn("agent webhook signature rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return false
	}
	return true
}

// AgentPersonalization answers the provider's pre-call webhook with the
// dynamic variables for whoever is on the line. Misses still return 200
// with generic variables so the call proceeds.
func (h Handlers) AgentPersonalization(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if !h.verifyAgentSignature(c, body) {
		return
	}

	payload := voiceagent.ParseInboundPayload(body, c.ContentType())
	res, err := h.Correlation.Resolve(c.Request.Context(), payload)
	if err != nil {
		logger.FromGin(c).Error("personalization resolve failed", "error", err)
		c.JSON(http.StatusOK, gin.H{
			"type":              "conversation_initiation_client_data",
			"dynamic_variables": agent.UnknownCallerVariables(payload.CallerPhone),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type":              "conversation_initiation_client_data",
		"dynamic_variables": res.Variables,
	})
}

// AgentPersonalizationProbe serves provider configuration checks that hit
// the endpoint with GET.
func (h Handlers) AgentPersonalizationProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "hint": "POST this endpoint for conversation variables"})
}

// AgentPostCall receives the end-of-call transcript and runs the
// correlation cascade. Always acks 200; the provider retries on failure
// codes and a retry cannot do better than the cascade already did.
func (h Handlers) AgentPostCall(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if !h.verifyAgentSignature(c, body) {
		return
	}

	payload := voiceagent.ParseTranscriptPayload(body, c.ContentType())
	att, err := h.Correlation.AttachTranscript(c.Request.Context(), payload)
	if err != nil {
		logger.FromGin(c).Error("transcript attachment failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}
	if !att.Attached {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if h.Jobs != nil {
		if err := h.Jobs.EnqueueAnalyzeTranscript(c.Request.Context(), jobs.AnalyzeTranscriptPayload{
			CallID: att.Call.ID,
			LeadID: att.Call.LeadID,
		}); err != nil {
			logger.FromGin(c).Error("analysis enqueue failed", "call_id", att.Call.ID, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "strategy": att.Strategy})
}

// TwilioStatus drives call status transitions from the telephony provider's
// lifecycle callbacks.
func (h Handlers) TwilioStatus(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	cb := telephony.ParseStatusCallback(c.Request.PostForm)
	log := logger.FromGin(c).With("call_sid", cb.CallSID, "call_status", cb.CallStatus)

	if cb.CallSID == "" {
		log.Warn("status callback without call sid")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()
	call, ok, err := h.Calls.GetByProviderCallID(ctx, cb.CallSID)
	if err != nil {
		log.Error("status lookup failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}
	if !ok {
		log.Warn("status callback for unknown call")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	patch := calls.Patch{DurationSeconds: cb.DurationSeconds}
	if status := telephony.MapStatus(cb.CallStatus); status != "" && !call.Terminal() {
		patch.Status = &status
	}
	if _, err := h.Calls.Update(ctx, call.ID, patch); err != nil {
		log.Error("status update failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// TwimlAnswer is fetched by the telephony provider when the callee answers.
// It bridges the live call into the agent's conversation WebSocket, passing
// the prepared prompt reference so the media gateway can pick it up.
func (h Handlers) TwimlAnswer(c *gin.Context) {
	leadID := c.Query("lead_id")
	log := logger.FromGin(c).With("lead_id", leadID)
	ctx := c.Request.Context()

	l, err := h.Leads.Get(ctx, leadID)
	if err != nil {
		log.Warn("answer for unknown lead", "error", err)
		c.Data(http.StatusOK, "application/xml", []byte(telephony.FailureDocument("")))
		return
	}

	wsURL := h.Cfg.Agent.WSURL
	if h.Agent != nil {
		if signed, err := h.Agent.SignedConversationURL(ctx); err == nil {
			wsURL = signed
		} else {
			log.Warn("signed url fetch failed, using static ws url", "error", err)
		}
	}
	if wsURL == "" {
		log.Error("no agent websocket url available")
		c.Data(http.StatusOK, "application/xml", []byte(telephony.FailureDocument("")))
		return
	}

	ref := h.prewarmPrompt(ctx, l, agent.SystemPrompt(l))
	doc, err := telephony.BridgeDocument(wsURL, map[string]string{
		"prompt_ref":    ref,
		"lead_id":       l.ID,
		"customer_name": l.Name,
		"phase":         string(l.Phase),
	})
	if err != nil {
		log.Error("bridge document render failed", "error", err)
		c.Data(http.StatusOK, "application/xml", []byte(telephony.FailureDocument("")))
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(doc))
}

// PromptByRef exposes cached prompt payloads to the media gateway that
// terminates the agent WebSocket.
func (h Handlers) PromptByRef(c *gin.Context) {
	if h.Prompts == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "prompt cache disabled"})
		return
	}
	entry, ok, err := h.Prompts.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "prompt lookup failed"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "prompt expired or unknown"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
