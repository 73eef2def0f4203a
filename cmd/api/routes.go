package main

import (
	"lead-call-platform/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Inbound webhooks. Each authenticates its own way: shared secret for
	// lead intake, HMAC signature for the agent provider, none for the
	// telephony callbacks (ack-only semantics).
	r.POST("/webhooks/leads", h.LeadIntake)
	r.POST("/webhooks/agent/personalization", h.AgentPersonalization)
	r.GET("/webhooks/agent/personalization", h.AgentPersonalizationProbe)
	r.POST("/webhooks/agent/post-call", h.AgentPostCall)
	r.POST("/webhooks/twilio/status", h.TwilioStatus)

	// Call-control callbacks from the telephony provider.
	r.POST("/twiml/answer", h.TwimlAnswer)

	// Prompt payload lookup for the media gateway.
	r.GET("/prompts/:ref", h.PromptByRef)

	// Token issuance.
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		leadsGroup := v1.Group("/leads")
		{
			leadsGroup.POST("", h.CreateLead)
			leadsGroup.GET("", h.ListLeads)
			leadsGroup.GET("/:lead_id", h.GetLead)
			leadsGroup.GET("/:lead_id/phase", h.LeadPhase)
			leadsGroup.POST("/:lead_id/phase/advance", h.AdvanceLeadPhase)
			leadsGroup.POST("/:lead_id/viewings", h.BookViewing)
			leadsGroup.GET("/:lead_id/viewings", h.ListViewings)
			leadsGroup.POST("/:lead_id/calls", h.InitiateCall)
			leadsGroup.GET("/:lead_id/calls", h.ListCallsForLead)
		}

		callsGroup := v1.Group("/calls")
		{
			callsGroup.GET("/:call_id", h.GetCall)
		}
	}
}
