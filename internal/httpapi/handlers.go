// Package httpapi wires HTTP endpoints to the internal services.
// Handlers stay thin: parse input, call a service, return JSON.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"lead-call-platform/internal/auth"
	"lead-call-platform/internal/calls"
	"lead-call-platform/internal/config"
	"lead-call-platform/internal/correlation"
	"lead-call-platform/internal/jobs"
	"lead-call-platform/internal/leads"
	"lead-call-platform/internal/promptcache"
	"lead-call-platform/internal/telephony"
	"lead-call-platform/internal/voiceagent"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups HTTP handlers for dependency injection. Optional
// dependencies (dialer, agent client, enqueuer) may be nil; the endpoints
// that need them report not-configured instead of panicking.
type Handlers struct {
	Cfg         config.Config
	Auth        *auth.Manager
	Leads       *leads.Service
	Calls       *calls.Service
	Correlation *correlation.Engine
	Agent       *voiceagent.Client
	Dialer      telephony.Dialer
	Prompts     promptcache.Store
	Jobs        jobs.Enqueuer
	Redis       *redis.Client
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Leads ---

func (h Handlers) CreateLead(c *gin.Context) {
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
	c.JSON(http.StatusCreated, l)
}

func (h Handlers) GetLead(c *gin.Context) {
	l, err := h.Leads.Get(c.Request.Context(), c.Param("lead_id"))
	if err != nil {
		abortLeadErr(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h Handlers) ListLeads(c *gin.Context) {
	all, err := h.Leads.List(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lead listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": all})
}

// LeadPhase reports the progression state: current phase, what is missing
// and what is unconfirmed.
func (h Handlers) LeadPhase(c *gin.Context) {
	l, err := h.Leads.Get(c.Request.Context(), c.Param("lead_id"))
	if err != nil {
		abortLeadErr(c, err)
		return
	}
	c.JSON(http.StatusOK, leads.Evaluate(l))
}

// AdvanceLeadPhase re-evaluates and moves the lead one phase forward when
// the rules allow it. Safe to call repeatedly.
func (h Handlers) AdvanceLeadPhase(c *gin.Context) {
	l, advanced, err := h.Leads.Advance(c.Request.Context(), c.Param("lead_id"))
	if err != nil {
		abortLeadErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": l, "advanced": advanced})
}

type bookViewingRequest struct {
	Date  string `json:"viewing_date"`
	Time  string `json:"viewing_time"`
	Notes string `json:"notes,omitempty"`
}

func (h Handlers) BookViewing(c *gin.Context) {
	var req bookViewingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l, err := h.Leads.BookViewing(c.Request.Context(), c.Param("lead_id"), req.Date, req.Time, req.Notes)
	if err != nil {
		abortLeadErr(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h Handlers) ListViewings(c *gin.Context) {
	vs, err := h.Leads.Viewings(c.Request.Context(), c.Param("lead_id"))
	if err != nil {
		abortLeadErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewings": vs})
}

// --- Calls ---

func (h Handlers) GetCall(c *gin.Context) {
	call, err := h.Calls.Get(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, call)
}

func (h Handlers) ListCallsForLead(c *gin.Context) {
	list, err := h.Calls.ListForLead(c.Request.Context(), c.Param("lead_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": list})
}

func abortLeadErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, leads.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
	case errors.Is(err, leads.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid argument"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
