// Package correlation ties webhook payloads back to lead and call records.
// The voice-agent provider offers no single stable identifier across its
// personalization and post-call webhooks, so both directions run a cascade
// of matching strategies from most to least reliable.
package correlation

import (
	"context"

	"lead-call-platform/internal/agent"
	"lead-call-platform/internal/calls"
	"lead-call-platform/internal/leads"
	"lead-call-platform/internal/voiceagent"
	"lead-call-platform/pkg/logger"
	"lead-call-platform/pkg/phone"
)

// Strategy names which cascade step produced a match. Logged on every
// webhook so misattribution incidents can be traced.
type Strategy string

const (
	StrategyConversationID Strategy = "conversation_id"
	StrategyPhone          Strategy = "phone"
	StrategyProviderCallID Strategy = "provider_call_id"
	StrategyRecency        Strategy = "recency"
	StrategyNone           Strategy = "none"
)

type Engine struct {
	leads *leads.Service
	calls *calls.Service
}

func NewEngine(leadSvc *leads.Service, callSvc *calls.Service) *Engine {
	return &Engine{leads: leadSvc, calls: callSvc}
}

// Resolution is the personalization outcome: the dynamic variables the agent
// needs, plus whatever records the cascade found or created on the way.
type Resolution struct {
	Strategy  Strategy
	Lead      leads.Lead
	HasLead   bool
	Call      calls.Call
	HasCall   bool
	Variables map[string]string
}

// Resolve identifies the lead behind an incoming personalization request.
// Order: exact conversation-id match, then caller-phone suffix match, then a
// generic fallback. A phone match with no stored lead creates an Unknown
// Caller record so the conversation still gets captured. This never fails
// the call: worst case the agent runs with generic variables.
func (e *Engine) Resolve(ctx context.Context, p voiceagent.InboundPayload) (Resolution, error) {
	log := logger.From(ctx)

	if p.ConversationID != "" {
		c, ok, err := e.calls.GetByConversationID(ctx, p.ConversationID)
		if err != nil {
			return Resolution{}, err
		}
		if ok {
			l, err := e.leads.Get(ctx, c.LeadID)
			if err == nil {
				log.Info("caller resolved", "strategy", StrategyConversationID,
					"lead_id", l.ID, "call_id", c.ID)
				return Resolution{
					Strategy: StrategyConversationID,
					Lead:     l, HasLead: true,
					Call: c, HasCall: true,
					Variables: agent.DynamicVariables(l),
				}, nil
			}
			log.Warn("call references missing lead", "call_id", c.ID, "lead_id", c.LeadID)
		}
	}

	if p.CallerPhone != "" {
		l, found, err := e.leads.FindByPhone(ctx, p.CallerPhone)
		if err != nil {
			return Resolution{}, err
		}

		if !found {
			l, err = e.leads.Create(ctx, leads.CreateRequest{
				Name:  "Unknown Caller",
				Phone: p.CallerPhone,
			})
			if err != nil {
				return Resolution{}, err
			}
			c, err := e.findOrCreateInboundCall(ctx, l, p)
			if err != nil {
				return Resolution{}, err
			}
			log.Info("unknown caller recorded", "lead_id", l.ID, "call_id", c.ID,
				"phone", phone.Digits(p.CallerPhone))
			return Resolution{
				Strategy: StrategyPhone,
				Lead:     l, HasLead: true,
				Call: c, HasCall: true,
				Variables: agent.UnknownCallerVariables(p.CallerPhone),
			}, nil
		}

		c, err := e.findOrCreateInboundCall(ctx, l, p)
		if err != nil {
			return Resolution{}, err
		}
		log.Info("caller resolved", "strategy", StrategyPhone, "lead_id", l.ID, "call_id", c.ID)
		return Resolution{
			Strategy: StrategyPhone,
			Lead:     l, HasLead: true,
			Call: c, HasCall: true,
			Variables: agent.DynamicVariables(l),
		}, nil
	}

	// No usable identifier. The agent still needs variables, so it gets the
	// generic set; nothing is recorded and the post-call webhook will have
	// to rely on its own cascade.
	log.Warn("personalization request carried no identifiers")
	return Resolution{
		Strategy:  StrategyNone,
		Variables: agent.UnknownCallerVariables(""),
	}, nil
}

// findOrCreateInboundCall reuses any call already recorded under the
// payload's identifiers. A bridged outbound call holds its telephony SID
// before the agent connects, and the provider retries webhooks; both would
// otherwise insert a duplicate against the unique identifier columns.
func (e *Engine) findOrCreateInboundCall(ctx context.Context, l leads.Lead, p voiceagent.InboundPayload) (calls.Call, error) {
	if c, ok, err := e.calls.GetByConversationID(ctx, p.ConversationID); err != nil {
		return calls.Call{}, err
	} else if ok {
		return c, nil
	}
	if c, ok, err := e.calls.GetByProviderCallID(ctx, p.CallSID); err != nil {
		return calls.Call{}, err
	} else if ok {
		return c, nil
	}
	return e.calls.Create(ctx, calls.CreateParams{
		LeadID:         l.ID,
		ConversationID: p.ConversationID,
		ProviderCallID: p.CallSID,
		SystemPrompt:   agent.SystemPrompt(l),
		Status:         calls.StatusInProgress,
	})
}

// Attachment reports where a post-call transcript landed.
type Attachment struct {
	Strategy Strategy
	Call     calls.Call
	Attached bool
}

// AttachTranscript lands a post-call transcript on the call it belongs to.
// Strategies in order: the conversation id, the caller's phone against that
// lead's newest transcript-less call, the telephony call SID, and finally
// the newest in-progress transcript-less call anywhere. The last step can
// misattribute under concurrent calls and is logged accordingly. A payload
// nothing matches is discarded, not errored: the provider retries on
// non-2xx and a retry cannot succeed either.
func (e *Engine) AttachTranscript(ctx context.Context, p voiceagent.TranscriptPayload) (Attachment, error) {
	log := logger.From(ctx)
	if p.Transcript == "" {
		log.Warn("post-call payload carried no transcript", "conversation_id", p.ConversationID)
		return Attachment{Strategy: StrategyNone}, nil
	}

	if c, ok, err := e.calls.AttachTranscript(ctx, p.ConversationID, p.Transcript); err != nil {
		return Attachment{}, err
	} else if ok {
		return e.finishAttachment(ctx, c, p, StrategyConversationID)
	}

	if p.CallerPhone != "" {
		l, found, err := e.leads.FindByPhone(ctx, p.CallerPhone)
		if err != nil {
			return Attachment{}, err
		}
		if found {
			c, ok, err := e.calls.LatestWithoutTranscript(ctx, l.ID)
			if err != nil {
				return Attachment{}, err
			}
			if ok {
				if c, err = e.completeWithTranscript(ctx, c, p); err != nil {
					return Attachment{}, err
				}
				return e.finishAttachment(ctx, c, p, StrategyPhone)
			}
		}
	}

	if p.ProviderCallID != "" && p.ConversationID != "" {
		c, ok, err := e.calls.PromoteProviderCallID(ctx, p.ProviderCallID, p.ConversationID)
		if err != nil {
			return Attachment{}, err
		}
		if ok && !c.HasTranscript() {
			if c, err = e.completeWithTranscript(ctx, c, p); err != nil {
				return Attachment{}, err
			}
			return e.finishAttachment(ctx, c, p, StrategyProviderCallID)
		}
	}

	c, ok, err := e.calls.LatestInProgressWithoutTranscript(ctx)
	if err != nil {
		return Attachment{}, err
	}
	if ok {
		log.Warn("transcript attached by recency, verify attribution",
			"call_id", c.ID, "conversation_id", p.ConversationID)
		if c, err = e.completeWithTranscript(ctx, c, p); err != nil {
			return Attachment{}, err
		}
		return e.finishAttachment(ctx, c, p, StrategyRecency)
	}

	log.Warn("transcript discarded, no matching call",
		"conversation_id", p.ConversationID, "provider_call_id", p.ProviderCallID,
		"has_phone", p.CallerPhone != "", "chars", len(p.Transcript))
	return Attachment{Strategy: StrategyNone}, nil
}

// completeWithTranscript writes the transcript onto an already-located call
// and marks it completed, filling in any identifier the call was missing.
func (e *Engine) completeWithTranscript(ctx context.Context, c calls.Call, p voiceagent.TranscriptPayload) (calls.Call, error) {
	completed := calls.StatusCompleted
	patch := calls.Patch{Transcript: &p.Transcript, Status: &completed}
	if c.ConversationID == "" && p.ConversationID != "" {
		patch.ConversationID = &p.ConversationID
	}
	if c.ProviderCallID == "" && p.ProviderCallID != "" {
		patch.ProviderCallID = &p.ProviderCallID
	}
	return e.calls.Update(ctx, c.ID, patch)
}

func (e *Engine) finishAttachment(ctx context.Context, c calls.Call, p voiceagent.TranscriptPayload, strategy Strategy) (Attachment, error) {
	if p.DurationSeconds != nil {
		var err error
		if c, err = e.calls.Update(ctx, c.ID, calls.Patch{DurationSeconds: p.DurationSeconds}); err != nil {
			return Attachment{}, err
		}
	}
	if _, err := e.leads.StoreTranscript(ctx, c.LeadID, p.Transcript); err != nil {
		return Attachment{}, err
	}
	log := logger.WithLead(logger.WithCall(logger.From(ctx), c.ID), c.LeadID)
	log.Info("transcript correlated", "strategy", strategy)
	return Attachment{Strategy: strategy, Call: c, Attached: true}, nil
}
