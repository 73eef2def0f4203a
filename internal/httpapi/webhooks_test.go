package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"lead-call-platform/internal/calls"
	"lead-call-platform/internal/config"
	"lead-call-platform/internal/correlation"
	"lead-call-platform/internal/jobs"
	"lead-call-platform/internal/leads"
	"lead-call-platform/internal/promptcache"

	"github.com/gin-gonic/gin"
)

type captureEnqueuer struct {
	payloads []jobs.AnalyzeTranscriptPayload
}

func (e *captureEnqueuer) EnqueueAnalyzeTranscript(ctx context.Context, p jobs.AnalyzeTranscriptPayload) error {
	e.payloads = append(e.payloads, p)
	return nil
}

type testEnv struct {
	handlers Handlers
	leads    *leads.Service
	calls    *calls.Service
	enqueued *captureEnqueuer
	router   *gin.Engine
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	leadSvc := leads.NewService(leads.NewMemoryRepo())
	callSvc := calls.NewService(calls.NewMemoryRepo())
	enq := &captureEnqueuer{}

	h := Handlers{
		Cfg:         cfg,
		Leads:       leadSvc,
		Calls:       callSvc,
		Correlation: correlation.NewEngine(leadSvc, callSvc),
		Prompts:     promptcache.NewMemory(promptcache.DefaultTTL),
		Jobs:        enq,
	}

	r := gin.New()
	r.POST("/webhooks/leads", h.LeadIntake)
	r.POST("/webhooks/agent/personalization", h.AgentPersonalization)
	r.GET("/webhooks/agent/personalization", h.AgentPersonalizationProbe)
	r.POST("/webhooks/agent/post-call", h.AgentPostCall)
	r.POST("/webhooks/twilio/status", h.TwilioStatus)
	r.POST("/twiml/answer", h.TwimlAnswer)

	return &testEnv{handlers: h, leads: leadSvc, calls: callSvc, enqueued: enq, router: r}
}

func postJSON(t *testing.T, r *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLeadIntakeRequiresSecret(t *testing.T) {
	cfg := config.Config{}
	cfg.Webhook.LeadIntakeSecret = "hush"
	env := newTestEnv(t, cfg)

	if w := postJSON(t, env.router, "/webhooks/leads", `{"name":"Jess"}`, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret: status %d", w.Code)
	}

	w := postJSON(t, env.router, "/webhooks/leads", `{"name":"Jess","phone":"07700 900123"}`,
		map[string]string{"X-Webhook-Secret": "hush"})
	if w.Code != http.StatusCreated {
		t.Fatalf("with secret: status %d body %s", w.Code, w.Body.String())
	}

	all, _ := env.leads.List(context.Background())
	if len(all) != 1 || all[0].Phone != "+447700900123" {
		t.Fatalf("lead not stored normalized: %+v", all)
	}
}

func TestAgentPersonalizationKnownCaller(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	l, _ := env.leads.Create(context.Background(), leads.CreateRequest{Name: "Sam", Phone: "+447700900123"})

	w := postJSON(t, env.router, "/webhooks/agent/personalization",
		`{"caller_id":"+447700900123","conversation_id":"conv_1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	var resp struct {
		Type             string            `json:"type"`
		DynamicVariables map[string]string `json:"dynamic_variables"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Type != "conversation_initiation_client_data" {
		t.Fatalf("type = %q", resp.Type)
	}
	if resp.DynamicVariables["customer_name"] != "Sam" {
		t.Fatalf("customer_name = %q", resp.DynamicVariables["customer_name"])
	}

	call, ok, _ := env.calls.GetByConversationID(context.Background(), "conv_1")
	if !ok || call.LeadID != l.ID {
		t.Fatalf("in-progress call not recorded: ok=%v call=%+v", ok, call)
	}
}

func TestAgentPersonalizationNoIdentifiersStill200(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	w := postJSON(t, env.router, "/webhooks/agent/personalization", `{}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "system_prompt") {
		t.Fatalf("generic variables missing: %s", w.Body.String())
	}
}

func TestAgentPostCallAttachesAndEnqueues(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	ctx := context.Background()
	l, _ := env.leads.Create(ctx, leads.CreateRequest{Name: "Sam", Phone: "+447700900123"})
	c, _ := env.calls.Create(ctx, calls.CreateParams{
		LeadID: l.ID, ConversationID: "conv_1", Status: calls.StatusInProgress,
	})

	w := postJSON(t, env.router, "/webhooks/agent/post-call",
		`{"conversation_id":"conv_1","transcript":"agent: hello\nuser: hi"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	got, _ := env.calls.Get(ctx, c.ID)
	if !got.HasTranscript() || got.Status != calls.StatusCompleted {
		t.Fatalf("transcript not attached: %+v", got)
	}
	if len(env.enqueued.payloads) != 1 || env.enqueued.payloads[0].CallID != c.ID {
		t.Fatalf("analysis not enqueued: %+v", env.enqueued.payloads)
	}
}

func TestAgentPostCallUnmatchedStill200(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	w := postJSON(t, env.router, "/webhooks/agent/post-call",
		`{"conversation_id":"conv_orphan","transcript":"user: hi"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if len(env.enqueued.payloads) != 0 {
		t.Fatalf("discarded transcript must not enqueue analysis")
	}
}

func TestAgentWebhookSignatureEnforced(t *testing.T) {
	cfg := config.Config{}
	cfg.Webhook.AgentSecret = "topsecret"
	env := newTestEnv(t, cfg)

	w := postJSON(t, env.router, "/webhooks/agent/post-call",
		`{"conversation_id":"conv_1","transcript":"hi"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned request accepted: status %d", w.Code)
	}
}

func TestTwilioStatusTransitions(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	ctx := context.Background()
	l, _ := env.leads.Create(ctx, leads.CreateRequest{Name: "Sam"})
	c, _ := env.calls.Create(ctx, calls.CreateParams{LeadID: l.ID, ProviderCallID: "CA123"})

	form := url.Values{"CallSid": {"CA123"}, "CallStatus": {"in-progress"}}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	got, _ := env.calls.Get(ctx, c.ID)
	if got.Status != calls.StatusInProgress {
		t.Fatalf("call status = %s", got.Status)
	}

	form = url.Values{"CallSid": {"CA123"}, "CallStatus": {"completed"}, "CallDuration": {"45"}}
	req = httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	got, _ = env.calls.Get(ctx, c.ID)
	if got.Status != calls.StatusCompleted || got.DurationSeconds == nil || *got.DurationSeconds != 45 {
		t.Fatalf("completed transition: %+v", got)
	}
}

func TestTwilioStatusUnknownCallAcks(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	form := url.Values{"CallSid": {"CA999"}, "CallStatus": {"completed"}}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
}

func TestTwimlAnswerBridges(t *testing.T) {
	cfg := config.Config{}
	cfg.Agent.WSURL = "wss://agent.example/convo"
	env := newTestEnv(t, cfg)
	l, _ := env.leads.Create(context.Background(), leads.CreateRequest{Name: "Sam", Phone: "+447700900123"})

	req := httptest.NewRequest(http.MethodPost, "/twiml/answer?lead_id="+l.ID, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "wss://agent.example/convo") {
		t.Fatalf("stream url missing:\n%s", body)
	}
	if !strings.Contains(body, `name="lead_id"`) || !strings.Contains(body, `name="prompt_ref"`) {
		t.Fatalf("stream parameters missing:\n%s", body)
	}
}

func TestTwimlAnswerUnknownLeadHangsUp(t *testing.T) {
	cfg := config.Config{}
	cfg.Agent.WSURL = "wss://agent.example/convo"
	env := newTestEnv(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/twiml/answer?lead_id=nope", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Hangup>") {
		t.Fatalf("expected hangup document:\n%s", w.Body.String())
	}
}
