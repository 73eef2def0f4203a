package jobs

import (
	"context"
	"errors"
	"log/slog"

	"lead-call-platform/internal/analyzer"
	"lead-call-platform/internal/calls"
	"lead-call-platform/internal/config"
	"lead-call-platform/internal/leads"
	"lead-call-platform/pkg/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	leads    *leads.Service
	calls    *calls.Service
	analyzer *analyzer.Analyzer
	log      *slog.Logger
}

func NewWorker(cfg config.RedisConfig, leadSvc *leads.Service, callSvc *calls.Service, an *analyzer.Analyzer, log *slog.Logger) *Worker {
	server := asynq.NewServer(redisClientOpt(cfg), asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{"default": 1},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		leads:    leadSvc,
		calls:    callSvc,
		analyzer: an,
		log:      log,
	}
	mux.HandleFunc(TaskAnalyzeTranscript, w.handleAnalyzeTranscript)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()
	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("job worker stopped", "error", err)
	}
}

// handleAnalyzeTranscript runs extraction over a completed call and applies
// the findings to the lead. Calls with no transcript or already analyzed are
// skipped without retry.
func (w *Worker) handleAnalyzeTranscript(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAnalyzeTranscriptPayload(task)
	if err != nil {
		return err
	}
	ctx = logger.With(ctx, logger.WithLead(logger.WithCall(w.log, payload.CallID), payload.LeadID))
	log := logger.From(ctx)

	if w.analyzer == nil {
		log.Warn("analyzer disabled, skipping transcript analysis")
		return nil
	}

	call, err := w.calls.Get(ctx, payload.CallID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			log.Warn("call vanished before analysis")
			return nil
		}
		return err
	}
	if !call.HasTranscript() || call.Analyzed {
		return nil
	}

	lead, err := w.leads.Get(ctx, call.LeadID)
	if err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			log.Warn("lead vanished before analysis")
			return nil
		}
		return err
	}

	result, err := w.analyzer.Analyze(ctx, call.Transcript, lead)
	if err != nil {
		return err
	}

	update := w.analyzer.ExtractUpdates(result)
	updated, info, err := w.leads.ApplyAgentUpdate(ctx, lead.ID, update)
	if err != nil {
		return err
	}
	if _, err := w.calls.MarkAnalyzed(ctx, call.ID); err != nil {
		return err
	}

	log.Info("transcript analysis applied",
		"phase", updated.Phase,
		"missing_fields", len(info.MissingFields),
		"unconfirmed_fields", len(info.UnconfirmedFields),
		"call_successful", result.CallOutcome.Successful)
	return nil
}
