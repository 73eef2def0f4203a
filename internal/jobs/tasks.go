// Package jobs holds the background task definitions and the worker that
// processes them. Transcript analysis runs here so webhook handlers can
// acknowledge the provider without waiting on the LLM.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAnalyzeTranscript = "calls.analyze_transcript"

type AnalyzeTranscriptPayload struct {
	CallID string `json:"callId"`
	LeadID string `json:"leadId"`
}

func NewAnalyzeTranscriptTask(payload AnalyzeTranscriptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyzeTranscript, data), nil
}

func ParseAnalyzeTranscriptPayload(task *asynq.Task) (AnalyzeTranscriptPayload, error) {
	var payload AnalyzeTranscriptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AnalyzeTranscriptPayload{}, err
	}
	return payload, nil
}
