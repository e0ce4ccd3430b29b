// Package jobs provides background job definitions and handlers using Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/agentshield/api/pkg/logger"
)

// Task types for analysis jobs
const (
	TypeAnalysisRun = "analysis:run"
)

// AnalysisRunPayload contains data for executing a dynamic analysis run.
type AnalysisRunPayload struct {
	RunID   string `json:"run_id"`
	AgentID string `json:"agent_id"`
}

// NewAnalysisRunTask creates a new dynamic analysis run task.
func NewAnalysisRunTask(payload AnalysisRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis run payload: %w", err)
	}
	return asynq.NewTask(
		TypeAnalysisRun,
		data,
		asynq.MaxRetry(0),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("analysis"),
	), nil
}

// AnalysisProcessor executes a dynamic analysis run end to end: marking the
// run as running, analyzing unanalyzed sessions, emitting recommendations,
// and completing or failing the run.
type AnalysisProcessor interface {
	ProcessRun(ctx context.Context, runID, agentID string) error
}

// AnalysisTaskHandler handles dynamic analysis tasks.
type AnalysisTaskHandler struct {
	processor AnalysisProcessor
	logger    *logger.Logger
}

// NewAnalysisTaskHandler creates a new handler for analysis tasks.
func NewAnalysisTaskHandler(processor AnalysisProcessor, log *logger.Logger) *AnalysisTaskHandler {
	return &AnalysisTaskHandler{
		processor: processor,
		logger:    log.With("component", "analysis_task_handler"),
	}
}

// RegisterHandlers registers analysis task handlers on the mux.
func (h *AnalysisTaskHandler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeAnalysisRun, h.HandleAnalysisRun)
}

// HandleAnalysisRun processes a dynamic analysis run task.
func (h *AnalysisTaskHandler) HandleAnalysisRun(ctx context.Context, t *asynq.Task) error {
	var payload AnalysisRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal analysis run payload: %w", err)
	}

	h.logger.Info("processing analysis run",
		"run_id", payload.RunID,
		"agent_id", payload.AgentID,
	)

	if err := h.processor.ProcessRun(ctx, payload.RunID, payload.AgentID); err != nil {
		h.logger.Error("analysis run failed",
			"run_id", payload.RunID,
			"agent_id", payload.AgentID,
			"error", err,
		)
		return fmt.Errorf("failed to process analysis run: %w", err)
	}

	h.logger.Info("analysis run completed",
		"run_id", payload.RunID,
		"agent_id", payload.AgentID,
	)
	return nil
}
