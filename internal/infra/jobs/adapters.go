package jobs

import (
	"context"
)

// EnqueuerAdapter adapts Client to the application layer's enqueuer
// interface, keeping asynq payload types out of the app package.
type EnqueuerAdapter struct {
	client *Client
}

// NewEnqueuerAdapter creates a new EnqueuerAdapter.
func NewEnqueuerAdapter(client *Client) *EnqueuerAdapter {
	return &EnqueuerAdapter{client: client}
}

// EnqueueAnalysisRun submits a dynamic analysis run to the job queue.
func (a *EnqueuerAdapter) EnqueueAnalysisRun(ctx context.Context, runID, agentID string) error {
	return a.client.EnqueueAnalysisRun(ctx, AnalysisRunPayload{
		RunID:   runID,
		AgentID: agentID,
	})
}
