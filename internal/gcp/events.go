package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/Lllllllleong/quizflow/internal/models"
)

// EventPublisher hands a pipeline event to whatever runs the next stage.
type EventPublisher interface {
	Publish(ctx context.Context, source, detailType string, detail any) error
}

// WorkflowPublisher starts a Cloud Workflows execution per event, passing the
// event envelope as the execution argument.
type WorkflowPublisher struct {
	client   *executions.Client
	workflow string
}

func NewWorkflowPublisher(client *executions.Client, projectID, location, workflowID string) *WorkflowPublisher {
	return &WorkflowPublisher{
		client:   client,
		workflow: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}
}

func (p *WorkflowPublisher) Publish(ctx context.Context, source, detailType string, detail any) error {
	payload, err := json.Marshal(models.EventEnvelope{Source: source, DetailType: detailType, Detail: detail})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: p.workflow,
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	if _, err := p.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}
