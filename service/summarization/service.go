package summarization

import (
	"context"
	"converse-backend/model"
	"converse-backend/service/modelclient"
	"converse-backend/service/taskmodel"
	"fmt"
)

// Result carries the produced summary plus the identity of the model that
// produced it, so the caller can account usage against the right pair.
type Result struct {
	Summary     string
	Usage       model.TokenUsage
	AssistantID string
	Model       string
}

// Service resolves the task model and runs the summarizer against it. The
// rollback pair is used when no task model is designated.
type Service struct {
	Resolver  taskmodel.Resolver
	NewClient func(assistant *model.Assistant, modelID string) (*modelclient.Client, error)
}

func NewService(resolver taskmodel.Resolver) *Service {
	return &Service{
		Resolver:  resolver,
		NewClient: modelclient.New,
	}
}

func (s *Service) SummarizeWithTaskModel(ctx context.Context, rollback taskmodel.Ref, messages []model.Message, previousSummary string) (*Result, error) {
	resolved, err := s.Resolver.Resolve(ctx, rollback)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task model: %w", err)
	}

	client, err := s.NewClient(resolved.Assistant, resolved.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create task model client: %w", err)
	}

	summary, usage, err := Summarize(ctx, client, messages, previousSummary)
	if err != nil {
		return nil, err
	}

	return &Result{
		Summary:     summary,
		Usage:       usage,
		AssistantID: resolved.Assistant.AssistantID,
		Model:       resolved.Model,
	}, nil
}
