package chat

import (
	"context"
	"converse-backend/model"
	"converse-backend/service/modelclient"
	"converse-backend/service/tools"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const unknownToolError = "Unknown error"

type OutcomeState string

const (
	OutcomeFinished OutcomeState = "finished"
	OutcomeAborted  OutcomeState = "aborted"
	OutcomeErrored  OutcomeState = "errored"
)

// Outcome is the terminal result of one completion run. Exactly one is
// produced per run; the reconciler consumes it exactly once.
type Outcome struct {
	State OutcomeState

	// Ordered output blocks folded across all steps.
	Parts []model.MessagePart

	// Finalized text: the text of the step that finished with reason
	// "stop". Empty when no step stopped normally.
	Text string

	// Key-wise sum of per-step usages.
	Usage model.TokenUsage

	Steps int
	Err   error
}

// Hooks observe the stream for progressive display. They are not
// authoritative: the final parts/text are computed from step results, not
// from accumulated chunks.
type Hooks struct {
	OnChunk      func(chunk string)
	OnReasoning  func(text string)
	OnToolCall   func(name, input string)
	OnToolResult func(name, result string, isError bool)
}

// Orchestrator drives the bounded multi-step tool-calling loop for one
// completion. State machine: Idle -> Streaming -> {Finished | Aborted |
// Errored}; terminal states are never re-entered.
type Orchestrator struct {
	Client  *modelclient.Client
	Options model.AssistantOptions
	Tools   *tools.Set
	Hooks   Hooks

	// Force tool use: agent web search mode with search requested.
	ForceToolUse bool

	// Enable the provider's built-in search.
	BuiltinSearch bool
}

// Run executes up to Options.StepCount steps and returns the terminal
// outcome. Cancellation of ctx maps to the Aborted state.
func (o *Orchestrator) Run(ctx context.Context, turns []llms.MessageContent) *Outcome {
	outcome := &Outcome{}

	for step := 0; step < o.Options.StepCount; step++ {
		select {
		case <-ctx.Done():
			outcome.State = OutcomeAborted
			return outcome
		default:
		}

		resp, err := o.Client.Call(ctx, turns, o.callOptions()...)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				outcome.State = OutcomeAborted
				return outcome
			}
			outcome.State = OutcomeErrored
			outcome.Err = err
			return outcome
		}
		if len(resp.Choices) == 0 {
			outcome.State = OutcomeErrored
			outcome.Err = fmt.Errorf("provider returned no choices")
			return outcome
		}

		outcome.Steps++
		choice := resp.Choices[0]
		outcome.Usage.Add(modelclient.UsageFromChoice(choice))

		if choice.ReasoningContent != "" {
			outcome.Parts = append(outcome.Parts, model.ReasoningPart(choice.ReasoningContent))
			if o.Hooks.OnReasoning != nil {
				o.Hooks.OnReasoning(choice.ReasoningContent)
			}
		}

		text := choice.Content
		if strings.TrimSpace(text) != "" {
			outcome.Parts = append(outcome.Parts, model.TextPart(text))
		}

		if len(choice.ToolCalls) == 0 {
			if choice.StopReason == "stop" && strings.TrimSpace(text) != "" {
				outcome.Text = text
			}
			outcome.State = OutcomeFinished
			return outcome
		}

		turns = append(turns, assistantCallTurn(text, choice.ToolCalls))

		for _, call := range choice.ToolCalls {
			part, responseTurn := o.executeToolCall(ctx, call)
			outcome.Parts = append(outcome.Parts, part)
			turns = append(turns, responseTurn)
		}
	}

	// step cap reached with the provider still asking for tools
	outcome.State = OutcomeFinished
	return outcome
}

func (o *Orchestrator) executeToolCall(ctx context.Context, call llms.ToolCall) (model.MessagePart, llms.MessageContent) {
	name := call.FunctionCall.Name
	input := call.FunctionCall.Arguments

	if o.Hooks.OnToolCall != nil {
		o.Hooks.OnToolCall(name, input)
	}

	part := model.MessagePart{
		Type:       model.PartTypeTool,
		ToolName:   name,
		ToolCallID: call.ID,
		Input:      json.RawMessage(input),
	}

	result, err := o.Tools.Execute(ctx, name, input)
	var content string
	if err != nil {
		errText := err.Error()
		if errText == "" {
			errText = unknownToolError
		}
		part.State = model.ToolStateError
		part.ErrorText = errText
		content = errText
	} else {
		part.State = model.ToolStateCompleted
		part.Output = result
		content = result
	}

	if o.Hooks.OnToolResult != nil {
		o.Hooks.OnToolResult(name, content, err != nil)
	}

	responseTurn := llms.MessageContent{
		Role: llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{llms.ToolCallResponse{
			ToolCallID: call.ID,
			Name:       name,
			Content:    content,
		}},
	}
	return part, responseTurn
}

func (o *Orchestrator) callOptions() []llms.CallOption {
	var opts []llms.CallOption

	if o.Hooks.OnChunk != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			o.Hooks.OnChunk(string(chunk))
			return nil
		}))
	}

	if o.Tools != nil && o.Tools.Len() > 0 {
		opts = append(opts, llms.WithTools(o.Tools.Defs()))
		if o.ForceToolUse {
			opts = append(opts, llms.WithToolChoice("required"))
		}
	}

	if o.BuiltinSearch {
		opts = append(opts, llms.WithMetadata(map[string]any{"enable_search": true}))
	}

	if o.Options.Temperature.Enabled {
		opts = append(opts, llms.WithTemperature(o.Options.Temperature.Value))
	}
	if o.Options.TopP.Enabled {
		opts = append(opts, llms.WithTopP(o.Options.TopP.Value))
	}
	if o.Options.FrequencyPenalty.Enabled {
		opts = append(opts, llms.WithFrequencyPenalty(o.Options.FrequencyPenalty.Value))
	}
	if o.Options.PresencePenalty.Enabled {
		opts = append(opts, llms.WithPresencePenalty(o.Options.PresencePenalty.Value))
	}

	return opts
}

func assistantCallTurn(text string, calls []llms.ToolCall) llms.MessageContent {
	turn := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if strings.TrimSpace(text) != "" {
		turn.Parts = append(turn.Parts, llms.TextPart(text))
	}
	for _, call := range calls {
		turn.Parts = append(turn.Parts, call)
	}
	return turn
}
