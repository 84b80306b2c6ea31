package modelclient

import (
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func TestUsageFromChoice(t *testing.T) {
	choice := &llms.ContentChoice{
		GenerationInfo: map[string]any{
			"PromptTokens":       100,
			"CompletionTokens":   int64(40),
			"TotalTokens":        float64(140),
			"ReasoningTokens":    12,
			"CachedPromptTokens": 8,
		},
	}

	usage := UsageFromChoice(choice)
	if usage.InputTokens != 100 || usage.OutputTokens != 40 || usage.TotalTokens != 140 {
		t.Fatalf("mixed numeric types not handled: %+v", usage)
	}
	if usage.ReasoningTokens != 12 || usage.CachedInputTokens != 8 {
		t.Fatalf("optional counters lost: %+v", usage)
	}
}

func TestUsageFromChoice_Defensive(t *testing.T) {
	if usage := UsageFromChoice(nil); !usage.IsZero() {
		t.Fatalf("nil choice must yield zero usage")
	}
	if usage := UsageFromChoice(&llms.ContentChoice{}); !usage.IsZero() {
		t.Fatalf("missing generation info must yield zero usage")
	}

	choice := &llms.ContentChoice{
		GenerationInfo: map[string]any{
			"PromptTokens": "not a number",
		},
	}
	if usage := UsageFromChoice(choice); !usage.IsZero() {
		t.Fatalf("unrecognized value types must count as zero: %+v", usage)
	}
}
