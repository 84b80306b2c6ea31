package chat

import (
	"converse-backend/utils"
	"strings"

	"github.com/gin-gonic/gin"
)

// GinStreamHandler forwards completion events over SSE for progressive
// display. Accumulated text is observational only; the finalized message
// text comes from the orchestrator's outcome.
type GinStreamHandler struct {
	Ctx    *gin.Context
	ChatID string

	Accumulated *strings.Builder
}

func NewGinStreamHandler(ctx *gin.Context, chatID string) *GinStreamHandler {
	return &GinStreamHandler{
		Ctx:         ctx,
		ChatID:      chatID,
		Accumulated: &strings.Builder{},
	}
}

func (h *GinStreamHandler) Hooks() Hooks {
	return Hooks{
		OnChunk: func(chunk string) {
			h.Accumulated.WriteString(chunk)
			utils.SendSSEMessage(h.Ctx, utils.EventTextDelta, chunk)
		},
		OnReasoning: func(text string) {
			utils.SendSSEMessage(h.Ctx, utils.EventReasoning, text)
		},
		OnToolCall: func(name, input string) {
			utils.SendSSEMessage(h.Ctx, utils.EventToolCall, gin.H{
				"name":  name,
				"input": input,
			})
		},
		OnToolResult: func(name, result string, isError bool) {
			utils.SendSSEMessage(h.Ctx, utils.EventToolCallResult, gin.H{
				"name":   name,
				"result": result,
				"error":  isError,
			})
		},
	}
}
