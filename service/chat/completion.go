package chat

import (
	"context"
	"converse-backend/dao"
	"converse-backend/model"
	"converse-backend/request"
	"converse-backend/service/attachment"
	"converse-backend/service/modelclient"
	"converse-backend/service/retrieval"
	"converse-backend/service/summarization"
	"converse-backend/service/taskmodel"
	"converse-backend/service/titles"
	"converse-backend/service/tools"
	"converse-backend/utils"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/llms"
)

const retrievalTopK = 4

// runParams collects everything a single completion turn needs after the
// request has been validated and the message pair exists.
type runParams struct {
	Chat      *model.Chat
	Assistant *model.Assistant
	Options   model.AssistantOptions
	ModelID   string

	AssistantMessageID uint
	Images             []model.FileRef
	WebSearch          bool
	RequestBody        json.RawMessage

	// First user prompt, used to name untitled chats.
	TitlePrompt string
}

// RunCompletion executes one chat completion end to end: it persists the
// user/assistant message pair, builds the context window, streams the
// multi-step run over SSE and reconciles the outcome. A non-nil error means
// the run never started and nothing was persisted.
func RunCompletion(c *gin.Context, email string, req request.ChatRequest) error {
	chatRecord, err := dao.GetChatByID(email, req.ChatID)
	if err != nil {
		return fmt.Errorf("chat not found: %w", err)
	}

	assistant, err := dao.GetAssistantByID(req.AssistantID)
	if err != nil {
		return fmt.Errorf("assistant not found: %w", err)
	}

	opts, err := assistant.DecodeOptions()
	if err != nil {
		return fmt.Errorf("invalid assistant options: %w", err)
	}

	// recorded whether or not the run succeeds
	if err := dao.TouchChat(req.ChatID, req.AssistantID, req.Model, time.Now()); err != nil {
		slog.Error("Failed to touch chat", "chat_id", req.ChatID, "err", err)
	}

	userMsg := &model.Message{
		ChatID:    req.ChatID,
		UserEmail: email,
		Role:      model.RoleUser,
		Content:   req.Query,
		Context:   buildContext(c.Request.Context(), req),
	}
	if len(req.Images) > 0 {
		if files, err := json.Marshal(req.Images); err == nil {
			userMsg.Files = files
		}
	}
	assistantMsg := &model.Message{
		ChatID:    req.ChatID,
		UserEmail: email,
		Role:      model.RoleAssistant,
		Model:     req.Model,
	}
	if err := dao.CreateTurnPair(userMsg, assistantMsg); err != nil {
		return fmt.Errorf("failed to persist message pair: %w", err)
	}

	requestBody, _ := json.Marshal(req)

	runTurn(c, runParams{
		Chat:               chatRecord,
		Assistant:          assistant,
		Options:            opts,
		ModelID:            req.Model,
		AssistantMessageID: assistantMsg.ID,
		Images:             req.Images,
		WebSearch:          req.WebSearch,
		RequestBody:        requestBody,
		TitlePrompt:        req.Query,
	})
	return nil
}

// RunRegenerate re-runs the newest assistant message of a chat. The stored
// user turn is reused as-is, including any injected context.
func RunRegenerate(c *gin.Context, email string, req request.RegenerateRequest) error {
	chatRecord, err := dao.GetChatByID(email, req.ChatID)
	if err != nil {
		return fmt.Errorf("chat not found: %w", err)
	}

	assistant, err := dao.GetAssistantByID(req.AssistantID)
	if err != nil {
		return fmt.Errorf("assistant not found: %w", err)
	}

	opts, err := assistant.DecodeOptions()
	if err != nil {
		return fmt.Errorf("invalid assistant options: %w", err)
	}

	assistantMsg, err := dao.GetMessageByID(req.MessageID)
	if err != nil {
		return fmt.Errorf("message not found: %w", err)
	}
	if assistantMsg.ChatID != req.ChatID || assistantMsg.UserEmail != email {
		return fmt.Errorf("message does not belong to this chat")
	}
	if assistantMsg.Role != model.RoleAssistant {
		return fmt.Errorf("only assistant messages can be regenerated")
	}

	// only the newest pair is replayable; everything after it would be
	// orphaned by the rerun
	recent, err := dao.GetRecentMessages(email, req.ChatID, 2)
	if err != nil || len(recent) == 0 || recent[0].ID != assistantMsg.ID {
		return fmt.Errorf("only the latest assistant message can be regenerated")
	}

	if err := dao.ResetAssistantMessage(req.MessageID); err != nil {
		return fmt.Errorf("failed to reset assistant message: %w", err)
	}

	if err := dao.TouchChat(req.ChatID, req.AssistantID, req.Model, time.Now()); err != nil {
		slog.Error("Failed to touch chat", "chat_id", req.ChatID, "err", err)
	}

	var images []model.FileRef
	if len(recent) == 2 && len(recent[1].Files) > 0 {
		if err := json.Unmarshal(recent[1].Files, &images); err != nil {
			slog.Error("Failed to decode message files",
				"message_id", recent[1].ID,
				"err", err,
			)
		}
	}

	requestBody, _ := json.Marshal(req)

	runTurn(c, runParams{
		Chat:               chatRecord,
		Assistant:          assistant,
		Options:            opts,
		ModelID:            req.Model,
		AssistantMessageID: req.MessageID,
		Images:             images,
		RequestBody:        requestBody,
	})
	return nil
}

// runTurn drives the streaming run. The reconciler is created before any
// fallible step so a terminal write reaches the assistant row on every path.
func runTurn(c *gin.Context, p runParams) {
	rec := &Reconciler{
		MessageID:   p.AssistantMessageID,
		ChatID:      p.Chat.ChatID,
		AssistantID: p.Assistant.AssistantID,
		Model:       p.ModelID,
		RequestBody: p.RequestBody,
	}

	// the request context is canceled on client disconnect, which maps
	// to the aborted state
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	client, err := modelclient.New(p.Assistant, p.ModelID)
	if err != nil {
		failRun(c, ctx, rec, fmt.Errorf("failed to create model client: %w", err))
		return
	}

	summarizer := summarization.NewService(taskmodel.Instance)
	window, err := BuildWindow(ctx, p.Chat, p.Assistant, p.ModelID, p.Options, summarizer)
	if err != nil {
		failRun(c, ctx, rec, fmt.Errorf("failed to build context window: %w", err))
		return
	}

	imageURLs := attachment.ResolveImageURLs(ctx, p.Images)

	turns := []llms.MessageContent{systemTurn(p.Assistant.SystemPrompt)}
	turns = append(turns, NormalizeTurns(window.History, window.UserTurn, imageURLs)...)

	toolSet, closeTools := resolveTools(ctx, c.GetHeader("Authorization"), p)
	defer closeTools()

	handler := NewGinStreamHandler(c, p.Chat.ChatID)
	orch := &Orchestrator{
		Client:        client,
		Options:       p.Options,
		Tools:         toolSet,
		Hooks:         handler.Hooks(),
		ForceToolUse:  p.Options.WebSearchMode == model.WebSearchModeAgent && p.WebSearch && toolSet.Has(tools.WebSearchToolName),
		BuiltinSearch: p.Options.WebSearchMode == model.WebSearchModeBuiltin && p.WebSearch,
	}

	outcome := orch.Run(ctx, turns)

	// reconcile on a fresh context: the request context is already gone
	// when the run was aborted
	rec.Reconcile(context.Background(), outcome)

	switch outcome.State {
	case OutcomeAborted:
		utils.SendSSEMessage(c, utils.EventTerminated, "")
	case OutcomeErrored:
		slog.Error("Completion run failed",
			"chat_id", p.Chat.ChatID,
			"message_id", p.AssistantMessageID,
			"err", outcome.Err,
		)
		utils.SendSSEMessage(c, utils.EventError, outcome.Err.Error())
	case OutcomeFinished:
		utils.SendSSEMessage(c, utils.EventUsage, outcome.Usage)
	}
	utils.SendSSEMessage(c, utils.EventDone, "")

	if outcome.State == OutcomeFinished && p.TitlePrompt != "" &&
		p.Chat.Title == model.DefaultChatTitle && titles.Instance != nil {
		titles.Instance.Register(titles.TitleTask{
			ChatID:    p.Chat.ChatID,
			UserEmail: p.Chat.UserEmail,
			Prompt:    p.TitlePrompt,
			Rollback:  taskmodel.Ref{AssistantID: p.Assistant.AssistantID, Model: p.ModelID},
		})
	}
}

// failRun records a setup failure against the assistant row and closes the
// stream.
func failRun(c *gin.Context, ctx context.Context, rec *Reconciler, err error) {
	slog.Error("Completion setup failed",
		"chat_id", rec.ChatID,
		"message_id", rec.MessageID,
		"err", err,
	)
	rec.Reconcile(ctx, &Outcome{State: OutcomeErrored, Err: err})
	utils.SendSSEMessage(c, utils.EventError, err.Error())
	utils.SendSSEMessage(c, utils.EventDone, "")
}

// buildContext gathers the injected context for a new user turn. Retrieval
// is best-effort; a failed lookup never blocks the completion.
func buildContext(ctx context.Context, req request.ChatRequest) json.RawMessage {
	if !req.UseRetrieval || retrieval.Instance == nil {
		return nil
	}

	docs, err := retrieval.Instance.Search(ctx, req.Query, retrievalTopK)
	if err != nil {
		slog.Error("Failed to retrieve reference documents",
			"chat_id", req.ChatID,
			"err", err,
		)
		return nil
	}
	if len(docs) == 0 {
		return nil
	}

	encoded, err := json.Marshal(model.MessageContext{ReferenceDocs: docs})
	if err != nil {
		slog.Error("Failed to encode message context", "err", err)
		return nil
	}
	return encoded
}

// resolveTools connects to the MCP server and resolves the assistant's
// enabled tools. Failures are logged and the run proceeds without tools.
func resolveTools(ctx context.Context, authorization string, p runParams) (*tools.Set, func()) {
	toolNames := p.Options.Tools
	if p.Options.WebSearchMode == model.WebSearchModeAgent && p.WebSearch && !contains(toolNames, tools.WebSearchToolName) {
		toolNames = append(append([]string{}, toolNames...), tools.WebSearchToolName)
	}
	if len(toolNames) == 0 {
		return tools.NewSet(), func() {}
	}

	registry, err := tools.NewRegistry(ctx, authorization)
	if err != nil {
		slog.Error("Failed to connect to tool server", "err", err)
		return tools.NewSet(), func() {}
	}

	set, err := registry.Resolve(ctx, toolNames)
	if err != nil {
		slog.Error("Failed to resolve tools", "err", err)
		registry.Close()
		return tools.NewSet(), func() {}
	}

	return set, func() {
		if err := registry.Close(); err != nil {
			slog.Error("Failed to close tool server connection", "err", err)
		}
	}
}

func systemTurn(systemPrompt string) llms.MessageContent {
	prompt := systemPrompt
	if prompt == "" {
		prompt = "You are a helpful assistant."
	}
	prompt += "\n\nCurrent time: " + time.Now().Format(time.RFC3339)
	return llms.TextParts(llms.ChatMessageTypeSystem, prompt)
}

func contains(names []string, target string) bool {
	for _, name := range names {
		if name == target {
			return true
		}
	}
	return false
}
