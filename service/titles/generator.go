// Package titles names chats after their first completed turn using the
// task model. Generation is asynchronous and best-effort.
package titles

import (
	"bytes"
	"context"
	"converse-backend/dao"
	"converse-backend/model"
	"converse-backend/service/ledger"
	"converse-backend/service/modelclient"
	"converse-backend/service/taskmodel"
	_ "embed"
	"log/slog"
	"strings"
	"text/template"

	"github.com/tmc/langchaingo/llms"
)

const (
	taskChanSize = 100
	workerNum    = 4

	maxTitleLength = 64
)

//go:embed prompts/title.txt
var titlePrompt string

var titleTmpl = template.Must(template.New("title").Parse(titlePrompt))

type TitleTask struct {
	ChatID    string
	UserEmail string
	Prompt    string

	// Used when no task model is designated.
	Rollback taskmodel.Ref
}

type Generator struct {
	resolver  taskmodel.Resolver
	newClient func(assistant *model.Assistant, modelID string) (*modelclient.Client, error)
	taskChan  chan TitleTask
	workerNum int
}

var Instance *Generator

func Init(resolver taskmodel.Resolver) {
	Instance = &Generator{
		resolver:  resolver,
		newClient: modelclient.New,
		taskChan:  make(chan TitleTask, taskChanSize),
		workerNum: workerNum,
	}
}

func (g *Generator) Run() {
	ctx := context.Background()
	for i := 1; i <= g.workerNum; i++ {
		go g.executeTitleTasks(ctx, i)
	}
}

func (g *Generator) Register(task TitleTask) {
	select {
	case g.taskChan <- task:
	default:
		slog.Warn("Title task queue full, dropping task", "chat_id", task.ChatID)
	}
}

func (g *Generator) executeTitleTasks(ctx context.Context, id int) {
	slog.Info("Starting title worker", "worker_id", id)
	defer slog.Info("Title worker exit", "worker_id", id)

	for task := range g.taskChan {
		if err := g.generateTitle(ctx, task); err != nil {
			slog.Error("Failed to generate chat title",
				"chat_id", task.ChatID,
				"err", err,
			)
		}
	}
}

func (g *Generator) generateTitle(ctx context.Context, task TitleTask) error {
	resolved, err := g.resolver.Resolve(ctx, task.Rollback)
	if err != nil {
		return err
	}

	client, err := g.newClient(resolved.Assistant, resolved.Model)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := titleTmpl.Execute(&buf, struct{ Prompt string }{Prompt: task.Prompt}); err != nil {
		return err
	}

	title, usage, err := client.Generate(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, buf.String()),
	})
	if err != nil {
		return err
	}

	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))
	if title == "" {
		return nil
	}
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength]
	}

	if err := dao.UpdateChatTitle(task.UserEmail, task.ChatID, title); err != nil {
		return err
	}

	if !usage.IsZero() {
		ledger.Append(ctx, &model.UsageRecord{
			AssistantID: resolved.Assistant.AssistantID,
			Model:       resolved.Model,
			Task:        model.UsageTaskTitle,
			ChatID:      task.ChatID,
			TokenUsage:  usage,
		})
	}

	return nil
}
