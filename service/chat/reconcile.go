package chat

import (
	"context"
	"converse-backend/dao"
	"converse-backend/model"
	"converse-backend/service/ledger"
	"encoding/json"
	"log/slog"
	"sync"
)

// Reconciler writes one completion's terminal outcome back to the assistant
// message row and the usage ledger. Reconcile is idempotent: only the first
// call takes effect, so exactly one terminal side effect runs no matter how
// the stream ends.
type Reconciler struct {
	MessageID   uint
	ChatID      string
	AssistantID string
	Model       string
	RequestBody json.RawMessage

	once sync.Once
}

func (r *Reconciler) Reconcile(ctx context.Context, outcome *Outcome) {
	r.once.Do(func() {
		switch outcome.State {
		case OutcomeFinished:
			r.reconcileFinished(ctx, outcome)
		case OutcomeAborted:
			if err := dao.SetMessageTerminated(r.MessageID); err != nil {
				slog.Error("Failed to mark message terminated",
					"message_id", r.MessageID,
					"err", err,
				)
			}
		case OutcomeErrored:
			errText := "unknown provider error"
			if outcome.Err != nil {
				errText = outcome.Err.Error()
			}
			if err := dao.SetMessageError(r.MessageID, errText); err != nil {
				slog.Error("Failed to record message error",
					"message_id", r.MessageID,
					"err", err,
				)
			}
		}
	})
}

func (r *Reconciler) reconcileFinished(ctx context.Context, outcome *Outcome) {
	if len(outcome.Parts) > 0 {
		parts, err := model.EncodeParts(outcome.Parts)
		if err != nil {
			slog.Error("Failed to encode message parts",
				"message_id", r.MessageID,
				"err", err,
			)
		} else if err := dao.FinalizeAssistantMessage(r.MessageID, outcome.Text, parts, outcome.Steps, outcome.Usage, r.Model); err != nil {
			slog.Error("Failed to finalize assistant message",
				"message_id", r.MessageID,
				"err", err,
			)
		}
	}

	// the ledger row is written even when no parts were produced
	ledger.Append(ctx, &model.UsageRecord{
		AssistantID: r.AssistantID,
		Model:       r.Model,
		Task:        model.UsageTaskChat,
		ChatID:      r.ChatID,
		MessageID:   r.MessageID,
		TokenUsage:  outcome.Usage,
		RequestBody: r.RequestBody,
	})
}
