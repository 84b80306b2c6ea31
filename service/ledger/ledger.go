// Package ledger appends usage accounting rows. The database row is
// authoritative; the MQ event is a best-effort fan-out for billing views.
package ledger

import (
	"context"
	"converse-backend/dao"
	"converse-backend/model"
	"converse-backend/service/mq"
	"log/slog"
)

func Append(ctx context.Context, record *model.UsageRecord) {
	if err := dao.CreateUsageRecord(record); err != nil {
		slog.Error("Failed to append usage record",
			"assistant_id", record.AssistantID,
			"task", record.Task,
			"err", err,
		)
		return
	}

	if err := mq.SendMessage(ctx, &mq.Message{
		Topic:   mq.TopicUsageLedger,
		Tag:     string(record.Task),
		Payload: record,
	}); err != nil {
		slog.Error("Failed to publish usage record",
			"assistant_id", record.AssistantID,
			"task", record.Task,
			"err", err,
		)
	}
}
