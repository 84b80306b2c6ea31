package mq

import (
	"context"
	"converse-backend/config"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/apache/rocketmq-client-go/v2/rlog"
	"github.com/avast/retry-go/v4"
)

const (
	// Usage ledger rows are fanned out for downstream billing views.
	// The tag is the ledger task (chat, title, compress).
	TopicUsageLedger = "topic_usage_ledger"

	sendMessageAttempts = 3
)

var producerInstance rocketmq.Producer

type Message struct {
	Topic   string
	Tag     string
	Payload any
}

// Init creates and starts the producer. Skipped entirely when MQ is
// disabled; SendMessage then becomes a no-op.
func Init() error {
	if !config.Cfg.MQ.Enabled {
		return nil
	}

	// rocketmq's own logger is noisy at info level
	rlog.SetLogLevel("warn")

	p, err := rocketmq.NewProducer(
		producer.WithNameServer(config.Cfg.MQ.NameServer),
	)
	if err != nil {
		return fmt.Errorf("failed to create producer: %v", err)
	}

	if err := p.Start(); err != nil {
		return fmt.Errorf("failed to start producer: %v", err)
	}

	producerInstance = p
	return nil
}

// SendMessage publishes to MQ with bounded retries.
func SendMessage(ctx context.Context, message *Message) error {
	if producerInstance == nil {
		return nil
	}

	payloadJSON, err := json.Marshal(message.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	msg := primitive.NewMessage(message.Topic, payloadJSON)
	if message.Tag != "" {
		msg = msg.WithTag(message.Tag)
	}

	err = retry.Do(
		func() error {
			_, err := producerInstance.SendSync(ctx, msg)
			return err
		},
		retry.Attempts(sendMessageAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying to send message",
				"attempt", n+1,
				"topic", msg.Topic,
				"err", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s after retries: %v", msg.Topic, err)
	}

	return nil
}

func Shutdown() {
	if producerInstance != nil {
		producerInstance.Shutdown()
	}
}
