package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/exo-addons/go-push-service/pkg/push"
)

// Dispatcher fans one event out to the recipient's devices. It owns all
// per-device outcome handling, so it reports nothing back.
type Dispatcher interface {
	Dispatch(ctx context.Context, event push.Event, username string)
}

// NewProcessor creates the pipeline stage that hands decoded events to
// the dispatcher. Delivery is fire-and-forget: the processor always
// returns nil so the message is acked once, whatever the per-device
// outcomes were. A redelivered event would re-push to devices that
// already got it.
func NewProcessor(
	dispatcher Dispatcher,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[push.Event] {
	return func(ctx context.Context, original messagepipeline.Message, event *push.Event) error {
		procLogger := logger.With(
			"notification_id", event.ID,
			"plugin", event.PluginID,
			"recipient", event.Recipient,
			"pubsub_msg_id", original.ID,
		)
		procLogger.Debug("Processing push event.")

		dispatcher.Dispatch(ctx, *event, event.Recipient)

		return nil
	}
}
