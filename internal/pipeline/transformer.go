// Package pipeline contains the core message processing components for
// the service.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/exo-addons/go-push-service/pkg/push"
)

// EventTransformer is a dataflow Transformer that safely unmarshals and
// validates a raw message payload into a structured push.Event.
//
// It relies on push.Event's UnmarshalJSON to reject payloads missing
// the mandatory identity fields.
func EventTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*push.Event, bool, error) {
	var event push.Event

	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Malformed or incomplete payloads are skipped so the
		// StreamingService can handle the Nack/DLQ logic.
		return nil, true, fmt.Errorf("failed to unmarshal push event from message %s: %w", msg.ID, err)
	}

	return &event, false, nil
}
