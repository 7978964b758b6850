//go:build integration

package pushservice_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/exo-addons/go-push-service/internal/dispatch"
	"github.com/exo-addons/go-push-service/internal/render"
	fsStore "github.com/exo-addons/go-push-service/internal/storage/firestore"
	"github.com/exo-addons/go-push-service/pushservice"
	"github.com/exo-addons/go-push-service/pushservice/config"
)

// A malformed payload must never reach the publisher; the transformer
// rejects it and Pub/Sub routes the message to the DLQ after the
// delivery attempts are exhausted.
func TestPushService_PoisonPill(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	projectID := "test-project-dlq"

	// 1. Setup Pub/Sub Emulator
	pubsubConn := emulators.SetupPubsubEmulator(t, ctx, emulators.GetDefaultPubsubConfig(projectID))
	psClient, err := pubsub.NewClient(ctx, projectID, pubsubConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = psClient.Close() })

	fsConn := emulators.SetupFirestoreEmulator(t, ctx, emulators.GetDefaultFirestoreConfig(projectID))
	fsClient, err := firestore.NewClient(ctx, projectID, fsConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsClient.Close() })

	// 2. Arrange: main topic, DLQ topic, and subscriptions
	runID := uuid.NewString()
	mainTopicID := "push-main-" + runID
	dlqTopicID := "push-dlq-" + runID
	mainSubID := mainTopicID + "-sub"
	dlqSubID := dlqTopicID + "-sub"

	createPubsubResources(t, ctx, psClient, projectID, dlqTopicID, dlqSubID)
	dlqTopicName := fmt.Sprintf("projects/%s/topics/%s", projectID, dlqTopicID)

	mainTopicName := fmt.Sprintf("projects/%s/topics/%s", projectID, mainTopicID)
	_, err = psClient.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: mainTopicName})
	require.NoError(t, err)

	mainSubName := fmt.Sprintf("projects/%s/subscriptions/%s", projectID, mainSubID)
	mainSub := &pubsubpb.Subscription{
		Name:  mainSubName,
		Topic: mainTopicName,
		DeadLetterPolicy: &pubsubpb.DeadLetterPolicy{
			DeadLetterTopic:     dlqTopicName,
			MaxDeliveryAttempts: 5, // Low number for fast test execution
		},
		RetryPolicy: &pubsubpb.RetryPolicy{
			MinimumBackoff: &durationpb.Duration{Seconds: 1},
		},
	}
	_, err = psClient.SubscriptionAdminClient.CreateSubscription(ctx, mainSub)
	require.NoError(t, err)

	// 3. Arrange: service with a recording publisher
	publisher := &mockPublisher{}
	registry := fsStore.NewDeviceRegistry(fsClient)
	dispatcher := dispatch.NewDispatcher(registry, render.NewRegistry(render.NewParamRenderer()), publisher, logger)

	consumerCfg := *messagepipeline.NewGooglePubsubConsumerDefaults(mainSubID)
	consumer, err := messagepipeline.NewGooglePubsubConsumer(&consumerCfg, psClient, logger)
	require.NoError(t, err)

	cfg := &config.Config{
		ProjectID:          projectID,
		ListenAddr:         ":0",
		SubscriptionID:     mainSubID,
		NumPipelineWorkers: 2,
	}

	noopAuth := func(h http.Handler) http.Handler { return h }
	svc, err := pushservice.New(cfg, consumer, dispatcher, registry, noopAuth, logger)
	require.NoError(t, err)

	// 4. Act: start the service and publish a poison pill
	serviceCtx, serviceCancel := context.WithCancel(ctx)
	defer serviceCancel()
	go func() {
		if err := svc.Start(serviceCtx); err != nil && !errors.Is(err, context.Canceled) {
			t.Logf("service.Start() returned an error: %v", err)
		}
	}()
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	poisonPayload := []byte(`{"this is not valid json"`)
	result := psClient.Publisher(mainTopicID).Publish(ctx, &pubsub.Message{Data: poisonPayload})
	_, err = result.Get(ctx)
	require.NoError(t, err)

	// 5. Assert: the message lands on the DLQ
	var receivedMsg *pubsub.Message
	var wg sync.WaitGroup
	wg.Add(1)
	dlqCtx, dlqCancel := context.WithTimeout(ctx, 30*time.Second)
	defer dlqCancel()
	go func() {
		defer wg.Done()
		err := psClient.Subscriber(dlqSubID).Receive(dlqCtx, func(_ context.Context, msg *pubsub.Message) {
			msg.Ack()
			receivedMsg = msg
			dlqCancel() // Stop receiving after one message
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("DLQ Receive returned an unexpected error: %v", err)
		}
	}()

	wg.Wait()
	require.NotNil(t, receivedMsg, "Did not receive message on the DLQ subscription")
	assert.Equal(t, poisonPayload, receivedMsg.Data)

	// 6. Negative assertion: the publisher was never called
	assert.Equal(t, 0, publisher.GetCallCount(), "Publisher should not be called for a poison pill message")
}
