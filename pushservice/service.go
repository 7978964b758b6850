package pushservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/exo-addons/go-push-service/internal/api"
	"github.com/exo-addons/go-push-service/internal/jobs"
	"github.com/exo-addons/go-push-service/internal/pipeline"
	"github.com/exo-addons/go-push-service/pkg/push"
	"github.com/exo-addons/go-push-service/pushservice/config"
)

type Wrapper struct {
	*microservice.BaseServer
	pipelineService *messagepipeline.StreamingService[push.Event]
	sweeper         *jobs.DeviceSweeper
	stopSweeper     context.CancelFunc
	logger          *slog.Logger
}

// New assembles the service.
func New(
	cfg *config.Config,
	consumer messagepipeline.MessageConsumer,
	dispatcher pipeline.Dispatcher,
	registry push.DeviceRegistry,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {

	// 1. Base Server
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	// 2. Processor
	processor := pipeline.NewProcessor(dispatcher, logger)

	// 3. Pipeline
	streamingService, err := messagepipeline.NewStreamingService(
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		consumer,
		pipeline.EventTransformer,
		processor,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming service: %w", err)
	}

	// 4. API (Device Registration)
	deviceAPI := api.NewDeviceAPI(registry, logger)

	// 5. Expired-registration sweeper
	tokenTTL := time.Duration(cfg.TokenExpirationSeconds) * time.Second
	if tokenTTL <= 0 {
		tokenTTL = 60 * 24 * time.Hour
	}
	sweepInterval := time.Duration(cfg.SweepIntervalSeconds) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}
	sweeper := jobs.NewDeviceSweeper(registry, tokenTTL, sweepInterval, logger)

	// Register Routes
	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	handle := func(pattern string, handlerFunc http.HandlerFunc) {
		mux.Handle(pattern, corsMiddleware(authMiddleware(handlerFunc)))
	}

	handle("POST /rest/v1/messaging/device", deviceAPI.RegisterDevice)
	handle("GET /rest/v1/messaging/device/{token}", deviceAPI.GetDevice)
	handle("DELETE /rest/v1/messaging/device/{token}", deviceAPI.UnregisterDevice)

	// Global OPTIONS for the API namespace (CORS preflight)
	mux.Handle("OPTIONS /rest/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Just returns 200 OK with CORS headers handled by middleware
	})))

	return &Wrapper{
		BaseServer:      baseServer,
		pipelineService: streamingService,
		sweeper:         sweeper,
		logger:          logger,
	}, nil
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Core processing pipeline starting...")
	if err := w.pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}

	sweeperCtx, cancel := context.WithCancel(context.Background())
	w.stopSweeper = cancel
	go w.sweeper.Run(sweeperCtx)

	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error
	if w.stopSweeper != nil {
		w.stopSweeper()
	}
	if err := w.pipelineService.Stop(ctx); err != nil {
		w.logger.Error("Processing pipeline shutdown failed.", "err", err)
		finalErr = err
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Service shutdown complete.")
	return finalErr
}
