package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/hilthontt/kickroom/internal/infrastructure/configs"
	"github.com/hilthontt/kickroom/internal/infrastructure/events"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
	"github.com/hilthontt/kickroom/internal/infrastructure/messaging"
	"github.com/hilthontt/kickroom/internal/infrastructure/metrics"
	"github.com/hilthontt/kickroom/internal/infrastructure/tracing"
	"github.com/hilthontt/kickroom/internal/infrastructure/ws"
	"github.com/hilthontt/kickroom/internal/presentation/api"
	"github.com/hilthontt/kickroom/internal/presentation/handler/chat"
	"github.com/hilthontt/kickroom/internal/presentation/handler/health"
	"github.com/hilthontt/kickroom/internal/room"
)

const (
	serviceName = "kickroom"
)

func main() {
	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		ServiceName: serviceName,
		Environment: cfg.Tracing.Environment,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
	})
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to initialize the tracer", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer shutdownTracer(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	opts := []room.Option{
		room.WithRecorder(m),
		room.WithTracer(tracing.GetTracer(serviceName + "/room")),
	}

	if cfg.Audit.Enabled {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.Audit.URI, cfg.Audit.Exchange)
		if err != nil {
			logger.Fatal(logging.RabbitMQ, logging.Startup, "failed to connect to RabbitMQ", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer rabbitmq.Close()

		roomPublisher := events.NewRoomPublisher(rabbitmq, cfg.Audit.Buffer, logger)
		go roomPublisher.Run(ctx)
		opts = append(opts, room.WithAuditSink(roomPublisher))

		expvar.Publish("audit_dropped", expvar.Func(func() any {
			return roomPublisher.Dropped()
		}))
		logger.Info(logging.RabbitMQ, logging.Startup, "publishing audit events", map[logging.ExtraKey]any{
			"exchange": cfg.Audit.Exchange,
		})
	}

	session := room.NewSession(cfg.Room, logger, opts...)
	roomStopped := make(chan struct{})
	go func() {
		defer close(roomStopped)
		_ = session.Run(ctx)
	}()

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("members", expvar.Func(func() any {
		return session.MemberCount()
	}))

	chatHandler := chat.NewHandler(session, ws.NewUpgrader(cfg.HTTP.AllowedOrigins), cfg.Room.SendBuffer, logger)
	healthHandler := health.NewHandler(session)
	app := api.NewApplication(*cfg, chatHandler, healthHandler, m, logger)

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Error(logging.General, logging.Shutdown, "server stopped with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	cancel()
	<-roomStopped
}
