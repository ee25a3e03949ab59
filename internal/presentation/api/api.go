package api

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/kickroom/internal/infrastructure/configs"
	"github.com/hilthontt/kickroom/internal/infrastructure/json"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
	"github.com/hilthontt/kickroom/internal/infrastructure/metrics"
	chatHandler "github.com/hilthontt/kickroom/internal/presentation/handler/chat"
	healthHandler "github.com/hilthontt/kickroom/internal/presentation/handler/health"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "kickroom"

type Application struct {
	config        configs.Config
	chatHandler   *chatHandler.Handler
	healthHandler *healthHandler.Handler
	metrics       *metrics.Metrics
	logger        logging.Logger
}

func NewApplication(
	config configs.Config,
	chatHandler *chatHandler.Handler,
	healthHandler *healthHandler.Handler,
	metrics *metrics.Metrics,
	logger logging.Logger,
) *Application {
	return &Application{
		config:        config,
		chatHandler:   chatHandler,
		healthHandler: healthHandler,
		metrics:       metrics,
		logger:        logger,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(app.prometheusMiddleware)
	r.Use(app.enableCors)

	r.Get("/ws", app.chatHandler.ServeWS)

	r.Get("/", app.healthHandler.GetRoot)
	r.Get("/health", app.healthHandler.GetHealth)
	r.Get("/healthz", app.healthHandler.GetHealth)
	r.Get("/live", app.healthHandler.GetHealth)

	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())
	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		json.WriteNotFound(w)
	})

	return otelhttp.NewHandler(r, serviceName)
}

// Run serves until SIGINT or SIGTERM, then shuts the server down gracefully.
func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.healthHandler.SetHealthy(false)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		logging.HostIp: srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		logging.HostIp: srv.Addr,
	})

	return nil
}
