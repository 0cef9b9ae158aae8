package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"visionbridge/features/classify"
	"visionbridge/features/health"
	"visionbridge/internal/config"
	"visionbridge/internal/metrics"
	"visionbridge/internal/middleware"
	"visionbridge/internal/store"
	"visionbridge/internal/worker"
)

// QueueClient is what the app needs from the dispatch queue: publishing and
// a reachability probe. *nsq.Producer satisfies it.
type QueueClient interface {
	Publish(topic string, body []byte) error
	Ping() error
}

type App struct {
	Handler        http.Handler
	Service        *classify.Service
	Notifier       *classify.Notifier
	ResultConsumer *worker.ResultConsumer

	port int
}

func New(
	cfg *config.Config,
	staging store.ObjectStore,
	results store.ObjectStore,
	queue QueueClient,
	logger *slog.Logger,
) (*App, error) {

	notifier := classify.NewNotifier()

	svc := classify.NewService(staging, results, queue, notifier, classify.Options{
		WaitTimeout:       time.Duration(cfg.WaitTimeoutSeconds) * time.Second,
		PollInterval:      time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		PollIntervalMax:   time.Duration(cfg.PollIntervalMaxMS) * time.Millisecond,
		PollBackoffFactor: cfg.PollBackoffFactor,
		DeleteOnRead:      cfg.DeleteOnRead(),
		StagingPrefix:     cfg.StagingPrefix,
		ResultPrefix:      cfg.ResultPrefix,
	}, logger)

	classifyHandler := classify.NewHandler(svc, cfg.MaxUploadSizeMB)
	healthHandler := health.NewHandler(queue, staging, results)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("POST /{$}", middleware.CorrelationID(enableCORS(classifyHandler.Submit)))
	mux.Handle("POST /predict", middleware.CorrelationID(enableCORS(classifyHandler.Submit)))
	mux.Handle("GET /result/{correlation_id}", middleware.CorrelationID(enableCORS(classifyHandler.Redeem)))

	mux.HandleFunc("GET /health", healthHandler.Check)
	mux.Handle("GET /metrics", metrics.Handler())

	return &App{
		Handler:        mux,
		Service:        svc,
		Notifier:       notifier,
		ResultConsumer: worker.NewResultConsumer(notifier),
		port:           cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
