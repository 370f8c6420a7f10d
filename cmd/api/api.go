package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/ming0627/bellyfed-new-sub008/docs"
	"github.com/ming0627/bellyfed-new-sub008/internal/producer"
	"github.com/ming0627/bellyfed-new-sub008/internal/queue"
	"github.com/ming0627/bellyfed-new-sub008/internal/ratelimiter"
	"github.com/ming0627/bellyfed-new-sub008/internal/service"
	"github.com/ming0627/bellyfed-new-sub008/internal/store/mongo"
	"github.com/ming0627/bellyfed-new-sub008/internal/worker"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config         config
	logger         *zap.SugaredLogger
	rateLimiter    ratelimiter.Limiter
	storage        *mongo.Storage
	broker         queue.Broker
	producer       *producer.Producer
	rankingService *service.RankingService
	queryService   *service.QueryService
	dlqService     *service.DLQService
	rankingWorker  *worker.RankingEventWorker
	dlqWorker      *worker.DLQWorker
}

type config struct {
	addr        string
	env         string
	apiURL      string
	rateLimiter ratelimiter.Config
	mongo       mongoConfig
	rabbitMQ    rabbitMQConfig
}

type mongoConfig struct {
	URI          string
	Database     string
	Timeout      time.Duration
	DLQRetention time.Duration
}

type rabbitMQConfig struct {
	URL           string
	MaxRetries    int
	RetryDelay    time.Duration
	PrefetchCount int
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		r.Post("/rankings", app.createRankingHandler)
		r.Get("/rankings", app.getRankingsHandler)
		r.Put("/rankings/{ranking_id}", app.updateRankingHandler)
		r.Get("/rankings/{ranking_id}/history", app.getRankHistoryHandler)
		r.Delete("/rankings/scope", app.clearScopeHandler)

		r.Get("/dishes/{dish_id}/top", app.getTopRankedHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/dlq", app.listDlqMessagesHandler)
			r.Post("/dlq/{message_id}/replay", app.replayDlqMessageHandler)
		})

		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	// docs
	docs.SwaggerInfo.Title = "Bellyfed Rankings"
	docs.SwaggerInfo.Description = "One-best dish ranking API"
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/api/v1"

	// workers
	if app.rankingWorker != nil {
		if err := app.rankingWorker.Start(); err != nil {
			return fmt.Errorf("failed to start ranking worker: %w", err)
		}
	}
	if app.dlqWorker != nil {
		if err := app.dlqWorker.Start(); err != nil {
			return fmt.Errorf("failed to start dlq worker: %w", err)
		}
	}

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		if app.rankingWorker != nil {
			app.rankingWorker.Stop()
		}
		if app.dlqWorker != nil {
			app.dlqWorker.Stop()
		}

		if app.storage != nil {
			if err := app.storage.Close(ctx); err != nil {
				app.logger.Errorw("error closing MongoDB", "error", err)
			} else {
				app.logger.Info("MongoDB connection closed gracefully")
			}
		}

		if app.broker != nil {
			if err := app.broker.Close(); err != nil {
				app.logger.Errorw("error closing RabbitMQ", "error", err)
			} else {
				app.logger.Info("RabbitMQ connection closed gracefully")
			}
		}

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server have started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
