package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	api "ccce-notify/cmd/api"
	"ccce-notify/internal/notification/delivery"
	"ccce-notify/internal/notification/repository"
	"ccce-notify/internal/notification/scheduler"
	"ccce-notify/internal/notification/usecase"
	"ccce-notify/pkg/clock"
	"ccce-notify/pkg/config"
	"ccce-notify/pkg/database"
	"ccce-notify/pkg/fcm"
	"ccce-notify/pkg/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Firebase backs the push transport and, in firestore mode, the stores
	firebaseApp, err := fcm.NewApp(ctx, cfg.GoogleProjectID, cfg.FirebaseCredentials)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize firebase")
	}
	fcmClient, err := fcm.NewClient(ctx, firebaseApp)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize FCM client")
	}

	// Initialize repositories for the configured backend
	var store repository.Store
	switch cfg.StoreBackend {
	case config.StoreBackendFirestore:
		firestoreClient, err := firebaseApp.Firestore(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize firestore")
		}
		defer firestoreClient.Close()
		store = repository.NewFirestoreStore(firestoreClient)
	default:
		db, err := database.NewPostgresConnection(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := repository.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		store = repository.NewGormStore(db)
	}
	log.Info().Str("backend", cfg.StoreBackend).Msg("store initialized")

	notificationUsecase := usecase.NewNotificationUsecase(store, fcmClient, clock.New(), usecase.Options{
		LeadTime: cfg.ReminderLeadTime,
		Sweep: usecase.SweepOptions{
			BatchSize:   cfg.SweepBatchSize,
			Concurrency: cfg.SweepConcurrency,
		},
	})

	// Periodic sweep of due records
	sweep := scheduler.NewSweepScheduler(notificationUsecase, cfg.SweepInterval)
	sweep.Start()

	// Creation triggers over Pub/Sub, only when a subscription is configured
	if cfg.PubSubSubscription != "" && cfg.GoogleProjectID != "" {
		subscriber, err := delivery.NewSubscriber(ctx, cfg.GoogleProjectID, cfg.PubSubSubscription, cfg.FirebaseCredentials, notificationUsecase)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize pubsub subscriber, creation triggers disabled")
		} else {
			defer subscriber.Close()
			go subscriber.Start(ctx)
		}
	} else {
		log.Warn().Msg("PUBSUB_SUBSCRIPTION not configured, creation triggers disabled")
	}

	// Start server
	server := api.NewHandler(notificationUsecase, cfg).Server(":" + cfg.Port)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	sweep.Stop()
	notificationUsecase.Wait()
	log.Info().Msg("stopped")
}
