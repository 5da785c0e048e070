package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kh1012/half/internal/config"
	"github.com/kh1012/half/internal/events"
	"github.com/kh1012/half/internal/generator"
	"github.com/kh1012/half/internal/handler"
	"github.com/kh1012/half/internal/localstore"
	"github.com/kh1012/half/internal/middleware"
	"github.com/kh1012/half/internal/question"
	"github.com/kh1012/half/internal/remote"
	"github.com/kh1012/half/internal/session"
	"github.com/kh1012/half/pkg/logger"
	"github.com/kh1012/half/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	server      *http.Server
	sess        *session.Session
	localStore  *localstore.Store
	redisClient *redis.Client
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Stop the session (releases feed subscriptions, clears the cache)
	if r.sess != nil {
		r.log.Info("Stopping session...")
		r.sess.Stop()
	}

	// Close Redis connection with health check
	if r.redisClient != nil {
		r.log.Info("Closing Redis connection...")

		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := r.redisClient.Health(healthCtx); err != nil {
			r.log.WithError(err).Warn("Redis health check failed before closing")
		}
		healthCancel()

		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errors = append(errors, fmt.Errorf("Redis close: %w", err))
		} else {
			r.log.Info("Redis connection closed successfully")
		}
	}

	// Close the local store last so late writes from the session still land
	if r.localStore != nil {
		r.log.Info("Closing local store...")
		if err := r.localStore.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close local store")
			errors = append(errors, fmt.Errorf("local store close: %w", err))
		} else {
			r.log.Info("Local store closed successfully")
		}
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"data_dir":    cfg.DataDir,
	}).Info("Starting half")

	// Open local persistence
	localStore, err := localstore.Open(cfg.DataDir, log.Named("localstore"))
	if err != nil {
		log.WithError(err).Fatal("Failed to open local store")
	}

	// Initialize the change-notification feed; the app degrades to periodic
	// refresh only when no broker is configured
	var bus events.Bus
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL, log.Named("redis"))
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		bus = redisClient
	} else {
		log.Warn("REDIS_URL not set, realtime feed disabled")
	}

	// Remote store client
	store := remote.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, bus, log.Named("remote"))

	// Question generator is optional
	var gen generator.Generator
	if cfg.OpenAIAPIKey != "" {
		gen = generator.NewOpenAI(cfg.OpenAIAPIKey, log.Named("generator"))
	} else {
		log.Warn("OPENAI_API_KEY not set, question generation disabled")
	}

	// Assemble and bootstrap the session
	ctx := context.Background()
	sess := session.New(localStore, store, bus, cfg.CooldownWindow, cfg.RefreshInterval, log.Named("session"))
	if err := sess.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start session")
	}

	questionService := question.NewService(store, gen, sess.Gate, sess.Cache, log.Named("question"))

	// Setup router
	router := setupRouter(sess, questionService, log)

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Create resources manager for cleanup
	resources := &Resources{
		server:      server,
		sess:        sess,
		localStore:  localStore,
		redisClient: redisClient,
		log:         log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	// Cleanup runs regardless of how the program exits
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(sess *session.Session, questionService *question.Service, log *logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Setup middlewares
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(), log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Create handlers
	healthHandler := handler.NewHealthHandler(sess, log)
	questionHandler := handler.NewQuestionHandler(sess, questionService, log)
	voteHandler := handler.NewVoteHandler(sess, log)
	commentHandler := handler.NewCommentHandler(sess, questionService, log)
	profileHandler := handler.NewProfileHandler(sess, log)

	// Health check
	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Route("/questions", func(r chi.Router) {
			r.Get("/", questionHandler.List)
			r.Post("/", questionHandler.Create)
			r.Post("/generate", questionHandler.Generate)

			r.Route("/{questionID}", func(r chi.Router) {
				r.Delete("/", questionHandler.Delete)
				r.Get("/stats", questionHandler.Stats)
				r.Post("/watch", questionHandler.Watch)
				r.Delete("/watch", questionHandler.Unwatch)

				r.Post("/vote", voteHandler.Vote)
				r.Post("/pass", voteHandler.Pass)

				r.Get("/comments", commentHandler.List)
				r.Post("/comments", commentHandler.Create)
			})
		})

		r.Delete("/comments/{commentID}", commentHandler.Delete)

		r.Get("/history", voteHandler.History)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Put("/", profileHandler.UpdateNickname)
		})

		r.Get("/cooldown", profileHandler.Cooldown)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
