package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alumnihub/apiserver/config"
	"github.com/alumnihub/apiserver/internal/auth"
	"github.com/alumnihub/apiserver/internal/db"
	"github.com/alumnihub/apiserver/internal/handlers"
	"github.com/alumnihub/apiserver/internal/mailer"
	"github.com/alumnihub/apiserver/internal/mq"
	"github.com/alumnihub/apiserver/internal/oauth"
	"github.com/alumnihub/apiserver/internal/services"
	"github.com/alumnihub/apiserver/internal/storage"
	"github.com/alumnihub/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	otpRepo := store.NewOtpRepository(dbConn)
	userService := services.NewUserService(userRepo)

	queue, err := newQueue(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var publisher mailer.Publisher
	if queue != nil {
		publisher = queue
	}
	notifier := mailer.New(publisher, cfg.MQ.MailQueue)
	resetService := services.NewPasswordResetService(userRepo, otpRepo, notifier)

	codec := auth.NewTokenCodec(jwtSecret)
	cookies := handlers.NewCookiePolicy(cfg.IsProduction())
	sessionMiddleware := handlers.RequireSession(codec)

	avatars, err := newAvatarStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var provider oauth.Provider
	if cfg.Google.ClientID != "" {
		provider = oauth.NewGoogleProvider(
			cfg.Google.ClientID,
			cfg.Google.ClientSecret,
			cfg.Google.CallbackURL,
		)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, codec, cookies)
		r.Route("/password-reset", func(r chi.Router) {
			handlers.PasswordResetRouter(r, resetService)
		})
		if provider != nil {
			handlers.OAuthRouter(r, provider, userService, codec, cookies, cfg.FrontendURL, avatars)
		}
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, sessionMiddleware)
	})
	router.Route("/admin", func(r chi.Router) {
		handlers.AdminRouter(r, userService, sessionMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func newQueue(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch strings.ToLower(cfg.Backend) {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	case "pubsub":
		backend, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

func newAvatarStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	switch strings.ToLower(cfg.Backend) {
	case "":
		return nil, nil
	case "minio":
		backend, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		avatars := storage.NewStorage(backend)
		if err := avatars.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return avatars, nil
	case "gcs":
		backend, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		avatars := storage.NewStorage(backend)
		if err := avatars.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return avatars, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
