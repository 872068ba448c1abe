package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/christmas-fire/nexus-collab/internal/config"
	grpcAuth "github.com/christmas-fire/nexus-collab/internal/controller/grpc/auth"
	grpcChat "github.com/christmas-fire/nexus-collab/internal/controller/grpc/chat"
	"github.com/christmas-fire/nexus-collab/internal/controller/grpc/interceptors"
	"github.com/christmas-fire/nexus-collab/internal/controller/rest"
	"github.com/christmas-fire/nexus-collab/internal/controller/ws"

	"github.com/christmas-fire/nexus-collab/internal/repository/message"
	"github.com/christmas-fire/nexus-collab/internal/repository/project"
	"github.com/christmas-fire/nexus-collab/internal/repository/task"
	userRepo "github.com/christmas-fire/nexus-collab/internal/repository/user"

	authService "github.com/christmas-fire/nexus-collab/internal/service/auth"
	chatService "github.com/christmas-fire/nexus-collab/internal/service/chat"
	"github.com/christmas-fire/nexus-collab/internal/service/session"

	badgerStorage "github.com/christmas-fire/nexus-collab/internal/storage/badger"
	"github.com/christmas-fire/nexus-collab/internal/storage/postgres"
	redisStorage "github.com/christmas-fire/nexus-collab/internal/storage/redis"
	"github.com/christmas-fire/nexus-collab/internal/storage/uploads"

	authv1 "github.com/christmas-fire/nexus-collab/pkg/auth/v1"
	chatv1 "github.com/christmas-fire/nexus-collab/pkg/chat/v1"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, continuing with system environment variables only", "error", err)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logs.GetLoggerFromString(cfg.LogLevel)
	if cfg.JWTSecretGenerated {
		log.Warn("JWT_SECRET is not set, using a random secret; tokens will not survive a restart")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dbPool, err := postgres.NewStorage(ctx, cfg.PostgresDSN, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbPool.Close()

	if err := postgres.Migrate(ctx, dbPool); err != nil {
		return err
	}

	messages, closeMessages, err := openMessageStore(cfg, dbPool)
	if err != nil {
		return err
	}
	defer closeMessages()
	log.Info("message store ready", "store", cfg.MessageStore)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = redisStorage.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info("cross-instance fan-out enabled", "redis", cfg.RedisAddr)
	}

	store, err := uploads.NewStore(cfg.UploadsDir, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	userRepository := userRepo.NewPostgresRepository(dbPool)
	projectRepository := project.NewPostgresRepository(dbPool)
	taskRepository := task.NewPostgresRepository(dbPool)

	authenticationService := authService.NewAuthService(userRepository, cfg.JWTSecret, cfg.TokenTTL)

	registry := session.NewRegistry()
	defer registry.Close()
	chService := chatService.NewChatService(messages, registry, redisClient, log)

	hub := ws.NewHub(chService, redisClient, authenticationService, log, cfg.WSSendBuffer)
	go hub.Run(ctx)
	go hub.SubscribeToMessages(ctx)

	router := rest.NewRouter(rest.Handlers{
		Auth:     rest.NewAuthHandler(authenticationService, userRepository, store, log),
		Users:    rest.NewUserHandler(userRepository, authenticationService, store, log),
		Projects: rest.NewProjectHandler(projectRepository, log),
		Tasks:    rest.NewTaskHandler(taskRepository, log),
		Messages: rest.NewMessageHandler(chService, log),
	}, authenticationService, hub, store)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnaryInterceptor(authenticationService, grpcAuth.PublicMethods),
		),
		grpc.ChainStreamInterceptor(
			interceptors.AuthStreamInterceptor(authenticationService, grpcAuth.PublicMethods),
		),
	)
	authv1.RegisterAuthServiceServer(grpcServer, grpcAuth.NewServer(authenticationService))
	chatv1.RegisterChatServiceServer(grpcServer, grpcChat.NewServer(chService, log))

	errChan := make(chan error, 2)

	go func() {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			errChan <- fmt.Errorf("failed to listen: %w", err)
			return
		}

		log.Info("gRPC server is listening", "addr", listener.Addr().String())
		if err := grpcServer.Serve(listener); err != nil {
			errChan <- fmt.Errorf("failed to serve grpc: %w", err)
		}
	}()

	go func() {
		log.Info("HTTP server is listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to serve http: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case runErr = <-errChan:
		log.Error("server error, initiating shutdown", "error", runErr)
	}

	// Closes the websocket clients; hijacked connections are not covered by Shutdown.
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown did not complete", "error", err)
	}
	grpcServer.GracefulStop()

	return runErr
}

func openMessageStore(cfg config.Config, pool *pgxpool.Pool) (message.Repository, func(), error) {
	if cfg.MessageStore != config.StoreBadger {
		return message.NewPostgresRepository(pool), func() {}, nil
	}

	db, err := badgerStorage.Open(cfg.BadgerPath)
	if err != nil {
		return nil, nil, err
	}
	repo, err := message.NewBadgerRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, func() {
		repo.Close()
		db.Close()
	}, nil
}
