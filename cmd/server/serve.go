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

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/nestmate/internal/auth"
	"github.com/vedran77/nestmate/internal/config"
	"github.com/vedran77/nestmate/internal/logging"
	"github.com/vedran77/nestmate/internal/service"
	"github.com/vedran77/nestmate/internal/telemetry"
	"github.com/vedran77/nestmate/internal/transport/http/handlers"
	"github.com/vedran77/nestmate/internal/transport/http/middleware"
	"github.com/vedran77/nestmate/internal/transport/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply Postgres migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, migrate bool) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("telemetry shutdown", "error", err)
		}
	}()

	st, err := openStores(ctx, cfg, log, migrate)
	if err != nil {
		return err
	}
	defer st.close()

	// Services
	conversationService := service.NewConversationService(st.conversations)
	messageService := service.NewMessageService(st.messages, st.users)
	chatService := service.NewChatService(conversationService, messageService, st.users)

	// Real-time
	hub := ws.NewHub(conversationService, messageService, log)
	chatService.SetNotifier(ws.NewHubNotifier(hub))

	g, ctx := errgroup.WithContext(ctx)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		// Attach returns once subscribed, before the server accepts traffic.
		wait, err := ws.NewRedisRelay(rdb, cfg.RedisChannel, log).Attach(ctx, hub)
		if err != nil {
			return fmt.Errorf("redis relay: %w", err)
		}
		g.Go(wait)
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	// Routes
	api := http.NewServeMux()
	handlers.NewConversationHandler(chatService, log).Register(api, middleware.Auth(tokens))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health(st.ping))
	mux.Handle("/api/", middleware.RequestLogger(log)(api))
	mux.Handle("GET /ws", ws.ServeWS(hub, tokens, ws.HandlerOptions{
		AllowedOrigins: cfg.Origins(),
		SendBuffer:     cfg.SendBuffer,
	}, log))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           middleware.CORS(cfg.Origins())(mux),
		ReadHeaderTimeout: 10 * time.Second,
		// Sockets hang off request contexts; cancelling ctx closes them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		log.Info("Starting server", "addr", server.Addr, "driver", cfg.DBDriver, "relay", cfg.RedisURL != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("Shutting down")
		return server.Shutdown(sctx)
	})

	return g.Wait()
}
