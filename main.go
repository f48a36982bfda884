package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-invites/internal/auth"
	"ms-invites/internal/config"
	"ms-invites/internal/database"
	"ms-invites/internal/gateway"
	dedupe "ms-invites/internal/gateway/redis"
	"ms-invites/internal/gateway/telegram"
	"ms-invites/internal/kafka"
	"ms-invites/internal/logger"
	"ms-invites/internal/sse"
	"ms-invites/internal/tickets/db"
	qr "ms-invites/internal/tickets/qr_generator"
	tickets "ms-invites/internal/tickets/service"
	"ms-invites/internal/tickets/ticket_api"
	"ms-invites/internal/tickets/token"
)

func setupEvents(ctx context.Context, cfg config.KafkaConfig, logger *logger.Logger) *kafka.Producer {
	if !cfg.Enabled {
		logger.Info("KAFKA", "Kafka disabled, ticket events will not be published")
		return nil
	}

	producer := kafka.NewProducer(cfg.Brokers)
	logger.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for brokers %v", cfg.Brokers))

	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, kafka.RequiredTopics); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}
	return producer
}

func setupDedupe(ctx context.Context, cfg config.RedisConfig, logger *logger.Logger) *dedupe.Redis {
	if !cfg.Enabled {
		logger.Info("REDIS", "Redis disabled, webhook updates will not be deduplicated")
		return nil
	}

	client, err := dedupe.Connect(ctx, cfg.Addr)
	if err != nil {
		logger.Warn("REDIS", fmt.Sprintf("Continuing without update dedupe: %v", err))
		return nil
	}
	logger.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Addr))
	return dedupe.NewRedis(client, cfg.UpdateTTL)
}

// setupAdminAuth returns nil when no verifier is configured.
func setupAdminAuth(ctx context.Context, cfg config.AdminConfig, logger *logger.Logger) auth.Verifier {
	switch {
	case cfg.OIDCIssuer != "":
		verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			logger.Fatal("AUTH", err.Error())
		}
		logger.Info("AUTH", fmt.Sprintf("Admin API accepts OIDC tokens from %s", cfg.OIDCIssuer))
		return verifier
	case cfg.JWTSecret != "":
		logger.Info("AUTH", "Admin API accepts HS256 tokens signed with ADMIN_JWT_SECRET")
		return auth.NewHMACVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	}
	return nil
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting invite bot initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("CONFIG", fmt.Sprintf("Invalid configuration: %v", err))
	}

	ctx := context.Background()

	logger.Info("APP", "Verifying database connection")
	bunDB, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	store := db.NewDB(bunDB)
	if err := store.InitializeSchema(ctx); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to initialize schema: %v", err))
	}
	logger.Info("DATABASE", "Ticket schema ready")

	emitter := sse.NewTicketEventEmitter()
	events := tickets.Publishers{emitter}
	if producer := setupEvents(ctx, cfg.Kafka, logger); producer != nil {
		defer producer.Close()
		events = append(events, producer)
	}
	// must stay an untyped nil when redis is disabled
	var seen telegram.Deduper
	if d := setupDedupe(ctx, cfg.Redis, logger); d != nil {
		defer d.Close()
		seen = d
	}

	encoder := qr.NewTicketEncoder(
		qr.NewQRGenerator(qr.Options{Version: cfg.QR.Version, ModulePx: cfg.QR.ModulePx}),
		cfg.QR.EmblemPath,
		cfg.QR.EmblemSizePx,
	)
	tokens := token.NewGenerator()
	sample, err := tokens.Generate()
	if err != nil {
		logger.Fatal("QR", err.Error())
	}
	if err := encoder.Preflight(sample); err != nil {
		logger.Fatal("QR", fmt.Sprintf("Ticket encoder misconfigured: %v", err))
	}
	logger.Info("QR", "Ticket encoder ready")

	ticketService := tickets.NewTicketService(store, tokens, encoder, events, logger)
	commands := gateway.NewGateway(ticketService, cfg.Issuance.MaxQuantity, logger)

	bot := telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.Token, nil)
	webhook := telegram.NewWebhookHandler(commands, bot, seen, cfg.Telegram.WebhookSecret, logger)
	webhook.BotToken = cfg.Telegram.Token

	ticketHandler := ticket_api.NewHandler(ticketService, cfg.Issuance.MaxQuantity, healthCheck(bunDB), logger)
	ticketHandler.Events = emitter

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(ticket_api.RequestLogger(logger))

	r.Get("/healthz", ticketHandler.Healthz)

	if verifier := setupAdminAuth(ctx, cfg.Admin, logger); verifier != nil {
		r.Route("/api", func(r chi.Router) {
			if len(cfg.Admin.AllowedOrigins) > 0 {
				r.Use(cors.Handler(cors.Options{
					AllowedOrigins: cfg.Admin.AllowedOrigins,
					AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
					AllowedHeaders: []string{"Authorization", "Content-Type"},
					MaxAge:         300,
				}))
			}
			r.Use(auth.Middleware(verifier, logger))
			ticketHandler.RegisterRoutes(r)
		})
		logger.Info("ROUTER", "Admin routes registered under /api/tickets")
	} else {
		logger.Warn("ROUTER", "No admin token verifier configured, admin API disabled")
	}

	r.Post("/{token}", webhook.ServeHTTP)
	logger.Info("ROUTER", "Telegram webhook route registered")

	// cancelled on shutdown so open event streams end
	baseCtx, cancelStreams := context.WithCancel(ctx)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelStreams)

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Invite bot running on :%s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	webhookCtx, cancelWebhook := context.WithTimeout(ctx, 15*time.Second)
	if err := bot.SetWebhook(webhookCtx, cfg.Telegram.WebhookURL(), cfg.Telegram.WebhookSecret); err != nil {
		logger.Error("TELEGRAM", fmt.Sprintf("Failed to register webhook: %v", err))
	} else {
		logger.Info("TELEGRAM", fmt.Sprintf("Webhook registered at %s/<token>", cfg.Telegram.AppURL))
	}
	cancelWebhook()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Invite bot shutdown complete")
	}
}

func healthCheck(bunDB *bun.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return bunDB.PingContext(ctx)
	}
}
