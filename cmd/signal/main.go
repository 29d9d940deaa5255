package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"
	"signalhub/internal/core/services"
	httphandlers "signalhub/internal/handlers/http"
	"signalhub/internal/infrastructure/distributed"
	"signalhub/internal/infrastructure/middleware"
	"signalhub/internal/infrastructure/monitoring"
	"signalhub/internal/infrastructure/repositories/memory"
	redisrepo "signalhub/internal/infrastructure/repositories/redis"
	signalws "signalhub/internal/infrastructure/signal"
	"signalhub/pkg/config"
	"signalhub/pkg/logger"
	"signalhub/pkg/tracing"
)

func main() {
	cfg := loadConfig()

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "signalhub",
		JaegerURL:   cfg.Tracing.JaegerEndpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	collector := monitoring.NewCollector()
	health := monitoring.NewHealthChecker(cfg.Monitoring.HealthCheckTimeout)

	// State is in-memory on purpose: the registry and call state belong to
	// this instance's connections. Redis only carries cross-instance
	// presence fan-out.
	registry := memory.NewMemoryConnectionRegistry()
	callRepo := memory.NewMemoryCallRepository()
	roomRepo := memory.NewMemoryRoomRepository()
	lanRepo := memory.NewMemoryLanRepository()

	var publisher ports.PresencePublisher
	var presenceBus *distributed.PresenceBus
	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, log)
		if err != nil {
			log.Fatalw("failed to connect to Redis", "error", err)
		}
		defer redisrepo.CloseRedisClient(client)

		id := instanceID()
		presenceBus = distributed.NewPresenceBus(client, id, log)
		publisher = presenceBus
		health.AddCheck("redis", presenceBus.Healthy)
		log.Infow("presence bus enabled", "instance_id", id)
	}

	presence := services.NewPresenceService(registry, publisher, collector, log)
	calls := services.NewCallService(callRepo, registry, cfg.Signal.RingTimeout, collector, log)
	rooms := services.NewRoomService(roomRepo, registry, collector, log)
	relay := services.NewRelayService(registry, collector, log)
	lan := services.NewLanService(lanRepo, collector, log)
	verifier := services.NewTokenVerifier(cfg.Auth.JWTSecret)

	// A dropped connection ends the user's calls, leaves their rooms and
	// forgets their LAN record.
	presence.OnDisconnect(func(ctx context.Context, userID domain.UserID) {
		if err := calls.EndAllForUser(ctx, userID); err != nil {
			log.Warnw("failed to end calls on disconnect", "user_id", userID, "error", err)
		}
		if err := rooms.LeaveAll(ctx, userID); err != nil {
			log.Warnw("failed to leave rooms on disconnect", "user_id", userID, "error", err)
		}
		if err := lan.Forget(ctx, userID); err != nil {
			log.Warnw("failed to forget lan record on disconnect", "user_id", userID, "error", err)
		}
	})

	var msgRate float64
	var msgBurst int
	var maxMsgSize int64
	if cfg.RateLimiting.Enabled {
		msgRate = cfg.RateLimiting.WebSocket.MessagesPerSecond
		msgBurst = cfg.RateLimiting.WebSocket.Burst
		maxMsgSize = cfg.RateLimiting.WebSocket.MaxMessageSizeBytes
	}

	wsServer := signalws.NewWebSocketServer(verifier, presence, calls, rooms, relay, lan, collector, signalws.Options{
		PingInterval:      cfg.Signal.PingInterval,
		PongTimeout:       cfg.Signal.PongTimeout,
		ReadTimeout:       cfg.Signal.PongTimeout,
		WriteTimeout:      cfg.Signal.WriteTimeout,
		MessagesPerSecond: msgRate,
		MessageBurst:      msgBurst,
		MaxMessageSize:    maxMsgSize,
	}, log)

	signalMux := http.NewServeMux()
	signalMux.HandleFunc("/ws", wsServer.HandleWebSocket)
	signalSrv := &http.Server{
		Addr:    cfg.Signal.Address,
		Handler: signalMux,
	}

	adminSrv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      buildRouter(cfg, log, presence, calls, rooms, verifier, health),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if presenceBus != nil {
		go func() {
			err := presenceBus.Subscribe(rootCtx, func(ev distributed.PresenceEvent) {
				log.Debugw("remote presence event",
					"user_id", ev.UserID,
					"is_online", ev.IsOnline,
					"instance_id", ev.InstanceID,
				)
			})
			if err != nil && rootCtx.Err() == nil {
				log.Warnw("presence bus subscription ended", "error", err)
			}
		}()
	}

	go func() {
		log.Infow("starting signaling server", "address", cfg.Signal.Address)
		if err := signalSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("signaling server failed", "error", err)
		}
	}()

	go func() {
		log.Infow("starting admin server", "address", cfg.Server.Address)
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("admin server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Signal.ShutdownTimeout)
	defer cancel()

	calls.Shutdown()
	if err := signalSrv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("signaling server shutdown failed", "error", err)
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("admin server shutdown failed", "error", err)
	}
	if presenceBus != nil {
		presenceBus.Close()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warnw("tracer shutdown failed", "error", err)
	}
}

func loadConfig() *config.Config {
	path := os.Getenv("SIGNALHUB_CONFIG")
	if path == "" {
		path = "configs/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func buildRouter(
	cfg *config.Config,
	log *zap.SugaredLogger,
	presence ports.PresenceService,
	calls ports.CallService,
	rooms ports.RoomService,
	verifier ports.TokenVerifier,
	health *monitoring.HealthChecker,
) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	router.Use(middleware.OptionalAuthMiddleware(verifier))

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	admin := httphandlers.NewAdminHandler(presence, calls, rooms, cfg, health)
	admin.SetupRoutes(router)

	return router
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
