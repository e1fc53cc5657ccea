package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"livegate/internal/api"
	"livegate/internal/config"
	"livegate/internal/database"
	"livegate/internal/fanout"
	"livegate/internal/gateway"
	"livegate/internal/identity"
	"livegate/internal/moderation"
	"livegate/internal/observability"
	"livegate/internal/ratelimit"
	viewerreg "livegate/internal/registry"
	"livegate/internal/websocket"
)

// Application coordinates all system components.
// ARCHITECTURAL DISCOVERY: Component initialization follows strict dependency
// order: Store -> Identity -> Registry -> Fanout -> Router -> Handler -> HTTP.
type Application struct {
	config      *config.Config
	store       *database.Store
	registry    *websocket.Registry
	limiter     *ratelimit.SlidingWindow
	router      *gateway.Router
	apiServer   *api.Server
	httpServer  *http.Server
	cleanupStop chan struct{}
}

func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.LoadFromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := database.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	metrics := observability.NewMetrics()
	resolver := identity.NewResolver(store)
	tokens := identity.NewTokenService(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	registry := websocket.NewRegistry()
	viewers := viewerreg.NewViewers(store)
	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	gate := moderation.NewGate(moderation.NewKeywordFilter(), moderation.NewHeuristicClassifier())
	broadcaster := fanout.NewBroadcaster(registry, viewers, cfg.Fanout.Width, cfg.Fanout.PushTimeout)

	router := gateway.NewRouter(resolver, limiter, gate, viewers, broadcaster, metrics)

	wsHandler := websocket.NewHandler(registry, store, tokens, router, viewers, limiter, metrics, websocket.Options{
		ReadTimeout:    cfg.WebSocket.ReadTimeout,
		PingInterval:   cfg.WebSocket.PingInterval,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		BufferSize:     cfg.WebSocket.BufferSize,
		MessageTimeout: cfg.WebSocket.MessageTimeout,
	})

	apiServer := api.NewServer(store, viewers, registry, tokens)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.Handle("/metrics", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:      cfg,
		store:       store,
		registry:    registry,
		limiter:     limiter,
		router:      router,
		apiServer:   apiServer,
		httpServer:  httpServer,
		cleanupStop: make(chan struct{}),
	}, nil
}

// Start begins serving. The rate-limit cleanup loop runs for the life of the
// application so idle connection windows do not accumulate.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting livegate on %s", app.httpServer.Addr)

	go app.cleanupLoop()

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Verify the listener is up before reporting success.
	select {
	case err := <-serverErrCh:
		close(app.cleanupStop)
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("livegate started successfully")
		return nil
	case <-ctx.Done():
		close(app.cleanupStop)
		return ctx.Err()
	}
}

// Stop shuts the application down in reverse dependency order:
// HTTP -> cleanup loop -> store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down livegate")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	select {
	case <-app.cleanupStop:
	default:
		close(app.cleanupStop)
	}

	if err := app.store.Close(); err != nil {
		log.Printf("Store shutdown error: %v", err)
	}

	log.Printf("livegate shutdown complete")
	return nil
}

// GetAddr returns the server address for external connections.
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}

func (app *Application) cleanupLoop() {
	ticker := time.NewTicker(app.config.RateLimit.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			app.limiter.Cleanup(app.config.RateLimit.MaxIdle)
		case <-app.cleanupStop:
			return
		}
	}
}
