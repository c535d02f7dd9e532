package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimspell/lobbywatch/internal/app/logger/logging"
	"github.com/dimspell/lobbywatch/internal/klei"
	"github.com/dimspell/lobbywatch/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Console serves the lobby directory over HTTP. Every request runs the
// pipeline again; nothing is cached.
type Console struct {
	Config *Config
	Client *klei.Client
}

func NewConsole(client *klei.Client, opts ...Option) (*Console, error) {
	config := DefaultConfig()
	for _, fn := range opts {
		if err := fn(config); err != nil {
			return nil, fmt.Errorf("failed to initialize config: %w", err)
		}
	}
	metrics.Init()

	return &Console{
		Config: config,
		Client: client,
	}, nil
}

type Option func(*Config) error

type Config struct {
	BindAddr           string
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
	Version            string
}

func DefaultConfig() *Config {
	return &Config{
		BindAddr:           "localhost:2137",
		CORSAllowedOrigins: []string{"*"},
		RequestTimeout:     2 * time.Minute,
		Version:            "dev",
	}
}

func WithCORSAllowedOrigins(allowedOrigins []string) Option {
	return func(c *Config) error {
		c.CORSAllowedOrigins = allowedOrigins
		return nil
	}
}

func WithBindAddr(bindAddr string) Option {
	return func(c *Config) error {
		if bindAddr == "" {
			return errors.New("bind address is empty")
		}
		c.BindAddr = bindAddr
		return nil
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("request timeout must be positive, got %s", timeout)
		}
		c.RequestTimeout = timeout
		return nil
	}
}

func WithVersion(version string) Option {
	return func(c *Config) error {
		c.Version = version
		return nil
	}
}

func (c *Console) HttpRouter() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Throttle(100))

	{ // Set up meta routes (readiness, liveness, metrics etc.)
		mux.Get("/_health", func(w http.ResponseWriter, r *http.Request) {
			renderJSON(w, r, map[string]string{"status": "OK", "version": c.Config.Version})
		})
		mux.Get("/_metrics", promhttp.Handler().ServeHTTP)
	}

	{ // Set up the directory API
		api := chi.NewRouter()
		api.Use(middleware.Timeout(c.Config.RequestTimeout))
		api.Use(cors.New(cors.Options{
			AllowedOrigins:   c.Config.CORSAllowedOrigins,
			AllowCredentials: false,
			Debug:            false,
			AllowedMethods:   []string{http.MethodGet},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			MaxAge:           7200,
		}).Handler)

		api.Get("/lobbies", c.ListLobbies())
		api.Get("/rooms", c.ListRooms())
		api.Get("/regions", c.ListRegions())
		api.Get("/versions", c.ListVersions())
		api.Get("/builds/{type}", c.LatestBuild())
		mux.Mount("/api", api)
	}

	return mux
}

func (c *Console) Handlers() (start GracefulFunc, shutdown GracefulFunc) {
	httpServer := &http.Server{
		Addr:         c.Config.BindAddr,
		Handler:      h2c.NewHandler(c.HttpRouter(), &http2.Server{}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: c.Config.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	unsubscribe := func() {}
	if bus := c.Client.Config.Events; bus != nil {
		unsubscribe = klei.ObserveMetrics(bus)
	}

	start = func(ctx context.Context) error {
		slog.Info("Configured console server", "addr", c.Config.BindAddr)
		return httpServer.ListenAndServe()
	}

	shutdown = func(ctx context.Context) error {
		slog.Info("Started shutting down the console server")

		unsubscribe()
		c.Client.Close()

		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("Failed shutting down the console server", logging.Error(err))
			return err
		}
		slog.Info("Successfully shut down the console server")
		return nil
	}

	return start, shutdown
}

type GracefulFunc func(context.Context) error

// Graceful runs start until SIGINT, SIGTERM or the end of ctx, then calls
// shutdown. When start fails, shutdown still runs before the error of start is
// returned.
func (c *Console) Graceful(ctx context.Context, start GracefulFunc, shutdown GracefulFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		stopChan = make(chan os.Signal, 1)
		errChan  = make(chan error, 1)
	)

	// Set up the graceful shutdown handler (traps SIGINT and SIGTERM)
	go func() {
		signal.Notify(stopChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stopChan)

		select {
		case <-stopChan:
		case <-ctx.Done():
		}

		timer, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		errChan <- shutdown(timer)
	}()

	// Start the server
	if err := start(ctx); !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-errChan
		return err
	}

	return <-errChan
}
