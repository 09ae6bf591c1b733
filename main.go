// Command warehouse-sim runs the warehouse robot simulation.
//
// It supports three modes:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket
//     updates and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API
//     if none is available
//  3. "run" drives one simulation headless and prints its final metrics
//
// Flags control host/port, grid directory, settings file, run history
// database, logging and optional ngrok tunneling.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/warehouse-sim/api"
	"github.com/wricardo/warehouse-sim/sim/config"
	"github.com/wricardo/warehouse-sim/sim/engine"
	"github.com/wricardo/warehouse-sim/sim/metrics"
	"github.com/wricardo/warehouse-sim/sim/service"
	"github.com/wricardo/warehouse-sim/sim/session"
	"github.com/wricardo/warehouse-sim/transport/mcp"
	"github.com/wricardo/warehouse-sim/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Warehouse Robot Simulation"
)

const (
	sessionCleanupInterval = time.Hour
	shutdownTimeout        = 10 * time.Second
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("error loading .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("exiting")
	}
}

// newApp builds the root command. Flags are inherited by the subcommands.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "warehouse-sim",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "grid-dir", Value: "grids", Usage: "directory containing grid definitions", Sources: cli.EnvVars("GRID_DIR")},
			&cli.StringFlag{Name: "settings", Usage: "YAML file with simulation settings", Sources: cli.EnvVars("WAREHOUSE_SETTINGS")},
			&cli.StringFlag{Name: "metrics-db", Value: "warehouse.db", Usage: "SQLite file for run history (empty disables it)", Sources: cli.EnvVars("WAREHOUSE_METRICS_DB")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "remove sessions not accessed for this long"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "panic, fatal, error, warn, info, debug or trace", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json", Sources: cli.EnvVars("LOG_FORMAT")},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Action:  serveAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run an MCP stdio server backed by the HTTP API",
				Action:  stdioMCPAction,
			},
			runCommand(),
		},
	}
}

// newLogger configures logrus from the log flags
func newLogger(cmd *cli.Command) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	switch format := cmd.String("log-format"); format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

// loadSettings reads the settings file and applies environment overrides
func loadSettings(path string) (config.Settings, error) {
	settings, err := config.LoadSettings(path)
	if err != nil {
		return settings, err
	}
	if err := settings.ApplyEnv(); err != nil {
		return settings, fmt.Errorf("settings from environment: %w", err)
	}
	return settings, nil
}

// services holds everything a running server needs
type services struct {
	simulation service.SimulationService
	sessions   *session.Manager
	hub        *websocket.Hub
	runs       *metrics.Store
}

// Close stops every engine and closes the run store
func (s *services) Close() {
	s.sessions.CloseAll()
	if s.runs != nil {
		if err := s.runs.Close(); err != nil {
			logrus.WithError(err).Warn("closing run store")
		}
	}
}

type serviceOptions struct {
	GridDir   string
	Settings  string
	MetricsDB string
}

// initializeServices wires the grid manager, run store, WebSocket hub,
// session manager and simulation service
func initializeServices(opts serviceOptions, logger logrus.FieldLogger) (*services, error) {
	settings, err := loadSettings(opts.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	grids, err := config.NewManager(opts.GridDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create grid manager: %w", err)
	}

	var runs *metrics.Store
	if opts.MetricsDB != "" {
		runs, err = metrics.Open(metrics.Config{Path: opts.MetricsDB, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
	}

	hub := websocket.NewHub(logger)
	go hub.Run()

	sessions := session.NewManager(session.ManagerOptions{
		Settings: settings,
		Logger:   logger,
		ObserverFactory: func(sessionID string) engine.Observer {
			observers := engine.Observers{hub.Observer(sessionID)}
			if runs != nil {
				observers = append(observers, runs.ObserverFor(sessionID))
			}
			return observers
		},
	})

	var runStore service.RunStore
	if runs != nil {
		runStore = runs
	}

	return &services{
		simulation: service.NewSimulationService(sessions, grids, runStore, logger),
		sessions:   sessions,
		hub:        hub,
		runs:       runs,
	}, nil
}

func servicesFromFlags(cmd *cli.Command, logger logrus.FieldLogger) (*services, error) {
	return initializeServices(serviceOptions{
		GridDir:   cmd.String("grid-dir"),
		Settings:  cmd.String("settings"),
		MetricsDB: cmd.String("metrics-db"),
	}, logger)
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration, logger logrus.FieldLogger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.WithField("removed", removed).Info("cleaned up expired sessions")
			}
		}
	}
}

// newRouter mounts the API server and the /mcp proxy endpoint
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// serveAction starts the HTTP server and, when enabled, an ngrok tunnel
func serveAction(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	svc, err := servicesFromFlags(cmd, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	go sessionCleanupRoutine(ctx, svc.sessions, cmd.Duration("session-ttl"), logger)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), int(cmd.Int("port")))
	apiServer := api.NewServer(svc.simulation, svc.hub, logger)
	mainRouter := newRouter(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.WithFields(logrus.Fields{
			"rest":      fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Infof("%s v%s listening on %s", AppName, Version, addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveNgrok(ctx, cmd, mainRouter, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	logger.Info("server stopped")
	return nil
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done
func serveNgrok(ctx context.Context, cmd *cli.Command, handler http.Handler, logger logrus.FieldLogger) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.WithField("domain", domain).Info("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.WithError(err).Error("failed to start ngrok tunnel")
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logger.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	logger.WithFields(logrus.Fields{
		"rest":      ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Infof("ngrok tunnel established: %s", ngrokURL)

	tunnelServer := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		tunnelServer.Close()
	}()

	if err := tunnelServer.Serve(tun); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Warn("ngrok server error")
	}
	logger.Info("ngrok tunnel closed")
}

// externalAPIAvailable reports whether an API server answers on baseURL
func externalAPIAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// stdioMCPAction runs an MCP stdio server. It reuses an API server on the
// configured port when one answers; otherwise it starts an internal API on
// a random loopback port.
func stdioMCPAction(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	baseURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), int(cmd.Int("port")))
	if externalAPIAvailable(baseURL) {
		logger.WithField("url", baseURL).Info("using external API server for MCP")
	} else {
		svc, err := servicesFromFlags(cmd, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: api.NewServer(svc.simulation, svc.hub, logger)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		logger.WithField("url", baseURL).Info("started internal API server for MCP")
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
