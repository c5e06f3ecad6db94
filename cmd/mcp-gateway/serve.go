package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jatzz10/mcp-gateway/backend/fsquery"
	"github.com/jatzz10/mcp-gateway/backend/jiraquery"
	"github.com/jatzz10/mcp-gateway/backend/restquery"
	"github.com/jatzz10/mcp-gateway/backend/sqlquery"
	"github.com/jatzz10/mcp-gateway/config"
	"github.com/jatzz10/mcp-gateway/gateway"
	"github.com/jatzz10/mcp-gateway/internal/logging"
	"github.com/jatzz10/mcp-gateway/mcp"
	"github.com/jatzz10/mcp-gateway/tools"
)

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Serve the SQL backend (sqlite or postgres)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), "sql")
	},
}

var fsCmd = &cobra.Command{
	Use:   "fs",
	Short: "Serve the filesystem backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), "filesystem")
	},
}

var jiraCmd = &cobra.Command{
	Use:   "jira",
	Short: "Serve the JIRA backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), "jira")
	},
}

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the REST API backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), "rest")
	},
}

func init() {
	rootCmd.AddCommand(sqlCmd, fsCmd, jiraCmd, restCmd)
}

func runServe(ctx context.Context, kind string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyLogLevel(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := buildGateway(ctx, kind, cfg)
	if err != nil {
		return err
	}
	defer gw.Close()

	registry := mcp.NewRegistry()
	if err := tools.RegisterAll(registry, gw, cfg.Server.Name, cfg.Server.Version); err != nil {
		return err
	}

	server, err := mcp.NewServer(registry, mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	})
	if err != nil {
		return err
	}

	logger := logging.Logger()
	switch cfg.Server.Transport {
	case "http":
		logger.Info("serving MCP over http", "addr", cfg.Server.HTTPAddr, "backend", kind)
		return serveHTTP(ctx, server, cfg.Server.HTTPAddr)
	default:
		logger.Info("serving MCP over stdio", "backend", kind)
		return server.Serve(ctx, os.Stdin, os.Stdout)
	}
}

func serveHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func buildGateway(ctx context.Context, kind string, cfg *config.Config) (*gateway.Gateway, error) {
	backend, err := buildBackend(ctx, kind, cfg)
	if err != nil {
		return nil, err
	}

	gw, err := gateway.New(backend, gateway.Config{
		MaxQueryLimit: cfg.Gateway.MaxQueryLimit,
		QueryTTL:      cfg.Gateway.QueryTTL,
		MetadataTTL:   cfg.Gateway.MetadataTTL,
		CacheCapacity: cfg.Gateway.CacheCapacity,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}
	return gw, nil
}

func buildBackend(ctx context.Context, kind string, cfg *config.Config) (gateway.Backend, error) {
	switch kind {
	case "sql":
		return sqlquery.New(ctx, sqlquery.Config{
			Driver:            cfg.SQL.Driver,
			DSN:               cfg.SQL.DSN,
			DangerousKeywords: cfg.SQL.DangerousKeywords,
		})
	case "filesystem":
		return fsquery.New(fsquery.Config{
			Root:          cfg.Filesystem.Root,
			MaxFileSize:   cfg.Filesystem.MaxFileSize,
			ExcludedDirs:  cfg.Filesystem.ExcludedDirs,
			IncludeHidden: cfg.Filesystem.IncludeHidden,
			MaxDepth:      cfg.Filesystem.MaxDepth,
		})
	case "jira":
		return jiraquery.New(jiraquery.Config{
			BaseURL:           cfg.Jira.BaseURL,
			Username:          cfg.Jira.Username,
			APIToken:          cfg.Jira.APIToken,
			ProjectKey:        cfg.Jira.ProjectKey,
			DangerousKeywords: cfg.Jira.DangerousKeywords,
		})
	case "rest":
		return restquery.New(restquery.Config{
			BaseURL:       cfg.REST.BaseURL,
			AuthType:      cfg.REST.AuthType,
			APIKey:        cfg.REST.APIKey,
			RateLimit:     cfg.REST.RateLimit,
			RetryAttempts: cfg.REST.RetryAttempts,
			Timeout:       cfg.REST.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
}

func applyLogLevel(level string) {
	switch level {
	case "error":
		logging.SetLogLevel(slog.LevelError)
	case "warn":
		logging.SetLogLevel(slog.LevelWarn)
	case "info":
		logging.SetLogLevel(slog.LevelInfo)
	case "debug":
		logging.SetLogLevel(slog.LevelDebug)
	case "":
		// Leave the MCP_GATEWAY_DEBUG-derived level in place.
	default:
		logging.Logger().Warn("unknown log level, keeping current", "level", level)
	}
}
