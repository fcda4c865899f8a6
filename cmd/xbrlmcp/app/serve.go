package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/auth"
	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/logger"
	mcpserver "github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/mcp/server"
)

var (
	servePort       string
	serveHost       string
	serveAPIBaseURL string
	serveSessionTTL time.Duration
)

// newServeCommand creates the 'serve' subcommand
func newServeCommand() *cobra.Command {
	// Check for MCP_PORT environment variable
	defaultPort := mcpserver.DefaultMCPPort
	if envPort := os.Getenv("MCP_PORT"); envPort != "" {
		defaultPort = envPort
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the XBRL-US MCP server",
		Long: `Start an MCP (Model Context Protocol) server that exposes XBRL-US financial data tools.
Callers supply their XBRL-US credentials per request (base64 'config' parameter or
individual query parameters); the server authenticates each session once and reuses
the access token until it expires.

The port can be configured via the --port flag or the MCP_PORT environment variable.
The XBRL_USERNAME, XBRL_PASSWORD, XBRL_CLIENT_ID and XBRL_CLIENT_SECRET environment
variables supply default credentials for deployments without per-request configuration.`,
		RunE: serveCmdFunc,
	}

	// Add flags
	cmd.Flags().StringVar(&servePort, "port", defaultPort, "Port to listen on (can also be set via MCP_PORT env var)")
	cmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host to listen on")
	cmd.Flags().StringVar(&serveAPIBaseURL, "api-base-url", "", "Override the XBRL-US API base URL")
	cmd.Flags().DurationVar(&serveSessionTTL, "session-ttl", 0,
		"Evict cached session authentication state idle longer than this duration (0 disables eviction)")

	return cmd
}

// serveCmdFunc is the main function for the serve command
func serveCmdFunc(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if _, ok := auth.FromEnv(); ok {
		logger.Info("Default XBRL-US credentials found in environment")
	} else {
		logger.Info("No default credentials in environment; callers must supply per-request configuration")
	}

	srv, err := mcpserver.New(ctx, &mcpserver.Config{
		Host:       serveHost,
		Port:       servePort,
		APIBaseURL: serveAPIBaseURL,
		SessionTTL: serveSessionTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Start the server in a goroutine so we can react to signals
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Infof("Received signal %s, shutting down", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	}
}
