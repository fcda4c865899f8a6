package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/auth"
	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/logger"
	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/session"
	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/versions"
	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/xbrl"
)

const (
	// DefaultMCPPort is the default port for the MCP server
	DefaultMCPPort = "8081"
)

// Config holds the configuration for the MCP server
type Config struct {
	Host string
	Port string

	// APIBaseURL overrides the upstream XBRL-US API endpoint. Empty means
	// the production endpoint.
	APIBaseURL string

	// SessionTTL evicts session auth state idle longer than this duration.
	// Zero leaves session lifetime to the MCP transport.
	SessionTTL time.Duration
}

// Server represents the XBRL-US MCP server
type Server struct {
	config     *Config
	mcpServer  *server.MCPServer
	httpServer *http.Server
	handler    *Handler
	sessions   *session.Manager
}

// New creates a new XBRL-US MCP server
func New(_ context.Context, config *Config) (*Server, error) {
	// Create the MCP server
	versionInfo := versions.GetVersionInfo()
	mcpServer := server.NewMCPServer(
		"xbrl-us-mcp",
		versionInfo.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	// Wire the session-scoped authentication stack
	sessions := session.NewManager(session.NewLocalStorage(), config.SessionTTL)

	clientOpts := []xbrl.Option{}
	if config.APIBaseURL != "" {
		clientOpts = append(clientOpts, xbrl.WithBaseURL(config.APIBaseURL))
	}
	client := xbrl.NewClient(clientOpts...)

	authenticator, err := auth.NewAuthenticator(sessions, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	handler := NewHandler(authenticator, client)

	// Register tools
	registerTools(mcpServer, handler)

	// Create Streamable HTTP server. The context func decodes the
	// caller-supplied credential configuration at the transport boundary.
	addr := fmt.Sprintf("%s:%s", config.Host, config.Port)
	streamableServer := server.NewStreamableHTTPServer(
		mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithHTTPContextFunc(credentialContextFunc),
	)

	// Create HTTP server with security settings
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           streamableServer,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
	}

	return &Server{
		config:     config,
		mcpServer:  mcpServer,
		httpServer: httpServer,
		handler:    handler,
		sessions:   sessions,
	}, nil
}

// Start starts the MCP server
func (s *Server) Start() error {
	logger.Infof("Starting XBRL-US MCP server on http://%s:%s/mcp", s.config.Host, s.config.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the MCP server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down MCP server...")
	if err := s.sessions.Close(); err != nil {
		logger.Warnf("Failed to close session store: %v", err)
	}
	return s.httpServer.Shutdown(ctx)
}

// GetAddress returns the server address
func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://%s:%s/mcp", s.config.Host, s.config.Port)
}

// credentialContextFunc extracts the XBRL-US credential configuration from
// the inbound HTTP request and stores it in the request context. Requests
// without credential material proceed with a bare context; tool handlers
// surface the missing-authentication condition per call.
func credentialContextFunc(ctx context.Context, r *http.Request) context.Context {
	creds, err := auth.CredentialsFromRequest(r)
	if err != nil {
		logger.Warnf("Ignoring malformed credential configuration: %v", err)
		return ctx
	}
	return auth.WithCredentials(ctx, creds)
}

// registerTools registers all MCP tools with the server
func registerTools(mcpServer *server.MCPServer, handler *Handler) {
	mcpServer.AddTool(mcp.Tool{
		Name:        "search_companies",
		Description: "Search for companies by name or ticker symbol, or list companies reporting in a fiscal year",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Company name or ticker symbol to search for",
				},
				"year": map[string]interface{}{
					"type":        "integer",
					"description": "Fiscal year to search for (used when no query is given)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (default: 10)",
				},
			},
		},
	}, handler.SearchCompanies)

	mcpServer.AddTool(mcp.Tool{
		Name:        "get_company_facts",
		Description: "Get reported financial facts for a company by CIK, optionally filtered by concept and fiscal year",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"cik": map[string]interface{}{
					"type":        "string",
					"description": "SEC Central Index Key of the company (e.g. '0000320193')",
				},
				"concept": map[string]interface{}{
					"type":        "string",
					"description": "XBRL concept local name to filter by (e.g. 'Assets')",
				},
				"year": map[string]interface{}{
					"type":        "integer",
					"description": "Fiscal year to filter by",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of facts to return (default: 50)",
				},
			},
			Required: []string{"cik"},
		},
	}, handler.GetCompanyFacts)

	mcpServer.AddTool(mcp.Tool{
		Name:        "search_concepts",
		Description: "Search XBRL taxonomy concepts by local name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Concept local name to search for (e.g. 'Assets')",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of concepts to return (default: 20)",
				},
			},
			Required: []string{"query"},
		},
	}, handler.SearchConcepts)

	mcpServer.AddTool(mcp.Tool{
		Name:        "get_company_filings",
		Description: "Get SEC filings for a company by CIK, optionally filtered by form type and year",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"cik": map[string]interface{}{
					"type":        "string",
					"description": "SEC Central Index Key of the company",
				},
				"form_type": map[string]interface{}{
					"type":        "string",
					"description": "Form type to filter by (e.g. '10-K', '10-Q')",
				},
				"year": map[string]interface{}{
					"type":        "integer",
					"description": "Filing year to filter by",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of filings to return (default: 10)",
				},
			},
			Required: []string{"cik"},
		},
	}, handler.GetCompanyFilings)
}
