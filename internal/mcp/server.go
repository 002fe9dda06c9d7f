// ABOUTME: MCP server initialization and configuration
// ABOUTME: Exposes the location resolver to AI agents over stdio

package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harper/skycast/internal/forecast"
	"github.com/harper/skycast/internal/models"
)

// Resolver is the location surface the tools operate on.
type Resolver interface {
	Active() (models.ActiveLocation, bool)
	SetLocation(ctx context.Context, c models.Candidate, source models.Source) error
	Search(ctx context.Context, query string) ([]models.Candidate, error)
	Saved() []models.SavedLocation
	SaveLocation(ctx context.Context, loc models.SavedLocation) error
	Default() (models.SavedLocation, bool)
	SetDefaultLocation(ctx context.Context, id int64) error
	RemoveLocation(ctx context.Context, id int64) error
	Recent() []models.SavedLocation
	RemoveFromRecent(ctx context.Context, id int64) error
}

// Weather supplies forecasts for the get_weather tool.
type Weather interface {
	Latest() (forecast.Report, error)
	Refresh(ctx context.Context) (forecast.Report, error)
}

// Server wraps the MCP server with the resolver.
type Server struct {
	mcp      *mcp.Server
	resolver Resolver
	weather  Weather
}

// NewServer creates an MCP server with all capabilities. weather may be nil.
func NewServer(resolver Resolver, weather Weather) (*Server, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "skycast",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:      mcpServer,
		resolver: resolver,
		weather:  weather,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
