// ABOUTME: MCP resource definitions
// ABOUTME: Read-only snapshot of active, default, saved, and recent locations

package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const locationsURI = "skycast://locations"

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        locationsURI,
		Description: "The active location plus default, saved, and recent locations",
		URI:         locationsURI,
		MIMEType:    "application/json",
	}, s.handleLocationsResource)
}

// LocationsSnapshot is the body of the locations resource.
type LocationsSnapshot struct {
	Active  *LocationOutput  `json:"active,omitempty"`
	Default *LocationOutput  `json:"default,omitempty"`
	Saved   []LocationOutput `json:"saved"`
	Recent  []LocationOutput `json:"recent"`
}

func (s *Server) snapshot() LocationsSnapshot {
	snap := LocationsSnapshot{
		Saved:  savedOutputs(s.resolver.Saved()),
		Recent: savedOutputs(s.resolver.Recent()),
	}
	if active, ok := s.resolver.Active(); ok {
		out := activeOutput(active)
		snap.Active = &out
	}
	if def, ok := s.resolver.Default(); ok {
		out := savedOutput(def)
		snap.Default = &out
	}
	return snap
}

func (s *Server) handleLocationsResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	jsonBytes, _ := json.MarshalIndent(s.snapshot(), "", "  ") //nolint:errchkjson // output is always serializable

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      locationsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		},
	}, nil
}
