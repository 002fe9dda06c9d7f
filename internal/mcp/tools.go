// ABOUTME: MCP tool definitions and handlers
// ABOUTME: Lets agents read and change the active, saved, and recent locations

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harper/skycast/internal/forecast"
	"github.com/harper/skycast/internal/models"
)

func (s *Server) registerTools() {
	s.registerGetLocationTool()
	s.registerSetLocationTool()
	s.registerSearchTool()
	s.registerSaveLocationTool()
	s.registerSetDefaultTool()
	s.registerRemoveLocationTool()
	s.registerListSavedTool()
	s.registerListRecentTool()
	s.registerRemoveRecentTool()
	if s.weather != nil {
		s.registerGetWeatherTool()
	}
}

// LocationOutput is a location as agents see it.
type LocationOutput struct {
	ID        int64   `json:"id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Label     string  `json:"label"`
	Country   string  `json:"country,omitempty"`
	Admin1    string  `json:"admin1,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source,omitempty"`
	IsDefault bool    `json:"is_default,omitempty"`
}

func candidateOutput(c models.Candidate) LocationOutput {
	return LocationOutput{
		ID:        c.ID,
		Name:      c.Name,
		Label:     c.Label(),
		Country:   c.Country,
		Admin1:    c.Admin1,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
}

func activeOutput(a models.ActiveLocation) LocationOutput {
	out := candidateOutput(a.Candidate)
	out.Source = string(a.Source)
	return out
}

func savedOutput(l models.SavedLocation) LocationOutput {
	out := candidateOutput(l.Candidate)
	out.IsDefault = l.IsDefault
	return out
}

func savedOutputs(list []models.SavedLocation) []LocationOutput {
	out := make([]LocationOutput, len(list))
	for i, l := range list {
		out[i] = savedOutput(l)
	}
	return out
}

// LocationListOutput wraps a list of locations.
type LocationListOutput struct {
	Locations []LocationOutput `json:"locations"`
	Count     int              `json:"count"`
}

func listOutput(list []LocationOutput) LocationListOutput {
	return LocationListOutput{Locations: list, Count: len(list)}
}

// textResult renders out as indented JSON text content.
func textResult(out any) *mcp.CallToolResult {
	jsonBytes, _ := json.MarshalIndent(out, "", "  ") //nolint:errchkjson // output is always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}
}

var idSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"id": map[string]interface{}{
			"type":        "integer",
			"description": "Location id as shown by list_saved or list_recent",
		},
	},
	"required": []string{"id"},
}

// EmptyInput is used by tools without arguments.
type EmptyInput struct{}

// IDInput selects a location by id.
type IDInput struct {
	ID int64 `json:"id"`
}

func (s *Server) registerGetLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_location",
		Description: "Get the active location the weather is shown for, and how it was chosen.",
		InputSchema: map[string]interface{}{"type": "object"},
	}, s.handleGetLocation)
}

func (s *Server) handleGetLocation(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, LocationOutput, error) {
	active, ok := s.resolver.Active()
	if !ok {
		return nil, LocationOutput{}, fmt.Errorf("no active location yet")
	}
	output := activeOutput(active)
	return textResult(output), output, nil
}

// SetLocationInput picks a place by search query or by coordinates.
type SetLocationInput struct {
	Query     string   `json:"query,omitempty"`
	Index     int      `json:"index,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (s *Server) registerSetLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "set_location",
		Description: "Change the active location. Give a place name query (optionally with a 1-based result index) or latitude and longitude.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Place name to search for (e.g., 'London', 'Springfield, IL')",
				},
				"index": map[string]interface{}{
					"type":        "integer",
					"description": "1-based index into the search results, default 1",
				},
				"latitude": map[string]interface{}{
					"type":        "number",
					"description": "Latitude coordinate (-90 to 90)",
				},
				"longitude": map[string]interface{}{
					"type":        "number",
					"description": "Longitude coordinate (-180 to 180)",
				},
			},
		},
	}, s.handleSetLocation)
}

func (s *Server) handleSetLocation(ctx context.Context, _ *mcp.CallToolRequest, input SetLocationInput) (*mcp.CallToolResult, LocationOutput, error) {
	var candidate models.Candidate
	switch {
	case strings.TrimSpace(input.Query) != "":
		c, err := s.pick(ctx, input.Query, input.Index)
		if err != nil {
			return nil, LocationOutput{}, err
		}
		candidate = c
	case input.Latitude != nil && input.Longitude != nil:
		candidate = models.Candidate{Latitude: *input.Latitude, Longitude: *input.Longitude}
	default:
		return nil, LocationOutput{}, fmt.Errorf("provide a query or both latitude and longitude")
	}

	if err := s.resolver.SetLocation(ctx, candidate, models.SourceSearch); err != nil {
		return nil, LocationOutput{}, fmt.Errorf("failed to set location: %w", err)
	}
	return s.handleGetLocation(ctx, nil, EmptyInput{})
}

// pick searches for query and returns the index-th result (1-based, 0 meaning first).
func (s *Server) pick(ctx context.Context, query string, index int) (models.Candidate, error) {
	results, err := s.resolver.Search(ctx, query)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return models.Candidate{}, fmt.Errorf("no places found for '%s'", query)
	}
	if index <= 0 {
		index = 1
	}
	if index > len(results) {
		return models.Candidate{}, fmt.Errorf("index %d out of range, %d results", index, len(results))
	}
	return results[index-1], nil
}

// SearchInput defines input for search_locations.
type SearchInput struct {
	Query string `json:"query"`
}

func (s *Server) registerSearchTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_locations",
		Description: "Search places by name. Does not change the active location.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Place name to search for",
				},
			},
			"required": []string{"query"},
		},
	}, s.handleSearch)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, LocationListOutput, error) {
	results, err := s.resolver.Search(ctx, input.Query)
	if err != nil {
		return nil, LocationListOutput{}, fmt.Errorf("search failed: %w", err)
	}
	list := make([]LocationOutput, len(results))
	for i, c := range results {
		list[i] = candidateOutput(c)
	}
	output := listOutput(list)
	return textResult(output), output, nil
}

// SaveLocationInput saves a search result, or the active location when Query is empty.
type SaveLocationInput struct {
	Query string `json:"query,omitempty"`
	Index int    `json:"index,omitempty"`
}

func (s *Server) registerSaveLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "save_location",
		Description: "Save a place to the saved list. Without a query the active location is saved. The first saved place becomes the default.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Optional place name to search for and save",
				},
				"index": map[string]interface{}{
					"type":        "integer",
					"description": "1-based index into the search results, default 1",
				},
			},
		},
	}, s.handleSaveLocation)
}

func (s *Server) handleSaveLocation(ctx context.Context, _ *mcp.CallToolRequest, input SaveLocationInput) (*mcp.CallToolResult, LocationListOutput, error) {
	var candidate models.Candidate
	if strings.TrimSpace(input.Query) != "" {
		c, err := s.pick(ctx, input.Query, input.Index)
		if err != nil {
			return nil, LocationListOutput{}, err
		}
		candidate = c
	} else {
		active, ok := s.resolver.Active()
		if !ok {
			return nil, LocationListOutput{}, fmt.Errorf("no active location to save")
		}
		candidate = active.Candidate
	}

	if err := s.resolver.SaveLocation(ctx, models.SavedLocation{Candidate: candidate}); err != nil {
		return nil, LocationListOutput{}, fmt.Errorf("failed to save location: %w", err)
	}
	output := listOutput(savedOutputs(s.resolver.Saved()))
	return textResult(output), output, nil
}

func (s *Server) registerSetDefaultTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "set_default_location",
		Description: "Make a saved location the default. It also becomes the active location.",
		InputSchema: idSchema,
	}, s.handleSetDefault)
}

func (s *Server) handleSetDefault(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, LocationOutput, error) {
	if models.IndexByID(s.resolver.Saved(), input.ID) < 0 {
		return nil, LocationOutput{}, fmt.Errorf("no saved location with id %d", input.ID)
	}
	if err := s.resolver.SetDefaultLocation(ctx, input.ID); err != nil {
		return nil, LocationOutput{}, fmt.Errorf("failed to set default: %w", err)
	}
	def, _ := s.resolver.Default()
	output := savedOutput(def)
	return textResult(output), output, nil
}

// RemoveOutput reports a removal.
type RemoveOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) registerRemoveLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "remove_location",
		Description: "Remove a saved location. Removing the default promotes the next saved location.",
		InputSchema: idSchema,
	}, s.handleRemoveLocation)
}

func (s *Server) handleRemoveLocation(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, RemoveOutput, error) {
	saved := s.resolver.Saved()
	idx := models.IndexByID(saved, input.ID)
	if idx < 0 {
		return nil, RemoveOutput{}, fmt.Errorf("no saved location with id %d", input.ID)
	}
	if err := s.resolver.RemoveLocation(ctx, input.ID); err != nil {
		return nil, RemoveOutput{}, fmt.Errorf("failed to remove location: %w", err)
	}
	output := RemoveOutput{Success: true, Message: fmt.Sprintf("Removed '%s' from saved locations", saved[idx].Label())}
	return textResult(output), output, nil
}

func (s *Server) registerListSavedTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_saved",
		Description: "List saved locations in the order they were saved.",
		InputSchema: map[string]interface{}{"type": "object"},
	}, s.handleListSaved)
}

func (s *Server) handleListSaved(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, LocationListOutput, error) {
	output := listOutput(savedOutputs(s.resolver.Saved()))
	return textResult(output), output, nil
}

func (s *Server) registerListRecentTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_recent",
		Description: "List recently used locations, most recent first.",
		InputSchema: map[string]interface{}{"type": "object"},
	}, s.handleListRecent)
}

func (s *Server) handleListRecent(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, LocationListOutput, error) {
	output := listOutput(savedOutputs(s.resolver.Recent()))
	return textResult(output), output, nil
}

func (s *Server) registerRemoveRecentTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "remove_recent",
		Description: "Remove a location from the recent list. Saved locations are not affected.",
		InputSchema: idSchema,
	}, s.handleRemoveRecent)
}

func (s *Server) handleRemoveRecent(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, RemoveOutput, error) {
	recent := s.resolver.Recent()
	idx := models.IndexByID(recent, input.ID)
	if idx < 0 {
		return nil, RemoveOutput{}, fmt.Errorf("no recent location with id %d", input.ID)
	}
	if err := s.resolver.RemoveFromRecent(ctx, input.ID); err != nil {
		return nil, RemoveOutput{}, fmt.Errorf("failed to remove recent location: %w", err)
	}
	output := RemoveOutput{Success: true, Message: fmt.Sprintf("Removed '%s' from recent locations", recent[idx].Label())}
	return textResult(output), output, nil
}

// WeatherInput defines input for get_weather.
type WeatherInput struct {
	Refresh bool `json:"refresh,omitempty"`
}

func (s *Server) registerGetWeatherTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_weather",
		Description: "Get the forecast for the active location.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"refresh": map[string]interface{}{
					"type":        "boolean",
					"description": "Fetch a fresh forecast instead of the cached one",
				},
			},
		},
	}, s.handleGetWeather)
}

func (s *Server) handleGetWeather(ctx context.Context, _ *mcp.CallToolRequest, input WeatherInput) (*mcp.CallToolResult, forecast.Report, error) {
	report, err := s.weather.Latest()
	if input.Refresh || err != nil {
		report, err = s.weather.Refresh(ctx)
	}
	if err != nil {
		return nil, forecast.Report{}, fmt.Errorf("failed to get weather: %w", err)
	}
	return textResult(report), report, nil
}
