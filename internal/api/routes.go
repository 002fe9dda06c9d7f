// ABOUTME: Route handlers for location and weather endpoints
// ABOUTME: Validates request bodies and maps domain errors to HTTP status codes

package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/harper/skycast/internal/forecast"
	"github.com/harper/skycast/internal/geocode"
	"github.com/harper/skycast/internal/models"
	"github.com/harper/skycast/internal/resolver"
)

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "skycast"})
	})

	v1 := s.app.Group("/api/v1")
	v1.Get("/location", s.getLocation)
	v1.Put("/location", s.putLocation)
	v1.Get("/search", s.search)
	v1.Get("/saved", s.listSaved)
	v1.Post("/saved", s.addSaved)
	v1.Delete("/saved/:id", s.removeSaved)
	v1.Get("/default", s.getDefault)
	v1.Put("/default/:id", s.setDefault)
	v1.Get("/recent", s.listRecent)
	v1.Delete("/recent/:id", s.removeRecent)
	v1.Get("/weather", s.getWeather)
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Name      string   `json:"name" validate:"max=255"`
	Country   string   `json:"country"`
	Admin1    string   `json:"admin1"`
	Admin2    string   `json:"admin2"`
	ID        int64    `json:"id"`
	Source    string   `json:"source" validate:"omitempty,oneof=default saved recent search geolocation ip-location fallback"`
}

func (r locationRequest) candidate() models.Candidate {
	return models.Candidate{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Name:      r.Name,
		Country:   r.Country,
		Admin1:    r.Admin1,
		Admin2:    r.Admin2,
		ID:        r.ID,
	}
}

type savedRequest struct {
	locationRequest
	ID      int64  `json:"id" validate:"required,ne=0"`
	Name    string `json:"name" validate:"required,max=255"`
	Country string `json:"country" validate:"required"`
}

type searchQuery struct {
	Query string `validate:"required,max=200"`
}

func (s *Server) bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := s.validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// domainError maps resolver and provider errors onto HTTP errors.
func domainError(err error) error {
	switch {
	case errors.Is(err, resolver.ErrClosed):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, geocode.ErrDisabled):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	case errors.Is(err, geocode.ErrEmptyQuery):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusBadGateway, err.Error())
}

func (s *Server) getLocation(c *fiber.Ctx) error {
	active, ok := s.locations.Active()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no active location")
	}
	return c.JSON(active)
}

func (s *Server) putLocation(c *fiber.Ctx) error {
	var req locationRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	source := models.SourceSearch
	if req.Source != "" {
		source = models.Source(req.Source)
	}
	if err := s.locations.SetLocation(c.UserContext(), req.candidate(), source); err != nil {
		if errors.Is(err, resolver.ErrClosed) {
			return domainError(err)
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return s.getLocation(c)
}

func (s *Server) search(c *fiber.Ctx) error {
	q := searchQuery{Query: c.Query("q")}
	if err := s.validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter q is required")
	}
	results, err := s.locations.Search(c.UserContext(), q.Query)
	if err != nil {
		return domainError(err)
	}
	if results == nil {
		results = []models.Candidate{}
	}
	return c.JSON(fiber.Map{"query": q.Query, "results": results})
}

func (s *Server) listSaved(c *fiber.Ctx) error {
	return c.JSON(nonNil(s.locations.Saved()))
}

func (s *Server) addSaved(c *fiber.Ctx) error {
	var req savedRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	loc := models.SavedLocation{Candidate: req.candidate()}
	loc.ID, loc.Name, loc.Country = req.ID, req.Name, req.Country
	if err := s.locations.SaveLocation(c.UserContext(), loc); err != nil {
		if errors.Is(err, resolver.ErrClosed) {
			return domainError(err)
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(nonNil(s.locations.Saved()))
}

func (s *Server) removeSaved(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if models.IndexByID(s.locations.Saved(), id) < 0 {
		return fiber.NewError(fiber.StatusNotFound, "no saved location with that id")
	}
	if err := s.locations.RemoveLocation(c.UserContext(), id); err != nil {
		return domainError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getDefault(c *fiber.Ctx) error {
	def, ok := s.locations.Default()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no default location")
	}
	return c.JSON(def)
}

func (s *Server) setDefault(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if models.IndexByID(s.locations.Saved(), id) < 0 {
		return fiber.NewError(fiber.StatusNotFound, "no saved location with that id")
	}
	if err := s.locations.SetDefaultLocation(c.UserContext(), id); err != nil {
		return domainError(err)
	}
	return s.getDefault(c)
}

func (s *Server) listRecent(c *fiber.Ctx) error {
	return c.JSON(nonNil(s.locations.Recent()))
}

func (s *Server) removeRecent(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if models.IndexByID(s.locations.Recent(), id) < 0 {
		return fiber.NewError(fiber.StatusNotFound, "no recent location with that id")
	}
	if err := s.locations.RemoveFromRecent(c.UserContext(), id); err != nil {
		return domainError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getWeather(c *fiber.Ctx) error {
	if s.weather == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "weather is not enabled")
	}
	report, err := s.weather.Latest()
	if errors.Is(err, forecast.ErrNoReport) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(report)
}

func nonNil(list []models.SavedLocation) []models.SavedLocation {
	if list == nil {
		return []models.SavedLocation{}
	}
	return list
}
