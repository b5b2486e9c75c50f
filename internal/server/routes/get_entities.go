package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/neoforge-dev/synapse/internal/server/middleware"
	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/graphstore"
	"github.com/neoforge-dev/synapse/pkg/logger"

	"github.com/labstack/echo/v4"
)

const defaultSearchLimit = 100

// SearchEntitiesHandler looks up entities by exact property match. The
// limit query parameter overrides the default result cap; 0 disables it.
func SearchEntitiesHandler(c echo.Context) error {
	type searchEntitiesResponse struct {
		Message  string          `json:"message"`
		Entities []common.Entity `json:"entities,omitempty"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	// broad filters would otherwise return the whole graph
	limit := defaultSearchLimit
	props := make(map[string]string)
	for key, values := range c.QueryParams() {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		if key == "limit" {
			n, err := strconv.Atoi(values[0])
			if err != nil || n < 0 {
				return c.JSON(http.StatusBadRequest, searchEntitiesResponse{
					Message: "Invalid limit",
				})
			}
			limit = n
			continue
		}
		props[key] = values[0]
	}
	if len(props) == 0 {
		return c.JSON(http.StatusBadRequest, searchEntitiesResponse{
			Message: "At least one property filter is required",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	entities, err := app.Graph.SearchByProperties(ctx, props, limit)
	if err != nil {
		logger.Error("[Graph] entity search failed", "err", err)
		return c.JSON(http.StatusInternalServerError, searchEntitiesResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, searchEntitiesResponse{
		Message:  "OK",
		Entities: entities,
	})
}

// GetEntityHandler fetches a single entity by id
func GetEntityHandler(c echo.Context) error {
	type getEntityResponse struct {
		Message string         `json:"message"`
		Entity  *common.Entity `json:"entity,omitempty"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, getEntityResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	entity, err := app.Graph.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, graphstore.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getEntityResponse{
				Message: "Entity not found",
			})
		}
		logger.Error("[Graph] entity lookup failed", "err", err)
		return c.JSON(http.StatusInternalServerError, getEntityResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getEntityResponse{
		Message: "OK",
		Entity:  entity,
	})
}

// GetNeighborsHandler expands one hop around an entity
func GetNeighborsHandler(c echo.Context) error {
	type getNeighborsResponse struct {
		Message       string                `json:"message"`
		Entities      []common.Entity       `json:"entities,omitempty"`
		Relationships []common.Relationship `json:"relationships,omitempty"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, getNeighborsResponse{
			Message: "Invalid request params",
		})
	}

	direction := graphstore.Direction(c.QueryParam("direction"))
	switch direction {
	case graphstore.DirectionIn, graphstore.DirectionOut, graphstore.DirectionBoth:
	case "":
		direction = graphstore.DirectionBoth
	default:
		return c.JSON(http.StatusBadRequest, getNeighborsResponse{
			Message: "Invalid direction",
		})
	}

	var relTypes []string
	if types, ok := c.QueryParams()["type"]; ok {
		relTypes = types
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	neighbors, err := app.Graph.GetNeighbors(ctx, id, relTypes, direction)
	if err != nil {
		logger.Error("[Graph] neighbor expansion failed", "err", err)
		return c.JSON(http.StatusInternalServerError, getNeighborsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getNeighborsResponse{
		Message:       "OK",
		Entities:      neighbors.Entities,
		Relationships: neighbors.Relationships,
	})
}
