package server

import (
	"github.com/neoforge-dev/synapse/internal/server/middleware"
	"github.com/neoforge-dev/synapse/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Query routes
	apiRoutes.POST("/query", routes.QueryHandler)
	apiRoutes.POST("/reason", routes.ReasonHandler)

	// Document routes
	apiRoutes.POST("/documents", routes.UploadDocumentHandler)
	apiRoutes.DELETE("/documents/:id", routes.DeleteDocumentHandler)

	// Graph routes
	apiRoutes.GET("/entities", routes.SearchEntitiesHandler)
	apiRoutes.GET("/entities/:id", routes.GetEntityHandler)
	apiRoutes.GET("/entities/:id/neighbors", routes.GetNeighborsHandler)
}
