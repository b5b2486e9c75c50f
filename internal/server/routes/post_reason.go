package routes

import (
	"net/http"

	"github.com/neoforge-dev/synapse/internal/server/middleware"
	"github.com/neoforge-dev/synapse/pkg/logger"
	"github.com/neoforge-dev/synapse/pkg/reasoning"
	"github.com/neoforge-dev/synapse/pkg/retrieval"

	"github.com/labstack/echo/v4"
)

// ReasonHandler runs a multi-step reasoning chain for a question
func ReasonHandler(c echo.Context) error {
	type reasonStep struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		Query       string `json:"query"`
	}

	type reasonRequest struct {
		Question     string       `json:"question" validate:"required"`
		Steps        []reasonStep `json:"steps" validate:"omitempty,dive"`
		ContextSteps int          `json:"context_steps"`
		SearchType   string       `json:"search_type"`
		TopK         int          `json:"top_k"`
		IncludeGraph bool         `json:"include_graph"`
	}

	type reasonErrorResponse struct {
		Message string `json:"message"`
	}

	data := new(reasonRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, reasonErrorResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, reasonErrorResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	steps := make([]reasoning.StepSpec, 0, len(data.Steps))
	for _, s := range data.Steps {
		steps = append(steps, reasoning.StepSpec{
			Name:        s.Name,
			Description: s.Description,
			Query:       s.Query,
		})
	}

	cfg := reasoning.Config{
		ContextSteps: data.ContextSteps,
		Retrieval: retrieval.Config{
			SearchType:   retrieval.SearchType(data.SearchType),
			TopK:         data.TopK,
			IncludeGraph: data.IncludeGraph,
		},
	}

	result, err := app.Engine.Reason(ctx, data.Question, steps, cfg)
	if err != nil {
		logger.Error("[Reason] chain error", "err", err)
		return c.JSON(http.StatusInternalServerError, reasonErrorResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, result)
}
