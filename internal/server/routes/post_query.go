package routes

import (
	"net/http"

	"github.com/neoforge-dev/synapse/internal/server/middleware"
	"github.com/neoforge-dev/synapse/pkg/ai"
	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/logger"
	"github.com/neoforge-dev/synapse/pkg/retrieval"

	"github.com/labstack/echo/v4"
)

// QueryHandler answers a question over the knowledge base
func QueryHandler(c echo.Context) error {
	type queryRequest struct {
		Query              string   `json:"query" validate:"required"`
		History            []string `json:"history"`
		SearchType         string   `json:"search_type"`
		TopK               int      `json:"top_k"`
		BlendKeywordWeight float64  `json:"blend_keyword_weight"`
		NoAnswerMinScore   float64  `json:"no_answer_min_score"`
		Rerank             bool     `json:"rerank"`
		MMRLambda          float64  `json:"mmr_lambda"`
		IncludeGraph       bool     `json:"include_graph"`
		InferRelationships bool     `json:"infer_relationships"`
		Persist            bool     `json:"persist"`
		MinConfidence      float64  `json:"min_confidence"`
		DryRun             bool     `json:"dry_run"`
	}

	type queryResponse struct {
		Message       string                   `json:"message"`
		Answer        string                   `json:"answer,omitempty"`
		Results       []common.SearchResult    `json:"results,omitempty"`
		Graph         *common.GraphContext     `json:"graph,omitempty"`
		PlannedWrites []retrieval.PlannedWrite `json:"planned_writes,omitempty"`
		Metrics       *ai.ModelMetrics         `json:"metrics,omitempty"`
	}

	data := new(queryRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	cfg := retrieval.Config{
		SearchType:         retrieval.SearchType(data.SearchType),
		TopK:               data.TopK,
		BlendKeywordWeight: data.BlendKeywordWeight,
		NoAnswerMinScore:   data.NoAnswerMinScore,
		Rerank:             data.Rerank,
		MMRLambda:          data.MMRLambda,
		IncludeGraph:       data.IncludeGraph,
		InferRelationships: data.InferRelationships,
		Persist:            data.Persist,
		MinConfidence:      data.MinConfidence,
		DryRun:             data.DryRun,
		History:            data.History,
	}

	result, err := app.Orchestrator.Answer(ctx, data.Query, cfg)
	if err != nil {
		logger.Error("[Query] retrieval error", "err", err)
		return c.JSON(http.StatusInternalServerError, queryResponse{
			Message: "Internal server error",
		})
	}

	metrics := app.AIClient.GetMetrics()
	return c.JSON(http.StatusOK, queryResponse{
		Message:       "OK",
		Answer:        result.Answer,
		Results:       result.Retrieval.Results,
		Graph:         result.Retrieval.Graph,
		PlannedWrites: result.Retrieval.PlannedWrites,
		Metrics:       &metrics,
	})
}
