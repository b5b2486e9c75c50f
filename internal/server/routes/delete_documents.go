package routes

import (
	"encoding/json"
	"net/http"

	"github.com/neoforge-dev/synapse/internal/queue"
	"github.com/neoforge-dev/synapse/internal/server/middleware"
	"github.com/neoforge-dev/synapse/internal/util"
	"github.com/neoforge-dev/synapse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DeleteDocumentHandler queues a document for removal from the index, the
// graph, and object storage
func DeleteDocumentHandler(c echo.Context) error {
	type deleteDocumentParams struct {
		ID  string `param:"id" validate:"required"`
		Key string `query:"key"`
	}

	type deleteDocumentResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteDocumentParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteDocumentResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteDocumentResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	app := c.(*middleware.AppContext).App

	msg, err := json.Marshal(queue.DeleteMessage{
		DocumentID: params.ID,
		Key:        params.Key,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, deleteDocumentResponse{
			Message: "Internal server error",
		})
	}
	if err := util.RetryErr(3, func() error {
		return queue.PublishFIFO(app.Queue, queue.DeleteQueue, msg)
	}); err != nil {
		logger.Error("Failed to publish to delete_queue", "err", err)
		return c.JSON(http.StatusInternalServerError, deleteDocumentResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, deleteDocumentResponse{
		Message: "Document queued for deletion",
	})
}
