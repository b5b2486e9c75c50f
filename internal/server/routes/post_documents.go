package routes

import (
	"encoding/json"
	"net/http"

	"github.com/neoforge-dev/synapse/internal/queue"
	"github.com/neoforge-dev/synapse/internal/server/middleware"
	"github.com/neoforge-dev/synapse/internal/storage"
	"github.com/neoforge-dev/synapse/internal/util"
	"github.com/neoforge-dev/synapse/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// UploadDocumentHandler accepts a document upload (multipart/form-data) and
// queues it for ingestion
func UploadDocumentHandler(c echo.Context) error {
	type uploadResponse struct {
		Message    string `json:"message"`
		DocumentID string `json:"document_id,omitempty"`
		Key        string `json:"key,omitempty"`
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "Invalid request body",
		})
	}
	uploads := form.File["files"]
	if len(uploads) != 1 {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "Exactly one file must be provided",
		})
	}
	upload := uploads[0]

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	src, err := upload.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "Could not open file",
		})
	}
	defer src.Close()

	documentID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	key, err := storage.PutFile(ctx, app.S3, upload.Filename, documentID, src)
	if err != nil {
		logger.Error("Failed to upload file", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	msg, err := json.Marshal(queue.IngestMessage{
		DocumentID: documentID,
		Key:        key,
		FileName:   upload.Filename,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}
	if err := util.RetryErr(3, func() error {
		return queue.PublishFIFO(app.Queue, queue.IngestQueue, msg)
	}); err != nil {
		logger.Error("Failed to publish to ingest_queue", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, uploadResponse{
		Message:    "Document queued for ingestion",
		DocumentID: documentID,
		Key:        key,
	})
}
