package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neoforge-dev/synapse/internal/storage"
	"github.com/neoforge-dev/synapse/internal/util"
	"github.com/neoforge-dev/synapse/pkg/ai"
	"github.com/neoforge-dev/synapse/pkg/chunker"
	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/extract"
	"github.com/neoforge-dev/synapse/pkg/graphstore"
	"github.com/neoforge-dev/synapse/pkg/index"
	"github.com/neoforge-dev/synapse/pkg/logger"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// Processor handles ingest and delete work items consumed by the worker.
type Processor struct {
	S3Client  *awss3.Client
	AIClient  ai.Client
	Extractor extract.Extractor
	Chunker   *chunker.Chunker
	Index     index.Index
	Graph     graphstore.Store
}

// ProcessIngestMessage loads the document text from object storage, splits
// it into chunks, embeds each chunk, extracts entities and relationships,
// and persists everything to the index and the graph store.
func (p *Processor) ProcessIngestMessage(ctx context.Context, msg string) error {
	data := new(IngestMessage)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	start := time.Now()
	logger.Info("[Queue] Ingesting document", "document_id", data.DocumentID, "key", data.Key)

	raw, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) ([]byte, error) {
		return storage.GetFile(ctx, p.S3Client, data.Key)
	})
	if err != nil {
		return err
	}

	chunks, err := p.Chunker.Split(string(raw), data.DocumentID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		logger.Warn("[Queue] Document produced no chunks", "document_id", data.DocumentID)
		return nil
	}

	var (
		allEntities []common.Entity
		allRels     []common.Relationship
	)
	entityByID := map[string]bool{}
	relByKey := map[string]bool{}

	for i := range chunks {
		embedding, err := p.AIClient.GenerateEmbedding(ctx, []byte(chunks[i].Text))
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", chunks[i].ID, err)
		}
		chunks[i].Embedding = embedding

		extraction, err := p.Extractor.Extract(ctx, chunks[i].Text)
		if err != nil {
			logger.Warn("[Queue] Extraction failed for chunk, continuing",
				"chunk_id", chunks[i].ID, "err", err)
			continue
		}
		for _, e := range extraction.Entities {
			if entityByID[e.ID] {
				continue
			}
			entityByID[e.ID] = true
			if e.Metadata == nil {
				e.Metadata = map[string]string{}
			}
			e.Metadata["document_id"] = data.DocumentID
			allEntities = append(allEntities, e)
		}
		for _, r := range extraction.Relationships {
			if relByKey[r.Key()] {
				continue
			}
			relByKey[r.Key()] = true
			allRels = append(allRels, r)
		}
	}

	if err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return p.Index.SaveChunks(ctx, chunks)
	}); err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}
	if err := p.Graph.BulkUpsert(ctx, allEntities, allRels); err != nil {
		return fmt.Errorf("failed to upsert graph data: %w", err)
	}

	logger.Info("[Queue] Document ingested",
		"document_id", data.DocumentID,
		"chunks", len(chunks),
		"entities", len(allEntities),
		"relationships", len(allRels),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ProcessDeleteMessage removes a document from the index, the graph store,
// and object storage.
func (p *Processor) ProcessDeleteMessage(ctx context.Context, msg string) error {
	data := new(DeleteMessage)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	logger.Info("[Queue] Deleting document", "document_id", data.DocumentID)

	indexDeleted, err := p.Index.DeleteDocument(ctx, data.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to delete document from index: %w", err)
	}
	graphDeleted, err := p.Graph.DeleteDocument(ctx, data.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to delete document from graph: %w", err)
	}

	if data.Key != "" {
		if err := storage.DeleteFile(ctx, p.S3Client, data.Key); err != nil {
			logger.Warn("[Queue] Failed to delete document object", "key", data.Key, "err", err)
		}
	}

	if !indexDeleted && !graphDeleted {
		logger.Warn("[Queue] Delete found nothing to remove", "document_id", data.DocumentID)
	}
	return nil
}
