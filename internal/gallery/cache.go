// Package gallery maintains the filesystem-backed embedding cache: one
// folder per identity holding identity metadata and one embedding artifact
// per gallery image. The cache is rebuildable from the gallery images and
// is never authoritative.
package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"face-roster-go/internal/integrations/faceservice"
	"face-roster-go/internal/store"
)

// Cache manages the per-identity embedding folders.
type Cache struct {
	modelDir string
	provider faceservice.Provider
	store    *store.IdentityStore
}

// TrainReport lists which gallery images produced an embedding artifact and
// which failed, with the reason. Partial failure downgrades the report, it
// never aborts the training run.
type TrainReport struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []TrainFailure `json:"failed"`
}

// TrainFailure records one gallery image whose embedding extraction failed.
type TrainFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type modelInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ImagePaths []string  `json:"image_paths"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCache creates an embedding cache rooted at modelDir.
func NewCache(modelDir string, provider faceservice.Provider, st *store.IdentityStore) *Cache {
	return &Cache{
		modelDir: modelDir,
		provider: provider,
		store:    st,
	}
}

// Dir returns the embedding folder of one identity.
func (c *Cache) Dir(identityID string) string {
	return filepath.Join(c.modelDir, identityID)
}

// Train wipes the identity's embedding folder, writes its metadata and
// extracts one embedding per gallery image. An individual image failing
// extraction is recorded and skipped; only a folder or metadata failure
// aborts the operation.
func (c *Cache) Train(ctx context.Context, id, name string, imagePaths []string) (*TrainReport, error) {
	dir := c.Dir(id)

	// Clean rebuild: stale artifacts from a previous run are never merged.
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear embedding folder for %s: %w", id, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create embedding folder for %s: %w", id, err)
	}

	info := modelInfo{
		ID:         id,
		Name:       name,
		ImagePaths: imagePaths,
		CreatedAt:  time.Now(),
	}
	infoData, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "model_info.json"), infoData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write identity metadata: %w", err)
	}

	report := &TrainReport{}
	for i, imagePath := range imagePaths {
		embeddingPath, err := c.extractOne(ctx, dir, i, imagePath)
		if err != nil {
			log.WithError(err).Warnf("Failed to extract embedding for %s", imagePath)
			report.Failed = append(report.Failed, TrainFailure{Path: imagePath, Reason: err.Error()})
			continue
		}

		if err := c.store.AttachEmbeddingRef(id, imagePath, embeddingPath); err != nil {
			log.WithError(err).Warnf("Failed to attach embedding reference for %s", imagePath)
			report.Failed = append(report.Failed, TrainFailure{Path: imagePath, Reason: err.Error()})
			continue
		}

		report.Succeeded = append(report.Succeeded, imagePath)
	}

	log.Infof("Trained identity %s (%s): %d embeddings, %d failures",
		id, name, len(report.Succeeded), len(report.Failed))
	return report, nil
}

func (c *Cache) extractOne(ctx context.Context, dir string, ordinal int, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	embedding, err := c.provider.Represent(ctx, data)
	if err != nil {
		return "", fmt.Errorf("extract embedding: %w", err)
	}

	embeddingData, err := json.Marshal(embedding)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}

	embeddingPath := filepath.Join(dir, fmt.Sprintf("embedding_%d.json", ordinal))
	if err := os.WriteFile(embeddingPath, embeddingData, 0644); err != nil {
		return "", fmt.Errorf("write embedding: %w", err)
	}
	return embeddingPath, nil
}

// Purge removes the identity's embedding folder. A missing folder is fine.
func (c *Cache) Purge(identityID string) error {
	if err := os.RemoveAll(c.Dir(identityID)); err != nil {
		return fmt.Errorf("failed to remove embedding folder for %s: %w", identityID, err)
	}
	return nil
}
