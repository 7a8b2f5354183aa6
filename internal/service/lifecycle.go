// Package service holds the lifecycle manager orchestrating registration,
// training, recognition and deletion across the identity store, the
// embedding cache and the face service.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"face-roster-go/config"
	"face-roster-go/internal/apperrors"
	"face-roster-go/internal/core/models"
	"face-roster-go/internal/gallery"
	"face-roster-go/internal/imaging"
	"face-roster-go/internal/integrations/faceservice"
	"face-roster-go/internal/recognition"
	"face-roster-go/internal/store"
)

// Lifecycle orchestrates the identity lifecycle. All collaborators are
// passed in at construction; there is no ambient state.
type Lifecycle struct {
	cfg       config.MatchingConfig
	galleryDir string
	store     *store.IdentityStore
	cache     *gallery.Cache
	engine    *recognition.Engine
	provider  faceservice.Provider
	generator *imaging.Generator

	// Per-identity training locks: the embedding folder wipe-and-rebuild
	// must not run twice concurrently for the same identity.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// RegisterResult reports a completed registration.
type RegisterResult struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	ImagePaths []string             `json:"image_paths"`
	Train      *gallery.TrainReport `json:"train"`
}

// New creates a lifecycle manager.
func New(cfg config.MatchingConfig, galleryDir string, st *store.IdentityStore,
	cache *gallery.Cache, engine *recognition.Engine,
	provider faceservice.Provider, generator *imaging.Generator) *Lifecycle {
	return &Lifecycle{
		cfg:        cfg,
		galleryDir: galleryDir,
		store:      st,
		cache:      cache,
		engine:     engine,
		provider:   provider,
		generator:  generator,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (l *Lifecycle) trainLock(identityID string) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	mu, ok := l.locks[identityID]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[identityID] = mu
	}
	return mu
}

// Register detects the best face in rawImage, builds a variant gallery of
// variantCount images, records identity and image rows and trains the
// embedding cache synchronously. Detection failure short-circuits before
// any store mutation.
func (l *Lifecycle) Register(ctx context.Context, id, name string, rawImage []byte, variantCount int) (*RegisterResult, error) {
	if variantCount <= 0 {
		variantCount = l.cfg.VariantCount
	}

	img, err := imaging.Decode(rawImage)
	if err != nil {
		return nil, err
	}

	detections, err := l.provider.Detect(ctx, rawImage)
	if err != nil {
		return nil, apperrors.ErrExtractionUnavailable.WithError(err)
	}
	if len(detections) == 0 {
		return nil, apperrors.ErrNoFaceDetected
	}

	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}

	crop := cropWithMargin(img, best.Box, l.cfg.FaceMargin)

	variants, err := l.generator.Generate(crop, variantCount)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(variants))
	for _, variant := range variants {
		filename := fmt.Sprintf("%s_%s.jpg", name, uuid.New().String())
		path := filepath.Join(l.galleryDir, filename)
		if err := imaging.WriteJPEG(variant, path); err != nil {
			return nil, fmt.Errorf("failed to store gallery variant: %w", err)
		}
		paths = append(paths, path)
	}

	if err := l.store.UpsertIdentity(id, name); err != nil {
		return nil, err
	}

	boxJSON, err := json.Marshal(best.Box)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bounding box: %w", err)
	}
	for i, path := range paths {
		if err := l.store.AddGalleryImage(id, path, i, datatypes.JSON(boxJSON)); err != nil {
			return nil, err
		}
	}

	mu := l.trainLock(id)
	mu.Lock()
	report, err := l.cache.Train(ctx, id, name, paths)
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	log.Infof("Registered identity %s (%s) with %d gallery images", id, name, len(paths))
	return &RegisterResult{
		ID:         id,
		Name:       name,
		ImagePaths: paths,
		Train:      report,
	}, nil
}

// Retrain rebuilds the embedding cache over the identity's current gallery
// without re-running detection.
func (l *Lifecycle) Retrain(ctx context.Context, id string) (*gallery.TrainReport, error) {
	identity, err := l.store.GetIdentity(id)
	if err != nil {
		return nil, err
	}
	paths, err := l.store.ListGalleryPaths(id)
	if err != nil {
		return nil, err
	}

	mu := l.trainLock(id)
	mu.Lock()
	defer mu.Unlock()
	return l.cache.Train(ctx, id, identity.Name, paths)
}

// Recognize runs the gallery scan and reduces the candidates to the
// configured top-k list.
func (l *Lifecycle) Recognize(ctx context.Context, rawImage []byte) ([]recognition.MatchCandidate, error) {
	candidates, err := l.engine.Recognize(ctx, rawImage)
	if err != nil {
		return nil, err
	}
	return recognition.TopMatches(candidates, l.cfg.TopK), nil
}

// List returns all known identities.
func (l *Lifecycle) List() ([]models.Identity, error) {
	return l.store.ListIdentities()
}

// ListWithCounts returns identities with their gallery image counts.
func (l *Lifecycle) ListWithCounts() ([]models.IdentityCount, error) {
	return l.store.ListIdentitiesWithImageCount()
}

// Delete removes an identity addressed by id or, failing that, by display
// name. Cleanup order: embedding folder, gallery files, then the records,
// so a crash mid-operation leaves at worst a dangling record rather than a
// record pointing at missing files. Returns false when nothing matched.
func (l *Lifecycle) Delete(ctx context.Context, idOrName string) (bool, error) {
	id := idOrName
	exists, err := l.store.HasIdentity(id)
	if err != nil {
		return false, err
	}
	if !exists {
		id, err = l.resolveName(idOrName)
		if err != nil {
			return false, err
		}
		if id == "" {
			return false, nil
		}
	}

	paths, err := l.store.ListGalleryPaths(id)
	if err != nil {
		return false, err
	}

	if err := l.cache.Purge(id); err != nil {
		return false, err
	}

	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to remove gallery file %s: %w", path, err)
		}
	}

	deleted, err := l.store.DeleteIdentity(id)
	if err != nil {
		return false, err
	}
	if deleted {
		log.Infof("Deleted identity %s and %d gallery files", id, len(paths))
	}
	return deleted, nil
}

// resolveName finds an identity id by normalized display name. Returns an
// empty string when no identity carries that name.
func (l *Lifecycle) resolveName(name string) (string, error) {
	identities, err := l.store.ListIdentities()
	if err != nil {
		return "", err
	}
	want := normalizeName(name)
	for _, identity := range identities {
		if normalizeName(identity.Name) == want {
			return identity.ID, nil
		}
	}
	return "", nil
}

// cropWithMargin expands the detector box by margin pixels on each side,
// clamped to the image bounds, and crops.
func cropWithMargin(img image.Image, box faceservice.BoundingBox, margin int) image.Image {
	rect := image.Rect(
		box.X-margin,
		box.Y-margin,
		box.X+box.W+margin,
		box.Y+box.H+margin,
	)
	return imaging.Crop(img, rect.Intersect(img.Bounds()))
}
