package store

import (
	"errors"
	"fmt"
	"time"

	"face-roster-go/internal/apperrors"
	"face-roster-go/internal/core/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityStore is the database-backed record of identities and their
// gallery image references. It never touches the filesystem; file cleanup
// is the caller's job, done before the corresponding records are removed.
type IdentityStore struct {
	db *gorm.DB
}

// New creates an IdentityStore on an explicit database handle.
func New(db *gorm.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// UpsertIdentity creates or updates an identity in a single atomic
// statement. Re-registering an existing ID refreshes name and updated_at
// without creating a duplicate record.
func (s *IdentityStore) UpsertIdentity(id, name string) error {
	identity := models.Identity{ID: id, Name: name}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       name,
			"updated_at": time.Now(),
		}),
	}).Create(&identity).Error
	if err != nil {
		return fmt.Errorf("failed to upsert identity %s: %w", id, err)
	}
	return nil
}

// AddGalleryImage registers a stored image file for an identity.
func (s *IdentityStore) AddGalleryImage(identityID, path string, ordinal int, box datatypes.JSON) error {
	var identity models.Identity
	if err := s.db.First(&identity, "id = ?", identityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUnknownIdentity.WithMessage("identity %s does not exist", identityID)
		}
		return fmt.Errorf("failed to look up identity %s: %w", identityID, err)
	}

	var count int64
	if err := s.db.Model(&models.GalleryImage{}).Where("path = ?", path).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check path uniqueness: %w", err)
	}
	if count > 0 {
		return apperrors.ErrDuplicatePath.WithMessage("path %s is already owned by an identity", path)
	}

	image := models.GalleryImage{
		IdentityID: identityID,
		Path:       path,
		Ordinal:    ordinal,
		Box:        box,
	}
	if err := s.db.Create(&image).Error; err != nil {
		return fmt.Errorf("failed to add gallery image %s: %w", path, err)
	}
	return nil
}

// AttachEmbeddingRef records the embedding artifact path on a gallery image.
func (s *IdentityStore) AttachEmbeddingRef(identityID, path, embeddingPath string) error {
	result := s.db.Model(&models.GalleryImage{}).
		Where("identity_id = ? AND path = ?", identityID, path).
		Update("embedding_path", embeddingPath)
	if result.Error != nil {
		return fmt.Errorf("failed to attach embedding reference: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUnknownImage.WithMessage("no gallery image %s for identity %s", path, identityID)
	}
	return nil
}

// ListIdentities returns all identities, including those without images.
func (s *IdentityStore) ListIdentities() ([]models.Identity, error) {
	var identities []models.Identity
	if err := s.db.Order("created_at").Find(&identities).Error; err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	return identities, nil
}

// ListIdentitiesWithImageCount returns identities with their owned image
// counts. Identities without any gallery image are omitted (inner join).
func (s *IdentityStore) ListIdentitiesWithImageCount() ([]models.IdentityCount, error) {
	var counts []models.IdentityCount
	err := s.db.Model(&models.Identity{}).
		Select("identities.id AS id, identities.name AS name, COUNT(gallery_images.id) AS image_count").
		Joins("JOIN gallery_images ON gallery_images.identity_id = identities.id").
		Group("identities.id, identities.name").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list identities with counts: %w", err)
	}
	return counts, nil
}

// ListGalleryPaths returns the stored image paths owned by an identity,
// in gallery order. An identity without images yields an empty slice.
func (s *IdentityStore) ListGalleryPaths(identityID string) ([]string, error) {
	var paths []string
	err := s.db.Model(&models.GalleryImage{}).
		Where("identity_id = ?", identityID).
		Order("ordinal").
		Pluck("path", &paths).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gallery paths for %s: %w", identityID, err)
	}
	return paths, nil
}

// GetIdentity loads one identity record.
func (s *IdentityStore) GetIdentity(identityID string) (*models.Identity, error) {
	var identity models.Identity
	if err := s.db.First(&identity, "id = ?", identityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnknownIdentity.WithMessage("identity %s does not exist", identityID)
		}
		return nil, fmt.Errorf("failed to load identity %s: %w", identityID, err)
	}
	return &identity, nil
}

// HasIdentity reports whether an identity record exists.
func (s *IdentityStore) HasIdentity(identityID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Identity{}).Where("id = ?", identityID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check identity %s: %w", identityID, err)
	}
	return count > 0, nil
}

// GalleryEntries returns every (identity, gallery image) pair for the full
// matching scan.
func (s *IdentityStore) GalleryEntries() ([]models.GalleryEntry, error) {
	var entries []models.GalleryEntry
	err := s.db.Model(&models.GalleryImage{}).
		Select("gallery_images.identity_id AS identity_id, identities.name AS name, gallery_images.path AS path").
		Joins("JOIN identities ON identities.id = gallery_images.identity_id").
		Order("gallery_images.identity_id, gallery_images.ordinal").
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan gallery entries: %w", err)
	}
	return entries, nil
}

// DeleteIdentity atomically removes an identity and all its gallery image
// records. Returns false if the identity did not exist.
func (s *IdentityStore) DeleteIdentity(identityID string) (bool, error) {
	existed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var identity models.Identity
		if err := tx.First(&identity, "id = ?", identityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		existed = true

		if err := tx.Where("identity_id = ?", identityID).Delete(&models.GalleryImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&identity).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete identity %s: %w", identityID, err)
	}
	return existed, nil
}
