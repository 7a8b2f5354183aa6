package models

import (
	"time"

	"gorm.io/datatypes"
)

// Identity represents a registered subject. The ID is caller-supplied and
// globally unique; re-registering the same ID updates the name and
// timestamps instead of creating a second record.
type Identity struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Images []GalleryImage `gorm:"foreignKey:IdentityID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

// GalleryImage is one stored face image belonging to exactly one Identity.
// Rows are created only inside a registration and deleted only together
// with their identity.
type GalleryImage struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	IdentityID string `gorm:"index;not null" json:"identity_id"`
	// Path to the stored variant file, unique across all identities.
	Path    string `gorm:"uniqueIndex;not null" json:"path"`
	Ordinal int    `json:"ordinal"`
	// Box holds the detector bounding box of the source crop,
	// e.g. {"x": 10, "y": 20, "w": 50, "h": 60}.
	Box datatypes.JSON `gorm:"type:json" json:"box,omitempty"`
	// EmbeddingPath references the extracted embedding artifact on disk.
	// Empty means "not yet embedded", never an error.
	EmbeddingPath string    `json:"embedding_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	Identity Identity `gorm:"foreignKey:IdentityID" json:"-"`
}

// GalleryEntry is one row of the full gallery scan used by the matching
// engine: every known (identity, gallery image) pair.
type GalleryEntry struct {
	IdentityID string
	Name       string
	Path       string
}

// IdentityCount pairs an identity with the number of gallery images it owns.
type IdentityCount struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageCount int    `json:"image_count"`
}
