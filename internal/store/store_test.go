package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"face-roster-go/config"
	"face-roster-go/internal/apperrors"
	"face-roster-go/internal/db"
)

func newTestStore(t *testing.T) *IdentityStore {
	t.Helper()
	handle, err := db.Open(config.DBConfig{File: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(handle) })
	return New(handle)
}

func TestUpsertIdentityIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertIdentity("7", "Alice"))
	first, err := s.GetIdentity("7")
	require.NoError(t, err)

	require.NoError(t, s.UpsertIdentity("7", "Alice Renamed"))

	identities, err := s.ListIdentities()
	require.NoError(t, err)
	require.Len(t, identities, 1, "re-registering must not create a second record")

	second, err := s.GetIdentity("7")
	require.NoError(t, err)
	assert.Equal(t, "Alice Renamed", second.Name)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestAddGalleryImage(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertIdentity("7", "Alice"))

	require.NoError(t, s.AddGalleryImage("7", "/data/faces/a.jpg", 0, nil))

	err := s.AddGalleryImage("missing", "/data/faces/b.jpg", 0, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnknownIdentity)

	err = s.AddGalleryImage("7", "/data/faces/a.jpg", 1, nil)
	assert.ErrorIs(t, err, apperrors.ErrDuplicatePath)

	// The path is unique across identities, not per identity.
	require.NoError(t, s.UpsertIdentity("8", "Bob"))
	err = s.AddGalleryImage("8", "/data/faces/a.jpg", 0, nil)
	assert.ErrorIs(t, err, apperrors.ErrDuplicatePath)
}

func TestAttachEmbeddingRef(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertIdentity("7", "Alice"))
	require.NoError(t, s.AddGalleryImage("7", "/data/faces/a.jpg", 0, nil))

	require.NoError(t, s.AttachEmbeddingRef("7", "/data/faces/a.jpg", "/data/models/7/embedding_0.json"))

	err := s.AttachEmbeddingRef("7", "/data/faces/nope.jpg", "/data/models/7/embedding_1.json")
	assert.ErrorIs(t, err, apperrors.ErrUnknownImage)

	err = s.AttachEmbeddingRef("8", "/data/faces/a.jpg", "/data/models/8/embedding_0.json")
	assert.ErrorIs(t, err, apperrors.ErrUnknownImage, "pair lookup requires the owning identity")
}

func TestListGalleryPaths(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertIdentity("7", "Alice"))

	paths, err := s.ListGalleryPaths("7")
	require.NoError(t, err)
	assert.Empty(t, paths, "identity without images yields an empty slice, not an error")

	require.NoError(t, s.AddGalleryImage("7", "/data/faces/b.jpg", 1, nil))
	require.NoError(t, s.AddGalleryImage("7", "/data/faces/a.jpg", 0, nil))

	paths, err = s.ListGalleryPaths("7")
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/faces/a.jpg", "/data/faces/b.jpg"}, paths, "gallery order follows the ordinal")
}

func TestListIdentitiesWithImageCount(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertIdentity("7", "Alice"))
	require.NoError(t, s.UpsertIdentity("8", "Bob"))
	require.NoError(t, s.AddGalleryImage("7", "/data/faces/a.jpg", 0, nil))
	require.NoError(t, s.AddGalleryImage("7", "/data/faces/b.jpg", 1, nil))

	counts, err := s.ListIdentitiesWithImageCount()
	require.NoError(t, err)
	require.Len(t, counts, 1, "identities without images are omitted by the join")
	assert.Equal(t, "7", counts[0].ID)
	assert.Equal(t, 2, counts[0].ImageCount)
}

func TestGalleryEntries(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertIdentity("7", "Alice"))
	require.NoError(t, s.UpsertIdentity("8", "Bob"))
	require.NoError(t, s.AddGalleryImage("7", "/data/faces/a.jpg", 0, nil))
	require.NoError(t, s.AddGalleryImage("8", "/data/faces/c.jpg", 0, nil))

	entries, err := s.GalleryEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Alice", entries[0].Name)
	assert.Equal(t, "/data/faces/a.jpg", entries[0].Path)
	assert.Equal(t, "8", entries[1].IdentityID)
}

func TestDeleteIdentityCascades(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertIdentity("7", "Alice"))
	require.NoError(t, s.AddGalleryImage("7", "/data/faces/a.jpg", 0, nil))
	require.NoError(t, s.AddGalleryImage("7", "/data/faces/b.jpg", 1, nil))

	deleted, err := s.DeleteIdentity("7")
	require.NoError(t, err)
	assert.True(t, deleted)

	identities, err := s.ListIdentities()
	require.NoError(t, err)
	assert.Empty(t, identities)

	entries, err := s.GalleryEntries()
	require.NoError(t, err)
	assert.Empty(t, entries, "owned image records are removed with the identity")

	// Second delete is a no-op reporting false.
	deleted, err = s.DeleteIdentity("7")
	require.NoError(t, err)
	assert.False(t, deleted)
}
