package recognition

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"face-roster-go/config"
	"face-roster-go/internal/apperrors"
	"face-roster-go/internal/db"
	"face-roster-go/internal/imaging"
	"face-roster-go/internal/integrations/faceservice"
	"face-roster-go/internal/store"
)

// pairProvider scripts pairwise verification by gallery file content:
// entries present in distances verify with that distance, everything else
// is reported as not verified.
type pairProvider struct {
	distances    map[string]float64
	representErr error
	verifyErrOn  string
}

func (p *pairProvider) Name() string { return "pair" }

func (p *pairProvider) Ping(_ context.Context) bool { return true }

func (p *pairProvider) Detect(_ context.Context, _ []byte) ([]faceservice.Detection, error) {
	return nil, nil
}

func (p *pairProvider) Represent(_ context.Context, _ []byte) ([]float64, error) {
	if p.representErr != nil {
		return nil, p.representErr
	}
	return []float64{1, 0, 0}, nil
}

func (p *pairProvider) Verify(_ context.Context, _, gallery []byte) (*faceservice.Verification, error) {
	content := string(gallery)
	if p.verifyErrOn != "" && content == p.verifyErrOn {
		return nil, errors.New("comparison failed")
	}
	distance, ok := p.distances[content]
	if !ok {
		return &faceservice.Verification{Verified: false, Distance: 0.9}, nil
	}
	return &faceservice.Verification{Verified: true, Distance: distance}, nil
}

func newTestStore(t *testing.T) *store.IdentityStore {
	t.Helper()
	handle, err := db.Open(config.DBConfig{File: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(handle) })
	return store.New(handle)
}

// seedGallery registers an identity whose gallery files hold the given
// contents, so the scripted provider can address them.
func seedGallery(t *testing.T, st *store.IdentityStore, id, name string, contents []string) {
	t.Helper()
	require.NoError(t, st.UpsertIdentity(id, name))
	dir := t.TempDir()
	for i, content := range contents {
		path := filepath.Join(dir, content+".jpg")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		require.NoError(t, st.AddGalleryImage(id, path, i, nil))
	}
}

func queryImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 0, A: 255})
		}
	}
	data, err := imaging.EncodeJPEG(img)
	require.NoError(t, err)
	return data
}

func TestRecognizeRanksVerifiedIdentities(t *testing.T) {
	st := newTestStore(t)
	seedGallery(t, st, "1", "Alice", []string{"alice"})
	seedGallery(t, st, "2", "Bob", []string{"bob"})
	seedGallery(t, st, "3", "Carol", []string{"carol"})

	provider := &pairProvider{distances: map[string]float64{
		"alice": 0.4,
		"bob":   0.2,
		// carol never verifies
	}}
	engine := NewEngine(st, provider, PolicyFirstMatch)

	candidates, err := engine.Recognize(context.Background(), queryImage(t))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "2", candidates[0].IdentityID)
	assert.InDelta(t, 0.8, candidates[0].Similarity, 1e-9)
	assert.Equal(t, "1", candidates[1].IdentityID)
	assert.InDelta(t, 0.6, candidates[1].Similarity, 1e-9)
}

func TestRecognizeFirstMatchStopsPerIdentity(t *testing.T) {
	st := newTestStore(t)
	seedGallery(t, st, "1", "Alice", []string{"alice_0", "alice_1"})

	provider := &pairProvider{distances: map[string]float64{
		"alice_0": 0.3,
		"alice_1": 0.1, // better, but never reached under first-match
	}}
	engine := NewEngine(st, provider, PolicyFirstMatch)

	candidates, err := engine.Recognize(context.Background(), queryImage(t))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.InDelta(t, 0.7, candidates[0].Similarity, 1e-9)
}

func TestRecognizeBestMatchKeepsMaximum(t *testing.T) {
	st := newTestStore(t)
	seedGallery(t, st, "1", "Alice", []string{"alice_0", "alice_1"})

	provider := &pairProvider{distances: map[string]float64{
		"alice_0": 0.3,
		"alice_1": 0.1,
	}}
	engine := NewEngine(st, provider, PolicyBestMatch)

	candidates, err := engine.Recognize(context.Background(), queryImage(t))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.InDelta(t, 0.9, candidates[0].Similarity, 1e-9)
}

func TestRecognizeSkipsFailedComparisons(t *testing.T) {
	st := newTestStore(t)
	seedGallery(t, st, "1", "Alice", []string{"alice"})
	seedGallery(t, st, "2", "Bob", []string{"bob"})

	provider := &pairProvider{
		distances:   map[string]float64{"bob": 0.2},
		verifyErrOn: "alice",
	}
	engine := NewEngine(st, provider, PolicyFirstMatch)

	candidates, err := engine.Recognize(context.Background(), queryImage(t))
	require.NoError(t, err, "a single pair's failure never aborts the scan")
	require.Len(t, candidates, 1)
	assert.Equal(t, "2", candidates[0].IdentityID)
}

func TestRecognizeInvalidQuery(t *testing.T) {
	engine := NewEngine(newTestStore(t), &pairProvider{}, PolicyFirstMatch)

	_, err := engine.Recognize(context.Background(), []byte("not an image"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRecognizeExtractionUnavailable(t *testing.T) {
	st := newTestStore(t)
	seedGallery(t, st, "1", "Alice", []string{"alice"})

	provider := &pairProvider{representErr: errors.New("connection refused")}
	engine := NewEngine(st, provider, PolicyFirstMatch)

	candidates, err := engine.Recognize(context.Background(), queryImage(t))
	assert.ErrorIs(t, err, apperrors.ErrExtractionUnavailable)
	assert.Nil(t, candidates, "an unreachable service must not look like an empty result")
}

func TestTopMatches(t *testing.T) {
	candidates := []MatchCandidate{
		{IdentityID: "1", Similarity: 0.6},
		{IdentityID: "1", Similarity: 0.8},
		{IdentityID: "2", Similarity: 0.7},
		{IdentityID: "3", Similarity: 0.5},
		{IdentityID: "4", Similarity: 0.4},
	}

	top := TopMatches(candidates, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "1", top[0].IdentityID)
	assert.InDelta(t, 0.8, top[0].Similarity, 1e-9, "duplicates reduce to the per-identity maximum")
	assert.Equal(t, "2", top[1].IdentityID)
	assert.Equal(t, "3", top[2].IdentityID)
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyBestMatch, ParsePolicy("best_match"))
	assert.Equal(t, PolicyFirstMatch, ParsePolicy("first_match"))
	assert.Equal(t, PolicyFirstMatch, ParsePolicy(""), "unknown values fall back to the documented default")
}
