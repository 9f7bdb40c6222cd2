package pipeline

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
	"github.com/dommurphy155/tiktokbot2/internal/logging"
)

func newTestStore(t *testing.T) *ArtifactStore {
	t.Helper()
	store, err := NewArtifactStore(afero.NewMemMapFs(), "/downloads", logging.Discard())
	require.NoError(t, err)
	return store
}

// writeArtifact creates a file of the given size in the store directory
// and returns its artifact handle.
func writeArtifact(t *testing.T, store *ArtifactStore, name string, size int) *domain.Artifact {
	t.Helper()
	path := filepath.Join(store.Dir(), name)
	require.NoError(t, afero.WriteFile(store.Fs(), path, bytes.Repeat([]byte{'x'}, size), 0o644))
	return &domain.Artifact{
		Path:      path,
		SourceURL: "https://www.tiktok.com/video/" + strings.TrimSuffix(name, ".mp4"),
	}
}

func fileExists(t *testing.T, store *ArtifactStore, path string) bool {
	t.Helper()
	ok, err := afero.Exists(store.Fs(), path)
	require.NoError(t, err)
	return ok
}
