// Package pipeline is the resource-lifecycle engine: the bounded URL and
// artifact containers, the seen-URL window, the played history with its
// cursor, and the disk janitor that keeps the output directory inside its
// budget. All mutable state lives in one State value guarded by a single
// lock; long-running collaborator calls happen outside it.
package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
	"github.com/dommurphy155/tiktokbot2/internal/logging"
)

// trackedExt is the only extension the janitor is allowed to touch.
const trackedExt = ".mp4"

// ArtifactStore owns the output directory and the per-path metadata map.
// Metadata lives exactly as long as the file it describes: SafeDelete
// removes both.
type ArtifactStore struct {
	fs       afero.Fs
	dir      string
	metadata map[string]*domain.Metadata
	logger   *logging.Logger
}

// NewArtifactStore creates the store and its directory.
func NewArtifactStore(fs afero.Fs, dir string, logger *logging.Logger) (*ArtifactStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ArtifactStore{
		fs:       fs,
		dir:      dir,
		metadata: make(map[string]*domain.Metadata),
		logger:   logger,
	}, nil
}

// Dir returns the output directory.
func (s *ArtifactStore) Dir() string { return s.dir }

// Fs exposes the filesystem for collaborators that write artifacts.
func (s *ArtifactStore) Fs() afero.Fs { return s.fs }

// Metadata returns the stored metadata for path, if any.
func (s *ArtifactStore) Metadata(path string) (*domain.Metadata, bool) {
	m, ok := s.metadata[path]
	return m, ok
}

// SetMetadata records metadata for path.
func (s *ArtifactStore) SetMetadata(path string, m *domain.Metadata) {
	if m == nil {
		m = &domain.Metadata{}
	}
	s.metadata[path] = m
}

// SafeDelete removes the file and its metadata entry. Deletion failures
// are logged and swallowed: the logical state already dropped the file,
// and a lagging unlink must not corrupt it.
func (s *ArtifactStore) SafeDelete(path string) {
	if path == "" {
		return
	}
	delete(s.metadata, path)
	if err := s.fs.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to delete file", "path", path, "error", err)
		}
		return
	}
	s.logger.Info("deleted file", "path", path)
}

// FileSize returns the size of path, or 0 when unreadable.
func (s *ArtifactStore) FileSize(path string) int64 {
	info, err := s.fs.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// FolderSize sums the bytes of all regular files directly under the
// output directory.
func (s *ArtifactStore) FolderSize() int64 {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return 0
	}
	var total int64
	for _, e := range entries {
		if e.Mode().IsRegular() {
			total += e.Size()
		}
	}
	return total
}

// Sweep deletes every tracked-extension file in the directory that is not
// in keep. Crash leftovers and short-circuited transfers go here.
func (s *ArtifactStore) Sweep(keep map[string]struct{}) {
	for _, path := range s.untracked(keep) {
		s.SafeDelete(path)
	}
}

// OldestUntracked returns the untracked tracked-extension file with the
// oldest modification time, or "" when there is none.
func (s *ArtifactStore) OldestUntracked(keep map[string]struct{}) string {
	candidates := s.untracked(keep)
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		ii, ierr := s.fs.Stat(candidates[i])
		ji, jerr := s.fs.Stat(candidates[j])
		if ierr != nil || jerr != nil {
			return ierr == nil
		}
		return ii.ModTime().Before(ji.ModTime())
	})
	return candidates[0]
}

func (s *ArtifactStore) untracked(keep map[string]struct{}) []string {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		s.logger.Warn("failed to scan output directory", "dir", s.dir, "error", err)
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), trackedExt) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if _, protected := keep[path]; !protected {
			out = append(out, path)
		}
	}
	return out
}

// LogUsage reports the current directory footprint.
func (s *ArtifactStore) LogUsage() {
	s.logger.Debug("output directory usage", "dir", s.dir, "size", humanize.Bytes(uint64(s.FolderSize())))
}
