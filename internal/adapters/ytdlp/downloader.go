// Package ytdlp drives the local yt-dlp binary: it downloads videos into
// the output directory and extracts their metadata. It implements the
// ArtifactDownloader and MetadataExtractor ports.
package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	execute "github.com/alexellis/go-execute/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
	"github.com/dommurphy155/tiktokbot2/internal/logging"
)

const (
	// Accepted duration window; anything outside is a policy skip.
	minDurationSec = 5
	maxDurationSec = 50

	downloadTimeout     = 180 * time.Second
	metadataTimeout     = 12 * time.Second
	lazyMetadataTimeout = 8 * time.Second

	// Telegram uploads crawl above this size.
	largeFileWarnBytes = 50 * 1024 * 1024
)

var hashtagRe = regexp.MustCompile(`#\w+`)

// Runner executes a command and returns its stdout. Production runs the
// real binary; tests inject a fake.
type Runner func(ctx context.Context, command string, args []string) (string, error)

// Client wraps the yt-dlp binary.
type Client struct {
	fs          afero.Fs
	binary      string
	outputDir   string
	cookiesFile string
	run         Runner
	logger      *logging.Logger
}

// NewClient creates a Client downloading into outputDir, authenticating
// with the Netscape cookie file.
func NewClient(fs afero.Fs, outputDir, cookiesFile string, logger *logging.Logger) *Client {
	c := &Client{
		fs:          fs,
		binary:      "yt-dlp",
		outputDir:   outputDir,
		cookiesFile: cookiesFile,
		logger:      logger,
	}
	c.run = c.execRun
	return c
}

func (c *Client) execRun(ctx context.Context, command string, args []string) (string, error) {
	task := execute.ExecTask{
		Command: command,
		Args:    args,
	}
	res, err := task.Execute(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: %w", command, domain.ErrTimeout)
		}
		return "", fmt.Errorf("%s failed: %w", command, err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s exited with code %d: %s", command, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// Download fetches ref. Videos whose extracted duration falls outside the
// accepted window fail with domain.ErrRejected before any bytes move.
// Metadata extraction failure is not fatal; the download proceeds without.
func (c *Client) Download(ctx context.Context, ref domain.ContentRef) (*domain.Artifact, *domain.Metadata, error) {
	meta, err := c.extract(ctx, ref, metadataTimeout)
	if err != nil {
		c.logger.Debug("metadata extraction failed before download", "url", ref, "error", err)
		meta = nil
	}
	if meta != nil && (meta.Duration < minDurationSec || meta.Duration > maxDurationSec) {
		c.logger.Info("skipping video outside duration window",
			"url", ref, "duration", fmt.Sprintf("%.1fs", meta.Duration))
		return nil, nil, fmt.Errorf("duration %.1fs outside %d-%ds window: %w",
			meta.Duration, minDurationSec, maxDurationSec, domain.ErrRejected)
	}

	outputPath := filepath.Join(c.outputDir, videoID(ref)+".mp4")

	dlCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()
	args := []string{
		"--no-part",
		"--no-mtime",
		"--cookies", c.cookiesFile,
		"-o", outputPath,
		ref,
	}
	if _, err := c.run(dlCtx, c.binary, args); err != nil {
		return nil, nil, fmt.Errorf("download of %s failed: %w", ref, err)
	}

	info, err := c.fs.Stat(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("downloaded file missing at %s: %w", outputPath, err)
	}
	c.logger.Info("video downloaded", "path", outputPath, "size", humanize.Bytes(uint64(info.Size())))
	if info.Size() > largeFileWarnBytes {
		c.logger.Warn("large video file may slow the upload", "path", outputPath, "size", humanize.Bytes(uint64(info.Size())))
	}

	return &domain.Artifact{
		Path:         outputPath,
		SourceURL:    ref,
		DownloadedAt: time.Now().UTC(),
	}, meta, nil
}

// Extract resolves metadata for ref on a short budget. Used lazily at
// serve time when an artifact landed without metadata.
func (c *Client) Extract(ctx context.Context, ref domain.ContentRef) (*domain.Metadata, error) {
	return c.extract(ctx, ref, lazyMetadataTimeout)
}

func (c *Client) extract(ctx context.Context, ref domain.ContentRef, timeout time.Duration) (*domain.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	stdout, err := c.run(ctx, c.binary, []string{"--dump-json", "--cookies", c.cookiesFile, ref})
	if err != nil {
		return nil, err
	}
	meta, err := parseMetadata([]byte(stdout))
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata for %s: %w", ref, err)
	}
	return meta, nil
}

func parseMetadata(raw []byte) (*domain.Metadata, error) {
	var payload struct {
		Duration    float64  `json:"duration"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	// Hashtags come from the description plus any tags already written
	// with a leading '#', deduplicated preserving first occurrence.
	seen := make(map[string]struct{})
	var hashtags []string
	add := func(tag string) {
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		hashtags = append(hashtags, tag)
	}
	for _, tag := range hashtagRe.FindAllString(payload.Description, -1) {
		add(tag)
	}
	for _, tag := range payload.Tags {
		if strings.HasPrefix(tag, "#") {
			add(tag)
		}
	}

	return &domain.Metadata{
		Duration: payload.Duration,
		Caption:  strings.TrimSpace(payload.Description),
		Hashtags: hashtags,
	}, nil
}

// videoID derives the output filename from the last URL path segment.
func videoID(ref domain.ContentRef) string {
	trimmed := strings.TrimRight(ref, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if j := strings.IndexAny(trimmed, "?#"); j >= 0 {
		trimmed = trimmed[:j]
	}
	return trimmed
}
