package fileutil

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// defaultSnapshotWidth bounds saved page captures; full-page screenshots
// from a headless browser can be several thousand pixels wide.
const defaultSnapshotWidth = 1280

// SnapshotSaveOptions holds options for saving page snapshots.
type SnapshotSaveOptions struct {
	// OutputDir is the directory where the snapshot will be saved
	OutputDir string
	// Filename is the name of the snapshot file (e.g., "Active Investigations - snapshot.png")
	Filename string
	// MaxWidth scales wider captures down; zero uses the default width
	MaxWidth int
	// UpdateSnapshots forces re-saving even if the snapshot exists
	UpdateSnapshots bool
}

// SnapshotSaveResult holds the result of a snapshot save operation.
type SnapshotSaveResult struct {
	// Written indicates if a new file was written
	Written bool
	// LocalPath is the full path to the saved snapshot
	LocalPath string
	// RelativePath is the path relative to the note (e.g., "snapshots/Active Investigations - snapshot.png")
	RelativePath string
	// Filename is just the filename
	Filename string
}

// SaveSnapshot decodes captured screenshot bytes and writes them under the
// snapshots directory, scaled down when the capture is wider than MaxWidth.
// It skips writing if the file already exists and UpdateSnapshots is false.
func SaveSnapshot(capture []byte, opts SnapshotSaveOptions) (*SnapshotSaveResult, error) {
	if len(capture) == 0 {
		return nil, nil
	}

	// Create snapshots directory
	snapshotsDir := filepath.Join(opts.OutputDir, "snapshots")
	if err := os.MkdirAll(snapshotsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	localPath := filepath.Join(snapshotsDir, opts.Filename)
	relativePath := filepath.Join("snapshots", opts.Filename)

	result := &SnapshotSaveResult{
		LocalPath:    localPath,
		RelativePath: relativePath,
		Filename:     opts.Filename,
	}

	// Check if file already exists
	if FileExists(localPath) && !opts.UpdateSnapshots {
		slog.Debug("Snapshot already exists, skipping", "path", localPath)
		return result, nil
	}

	img, err := imaging.Decode(bytes.NewReader(capture), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = defaultSnapshotWidth
	}
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	if err := imaging.Save(img, localPath); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	slog.Info("Saved snapshot", "path", localPath)
	result.Written = true

	return result, nil
}

// AddSnapshotOptions holds options for embedding a page snapshot in a markdown note.
type AddSnapshotOptions struct {
	// Title is used to build the snapshot filename
	Title string
	// Directory is the note's directory (snapshots live in a subdirectory)
	Directory string
	// Width is the embed display width (0 = no width specifier)
	Width int
}

// AddSnapshotToMarkdown embeds a previously saved page snapshot in the note
// with a snapshot frontmatter field. Returns false when no snapshot exists
// for the title, leaving the note unchanged.
func AddSnapshotToMarkdown(mb *MarkdownBuilder, opts AddSnapshotOptions) bool {
	filename := BuildSnapshotFilename(opts.Title)
	relativePath := filepath.Join("snapshots", filename)

	if !FileExists(filepath.Join(opts.Directory, relativePath)) {
		slog.Debug("No snapshot for table, skipping embed", "title", opts.Title)
		return false
	}

	mb.AddField("snapshot", relativePath)
	mb.AddEmbed(filename, opts.Width)
	return true
}

// BuildSnapshotFilename creates a standard snapshot filename from a table name.
// Returns: "Name - snapshot.png"
func BuildSnapshotFilename(name string) string {
	return SanitizeFilename(name) + " - snapshot.png"
}
