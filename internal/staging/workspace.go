package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// OutputFilename is the name of the rendered subtitle file.
const OutputFilename = "extracted_subtitles.srt"

// VideoResource is a staged copy of the submitted video.
type VideoResource struct {
	Path string
	Size int64
	Dir  string
}

// Workspace is one job's staging directory.
type Workspace struct {
	JobID string
	Dir   string

	once       sync.Once
	cleanupErr error
	cleaned    bool
	mu         sync.Mutex
}

// NewWorkspace creates <stagingDir>/<jobID>.
func NewWorkspace(stagingDir, jobID string) (*Workspace, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	jobID = strings.TrimSpace(jobID)
	if stagingDir == "" || jobID == "" {
		return nil, errors.New("staging dir and job id are required")
	}
	if strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return nil, fmt.Errorf("invalid job id %q", jobID)
	}
	dir := filepath.Join(stagingDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Workspace{JobID: jobID, Dir: dir}, nil
}

// SourcePath returns where the source video is stored. ext keeps the
// original container extension so tools can sniff the format.
func (w *Workspace) SourcePath(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return filepath.Join(w.Dir, "source"+ext)
}

// OutputPath returns where the rendered subtitles are written.
func (w *Workspace) OutputPath() string {
	return filepath.Join(w.Dir, OutputFilename)
}

// Resource describes a file already written into the workspace.
func (w *Workspace) Resource(path string) (VideoResource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return VideoResource{}, err
	}
	return VideoResource{Path: path, Size: info.Size(), Dir: w.Dir}, nil
}

// Cleanup removes the workspace directory. Only the first call does any
// work; later calls return the first call's result. A directory that is
// already gone is not an error.
func (w *Workspace) Cleanup() error {
	w.once.Do(func() {
		err := os.RemoveAll(w.Dir)
		if err != nil && !os.IsNotExist(err) {
			w.cleanupErr = fmt.Errorf("remove staging dir: %w", err)
		}
		w.mu.Lock()
		w.cleaned = true
		w.mu.Unlock()
	})
	return w.cleanupErr
}

// Cleaned reports whether Cleanup has run.
func (w *Workspace) Cleaned() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cleaned
}
