package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Workspace is the directory a single run owns for its lifetime. File names
// carry the run id and the 1-based segment number so runs never collide.
type Workspace struct {
	RunID string
	Dir   string
}

// NewWorkspace creates root/runID and returns its absolute location.
func NewWorkspace(root, runID string) (Workspace, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return Workspace{}, fmt.Errorf("pipeline: invalid run id %q", runID)
	}
	dir, err := filepath.Abs(filepath.Join(root, runID))
	if err != nil {
		return Workspace{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("pipeline: create workspace: %w", err)
	}
	return Workspace{RunID: runID, Dir: dir}, nil
}

func (w Workspace) path(name string) string { return filepath.Join(w.Dir, name) }

func (w Workspace) VideoPath(index int) string {
	return w.path(fmt.Sprintf("video_segment_%s_%d.mp4", w.RunID, index+1))
}

func (w Workspace) AudioPath(index int) string {
	return w.path(fmt.Sprintf("audio_segment_%s_%d.wav", w.RunID, index+1))
}

func (w Workspace) FramePath(index int) string {
	return w.path(fmt.Sprintf("last_frame_segment_%s_%d.jpg", w.RunID, index+1))
}

func (w Workspace) CombinedPath(index int) string {
	return w.path(fmt.Sprintf("combined_segment_%d.mp4", index+1))
}

func (w Workspace) FinalPath() string          { return w.path("final_output.mp4") }
func (w Workspace) ConcatListPath() string     { return w.path("concat_list.txt") }
func (w Workspace) ScriptPath() string         { return w.path("script.json") }
func (w Workspace) ReferenceImagePath() string { return w.path("reference_image.jpg") }
func (w Workspace) ReferenceAudioPath() string { return w.path("reference_audio.wav") }

// UploadPath names a raw upload before normalization.
func (w Workspace) UploadPath(kind, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	return w.path("upload_" + kind + ext)
}

// File describes one entry of a workspace listing.
type File struct {
	Name  string `json:"name"`
	Bytes int64  `json:"bytes"`
}

// Files lists the regular files currently in the workspace, sorted by name.
func (w Workspace) Files() ([]File, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []File
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, File{Name: e.Name(), Bytes: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
