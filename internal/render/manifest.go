package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"splice/internal/fileutil"
)

// ManifestSuffix is appended to a file's path to name its sidecar manifest.
const ManifestSuffix = ".manifest.json"

// Manifest is the sidecar record written next to intake copies by the
// dispatcher and next to outputs by the renderer.
type Manifest struct {
	ProjectID    string     `json:"projectId"`
	VersionID    int64      `json:"versionId"`
	File         string     `json:"file"`
	DispatchedAt *time.Time `json:"dispatchedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// ManifestPath returns the sidecar path for file.
func ManifestPath(file string) string {
	return file + ManifestSuffix
}

// IsManifest reports whether name is a sidecar manifest.
func IsManifest(name string) bool {
	return strings.HasSuffix(name, ManifestSuffix)
}

// WriteManifest atomically writes m beside file.
func WriteManifest(file string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return fileutil.WriteFileAtomic(ManifestPath(file), append(data, '\n'), 0o644)
}

// ReadManifest loads the sidecar of file. ok is false when there is none.
func ReadManifest(file string) (Manifest, bool, error) {
	data, err := os.ReadFile(ManifestPath(file))
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, fmt.Errorf("decode manifest %s: %w", ManifestPath(file), err)
	}
	return m, true, nil
}

// Identify prefers the sidecar manifest of path and falls back to the
// filename.
func Identify(path string) (Identity, error) {
	m, ok, err := ReadManifest(path)
	if err != nil {
		return Identity{}, err
	}
	if ok && strings.TrimSpace(m.ProjectID) != "" {
		return Identity{ProjectID: m.ProjectID, VersionID: m.VersionID, FromManifest: true}, nil
	}
	return ParseOutputName(path)
}
