package command

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"splice/internal/services"
	"splice/internal/timeline"
)

// Assets resolves asset ids to media files under the assets directory.
type Assets struct {
	dir string
}

// NewAssets returns a resolver rooted at dir.
func NewAssets(dir string) Assets {
	return Assets{dir: dir}
}

type assetLayout struct {
	subdir string
	ext    string
}

var layouts = map[MediaType]assetLayout{
	TypeVideo: {subdir: "videos", ext: ".mp4"},
	TypeImage: {subdir: "images", ext: ".jpeg"},
	TypeAudio: {subdir: "music", ext: ".mp3"},
}

// Path returns the file an asset id of kind refers to.
func (a Assets) Path(kind MediaType, id string) (string, error) {
	layout, ok := layouts[kind]
	if !ok {
		return "", services.Wrap(services.ErrUnsupportedCommand, "command", "resolve asset", fmt.Sprintf("no assets of type %q", kind), nil)
	}
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", services.Wrap(services.ErrValidation, "command", "resolve asset", fmt.Sprintf("invalid asset id %q", id), nil)
	}
	abs, err := filepath.Abs(filepath.Join(a.dir, layout.subdir, id+layout.ext))
	if err != nil {
		return "", fmt.Errorf("resolve asset path: %w", err)
	}
	return abs, nil
}

// Source builds the timeline file reference for an asset.
func (a Assets) Source(kind MediaType, id string) (timeline.Source, error) {
	path, err := a.Path(kind, id)
	if err != nil {
		return timeline.Source{}, err
	}
	name := filepath.Base(path)
	return timeline.Source{
		ID:      "file-" + strings.TrimSpace(id),
		Name:    name,
		PathURL: (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(),
	}, nil
}
