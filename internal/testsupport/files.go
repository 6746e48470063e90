package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"splice/internal/project"
	"splice/internal/timeline"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SeedProject creates projectID under store with SampleTimeline as original.
func SeedProject(t testing.TB, store *project.Store, projectID string) {
	t.Helper()
	doc, err := timeline.Parse([]byte(SampleTimeline))
	if err != nil {
		t.Fatalf("parse sample timeline: %v", err)
	}
	if err := store.Create(context.Background(), projectID, doc); err != nil {
		t.Fatalf("create project %s: %v", projectID, err)
	}
}

// NewProjectStore returns a store in a temp directory holding projectID.
func NewProjectStore(t testing.TB, projectID string, opts ...project.StoreOption) *project.Store {
	t.Helper()
	store := project.NewStore(filepath.Join(t.TempDir(), "projects"), "project.xml", opts...)
	SeedProject(t, store, projectID)
	return store
}
