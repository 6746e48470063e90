package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"splice/internal/fileutil"
	"splice/internal/services"
	"splice/internal/timeline"
)

// OriginalVersion selects the pristine document.
const OriginalVersion = "original"

const (
	originalDir   = "original"
	versionsDir   = "versions"
	versionExt    = ".xml"
	lockFileName  = ".lock"
	lockRetryWait = 10 * time.Millisecond

	// Version ids name the shared intake copies, so they are unique across
	// every project under the root, not only within one.
	allocLockName = ".versions.lock"
	highWaterName = ".last-version"
)

// Version is one persisted snapshot of a project document.
type Version struct {
	ProjectID string    `json:"projectId"`
	ID        int64     `json:"versionId"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
}

// Label is the name stamped into the document, "<projectId>@<versionId>".
func (v Version) Label() string {
	return fmt.Sprintf("%s@%d", v.ProjectID, v.ID)
}

// Store reads and writes project documents under a root directory.
type Store struct {
	root         string
	documentName string
	now          func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	allocMu sync.Mutex
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock overrides the wall clock used for version ids.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a store rooted at root. documentName is the file name of
// each project's original document.
func NewStore(root, documentName string, opts ...StoreOption) *Store {
	if documentName == "" {
		documentName = "project.xml"
	}
	s := &Store{
		root:         root,
		documentName: documentName,
		now:          time.Now,
		locks:        make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the projects directory.
func (s *Store) Root() string { return s.root }

// ValidateID rejects ids that could escape the projects root or confuse
// output file naming, where "@" and the first "." delimit the project id.
func ValidateID(projectID string) error {
	switch {
	case strings.TrimSpace(projectID) == "":
		return services.Wrap(services.ErrValidation, "project", "validate id", "project id required", nil)
	case strings.ContainsAny(projectID, `/\@.`):
		return services.Wrap(services.ErrValidation, "project", "validate id", fmt.Sprintf("invalid project id %q", projectID), nil)
	}
	return nil
}

func (s *Store) projectDir(projectID string) string {
	return filepath.Join(s.root, projectID)
}

// OriginalPath returns where a project's pristine document lives.
func (s *Store) OriginalPath(projectID string) string {
	return filepath.Join(s.projectDir(projectID), originalDir, s.documentName)
}

// VersionPath returns where a version's document lives.
func (s *Store) VersionPath(projectID string, versionID int64) string {
	return filepath.Join(s.projectDir(projectID), versionsDir, strconv.FormatInt(versionID, 10)+versionExt)
}

// Exists reports whether the project directory is present.
func (s *Store) Exists(projectID string) bool {
	if ValidateID(projectID) != nil {
		return false
	}
	info, err := os.Stat(s.projectDir(projectID))
	return err == nil && info.IsDir()
}

// ParseVersionID parses a numeric version id.
func ParseVersionID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrValidation, "project", "parse version", fmt.Sprintf("invalid version id %q", value), nil)
	}
	return id, nil
}

// Load reads a document. An empty versionID or "original" loads the pristine
// document; anything else must be a stored version id.
func (s *Store) Load(ctx context.Context, projectID, versionID string) (*timeline.Document, error) {
	path, err := s.documentPath(projectID, versionID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "project", "load", fmt.Sprintf("%s version %q", projectID, versionID), err)
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc, err := timeline.Parse(data)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "project", "load", path, err)
	}
	return doc, nil
}

func (s *Store) documentPath(projectID, versionID string) (string, error) {
	if err := ValidateID(projectID); err != nil {
		return "", err
	}
	if versionID == "" || versionID == OriginalVersion {
		return s.OriginalPath(projectID), nil
	}
	id, err := ParseVersionID(versionID)
	if err != nil {
		return "", err
	}
	return s.VersionPath(projectID, id), nil
}

// Versions lists stored versions in ascending id order. Files whose names are
// not numeric ids are ignored.
func (s *Store) Versions(ctx context.Context, projectID string) ([]Version, error) {
	if err := ValidateID(projectID); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.projectDir(projectID), versionsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "project", "list versions", projectID, err)
		}
		return nil, fmt.Errorf("list versions: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	versions := make([]Version, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || fileutil.IsHidden(name) || filepath.Ext(name) != versionExt {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, versionExt), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		v := Version{ProjectID: projectID, ID: id, Path: filepath.Join(dir, name)}
		if info, err := entry.Info(); err == nil {
			v.CreatedAt = info.ModTime()
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].ID < versions[j].ID })
	return versions, nil
}

// LatestVersionID returns the greatest stored version id. ok is false when
// the project has no versions yet.
func (s *Store) LatestVersionID(ctx context.Context, projectID string) (int64, bool, error) {
	versions, err := s.Versions(ctx, projectID)
	if err != nil {
		return 0, false, err
	}
	if len(versions) == 0 {
		return 0, false, nil
	}
	return versions[len(versions)-1].ID, true, nil
}

// Resolve maps a requested version to a concrete one: empty means latest,
// falling back to the original when no versions exist.
func (s *Store) Resolve(ctx context.Context, projectID, versionID string) (string, error) {
	if versionID != "" {
		return versionID, nil
	}
	latest, ok, err := s.LatestVersionID(ctx, projectID)
	if err != nil {
		return "", err
	}
	if !ok {
		return OriginalVersion, nil
	}
	return strconv.FormatInt(latest, 10), nil
}

// Save stamps doc with its new label and writes it as the next version.
func (s *Store) Save(ctx context.Context, doc *timeline.Document, projectID string) (Version, error) {
	if err := ValidateID(projectID); err != nil {
		return Version{}, err
	}
	dir := filepath.Join(s.projectDir(projectID), versionsDir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return Version{}, services.Wrap(services.ErrNotFound, "project", "save", projectID+" has no versions directory", err)
	}

	unlock, err := s.lock(ctx, projectID, dir)
	if err != nil {
		return Version{}, err
	}
	defer unlock()

	latest, _, err := s.LatestVersionID(ctx, projectID)
	if err != nil {
		return Version{}, err
	}
	id, now, err := s.allocate(ctx, latest)
	if err != nil {
		return Version{}, err
	}
	v := Version{ProjectID: projectID, ID: id, Path: s.VersionPath(projectID, id), CreatedAt: now}

	doc.SetName(v.Label())
	data, err := doc.Bytes()
	if err != nil {
		return Version{}, fmt.Errorf("serialize document: %w", err)
	}
	if err := fileutil.WriteFileAtomic(v.Path, data, 0o644); err != nil {
		return Version{}, fmt.Errorf("write version: %w", err)
	}
	return v, nil
}

// lock serializes version allocation for a project within the process and,
// through a lock file, with other processes sharing the data directory.
func (s *Store) lock(ctx context.Context, projectID, dir string) (func(), error) {
	s.mu.Lock()
	m, ok := s.locks[projectID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[projectID] = m
	}
	s.mu.Unlock()
	m.Lock()

	fl := flock.New(filepath.Join(dir, lockFileName))
	locked, err := fl.TryLockContext(ctx, lockRetryWait)
	if err != nil || !locked {
		m.Unlock()
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("lock versions of %s: %w", projectID, err)
	}
	return func() {
		_ = fl.Unlock()
		m.Unlock()
	}, nil
}

// allocate issues the next id as max(now, latest+1, last issued+1) and
// records it as the root's high-water mark.
func (s *Store) allocate(ctx context.Context, latest int64) (int64, time.Time, error) {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	fl := flock.New(filepath.Join(s.root, allocLockName))
	locked, err := fl.TryLockContext(ctx, lockRetryWait)
	if err != nil || !locked {
		if err == nil {
			err = ctx.Err()
		}
		return 0, time.Time{}, fmt.Errorf("lock version allocation: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	markPath := filepath.Join(s.root, highWaterName)
	var issued int64
	data, err := os.ReadFile(markPath)
	switch {
	case err == nil:
		issued, _ = strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	case !errors.Is(err, fs.ErrNotExist):
		return 0, time.Time{}, fmt.Errorf("read version high-water mark: %w", err)
	}

	now := s.now()
	id := max(now.UnixMilli(), latest+1, issued+1)
	if err := fileutil.WriteFileAtomic(markPath, []byte(strconv.FormatInt(id, 10)+"\n"), 0o644); err != nil {
		return 0, time.Time{}, fmt.Errorf("record version high-water mark: %w", err)
	}
	return id, now, nil
}

// Create lays out a new project with original as its pristine document.
func (s *Store) Create(ctx context.Context, projectID string, original *timeline.Document) error {
	if err := ValidateID(projectID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.projectDir(projectID)
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create projects root: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return services.Wrap(services.ErrValidation, "project", "create", fmt.Sprintf("project %q already exists", projectID), nil)
		}
		return fmt.Errorf("create project dir: %w", err)
	}
	for _, sub := range []string{originalDir, versionsDir} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	data, err := original.Bytes()
	if err != nil {
		return fmt.Errorf("serialize original: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.OriginalPath(projectID), data, 0o644); err != nil {
		return fmt.Errorf("write original: %w", err)
	}
	return nil
}

// List returns project ids in name order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && ValidateID(entry.Name()) == nil {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}
