package render

import "sync"

// StatusBoard is the render state shared by the dispatcher, the tracker and
// the API.
type StatusBoard interface {
	GetOrCreate(projectID string) Job
	SetStatus(projectID string, status Status)
	RecordOutput(projectID, path string)
	MarkRendering(projectID string, versionID int64) Mark
	Revert(mark Mark)
	Complete(projectID string, versionID int64, path string) Status
	Snapshot() map[string]Job
}

type entry struct {
	job Job
	// pending is the newest dispatched version still awaiting output.
	pending int64
}

// Registry is the in-memory StatusBoard.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*entry)}
}

func (r *Registry) entryLocked(projectID string) *entry {
	e, ok := r.jobs[projectID]
	if !ok {
		e = &entry{job: Job{PreviousFiles: []string{}, Status: StatusDone}}
		r.jobs[projectID] = e
	}
	return e
}

// GetOrCreate returns a copy of the project's job, creating the default one.
func (r *Registry) GetOrCreate(projectID string) Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entryLocked(projectID).job.clone()
}

// SetStatus overwrites the project's status.
func (r *Registry) SetStatus(projectID string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryLocked(projectID)
	e.job.Status = status
	if status == StatusDone {
		e.pending = 0
	}
}

// RecordOutput makes path the latest output and appends it to the history.
func (r *Registry) RecordOutput(projectID, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordLocked(r.entryLocked(projectID), path)
}

func (r *Registry) recordLocked(e *entry, path string) {
	e.job.LatestFile = path
	e.job.PreviousFiles = append(e.job.PreviousFiles, path)
}

// MarkRendering flags the project as rendering versionID and returns the
// state it replaced. An older version never lowers the pending version of a
// render already in progress.
func (r *Registry) MarkRendering(projectID string, versionID int64) Mark {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryLocked(projectID)
	mark := Mark{ProjectID: projectID, VersionID: versionID, Status: e.job.Status, Pending: e.pending}
	if e.job.Status != StatusRendering || versionID > e.pending {
		e.pending = versionID
	}
	e.job.Status = StatusRendering
	return mark
}

// Revert restores the state captured by mark unless another dispatch or an
// output has moved the job on since.
func (r *Registry) Revert(mark Mark) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[mark.ProjectID]
	if !ok || e.job.Status != StatusRendering || e.pending != mark.VersionID {
		return
	}
	e.job.Status = mark.Status
	e.pending = mark.Pending
}

// Complete records path and marks the project done, unless path belongs to a
// version older than the one being rendered. versionID zero means unknown and
// always completes.
func (r *Registry) Complete(projectID string, versionID int64, path string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryLocked(projectID)
	r.recordLocked(e, path)
	if versionID == 0 || versionID >= e.pending {
		e.job.Status = StatusDone
		e.pending = 0
	}
	return e.job.Status
}

// Snapshot copies every known job.
func (r *Registry) Snapshot() map[string]Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Job, len(r.jobs))
	for id, e := range r.jobs {
		out[id] = e.job.clone()
	}
	return out
}
