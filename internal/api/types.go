package api

import (
	"time"

	"splice/internal/ledger"
	"splice/internal/render"
)

// ProjectResponse carries a serialized timeline document.
type ProjectResponse struct {
	Project string `json:"project"`
}

// CommandResponse is the outcome of a PUT command.
type CommandResponse struct {
	UpdatedProject string `json:"updatedProject"`
	Success        bool   `json:"success"`
	VersionID      int64  `json:"versionId,omitempty"`
}

// CreateProjectResponse names a newly created project.
type CreateProjectResponse struct {
	ProjectID string `json:"projectId"`
	VersionID int64  `json:"versionId,omitempty"`
}

// VersionInfo describes one stored version.
type VersionInfo struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
}

// VersionsResponse lists a project's versions, oldest first.
type VersionsResponse struct {
	ProjectID string        `json:"projectId"`
	Versions  []VersionInfo `json:"versions"`
}

// EventsResponse lists journal events for a project, oldest first.
type EventsResponse struct {
	ProjectID string         `json:"projectId"`
	Events    []ledger.Event `json:"events"`
}

// DeadLettersResponse lists dead letters of every queue.
type DeadLettersResponse struct {
	DeadLetters []ledger.DeadLetter `json:"deadLetters"`
}

// StatusResponse summarizes the running daemon.
type StatusResponse struct {
	Running     bool                  `json:"running"`
	PID         int                   `json:"pid"`
	SessionID   string                `json:"sessionId,omitempty"`
	StartedAt   time.Time             `json:"startedAt"`
	DataDir     string                `json:"dataDir"`
	LedgerPath  string                `json:"ledgerPath"`
	LockPath    string                `json:"lockPath,omitempty"`
	Completion  string                `json:"completion"`
	Jobs        map[string]render.Job `json:"jobs"`
	DeadLetters int                   `json:"pendingDeadLetters"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	genericErrorMessage = "request failed"
	unauthorizedMessage = "unauthorized"
	requestIDHeader     = "X-Request-ID"
)
