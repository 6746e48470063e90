package render

// Status is the render state of a project.
type Status string

const (
	StatusRendering Status = "rendering"
	StatusDone      Status = "done"
)

// Job is the render view of one project. The zero job reports done with no
// output, which is also what a never-rendered project looks like.
type Job struct {
	LatestFile    string   `json:"latestFile"`
	PreviousFiles []string `json:"previousFiles"`
	Status        Status   `json:"status"`
}

// Mark captures the job state replaced by MarkRendering so a failed dispatch
// can put it back.
type Mark struct {
	ProjectID string
	VersionID int64
	Status    Status
	Pending   int64
}

func (j Job) clone() Job {
	out := j
	out.PreviousFiles = append(make([]string, 0, len(j.PreviousFiles)), j.PreviousFiles...)
	return out
}
