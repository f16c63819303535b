package research

import "time"

// Status captures the lifecycle of a research job.
type Status string

const (
	// StatusQueued means the job waits its turn.
	StatusQueued Status = "queued"
	// StatusResearching means the single worker holds the job.
	StatusResearching Status = "researching"
	// StatusCompleted means every phase ran; some may have failed and are
	// listed in FailedPhases.
	StatusCompleted Status = "completed"
	// StatusFailed means the job aborted on an infrastructure error before
	// its phases could complete.
	StatusFailed Status = "failed"
)

// Phase names, in execution order.
const (
	PhaseArchiveImport   = "archive_import"
	PhaseStreamboxMatch  = "streambox_match"
	PhaseWavelengthMatch = "wavelength_match"
	PhaseMediaFetch      = "media_fetch"
)

// PhaseOrder is the fixed sequence every job walks.
var PhaseOrder = []string{
	PhaseArchiveImport,
	PhaseStreamboxMatch,
	PhaseWavelengthMatch,
	PhaseMediaFetch,
}

// Job is one queued enrichment run for a single entity.
type Job struct {
	ID           int64
	EntityType   string
	EntityID     int64
	EntityName   string
	Status       Status
	Phase        string
	PhaseCurrent int
	PhaseTotal   int
	FailedPhases []string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// Snapshot is the orchestrator status surface.
type Snapshot struct {
	QueueSize int
	Active    bool
	Current   *Job
}
