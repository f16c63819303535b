package api

// Job describes a research job in a transport-friendly format.
type Job struct {
	ID           int64    `json:"id"`
	EntityType   string   `json:"entityType"`
	EntityID     int64    `json:"entityId"`
	EntityName   string   `json:"entityName,omitempty"`
	Status       string   `json:"status"`
	Phase        string   `json:"phase,omitempty"`
	PhaseCurrent int      `json:"phaseCurrent"`
	PhaseTotal   int      `json:"phaseTotal"`
	FailedPhases []string `json:"failedPhases,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	StartedAt    string   `json:"startedAt,omitempty"`
	FinishedAt   string   `json:"finishedAt,omitempty"`
}

// ResearchStatus summarizes the orchestrator state.
type ResearchStatus struct {
	Active    bool   `json:"active"`
	QueueSize int    `json:"queueSize"`
	Current   *Job   `json:"current,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

// DaemonStatus is the full /api/status payload.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	Research     ResearchStatus `json:"research"`
	Library      LibraryStats   `json:"library"`
}

// LibraryStats carries entity counts for status surfaces.
type LibraryStats struct {
	Songs      int64 `json:"songs"`
	Performers int64 `json:"performers"`
	Recordings int64 `json:"recordings"`
	Releases   int64 `json:"releases"`
	Refs       int64 `json:"refs"`
}

// DuplicateGroup is one suggested merge.
type DuplicateGroup struct {
	MasterID     int64   `json:"masterId"`
	DuplicateIDs []int64 `json:"duplicateIds"`
	Rationale    string  `json:"rationale"`
}

// MergeReport summarizes what a merge moved.
type MergeReport struct {
	ReleasesMigrated int `json:"releasesMigrated"`
	CreditsMigrated  int `json:"creditsMigrated"`
	RefsMigrated     int `json:"refsMigrated"`
	SkippedConflicts int `json:"skippedConflicts"`
	Deleted          int `json:"deleted"`
}

// RefVerdict is the outcome of one reference check.
type RefVerdict struct {
	RefID       int64  `json:"refId"`
	Valid       bool   `json:"valid"`
	Confidence  string `json:"confidence"`
	Reason      string `json:"reason,omitempty"`
	Unavailable bool   `json:"unavailable"`
	Purged      bool   `json:"purged,omitempty"`
}

// EnqueueRequest asks the daemon to research an entity.
type EnqueueRequest struct {
	EntityType string `json:"entityType"`
	EntityID   int64  `json:"entityId"`
}

// EnqueueResponse acknowledges an accepted research job along with the
// queue depth behind it.
type EnqueueResponse struct {
	Job       Job `json:"job"`
	QueueSize int `json:"queueSize"`
}

// MergeRequest folds duplicate recordings into a master.
type MergeRequest struct {
	MasterID     int64   `json:"masterId"`
	DuplicateIDs []int64 `json:"duplicateIds"`
}

// CurateRequest sets or clears a curated field value.
type CurateRequest struct {
	EntityType string `json:"entityType"`
	EntityID   int64  `json:"entityId"`
	Field      string `json:"field"`
	Value      string `json:"value"`
	CuratedBy  string `json:"curatedBy"`
}

// RefRequest targets one external reference, either directly by id or by
// the entity and catalog it belongs to. Destructive asks for a purge: the
// reference is re-verified and deleted when invalid.
type RefRequest struct {
	RefID       int64  `json:"refId,omitempty"`
	EntityType  string `json:"entityType,omitempty"`
	EntityID    int64  `json:"entityId,omitempty"`
	Catalog     string `json:"catalog,omitempty"`
	Destructive bool   `json:"destructive,omitempty"`
}

// JobListResponse wraps /api/research/jobs results.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// DuplicateListResponse wraps /api/duplicates results.
type DuplicateListResponse struct {
	Groups []DuplicateGroup `json:"groups"`
}
