package api

import (
	"time"

	"bandstand/internal/dedup"
	"bandstand/internal/library"
	"bandstand/internal/refcheck"
	"bandstand/internal/research"
)

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}

// FromJob converts a research job to its transport form.
func FromJob(job *research.Job) Job {
	if job == nil {
		return Job{}
	}
	out := Job{
		ID:           job.ID,
		EntityType:   job.EntityType,
		EntityID:     job.EntityID,
		EntityName:   job.EntityName,
		Status:       string(job.Status),
		Phase:        job.Phase,
		PhaseCurrent: job.PhaseCurrent,
		PhaseTotal:   job.PhaseTotal,
		FailedPhases: job.FailedPhases,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    formatTime(job.CreatedAt),
	}
	if job.StartedAt != nil {
		out.StartedAt = formatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		out.FinishedAt = formatTime(*job.FinishedAt)
	}
	return out
}

// FromJobs converts a job list.
func FromJobs(jobs []*research.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromSnapshot converts an orchestrator snapshot.
func FromSnapshot(snapshot *research.Snapshot, lastErr error) ResearchStatus {
	status := ResearchStatus{}
	if snapshot != nil {
		status.Active = snapshot.Active
		status.QueueSize = snapshot.QueueSize
		if snapshot.Current != nil {
			current := FromJob(snapshot.Current)
			status.Current = &current
		}
	}
	if lastErr != nil {
		status.LastError = lastErr.Error()
	}
	return status
}

// FromLibraryStats converts store counters.
func FromLibraryStats(stats *library.Stats) LibraryStats {
	if stats == nil {
		return LibraryStats{}
	}
	return LibraryStats{
		Songs:      stats.Songs,
		Performers: stats.Performers,
		Recordings: stats.Recordings,
		Releases:   stats.Releases,
		Refs:       stats.ExternalRefs,
	}
}

// FromGroups converts duplicate suggestions.
func FromGroups(groups []dedup.Group) []DuplicateGroup {
	out := make([]DuplicateGroup, 0, len(groups))
	for _, group := range groups {
		out = append(out, DuplicateGroup{
			MasterID:     group.MasterID,
			DuplicateIDs: group.DuplicateIDs,
			Rationale:    group.Rationale,
		})
	}
	return out
}

// FromReport converts a merge report.
func FromReport(report *dedup.Report) MergeReport {
	if report == nil {
		return MergeReport{}
	}
	return MergeReport{
		ReleasesMigrated: report.ReleasesMigrated,
		CreditsMigrated:  report.CreditsMigrated,
		RefsMigrated:     report.RefsMigrated,
		SkippedConflicts: report.SkippedConflicts,
		Deleted:          report.Deleted,
	}
}

// FromVerdict converts a reference-check verdict.
func FromVerdict(verdict *refcheck.Verdict) RefVerdict {
	if verdict == nil {
		return RefVerdict{}
	}
	return RefVerdict{
		RefID:       verdict.RefID,
		Valid:       verdict.Valid,
		Confidence:  verdict.Confidence.String(),
		Reason:      verdict.Reason,
		Unavailable: verdict.Unavailable,
	}
}
