package models

import (
	"cmp"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/mealdesk/mealdesk/internal/scheduler"
	"github.com/samber/lo"
)

// ToJobStatus converts a scheduler.JobInfo to its public view.
func ToJobStatus(j scheduler.JobInfo) JobStatus {
	status := JobStatus{
		ID:         j.ID,
		Name:       j.Name,
		Status:     string(j.Status),
		Schedule:   j.Schedule,
		LastRun:    j.LastRun,
		NextRun:    j.NextRun,
		RunCount:   j.RunCount,
		ErrorCount: j.ErrorCount,
		LastError:  j.LastError,
	}
	if !j.LastRun.IsZero() {
		status.LastRunAgo = humanize.Time(j.LastRun)
	}
	return status
}

// ToJobStatuses converts jobs to their public view, sorted by id.
func ToJobStatuses(jobs []scheduler.JobInfo) []JobStatus {
	result := lo.Map(jobs, func(j scheduler.JobInfo, _ int) JobStatus {
		return ToJobStatus(j)
	})
	slices.SortFunc(result, func(a, b JobStatus) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}
