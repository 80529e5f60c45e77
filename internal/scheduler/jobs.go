package scheduler

import (
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
)

// DefaultJobs returns the static job table. It is loaded once at
// startup and handed to the Scheduler as an immutable slice; nothing
// mutates it at runtime.
func DefaultJobs() []domain.ScheduledJob {
	return []domain.ScheduledJob{
		{
			Name:     "partner-outreach-producer",
			Endpoint: "/v1/jobs/partner-outreach",
			Hours:    []int{9},
			Enabled:  true,
		},
		{
			Name:     "wholesale-outreach-producer",
			Endpoint: "/v1/jobs/wholesale-outreach",
			Hours:    []int{9},
			Days:     []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			Enabled:  true,
		},
		{
			Name:     "partner-followup-producer",
			Endpoint: "/v1/jobs/partner-followup",
			Hours:    []int{14},
			Days:     []time.Weekday{time.Tuesday, time.Thursday},
			Enabled:  true,
		},
		{
			Name:     "social-post-producer",
			Endpoint: "/v1/jobs/social-posts",
			Hours:    []int{7, 12, 18},
			Enabled:  true,
		},
		{
			Name:     "queue-processor",
			Endpoint: "/v1/jobs/process-queue",
			Hours:    []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23},
			Enabled:  true,
		},
		{
			Name:     "stuck-message-sweeper",
			Endpoint: "/v1/jobs/requeue-stuck",
			Hours:    []int{0, 6, 12, 18},
			Enabled:  true,
		},
	}
}

// DueJobs selects the enabled jobs whose hour and weekday predicates
// match now. Pure function of the table and the clock; the result is
// stable for the whole hour window.
func DueJobs(jobs []domain.ScheduledJob, now time.Time) []domain.ScheduledJob {
	due := make([]domain.ScheduledJob, 0, len(jobs))
	for _, job := range jobs {
		if job.DueAt(now) {
			due = append(due, job)
		}
	}
	return due
}

// WindowKey identifies the hour-of-day due window used for the
// at-most-once invocation claim.
func WindowKey(now time.Time) string {
	return now.UTC().Format("2006010215")
}
