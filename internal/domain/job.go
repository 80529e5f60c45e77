package domain

import "time"

// ScheduledJob is one row of the static job table loaded at process
// start. Hours are UTC hours-of-day; an empty Hours set means the job
// never fires. A nil Days set means every day.
type ScheduledJob struct {
	Name     string
	Endpoint string
	Hours    []int
	Days     []time.Weekday
	Enabled  bool
}

// DueAt reports whether the job should fire in the tick window that
// contains now. It is a pure function of the job and the clock, so
// evaluating it twice within the same hour yields the same answer.
func (j ScheduledJob) DueAt(now time.Time) bool {
	if !j.Enabled || len(j.Hours) == 0 {
		return false
	}

	utc := now.UTC()
	hourMatch := false
	for _, h := range j.Hours {
		if h == utc.Hour() {
			hourMatch = true
			break
		}
	}
	if !hourMatch {
		return false
	}

	if j.Days == nil {
		return true
	}
	for _, d := range j.Days {
		if d == utc.Weekday() {
			return true
		}
	}
	return false
}
