package scheduler

import (
	"testing"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
)

func TestDueJobsPreservesTableOrder(t *testing.T) {
	t.Parallel()

	jobs := []domain.ScheduledJob{
		{Name: "first", Hours: []int{9}, Enabled: true},
		{Name: "skipped", Hours: []int{10}, Enabled: true},
		{Name: "second", Hours: []int{9}, Enabled: true},
		{Name: "disabled", Hours: []int{9}, Enabled: false},
	}

	// Monday 09:15 UTC.
	now := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	due := DueJobs(jobs, now)

	if len(due) != 2 {
		t.Fatalf("len(due) = %d, want 2", len(due))
	}
	if due[0].Name != "first" || due[1].Name != "second" {
		t.Fatalf("due order = [%s, %s], want [first, second]", due[0].Name, due[1].Name)
	}
}

func TestDueJobsIsStableWithinHour(t *testing.T) {
	t.Parallel()

	jobs := DefaultJobs()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first := DueJobs(jobs, base)
	second := DueJobs(jobs, base.Add(45*time.Minute))

	if len(first) != len(second) {
		t.Fatalf("due count changed within hour: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Fatalf("due[%d] = %s vs %s, want identical", i, first[i].Name, second[i].Name)
		}
	}
}

func TestDefaultJobsWeekdayPredicates(t *testing.T) {
	t.Parallel()

	jobs := DefaultJobs()

	// Monday 09:00 UTC: partner + wholesale producers plus the hourly
	// queue processor.
	monday9 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	names := dueNames(jobs, monday9)
	wantMonday := []string{"partner-outreach-producer", "wholesale-outreach-producer", "queue-processor"}
	assertNames(t, names, wantMonday)

	// Tuesday 09:00 UTC: wholesale producer must not fire.
	tuesday9 := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	names = dueNames(jobs, tuesday9)
	assertNames(t, names, []string{"partner-outreach-producer", "queue-processor"})

	// Tuesday 14:00 UTC: followup producer fires.
	tuesday14 := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	names = dueNames(jobs, tuesday14)
	assertNames(t, names, []string{"partner-followup-producer", "queue-processor"})

	// Midnight fires the sweeper alongside the queue processor.
	midnight := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	names = dueNames(jobs, midnight)
	assertNames(t, names, []string{"queue-processor", "stuck-message-sweeper"})
}

func TestWindowKey(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 9, 45, 12, 0, time.UTC)
	if got := WindowKey(now); got != "2026030209" {
		t.Fatalf("WindowKey() = %q, want 2026030209", got)
	}

	// Same hour, different minute: same window.
	if got := WindowKey(now.Add(10 * time.Minute)); got != "2026030209" {
		t.Fatalf("WindowKey(+10m) = %q, want 2026030209", got)
	}

	// Local clocks normalize to UTC.
	local := now.In(time.FixedZone("UTC+3", 3*3600))
	if got := WindowKey(local); got != "2026030209" {
		t.Fatalf("WindowKey(local) = %q, want 2026030209", got)
	}
}

func dueNames(jobs []domain.ScheduledJob, now time.Time) []string {
	due := DueJobs(jobs, now)
	names := make([]string, 0, len(due))
	for _, job := range due {
		names = append(names, job.Name)
	}
	return names
}

func assertNames(t *testing.T, got, want []string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("due jobs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("due jobs = %v, want %v", got, want)
		}
	}
}
