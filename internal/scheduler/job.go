package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron schedule expression (with seconds)
	// Examples: "0 30 21 * * 1-5" (weekdays 21:30), "@daily"
	Schedule() string
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory bounds the results kept per job
const maxHistory = 100

// JobHistory keeps a job's most recent results, oldest first.
// The scheduler guards it with its own lock.
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest beyond maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// Latest returns a copy of the last n results
func (h *JobHistory) Latest(n int) []JobResult {
	n = min(n, len(h.Results))
	if n <= 0 {
		return []JobResult{}
	}
	out := make([]JobResult, n)
	copy(out, h.Results[len(h.Results)-n:])
	return out
}

// JobSummary condenses a history for status output
type JobSummary struct {
	Total       int
	Succeeded   int
	Failed      int
	LastRun     *time.Time
	LastSuccess *time.Time
	LastFailure *time.Time
}

// SuccessRate is Succeeded/Total, 0 without runs
func (s JobSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total)
}

// Summary counts outcomes and finds the latest run of each kind
func (h *JobHistory) Summary() JobSummary {
	sum := JobSummary{Total: len(h.Results)}
	for i := range h.Results {
		r := h.Results[i]
		started := r.StartTime
		sum.LastRun = &started
		if r.Success {
			sum.Succeeded++
			sum.LastSuccess = &started
		} else {
			sum.Failed++
			sum.LastFailure = &started
		}
	}
	return sum
}
