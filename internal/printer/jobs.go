package printer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job statuses
const (
	StatusPrinting  = "printing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// defaultJobHistory is how many jobs the log keeps
const defaultJobHistory = 500

// Job records one request to the print endpoint
type Job struct {
	ID          string     `json:"id"`
	PrinterType string     `json:"printerType"`
	Family      Family     `json:"family,omitempty"`
	Target      string     `json:"target"`
	OrderID     string     `json:"orderId"`
	Status      string     `json:"status"`
	Reason      Reason     `json:"reason,omitempty"`
	Error       string     `json:"error,omitempty"`
	Bytes       int        `json:"bytes"`
	CreatedAt   time.Time  `json:"createdAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// JobLog keeps a bounded history of print jobs
type JobLog struct {
	jobs     []*Job
	max      int
	mu       sync.Mutex
	now      func() time.Time
	onChange func(Job)
}

// NewJobLog creates a log keeping at most max jobs (0 for the default)
func NewJobLog(max int) *JobLog {
	if max <= 0 {
		max = defaultJobHistory
	}
	return &JobLog{max: max, now: time.Now}
}

// OnChange sets a callback invoked with a copy of a job whenever it changes
func (l *JobLog) OnChange(callback func(Job)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = callback
}

// Start records a new job in the printing state
func (l *JobLog) Start(printerType, target, orderID string) Job {
	l.mu.Lock()

	job := &Job{
		ID:          uuid.New().String(),
		PrinterType: printerType,
		Target:      target,
		OrderID:     orderID,
		Status:      StatusPrinting,
		CreatedAt:   l.now(),
	}

	l.jobs = append(l.jobs, job)
	if len(l.jobs) > l.max {
		l.jobs = l.jobs[len(l.jobs)-l.max:]
	}

	snapshot, cb := *job, l.onChange
	l.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
	return snapshot
}

// Finish marks a job completed, or failed when f is not nil
func (l *JobLog) Finish(id string, family Family, bytes int, f *Failure) {
	l.mu.Lock()

	job := l.find(id)
	if job == nil {
		l.mu.Unlock()
		return
	}

	now := l.now()
	job.FinishedAt = &now
	job.Family = family
	job.Bytes = bytes
	if f != nil {
		job.Status = StatusFailed
		job.Reason = f.Reason
		job.Error = f.Err.Error()
	} else {
		job.Status = StatusCompleted
	}

	snapshot, cb := *job, l.onChange
	l.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Get returns a copy of the job, or nil
func (l *JobLog) Get(id string) *Job {
	l.mu.Lock()
	defer l.mu.Unlock()

	if job := l.find(id); job != nil {
		jobCopy := *job
		return &jobCopy
	}
	return nil
}

// All returns copies of all jobs, oldest first
func (l *JobLog) All() []Job {
	l.mu.Lock()
	defer l.mu.Unlock()

	jobs := make([]Job, len(l.jobs))
	for i, job := range l.jobs {
		jobs[i] = *job
	}
	return jobs
}

// ClearFinished removes completed and failed jobs
func (l *JobLog) ClearFinished() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.jobs[:0]
	for _, job := range l.jobs {
		if job.Status == StatusPrinting {
			kept = append(kept, job)
		}
	}
	removed := len(l.jobs) - len(kept)
	l.jobs = kept
	return removed
}

func (l *JobLog) find(id string) *Job {
	for _, job := range l.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}
