package pipeline

import "sync"

// Registry tracks the jobs currently running in this process so external
// callers can request cancellation. It is an explicit object with process
// lifecycle, created at startup and passed by reference, never module-level
// state. Cancellation is honored at the next stage boundary; the running
// model call is not forcibly aborted.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]bool // job id -> cancellation requested
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]bool)}
}

// Register records a job as running. Returns false when the job is already
// registered.
func (r *Registry) Register(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[jobID]; ok {
		return false
	}
	r.jobs[jobID] = false
	return true
}

// Deregister removes a finished job.
func (r *Registry) Deregister(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
}

// Cancel flags a running job for cancellation. Returns false when the job is
// not running in this process.
func (r *Registry) Cancel(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[jobID]; !ok {
		return false
	}
	r.jobs[jobID] = true
	return true
}

// Cancelled reports whether cancellation was requested for a job.
func (r *Registry) Cancelled(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[jobID]
}

// Running lists the ids of jobs currently registered.
func (r *Registry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	return ids
}

// Close drops all registrations at process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = make(map[string]bool)
}
