// Package jobs implements the Job Registry: the mapping from job id to the
// job record grouping the processes of one pipeline launch, plus the
// process-state table and pid-to-job index that together make up the
// shell's live-job bookkeeping. Job ids are small integers rather than the
// uuids a network-facing job tracker would use, and each job carries the
// terminal attributes captured the last time it lost the foreground.
package jobs

import (
	"sort"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/tjper/smash/internal/process"
)

// Job is one pipeline execution tracked for foreground/background control
// and status reporting.
type Job struct {
	// ID is a small positive integer, unique among currently-live jobs.
	ID int
	// Pgid is the process-group id, equal to Processes[0].
	Pgid int
	// CommandText is the original source text of the pipeline.
	CommandText string
	// Processes are the job's pids in pipeline order.
	Processes []int

	mu           sync.Mutex
	savedTermios *unix.Termios
}

// SavedTermios returns the job's saved terminal attributes, captured when
// the job last lost the foreground, or nil if none was captured.
func (j *Job) SavedTermios() *unix.Termios {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.savedTermios
}

// SetSavedTermios stores a snapshot of the job's terminal attributes. Only
// the Terminal Controller, which has exclusive access while the job is in
// the foreground, calls this.
func (j *Job) SetSavedTermios(t *unix.Termios) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.savedTermios = t
}

// Registry is the single owner of Job records, the process state table, and
// the pid-to-job index. Anything that needs to refer to a job elsewhere
// (the "last foreground job" pointer) holds its id and looks it up here on
// use, rather than holding a second pointer to the Job itself.
type Registry struct {
	mu          sync.Mutex
	jobs        map[int]*Job
	states      map[int]process.State
	pidToJob    map[int]int // pid -> job id
	lastForeJob int         // 0 means none
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		jobs:     make(map[int]*Job),
		states:   make(map[int]process.State),
		pidToJob: make(map[int]int),
	}
}

// Create allocates the smallest unused job id, registers a Job with the
// given pgid/commandText/pids, marks every pid Running, and indexes each pid
// to the new job, so every live pid has a states entry and a pidToJob entry
// the instant the caller observes the returned Job.
func (r *Registry) Create(commandText string, pgid int, pids []int) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.allocID()
	j := &Job{
		ID:          id,
		Pgid:        pgid,
		CommandText: commandText,
		Processes:   append([]int(nil), pids...),
	}
	r.jobs[id] = j
	for _, pid := range pids {
		r.states[pid] = process.Running()
		r.pidToJob[pid] = id
	}
	return j
}

// allocID scans {1, 2, 3, ...} for the first id not currently in use.
// O(n) in the number of live jobs; fine given a shell has at most a handful
// running at once. Must be called with mu held.
func (r *Registry) allocID() int {
	id := 1
	for {
		if _, ok := r.jobs[id]; !ok {
			return id
		}
		id++
	}
}

// Get returns the job for id, if still live.
func (r *Registry) Get(id int) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

// JobForPid returns the live job owning pid, if any. A pid whose job has
// been destroyed never resolves as live: Destroy removes the pidToJob entry
// eagerly rather than leaving it to be discovered stale later.
func (r *Registry) JobForPid(pid int) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.pidToJob[pid]
	if !ok {
		return nil, false
	}
	j, ok := r.jobs[id]
	return j, ok
}

// State returns the observed state of pid.
func (r *Registry) State(pid int) (process.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[pid]
	return s, ok
}

// SetState records a process state transition. Only the Reaper calls this.
func (r *Registry) SetState(pid int, s process.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[pid] = s
}

// Completed reports whether every process of job id is Completed.
func (r *Registry) Completed(id int) bool {
	return r.allMatch(id, func(s process.State) bool {
		_, ok := s.IsCompleted()
		return ok
	})
}

// Stopped reports whether every process of job id is Stopped.
func (r *Registry) Stopped(id int) bool {
	return r.allMatch(id, func(s process.State) bool { return s.IsStopped() })
}

func (r *Registry) allMatch(id int, pred func(process.State) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	for _, pid := range j.Processes {
		s, ok := r.states[pid]
		if !ok || !pred(s) {
			return false
		}
	}
	return true
}

// LastState returns the state of the job's last process (pipeline order),
// used by wait_for_job to decide completion vs. stop.
func (r *Registry) LastState(id int) (process.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || len(j.Processes) == 0 {
		return process.State{}, false
	}
	last := j.Processes[len(j.Processes)-1]
	s, ok := r.states[last]
	return s, ok
}

// Destroy removes job id from the registry: its entry in jobs, its pids'
// entries in states and pidToJob, and clears LastForeground if it pointed
// here. Cleanup is eager rather than left for a future Get to discover the
// job gone, so JobForPid and State never return stale data for a dead job.
func (r *Registry) Destroy(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	for _, pid := range j.Processes {
		delete(r.states, pid)
		delete(r.pidToJob, pid)
	}
	delete(r.jobs, id)
	if r.lastForeJob == id {
		r.lastForeJob = 0
	}
}

// SetLastForeground records id as the most recently foregrounded job.
func (r *Registry) SetLastForeground(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastForeJob = id
}

// LastForeground returns the most recently foregrounded job id, or 0 if
// none.
func (r *Registry) LastForeground() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastForeJob
}

// LiveIDs returns the currently-live job ids in ascending order.
func (r *Registry) LiveIDs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
