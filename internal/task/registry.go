package task

import (
	"sync"
	"time"
)

// Registry owns the map of task id to record. It is the only shared
// mutable state in the generation engine, so every access goes through
// the registry's lock. Records are evicted once their age exceeds the
// TTL, regardless of status, which bounds memory held for abandoned or
// never-polled requests.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	ttl     time.Duration

	// now is injectable for tests that need to age records.
	now func() time.Time
}

// NewRegistry creates an empty registry whose records expire after ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		records: make(map[string]*Record),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Insert adds a record to the registry. The caller must not retain the
// pointer after insertion; all further access goes through Snapshot and
// Mutate.
func (r *Registry) Insert(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
}

// Snapshot returns a copy of the record with the given id, or false if
// no such record exists. Evicted and never-existing ids are
// indistinguishable.
func (r *Registry) Snapshot(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}

	snap := *rec
	if len(rec.History) > 0 {
		snap.History = make([]ProgressUpdate, len(rec.History))
		copy(snap.History, rec.History)
	}
	return snap, true
}

// Mutate applies fn to the record with the given id under the write
// lock. It returns false if the record does not exist.
func (r *Registry) Mutate(id string, fn func(*Record)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// Sweep removes every record strictly older than the TTL and returns
// the number of records removed. Eviction is unconditional: a record
// still in processing state is removed like any other once expired.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, rec := range r.records {
		if now.Sub(rec.CreatedAt) > r.ttl {
			delete(r.records, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
