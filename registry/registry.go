// Package registry provides in-memory read-through mirrors of the schedule
// and report collections. Registries exist to keep hot dashboard reads off
// the database; the relational store stays authoritative and a registry is
// invalidated, never written back, on every mutation.
package registry

import (
	"context"
	"database/sql"
	"sync"

	"github.com/quantitva/market-intel/report"
	"github.com/quantitva/market-intel/schedule"
)

// ScheduleRegistry caches each user's schedule list in insertion order.
type ScheduleRegistry struct {
	mu    sync.RWMutex
	store *schedule.Store
	byUID map[string][]*schedule.Schedule
}

// NewScheduleRegistry creates a registry reading through to db.
func NewScheduleRegistry(db *sql.DB) *ScheduleRegistry {
	return &ScheduleRegistry{
		store: schedule.NewStore(db),
		byUID: make(map[string][]*schedule.Schedule),
	}
}

// ListByUser returns the user's schedules from cache, loading from the
// store on a miss. Callers must not mutate the returned slice.
func (r *ScheduleRegistry) ListByUser(ctx context.Context, userID string) ([]*schedule.Schedule, error) {
	r.mu.RLock()
	cached, ok := r.byUID[userID]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	scheds, err := r.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.byUID[userID] = scheds
	r.mu.Unlock()
	return scheds, nil
}

// Invalidate drops the cached list for one user. Call after any mutation
// of that user's schedules.
func (r *ScheduleRegistry) Invalidate(userID string) {
	r.mu.Lock()
	delete(r.byUID, userID)
	r.mu.Unlock()
}

// InvalidateAll drops every cached list.
func (r *ScheduleRegistry) InvalidateAll() {
	r.mu.Lock()
	r.byUID = make(map[string][]*schedule.Schedule)
	r.mu.Unlock()
}

// ReportRegistry caches parsed report sections keyed by execution id.
// Section parsing walks the whole HTML payload, so repeated dashboard
// loads of the same report should not re-parse it.
type ReportRegistry struct {
	mu       sync.RWMutex
	sections map[string]*report.Sections
	order    []string
	capacity int
}

// DefaultReportCapacity bounds the section cache; the dashboard only pages
// through recent reports.
const DefaultReportCapacity = 256

// NewReportRegistry creates a section cache holding at most capacity
// entries; capacity <= 0 uses DefaultReportCapacity.
func NewReportRegistry(capacity int) *ReportRegistry {
	if capacity <= 0 {
		capacity = DefaultReportCapacity
	}
	return &ReportRegistry{
		sections: make(map[string]*report.Sections),
		capacity: capacity,
	}
}

// Sections returns the parsed sections for an execution's report, parsing
// and caching on a miss.
func (r *ReportRegistry) Sections(executionID, htmlContent string) (*report.Sections, error) {
	r.mu.RLock()
	cached, ok := r.sections[executionID]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	parsed, err := report.ParseSections(htmlContent)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sections[executionID]; !exists {
		if len(r.order) >= r.capacity {
			oldest := r.order[0]
			r.order = r.order[1:]
			delete(r.sections, oldest)
		}
		r.sections[executionID] = parsed
		r.order = append(r.order, executionID)
	}
	return parsed, nil
}

// Invalidate drops one cached report.
func (r *ReportRegistry) Invalidate(executionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sections[executionID]; !ok {
		return
	}
	delete(r.sections, executionID)
	for i, id := range r.order {
		if id == executionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len reports how many reports are cached.
func (r *ReportRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sections)
}
