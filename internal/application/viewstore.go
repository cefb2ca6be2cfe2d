package application

import (
	"sync"
	"time"

	"github.com/ericfisherdev/devisible/internal/domain/model"
)

// DashboardView is the dashboard state held for one session: the loaded
// repositories and the out-of-spec report computed for them.
type DashboardView struct {
	Empty    bool
	Repos    []model.Repository
	Report   model.OutOfSpecReport
	Drift    map[int64][]model.DependencyDrift
	LoadedAt time.Time
}

// ViewStore holds the latest DashboardView per session. It is the server-side
// counterpart of the browser's view state: loads replace it, confirmed
// deletes edit it, searches read it.
//
// Every change advances a sequence number. A load takes a Mark before asking
// the backend and commits against it, so a slow load never overwrites a newer
// load and never brings back a repository deleted while it was in flight.
type ViewStore struct {
	mu      sync.RWMutex
	seq     uint64
	views   map[string]storedView
	removed map[string][]removal
}

type storedView struct {
	view DashboardView
	mark uint64
}

type removal struct {
	repoID int64
	seq    uint64
}

// NewViewStore creates an empty ViewStore.
func NewViewStore() *ViewStore {
	return &ViewStore{
		views:   make(map[string]storedView),
		removed: make(map[string][]removal),
	}
}

// Get returns the view stored for sessionID.
func (s *ViewStore) Get(sessionID string) (DashboardView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.views[sessionID]
	return sv.view, ok
}

// Mark returns the current sequence number. Pass it to Commit once the data
// read after it is ready.
func (s *ViewStore) Mark() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Commit stores v for sessionID unless a load marked later than since has
// already been committed, and returns the view now stored. Repositories
// removed after since are dropped from v first.
func (s *ViewStore) Commit(sessionID string, since uint64, v DashboardView) DashboardView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.views[sessionID]; ok && cur.mark > since {
		return cur.view
	}

	var kept []removal
	for _, r := range s.removed[sessionID] {
		if r.seq > since {
			v, _ = withoutRepo(v, r.repoID)
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		delete(s.removed, sessionID)
	} else {
		s.removed[sessionID] = kept
	}

	s.seq++
	s.views[sessionID] = storedView{view: v, mark: since}
	return v
}

// Remove drops repoID from the session's view and from any load still in
// flight for it. It reports whether the stored view contained the repository.
func (s *ViewStore) Remove(sessionID string, repoID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.removed[sessionID] = append(s.removed[sessionID], removal{repoID: repoID, seq: s.seq})

	sv, ok := s.views[sessionID]
	if !ok {
		return false
	}
	v, found := withoutRepo(sv.view, repoID)
	if found {
		sv.view = v
		s.views[sessionID] = sv
	}
	return found
}

// Drop removes the views for the given sessions.
func (s *ViewStore) Drop(sessionIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sessionIDs {
		delete(s.views, id)
		delete(s.removed, id)
	}
}

// Len returns the number of stored views.
func (s *ViewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

// withoutRepo returns v without repoID and its report and drift entries.
func withoutRepo(v DashboardView, repoID int64) (DashboardView, bool) {
	repos, removed := RemoveRepoByID(v.Repos, repoID)
	if !removed {
		return v, false
	}

	report := make(model.OutOfSpecReport, len(v.Report))
	for id, deps := range v.Report {
		if id != repoID {
			report[id] = deps
		}
	}
	drift := make(map[int64][]model.DependencyDrift, len(v.Drift))
	for id, d := range v.Drift {
		if id != repoID {
			drift[id] = d
		}
	}

	v.Repos = repos
	v.Report = report
	v.Drift = drift
	v.Empty = len(repos) == 0
	return v, true
}
