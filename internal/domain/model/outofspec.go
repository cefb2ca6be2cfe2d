package model

// OutOfSpecReport maps a repository ID to the ordered names of its dependencies
// whose installed version differs from the preferred version. Repositories
// with nothing flagged are absent.
type OutOfSpecReport map[int64][]string

// OutOfSpecStatus is the per-repository view of an OutOfSpecReport entry.
type OutOfSpecStatus struct {
	Status        bool
	DepsOutOfSpec []string
}

// Lookup returns the status for repoID. Absent repositories report
// Status false and an empty (non-nil) dependency list.
func (r OutOfSpecReport) Lookup(repoID int64) OutOfSpecStatus {
	deps, ok := r[repoID]
	if !ok || len(deps) == 0 {
		return OutOfSpecStatus{Status: false, DepsOutOfSpec: []string{}}
	}

	out := make([]string, len(deps))
	copy(out, deps)
	return OutOfSpecStatus{Status: true, DepsOutOfSpec: out}
}

// Count returns the number of flagged repositories.
func (r OutOfSpecReport) Count() int {
	n := 0
	for _, deps := range r {
		if len(deps) > 0 {
			n++
		}
	}
	return n
}

// DriftDirection classifies how an installed version relates to the preferred one.
type DriftDirection string

// DriftDirection values.
const (
	DriftBehind  DriftDirection = "behind"
	DriftAhead   DriftDirection = "ahead"
	DriftDiffers DriftDirection = "differs"
)

// DependencyDrift annotates a single out-of-spec dependency for display. It
// never influences whether a dependency is flagged.
type DependencyDrift struct {
	Name      string
	Installed string
	Preferred string
	Direction DriftDirection
}
