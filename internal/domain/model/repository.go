package model

import "time"

// Build is a single build record posted by the DEVisible CLI for a repository.
type Build struct {
	ID         int64
	BuildTime  float64 // seconds
	BundleSize float64 // kilobytes
	Commit     string
	CreatedAt  time.Time
}

// Repository is a monitored repository together with its build history.
type Repository struct {
	ID     int64
	Name   string
	Builds []Build
}

// LatestBuild returns the most recent build by CreatedAt. The second return
// value is false when the repository has no builds.
func (r Repository) LatestBuild() (Build, bool) {
	if len(r.Builds) == 0 {
		return Build{}, false
	}

	latest := r.Builds[0]
	for _, b := range r.Builds[1:] {
		if b.CreatedAt.After(latest.CreatedAt) {
			latest = b
		}
	}
	return latest, true
}
