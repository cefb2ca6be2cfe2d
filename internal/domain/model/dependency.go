package model

import "sort"

// DependencySet maps a dependency name to its installed version string.
type DependencySet map[string]string

// Names returns the dependency names in ascending order.
func (d DependencySet) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PreferredVersions maps a dependency name to the version the user declared
// as the comparison baseline.
type PreferredVersions map[string]string

// RepoDependencies maps a repository ID to that repository's installed dependencies.
type RepoDependencies map[int64]DependencySet

// DependencyData is the payload of the backend dependency endpoint: the
// user's preferred versions and every repository's installed dependencies.
type DependencyData struct {
	Preferred PreferredVersions
	Repos     RepoDependencies
}

// VersionUsage lists the repositories that have a given version of a dependency installed.
type VersionUsage struct {
	Version   string
	RepoNames []string
	InSpec    bool
}

// DependencyUsage summarizes one dependency across all of a user's repositories.
type DependencyUsage struct {
	Name           string
	Preferred      string // empty when no preferred version is declared
	Versions       []VersionUsage
	OutOfSpecRepos int
}
