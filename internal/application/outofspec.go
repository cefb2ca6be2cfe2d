package application

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ericfisherdev/devisible/internal/domain/model"
)

// FindOutOfSpecRepos compares every repository's installed dependencies against
// the preferred versions. A dependency is flagged when it appears in preferred
// and its installed version string differs from the preferred string; there is
// no semver range resolution. Dependencies without a preferred version are
// ignored, and repositories with nothing flagged are omitted from the report.
//
// Each repository's dependencies are visited in name order, so the same inputs
// always produce the same report.
func FindOutOfSpecRepos(preferred model.PreferredVersions, deps model.RepoDependencies) model.OutOfSpecReport {
	report := make(model.OutOfSpecReport)
	if len(preferred) == 0 {
		return report
	}

	for repoID, set := range deps {
		var flagged []string
		for _, name := range set.Names() {
			want, ok := preferred[name]
			if ok && set[name] != want {
				flagged = append(flagged, name)
			}
		}
		if len(flagged) > 0 {
			report[repoID] = flagged
		}
	}

	return report
}

// ComputeDrift annotates each flagged dependency in report with the direction
// of the installed version relative to the preferred one.
func ComputeDrift(
	report model.OutOfSpecReport,
	preferred model.PreferredVersions,
	deps model.RepoDependencies,
) map[int64][]model.DependencyDrift {
	drift := make(map[int64][]model.DependencyDrift, len(report))

	for repoID, names := range report {
		set := deps[repoID]
		entries := make([]model.DependencyDrift, 0, len(names))
		for _, name := range names {
			installed, want := set[name], preferred[name]
			entries = append(entries, model.DependencyDrift{
				Name:      name,
				Installed: installed,
				Preferred: want,
				Direction: classifyDrift(installed, want),
			})
		}
		drift[repoID] = entries
	}

	return drift
}

// classifyDrift compares two version strings as semver after stripping npm
// range operators. Strings that do not parse, or that parse equal while
// differing textually (e.g. "^1.2.0" vs "1.2.0"), classify as DriftDiffers.
func classifyDrift(installed, preferred string) model.DriftDirection {
	iv, err := semver.NewVersion(stripRange(installed))
	if err != nil {
		return model.DriftDiffers
	}
	pv, err := semver.NewVersion(stripRange(preferred))
	if err != nil {
		return model.DriftDiffers
	}

	switch iv.Compare(pv) {
	case -1:
		return model.DriftBehind
	case 1:
		return model.DriftAhead
	default:
		return model.DriftDiffers
	}
}

func stripRange(v string) string {
	return strings.TrimLeft(strings.TrimSpace(v), "^~=<> ")
}

// SummarizeDependencies builds the per-dependency overview across all
// repositories: which versions are installed where, and how many repositories
// diverge from the preferred version. Results are ordered by dependency name,
// versions by version string, repository names alphabetically.
func SummarizeDependencies(repos []model.Repository, data model.DependencyData) []model.DependencyUsage {
	names := make(map[int64]string, len(repos))
	for _, r := range repos {
		names[r.ID] = r.Name
	}

	// dependency -> version -> repository names
	usage := make(map[string]map[string][]string)
	for repoID, set := range data.Repos {
		repoName, ok := names[repoID]
		if !ok {
			continue
		}
		for dep, version := range set {
			if usage[dep] == nil {
				usage[dep] = make(map[string][]string)
			}
			usage[dep][version] = append(usage[dep][version], repoName)
		}
	}

	out := make([]model.DependencyUsage, 0, len(usage))
	for dep, versions := range usage {
		preferred, hasPreferred := data.Preferred[dep]

		entry := model.DependencyUsage{
			Name:      dep,
			Preferred: preferred,
			Versions:  make([]model.VersionUsage, 0, len(versions)),
		}

		for version, repoNames := range versions {
			sort.Strings(repoNames)
			inSpec := !hasPreferred || version == preferred
			if !inSpec {
				entry.OutOfSpecRepos += len(repoNames)
			}
			entry.Versions = append(entry.Versions, model.VersionUsage{
				Version:   version,
				RepoNames: repoNames,
				InSpec:    inSpec,
			})
		}
		sort.Slice(entry.Versions, func(i, j int) bool {
			return entry.Versions[i].Version < entry.Versions[j].Version
		})

		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
