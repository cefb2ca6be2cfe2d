package application

import (
	"strings"

	"github.com/ericfisherdev/devisible/internal/domain/model"
)

// FilterRepos returns the repositories whose name contains query,
// case-insensitively, preserving order. A blank query matches everything.
func FilterRepos(repos []model.Repository, query string) []model.Repository {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		if q == "" || strings.Contains(strings.ToLower(r.Name), q) {
			out = append(out, r)
		}
	}
	return out
}

// RemoveRepoByID returns a copy of repos without the first entry whose ID
// matches id. The input slice is never modified. The bool reports whether an
// entry was removed.
func RemoveRepoByID(repos []model.Repository, id int64) ([]model.Repository, bool) {
	out := make([]model.Repository, 0, len(repos))
	removed := false
	for _, r := range repos {
		if !removed && r.ID == id {
			removed = true
			continue
		}
		out = append(out, r)
	}
	return out, removed
}
