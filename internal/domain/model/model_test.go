package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutOfSpecReport_LookupAbsent(t *testing.T) {
	report := OutOfSpecReport{1: {"react"}}

	status := report.Lookup(2)
	assert.False(t, status.Status)
	assert.NotNil(t, status.DepsOutOfSpec)
	assert.Empty(t, status.DepsOutOfSpec)
}

func TestOutOfSpecReport_LookupPresent(t *testing.T) {
	report := OutOfSpecReport{1: {"react", "axios"}}

	status := report.Lookup(1)
	assert.True(t, status.Status)
	assert.Equal(t, []string{"react", "axios"}, status.DepsOutOfSpec)

	// Mutating the lookup result must not leak into the report.
	status.DepsOutOfSpec[0] = "changed"
	assert.Equal(t, "react", report[1][0])
}

func TestOutOfSpecReport_Count(t *testing.T) {
	report := OutOfSpecReport{1: {"react"}, 2: {}, 3: {"axios"}}
	assert.Equal(t, 2, report.Count())
}

func TestDependencySet_NamesSorted(t *testing.T) {
	set := DependencySet{"webpack": "5.0.0", "axios": "1.0.0", "react": "18.2.0"}
	assert.Equal(t, []string{"axios", "react", "webpack"}, set.Names())
}

func TestRepository_LatestBuild(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := Repository{
		ID:   1,
		Name: "web",
		Builds: []Build{
			{ID: 1, CreatedAt: base},
			{ID: 3, CreatedAt: base.Add(2 * time.Hour)},
			{ID: 2, CreatedAt: base.Add(time.Hour)},
		},
	}

	latest, ok := repo.LatestBuild()
	assert.True(t, ok)
	assert.Equal(t, int64(3), latest.ID)

	_, ok = Repository{ID: 2}.LatestBuild()
	assert.False(t, ok)
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now}

	assert.True(t, s.Expired(now))
	assert.False(t, s.Expired(now.Add(-time.Second)))
}
