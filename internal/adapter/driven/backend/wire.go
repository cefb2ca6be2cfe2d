package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/devisible/internal/domain/model"
)

// credentialsJSON is the login/signup request body.
type credentialsJSON struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionJSON is the body of GET/POST /userAPI/login and POST /userAPI/signup.
// An unauthenticated session returns an object without "user".
type sessionJSON struct {
	User *struct {
		Username string `json:"username"`
	} `json:"user"`
}

func (s sessionJSON) toUser() *model.User {
	if s.User == nil || strings.TrimSpace(s.User.Username) == "" {
		return nil
	}
	return &model.User{Username: s.User.Username}
}

type accountJSON struct {
	Username string `json:"username"`
	APIKey   string `json:"apiKey"`
}

// repoJSON is one element of the GET /webAPI/userInfo array.
type repoJSON struct {
	ID     int64       `json:"id"`
	Name   string      `json:"name"`
	Builds []buildJSON `json:"builds"`
}

type buildJSON struct {
	ID         int64   `json:"id"`
	BuildTime  float64 `json:"buildTime"`
	BundleSize float64 `json:"bundleSize"`
	Commit     string  `json:"commit"`
	CreatedAt  string  `json:"createdAt"`
}

func (r repoJSON) toModel() model.Repository {
	builds := make([]model.Build, 0, len(r.Builds))
	for _, b := range r.Builds {
		builds = append(builds, model.Build{
			ID:         b.ID,
			BuildTime:  b.BuildTime,
			BundleSize: b.BundleSize,
			Commit:     b.Commit,
			CreatedAt:  parseTime(b.CreatedAt),
		})
	}

	return model.Repository{
		ID:     r.ID,
		Name:   r.Name,
		Builds: builds,
	}
}

// depsJSON decodes GET /webAPI/deps, a two-element array:
// [preferredDeps, allDependencies], where allDependencies is keyed by repo id.
type depsJSON struct {
	preferred map[string]string
	repos     map[string]map[string]string
}

// UnmarshalJSON decodes the [preferred, all] tuple.
func (d *depsJSON) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("dependency payload: %w", err)
	}
	if len(tuple) != 2 {
		return fmt.Errorf("dependency payload: expected 2 elements, got %d", len(tuple))
	}

	if err := json.Unmarshal(tuple[0], &d.preferred); err != nil {
		return fmt.Errorf("preferred dependencies: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &d.repos); err != nil {
		return fmt.Errorf("repository dependencies: %w", err)
	}
	return nil
}

func (d depsJSON) toModel() (*model.DependencyData, error) {
	preferred := make(model.PreferredVersions, len(d.preferred))
	for name, version := range d.preferred {
		preferred[name] = version
	}

	repos := make(model.RepoDependencies, len(d.repos))
	for key, deps := range d.repos {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, errors.New("repository dependencies: non-numeric repository id " + strconv.Quote(key))
		}

		set := make(model.DependencySet, len(deps))
		for name, version := range deps {
			set[name] = version
		}
		repos[id] = set
	}

	return &model.DependencyData{Preferred: preferred, Repos: repos}, nil
}

// parseTime accepts the timestamp formats the backend emits. Unparsable
// values map to the zero time.
func parseTime(s string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
