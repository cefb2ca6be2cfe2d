package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/devisible/internal/application"
	"github.com/ericfisherdev/devisible/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeUnauthorized tells the browser to send the user to the login page.
func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Error:    "authentication required",
		Redirect: loginPath,
	})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// CredentialsRequest is the JSON body for the login and signup endpoints.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the JSON representation of the authenticated user.
type UserResponse struct {
	Username string `json:"username"`
}

// SessionResponse reports who is logged in. User is null when nobody is.
type SessionResponse struct {
	User      *UserResponse `json:"user"`
	ExpiresAt string        `json:"expires_at,omitempty"`
}

// AccountResponse is the JSON representation of the account page.
type AccountResponse struct {
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
}

// BuildResponse is the JSON representation of one build record.
type BuildResponse struct {
	ID         int64   `json:"id"`
	BuildTime  float64 `json:"build_time"`
	BundleSize float64 `json:"bundle_size"`
	Commit     string  `json:"commit"`
	CreatedAt  string  `json:"created_at"`
}

// OutOfSpecResponse is the per-repository out-of-spec status.
type OutOfSpecResponse struct {
	Status        bool     `json:"status"`
	DepsOutOfSpec []string `json:"deps_out_of_spec"`
}

// DriftResponse annotates one out-of-spec dependency.
type DriftResponse struct {
	Name      string `json:"name"`
	Installed string `json:"installed"`
	Preferred string `json:"preferred"`
	Direction string `json:"direction"`
}

// RepoResponse is the JSON representation of a repository card.
type RepoResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Builds      []BuildResponse   `json:"builds"`
	LatestBuild *BuildResponse    `json:"latest_build"`
	OutOfSpec   OutOfSpecResponse `json:"out_of_spec"`
	Drift       []DriftResponse   `json:"drift"`
}

// EmptyStateResponse is the message shown when no repositories exist yet.
type EmptyStateResponse struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// DashboardResponse is the JSON representation of the dashboard view.
type DashboardResponse struct {
	State          string              `json:"state"`
	Query          string              `json:"query,omitempty"`
	Repos          []RepoResponse      `json:"repos"`
	OutOfSpecCount int                 `json:"out_of_spec_count"`
	EmptyState     *EmptyStateResponse `json:"empty_state,omitempty"`
	LoadedAt       string              `json:"loaded_at"`
}

// VersionUsageResponse lists where one version of a dependency is installed.
type VersionUsageResponse struct {
	Version string   `json:"version"`
	Repos   []string `json:"repos"`
	InSpec  bool     `json:"in_spec"`
}

// DependencyUsageResponse is the JSON representation of one dependency in the overview.
type DependencyUsageResponse struct {
	Name           string                 `json:"name"`
	Preferred      string                 `json:"preferred,omitempty"`
	Versions       []VersionUsageResponse `json:"versions"`
	OutOfSpecRepos int                    `json:"out_of_spec_repos"`
}

const (
	dashboardStateReady = "ready"
	dashboardStateEmpty = "empty"
)

func toBuildResponse(b model.Build) BuildResponse {
	return BuildResponse{
		ID:         b.ID,
		BuildTime:  b.BuildTime,
		BundleSize: b.BundleSize,
		Commit:     b.Commit,
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toRepoResponse converts a repository and its report entry to a card.
func toRepoResponse(repo model.Repository, view application.DashboardView) RepoResponse {
	builds := make([]BuildResponse, 0, len(repo.Builds))
	for _, b := range repo.Builds {
		builds = append(builds, toBuildResponse(b))
	}

	var latest *BuildResponse
	if b, ok := repo.LatestBuild(); ok {
		lb := toBuildResponse(b)
		latest = &lb
	}

	status := view.Report.Lookup(repo.ID)

	drift := make([]DriftResponse, 0, len(view.Drift[repo.ID]))
	for _, d := range view.Drift[repo.ID] {
		drift = append(drift, DriftResponse{
			Name:      d.Name,
			Installed: d.Installed,
			Preferred: d.Preferred,
			Direction: string(d.Direction),
		})
	}

	return RepoResponse{
		ID:          repo.ID,
		Name:        repo.Name,
		Builds:      builds,
		LatestBuild: latest,
		OutOfSpec: OutOfSpecResponse{
			Status:        status.Status,
			DepsOutOfSpec: status.DepsOutOfSpec,
		},
		Drift: drift,
	}
}

// toDashboardResponse converts a view to its JSON representation. The empty
// state applies only when the session has no repositories at all, not when a
// search matches nothing.
func toDashboardResponse(view application.DashboardView, query string) DashboardResponse {
	repos := make([]RepoResponse, 0, len(view.Repos))
	outOfSpec := 0
	for _, r := range view.Repos {
		resp := toRepoResponse(r, view)
		if resp.OutOfSpec.Status {
			outOfSpec++
		}
		repos = append(repos, resp)
	}

	resp := DashboardResponse{
		State:          dashboardStateReady,
		Query:          query,
		Repos:          repos,
		OutOfSpecCount: outOfSpec,
		LoadedAt:       view.LoadedAt.UTC().Format(time.RFC3339),
	}
	if view.Empty {
		resp.State = dashboardStateEmpty
		empty := emptyStateMessage()
		resp.EmptyState = &empty
	}
	return resp
}

func toDependencyUsageResponse(u model.DependencyUsage) DependencyUsageResponse {
	versions := make([]VersionUsageResponse, 0, len(u.Versions))
	for _, v := range u.Versions {
		versions = append(versions, VersionUsageResponse{
			Version: v.Version,
			Repos:   v.RepoNames,
			InSpec:  v.InSpec,
		})
	}

	return DependencyUsageResponse{
		Name:           u.Name,
		Preferred:      u.Preferred,
		Versions:       versions,
		OutOfSpecRepos: u.OutOfSpecRepos,
	}
}
