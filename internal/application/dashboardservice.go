package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/devisible/internal/domain/model"
	"github.com/ericfisherdev/devisible/internal/domain/port/driven"
)

// DashboardService loads, filters and edits the per-session dashboard view.
type DashboardService struct {
	backend driven.BackendClient
	views   *ViewStore
	now     func() time.Time
	logger  *slog.Logger
}

// NewDashboardService creates a DashboardService with the required dependencies.
func NewDashboardService(backend driven.BackendClient, views *ViewStore, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		backend: backend,
		views:   views,
		now:     time.Now,
		logger:  logger,
	}
}

// Load fetches the session's repositories and recomputes the out-of-spec
// report from scratch. When the backend returns no repositories the view is
// empty and dependency data is not fetched. Deletes confirmed while the load
// is in flight stay applied.
func (s *DashboardService) Load(ctx context.Context, session *model.Session) (DashboardView, error) {
	mark := s.views.Mark()

	repos, err := s.backend.ListRepos(ctx, session.BackendCookie)
	if err != nil {
		return DashboardView{}, fmt.Errorf("list repos: %w", err)
	}

	view := DashboardView{
		Repos:    repos,
		Report:   model.OutOfSpecReport{},
		Drift:    map[int64][]model.DependencyDrift{},
		LoadedAt: s.now().UTC(),
	}

	if len(repos) == 0 {
		view.Empty = true
		return s.views.Commit(session.ID, mark, view), nil
	}

	data, err := s.backend.Dependencies(ctx, session.BackendCookie)
	if err != nil {
		return DashboardView{}, fmt.Errorf("fetch dependencies: %w", err)
	}

	view.Report = FindOutOfSpecRepos(data.Preferred, data.Repos)
	view.Drift = ComputeDrift(view.Report, data.Preferred, data.Repos)
	view = s.views.Commit(session.ID, mark, view)

	s.logger.Debug("dashboard loaded",
		"username", session.Username,
		"repos", len(view.Repos),
		"out_of_spec", view.Report.Count(),
	)

	return view, nil
}

// Search filters the session's loaded repositories by name. The view is only
// loaded from the backend when the session has none yet.
func (s *DashboardService) Search(ctx context.Context, session *model.Session, query string) (DashboardView, error) {
	view, ok := s.views.Get(session.ID)
	if !ok {
		loaded, err := s.Load(ctx, session)
		if err != nil {
			return DashboardView{}, err
		}
		view = loaded
	}

	view.Repos = FilterRepos(view.Repos, query)
	return view, nil
}

// DeleteRepo asks the backend to hard-delete a repository and returns the
// backend status. The repository leaves the session view only when the
// backend answers 204.
func (s *DashboardService) DeleteRepo(ctx context.Context, session *model.Session, repoID int64) (int, error) {
	status, err := s.backend.DeleteRepo(ctx, session.BackendCookie, repoID)
	if err != nil {
		return status, err
	}
	if status != http.StatusNoContent {
		s.logger.Warn("backend did not confirm repo delete", "repo_id", repoID, "status", status)
		return status, nil
	}

	s.views.Remove(session.ID, repoID)

	s.logger.Info("repo deleted", "username", session.Username, "repo_id", repoID)
	return status, nil
}

// DependencyOverview summarizes every dependency across the session's repositories.
func (s *DashboardService) DependencyOverview(ctx context.Context, session *model.Session) ([]model.DependencyUsage, error) {
	repos, err := s.backend.ListRepos(ctx, session.BackendCookie)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	if len(repos) == 0 {
		return []model.DependencyUsage{}, nil
	}

	data, err := s.backend.Dependencies(ctx, session.BackendCookie)
	if err != nil {
		return nil, fmt.Errorf("fetch dependencies: %w", err)
	}

	return SummarizeDependencies(repos, *data), nil
}
