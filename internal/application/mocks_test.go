package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/devisible/internal/domain/model"
	"github.com/ericfisherdev/devisible/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockBackend struct {
	user        *model.User
	userErr     error
	authResult  *driven.AuthResult
	authErr     error
	logoutErr   error
	account     *model.Account
	repos       []model.Repository
	reposErr    error
	deps        *model.DependencyData
	depsErr     error
	deleteCode  int
	deleteErr   error
	depsCalls   int
	reposCalls  int
	deleteCalls []int64
	logoutCalls int
	loginCreds  model.Credentials
	forgotten   []string

	// onListRepos runs before ListRepos returns, letting a test interleave
	// another operation with an in-flight load.
	onListRepos func()
}

func (m *mockBackend) CurrentUser(_ context.Context, _ string) (*model.User, error) {
	return m.user, m.userErr
}

func (m *mockBackend) Login(_ context.Context, creds model.Credentials) (*driven.AuthResult, error) {
	m.loginCreds = creds
	return m.authResult, m.authErr
}

func (m *mockBackend) Register(_ context.Context, creds model.Credentials) (*driven.AuthResult, error) {
	m.loginCreds = creds
	return m.authResult, m.authErr
}

func (m *mockBackend) Logout(_ context.Context, _ string) error {
	m.logoutCalls++
	return m.logoutErr
}

func (m *mockBackend) Account(_ context.Context, _ string) (*model.Account, error) {
	return m.account, nil
}

func (m *mockBackend) ListRepos(_ context.Context, _ string) ([]model.Repository, error) {
	m.reposCalls++
	repos := append([]model.Repository(nil), m.repos...)
	if m.onListRepos != nil {
		m.onListRepos()
	}
	return repos, m.reposErr
}

func (m *mockBackend) Dependencies(_ context.Context, _ string) (*model.DependencyData, error) {
	m.depsCalls++
	return m.deps, m.depsErr
}

func (m *mockBackend) DeleteRepo(_ context.Context, _ string, repoID int64) (int, error) {
	m.deleteCalls = append(m.deleteCalls, repoID)
	return m.deleteCode, m.deleteErr
}

func (m *mockBackend) ForgetSession(cookie string) {
	m.forgotten = append(m.forgotten, cookie)
}

// memorySessionStore is an in-memory driven.SessionStore.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]model.Session)}
}

func (m *memorySessionStore) Create(_ context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memorySessionStore) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return driven.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memorySessionStore) DeleteExpired(_ context.Context, now time.Time) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	swept := []model.Session{}
	for id, s := range m.sessions {
		if s.Expired(now) {
			swept = append(swept, s)
			delete(m.sessions, id)
		}
	}
	sort.Slice(swept, func(i, j int) bool { return swept[i].ID < swept[j].ID })
	return swept, nil
}

func (m *memorySessionStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
