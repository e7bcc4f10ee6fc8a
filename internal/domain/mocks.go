package domain

import (
	"context"
	"sync"
	"time"
)

// MockSource serves canned results keyed by path. Safe for concurrent use.
type MockSource struct {
	Projects map[string]Result
	Groups   map[string]Result
	Err      map[string]error

	mu           sync.Mutex
	ProjectCalls []string
	GroupCalls   []string
}

func (m *MockSource) FetchProject(ctx context.Context, path string) (Result, error) {
	m.mu.Lock()
	m.ProjectCalls = append(m.ProjectCalls, path)
	m.mu.Unlock()

	if err := m.Err[path]; err != nil {
		return Result{}, err
	}
	if r, ok := m.Projects[path]; ok {
		return r, nil
	}
	return EmptyResult(), nil
}

func (m *MockSource) FetchGroup(ctx context.Context, path string) (Result, error) {
	m.mu.Lock()
	m.GroupCalls = append(m.GroupCalls, path)
	m.mu.Unlock()

	if err := m.Err[path]; err != nil {
		return Result{}, err
	}
	if r, ok := m.Groups[path]; ok {
		return r, nil
	}
	return EmptyResult(), nil
}

func (m *MockSource) Calls() (projects, groups []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ProjectCalls...), append([]string(nil), m.GroupCalls...)
}

type MockNotifier struct {
	Messages []string
	Err      error
}

func (n *MockNotifier) Notify(ctx context.Context, title, body, url string) error {
	n.Messages = append(n.Messages, title+"|"+body+"|"+url)
	return n.Err
}

type MockCache struct {
	Snapshots []Snapshot
	Err       error
}

func (c *MockCache) Write(ctx context.Context, s Snapshot) error {
	if c.Err != nil {
		return c.Err
	}
	c.Snapshots = append(c.Snapshots, s)
	return nil
}

type MockMetrics struct {
	mu      sync.Mutex
	Results []Result
	Errors  int
}

func (m *MockMetrics) RecordAggregation(ctx context.Context, res Result, took time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.Errors++
		return
	}
	m.Results = append(m.Results, res)
}

func (m *MockMetrics) Close(ctx context.Context) error { return nil }
