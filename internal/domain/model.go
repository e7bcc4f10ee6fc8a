package domain

import (
	"strings"
	"time"
)

// ProjectStatus is the status of a project's most recent pipeline, as named by
// the GitLab GraphQL API. Values outside the constants below are kept verbatim.
type ProjectStatus string

const (
	StatusSuccess ProjectStatus = "SUCCESS"
	StatusFailed  ProjectStatus = "FAILED"
	StatusSkipped ProjectStatus = "SKIPPED"
	StatusRunning ProjectStatus = "RUNNING"
)

// Project is one project together with its latest pipeline.
// FinishedAt is zero while the pipeline has not finished.
type Project struct {
	Name         string        `json:"name"`
	Path         string        `json:"path"`
	ProjectURL   string        `json:"projectURL"`
	Status       ProjectStatus `json:"status"`
	PipelinePath string        `json:"pipelinePath"`
	FinishedAt   time.Time     `json:"finishedAt"`
	CreatedAt    time.Time     `json:"createdAt"`
	Coverage     float64       `json:"coverage"`
}

// PipelineURL joins the site-root relative PipelinePath onto the GitLab base
// URL. ProjectURL cannot be used: it already contains the project path.
func (p Project) PipelineURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(p.PipelinePath, "/")
}

type Result struct {
	Projects        []Project `json:"projects"`
	ExceedPageLimit bool      `json:"exceedPageLimit"`
}

// EmptyResult is returned for missing groups and projects, and for projects
// without pipelines.
func EmptyResult() Result {
	return Result{Projects: []Project{}, ExceedPageLimit: false}
}

type ResolutionKind int

const (
	NotFound ResolutionKind = iota
	ResolvedProject
	ResolvedGroup
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolvedProject:
		return "project"
	case ResolvedGroup:
		return "group"
	default:
		return "not_found"
	}
}

// Resolution is what a configured path turned out to be.
type Resolution struct {
	Kind   ResolutionKind
	Path   string
	Result Result
}

type Snapshot struct {
	Result    Result
	Retrieved int64
}
