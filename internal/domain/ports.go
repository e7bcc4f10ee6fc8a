package domain

import (
	"context"
	"time"
)

// ProjectSource looks up projects on the CI platform. Both methods return
// EmptyResult when nothing is found.
type ProjectSource interface {
	FetchProject(ctx context.Context, projectPath string) (Result, error)
	FetchGroup(ctx context.Context, groupPath string) (Result, error)
}

type Notifier interface {
	Notify(ctx context.Context, title, body, url string) error
}

type StatusCache interface {
	Write(ctx context.Context, s Snapshot) error
}

type MetricsRecorder interface {
	RecordAggregation(ctx context.Context, res Result, took time.Duration, err error)
	Close(ctx context.Context) error
}
