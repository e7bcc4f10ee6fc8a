package cache_fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davarch/ci-dashboard/internal/domain"
)

type FSCache struct {
	path string
}

func New(path string) *FSCache { return &FSCache{path: path} }

// out is shaped for waybar's custom module: text, class and tooltip are read
// directly, the rest is for other consumers.
type out struct {
	Text            string           `json:"text"`
	Class           string           `json:"class"`
	Tooltip         string           `json:"tooltip"`
	ExceedPageLimit bool             `json:"exceed_page_limit"`
	Projects        []domain.Project `json:"projects"`
	Retrieved       int64            `json:"retrieved"`
}

func (c *FSCache) Write(_ context.Context, s domain.Snapshot) error {
	if c.path == "" {
		return errors.New("cache path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}

	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	if err := enc.Encode(summarize(s)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, c.path)
}

func summarize(s domain.Snapshot) out {
	counts := map[domain.ProjectStatus]int{}
	var tip []string
	for _, p := range s.Result.Projects {
		counts[p.Status]++
		tip = append(tip, string(p.Status)+"  "+p.Path)
	}

	class := "success"
	switch {
	case counts[domain.StatusFailed] > 0:
		class = "failed"
	case counts[domain.StatusRunning] > 0:
		class = "running"
	case len(s.Result.Projects) == 0:
		class = "empty"
	}

	text := fmt.Sprintf("✗%d ▶%d ✓%d",
		counts[domain.StatusFailed], counts[domain.StatusRunning], counts[domain.StatusSuccess])
	if s.Result.ExceedPageLimit {
		text += " +"
	}

	projects := s.Result.Projects
	if projects == nil {
		projects = []domain.Project{}
	}

	return out{
		Text:            text,
		Class:           class,
		Tooltip:         strings.Join(tip, "\n"),
		ExceedPageLimit: s.Result.ExceedPageLimit,
		Projects:        projects,
		Retrieved:       s.Retrieved,
	}
}
