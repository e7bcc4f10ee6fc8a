package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

// Path is a configured group or project full path. Whether it names a group
// or a project is decided at resolution time.
type Path struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name,omitempty"`
}

type Config struct {
	GitLab struct {
		BaseURL string        `yaml:"base_url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"gitlab"`

	Poll struct {
		Interval  time.Duration `yaml:"interval"`
		Paths     []Path        `yaml:"paths"`
		PauseFile string        `yaml:"pause_file"`
	} `yaml:"poll"`

	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`

	Serve struct {
		Addr string `yaml:"addr"`
	} `yaml:"serve"`

	Metrics struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
		Insecure bool   `yaml:"insecure"`
	} `yaml:"metrics"`
}

// EnabledPaths returns the enabled paths in configuration order.
func (c Config) EnabledPaths() []string {
	out := make([]string, 0, len(c.Poll.Paths))
	for _, p := range c.Poll.Paths {
		if p.Enabled && strings.TrimSpace(p.Path) != "" {
			out = append(out, strings.TrimSpace(p.Path))
		}
	}
	return out
}

func Load(path string) (Config, error) {
	var c Config

	c.GitLab.BaseURL = "https://gitlab.com"
	c.GitLab.Timeout = 10 * time.Second
	c.Poll.Interval = 60 * time.Second
	c.Cache.Path = expandHome("~/.cache/ci_dashboard.json")
	c.Serve.Addr = ":8080"

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return c, err
		}
	}

	if v := os.Getenv("GITLAB_BASE_URL"); v != "" {
		c.GitLab.BaseURL = v
	}

	if v := os.Getenv("GITLAB_TOKEN"); v != "" {
		c.GitLab.Token = v
	}

	if v := os.Getenv("GITLAB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GitLab.Timeout = d
		}
	}

	if v := os.Getenv("INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Poll.Interval = d
		}
	}

	if v := os.Getenv("CACHE_PATH"); v != "" {
		c.Cache.Path = expandHome(v)
	}

	if v := os.Getenv("CIDASH_ADDR"); v != "" {
		c.Serve.Addr = v
	}

	if v := os.Getenv("CIDASH_OTEL_ENABLED"); v != "" {
		c.Metrics.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("CIDASH_OTEL_ENDPOINT"); v != "" {
		c.Metrics.Endpoint = v
	}
	if v := os.Getenv("CIDASH_OTEL_INSECURE"); v != "" {
		c.Metrics.Insecure, _ = strconv.ParseBool(v)
	}

	if s := os.Getenv("GITLAB_PATHS"); s != "" {
		var ps []Path
		for _, item := range strings.Split(s, ",") {
			item = strings.Trim(strings.TrimSpace(item), "/")
			if item == "" {
				continue
			}
			ps = append(ps, Path{Path: item, Enabled: true})
		}
		if len(ps) > 0 {
			c.Poll.Paths = ps
		}
	}

	c.Cache.Path = expandHome(c.Cache.Path)
	if c.GitLab.BaseURL == "" {
		c.GitLab.BaseURL = "https://gitlab.com"
	}

	if c.Poll.Interval <= 0 {
		c.Poll.Interval = 60 * time.Second
	}

	if c.GitLab.Timeout <= 0 {
		c.GitLab.Timeout = 10 * time.Second
	}

	if c.GitLab.Token == "" {
		return c, errors.New("GITLAB_TOKEN is required")
	}

	if len(c.Poll.Paths) == 0 {
		return c, errors.New("no paths configured (YAML or ENV)")
	}

	if c.Poll.PauseFile == "" {
		c.Poll.PauseFile = expandHome("~/.cache/ci_dashboard_paused")
	}

	return c, nil
}

func Save(path string, c Config) error {
	if path == "" {
		return errors.New("empty config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	lockFile := path + ".lock"
	lf, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = lf.Close() }()

	if runtime.GOOS != "windows" {
		if err := syscall.Flock(int(lf.Fd()), syscall.LOCK_EX); err != nil {
			return err
		}
		defer func() { _ = syscall.Flock(int(lf.Fd()), syscall.LOCK_UN) }()
	}

	b, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	if _, err := f.Write(b); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if h, _ := os.UserHomeDir(); h != "" {
			return h + p[1:]
		}
	}
	return p
}
