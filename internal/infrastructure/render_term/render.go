package render_term

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/davarch/ci-dashboard/internal/domain"
)

var (
	nameStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	badgeBase  = lipgloss.NewStyle().Bold(true).Width(9).Align(lipgloss.Center)

	badgeColors = map[domain.ProjectStatus]lipgloss.Color{
		domain.StatusFailed:  lipgloss.Color("9"),
		domain.StatusRunning: lipgloss.Color("12"),
		domain.StatusSkipped: lipgloss.Color("245"),
		domain.StatusSuccess: lipgloss.Color("10"),
	}
)

// Tiles writes one line per project in the order given. baseURL turns the
// relative pipeline path into a link.
func Tiles(w io.Writer, res domain.Result, baseURL string, now time.Time) error {
	if len(res.Projects) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("no projects with pipelines"))
		return err
	}

	for _, p := range res.Projects {
		line := strings.Join([]string{
			badge(p.Status),
			nameStyle.Render(p.Name),
			mutedStyle.Render(p.Path),
			finished(p, now),
			coverage(p.Coverage),
			mutedStyle.Render(p.PipelineURL(baseURL)),
		}, "  ")
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if res.ExceedPageLimit {
		_, err := fmt.Fprintln(w, warnStyle.Render("results truncated: a group has more projects than one page"))
		return err
	}
	return nil
}

func badge(s domain.ProjectStatus) string {
	c, ok := badgeColors[s]
	if !ok {
		c = lipgloss.Color("245")
	}
	return badgeBase.Foreground(c).Render(string(s))
}

func finished(p domain.Project, now time.Time) string {
	if p.FinishedAt.IsZero() {
		return "started " + ago(now.Sub(p.CreatedAt))
	}
	return "finished " + ago(now.Sub(p.FinishedAt))
}

func ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func coverage(c float64) string {
	if c == 0 {
		return mutedStyle.Render("cov -")
	}
	return fmt.Sprintf("cov %.1f%%", c)
}
