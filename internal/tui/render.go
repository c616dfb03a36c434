package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vvka-141/dlsync/internal/history"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// Renderer prints deployment plans and lineage. Without color it writes plain
// text suitable for logs and pipes.
type Renderer struct {
	w     io.Writer
	color bool
}

// NewRenderer creates a Renderer writing to w.
func NewRenderer(w io.Writer, color bool) *Renderer {
	return &Renderer{w: w, color: color}
}

func (r *Renderer) paint(style lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return style.Render(text)
}

// Plan prints the scripts a deploy would apply, in order.
func (r *Renderer) Plan(target string, scripts []*dlsync.Script) {
	title := fmt.Sprintf("Deployment plan for %s (%d scripts)", target, len(scripts))
	if len(scripts) == 0 {
		fmt.Fprintln(r.w, r.paint(TitleStyle, title))
		fmt.Fprintln(r.w, r.paint(MutedStyle, "  Nothing to deploy, every script is up to date."))
		return
	}

	width := len(fmt.Sprint(len(scripts)))
	var lines []string
	for i, s := range scripts {
		lines = append(lines, fmt.Sprintf("%*d. %s  %s", width, i+1, s.ID(), r.kindLabel(s)))
	}

	body := strings.Join(lines, "\n")
	if r.color {
		body = PlanBoxStyle.Render(body)
	} else {
		body = indent(body)
	}
	fmt.Fprintln(r.w, r.paint(TitleStyle, title))
	fmt.Fprintln(r.w, body)
}

func (r *Renderer) kindLabel(s *dlsync.Script) string {
	if !s.IsMigration() {
		return r.paint(StateStyle, "state")
	}
	label := fmt.Sprintf("migration v%d", s.Version())
	if s.Migration.Author != "" {
		label += " by " + s.Migration.Author
	}
	return r.paint(MigrationStyle, label)
}

// Lineage prints stored dependency edges as "dependent → depends on".
func (r *Renderer) Lineage(edges []history.LineageEdge) {
	fmt.Fprintln(r.w, r.paint(TitleStyle, fmt.Sprintf("Lineage (%d edges)", len(edges))))
	for _, e := range edges {
		fmt.Fprintf(r.w, "  %s %s %s\n", e.DependentID, r.paint(MutedStyle, SymbolArrowRight), e.DependsOnID)
	}
}

// Syncs prints sync records, one per line.
func (r *Renderer) Syncs(records []history.SyncRecord) {
	fmt.Fprintln(r.w, r.paint(TitleStyle, fmt.Sprintf("Recent runs (%d)", len(records))))
	for _, rec := range records {
		fmt.Fprintf(r.w, "  %s  %-14s %s  %d changes  %s\n",
			rec.StartedAt.UTC().Format(time.RFC3339),
			rec.ChangeType,
			r.status(rec.Status),
			rec.ChangeCount,
			r.paint(MutedStyle, rec.Message))
	}
}

func (r *Renderer) status(s dlsync.Status) string {
	switch s {
	case dlsync.StatusSuccess:
		return r.paint(StateStyle, SymbolCheck+" "+string(s))
	case dlsync.StatusError:
		return r.paint(ErrorStyle, SymbolCross+" "+string(s))
	default:
		return r.paint(MigrationStyle, SymbolBullet+" "+string(s))
	}
}

func indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
