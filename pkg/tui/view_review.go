package tui

import (
	"fmt"
	"strings"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/bom"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(m.viewHUD() + "\n")
	if len(m.Job.Renders) == 0 {
		s.WriteString("\n   " + dimStyle.Render("No detections in this job.") + "\n")
		return s.String()
	}

	list := m.viewList()
	table := m.viewBOM()
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", table) + "\n")

	if m.editing {
		s.WriteString("\n" + m.input.View() + "\n")
	}
	s.WriteString("\n" + m.viewFooter())
	return s.String()
}

func (m Model) viewHUD() string {
	r := m.Job.Renders
	render := "-"
	if len(r) > 0 {
		render = fmt.Sprintf("%s (%d/%d) %s", r[m.render].ID, m.render+1, len(r), r[m.render].AssetURI)
	}
	p := m.Session.Payload()
	lines := []string{
		titleStyle.Render("AssetLens review") + dimStyle.Render(" job "+m.Job.ID()),
		dimStyle.Render("render ") + render,
		dimStyle.Render("overrides ") + fmt.Sprint(p.Len()) + dimStyle.Render("  updated ") + review.FormatTimestamp(p.UpdatedAt),
	}
	return hudStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) viewList() string {
	var s strings.Builder
	p := m.Session.Payload()
	dets := m.detections()

	header := fmt.Sprintf("    %-8s | %-12s | %-12s | %s", "ID", "KIND", "ASSET TYPE", "SCORE")
	s.WriteString(dimStyle.Render(header) + "\n")
	s.WriteString(dimStyle.Render("  "+strings.Repeat("─", 48)) + "\n")

	start, end := m.calculateWindow(len(dets))
	for i := start; i < end; i++ {
		d := dets[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		box := "[x]"
		if !review.EffectiveAccepted(d, p) {
			box = "[ ]"
		}
		assetType := review.EffectiveAssetType(d, p)
		if assetType != d.Kind {
			assetType = "*" + assetType
		}
		line := fmt.Sprintf("%s %-8s | %-12s | %-12s | %.2f", box, shortID(d.DetectionID), clip(d.Kind, 12), clip(assetType, 12), d.Score)

		if !review.EffectiveAccepted(d, p) {
			line = danger.Render(line)
		} else if assetType != d.Kind {
			line = warning.Render(line)
		}

		if i == m.cursor {
			s.WriteString(listSelectedStyle.Render(cursor+line) + "\n")
		} else {
			s.WriteString(listNormalStyle.Render(cursor+line) + "\n")
		}
	}
	return s.String()
}

func (m Model) viewBOM() string {
	rows := bom.BuildRows(m.detections(), m.Session.Payload())

	var s strings.Builder
	s.WriteString(highlight.Render("BOM") + "\n")
	if len(rows) == 0 {
		s.WriteString(dimStyle.Render("No accepted detections yet."))
		return cardStyle.Render(s.String())
	}
	for _, r := range rows {
		s.WriteString(fmt.Sprintf("%-14s %s\n", clip(r.AssetType, 14), special.Render(fmt.Sprint(r.Count))))
	}
	return cardStyle.Render(strings.TrimRight(s.String(), "\n"))
}

func (m Model) viewFooter() string {
	var status string
	switch {
	case m.err != nil:
		status = danger.Render("error: " + m.err.Error())
	case m.statusMsg != "":
		status = special.Render(m.statusMsg)
		if m.Session.Pending() {
			status += dimStyle.Render("  (sync pending)")
		}
	}
	keys := dimStyle.Render("↑/↓ move · space accept/reject · r relabel · u reset · tab render · q quit")
	if status == "" {
		return keys
	}
	return status + "\n" + keys
}

func (m Model) calculateWindow(total int) (int, int) {
	windowSize := m.height - 10
	if windowSize < 5 {
		windowSize = 5
	}

	start := m.cursor - (windowSize / 2)
	if start < 0 {
		start = 0
	}

	end := start + windowSize
	if end > total {
		end = total
		start = end - windowSize
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// clip truncates s to n terminal cells.
func clip(s string, n int) string {
	return ansi.Truncate(s, n, "…")
}
