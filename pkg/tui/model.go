// Package tui is the interactive review console: a reviewer walks the
// detections of each render, accepts, rejects or relabels them, and sees
// the render's BOM update live.
package tui

import (
	"fmt"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/job"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review/session"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type Model struct {
	Job     *job.Job
	Session *session.Session

	input   textinput.Model
	editing bool

	render int
	cursor int

	width    int
	height   int
	quitting bool

	statusMsg  string
	statusTime time.Time
	err        error
}

func NewModel(j *job.Job, s *session.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "asset type (empty clears)"
	ti.CharLimit = 64
	ti.Prompt = "relabel > "

	return Model{
		Job:     j,
		Session: s,
		input:   ti,
		height:  24,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// detections of the render on screen.
func (m Model) detections() []contract.Detection {
	if len(m.Job.Renders) == 0 {
		return nil
	}
	return m.Job.Renders[m.render].Detections
}

func (m Model) selected() (contract.Detection, bool) {
	dets := m.detections()
	if m.cursor < 0 || m.cursor >= len(dets) {
		return contract.Detection{}, false
	}
	return dets[m.cursor], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.detections())-1 {
			m.cursor++
		}
	case "tab":
		if len(m.Job.Renders) > 0 {
			m.render = (m.render + 1) % len(m.Job.Renders)
			m.cursor = 0
		}
	case "shift+tab":
		if len(m.Job.Renders) > 0 {
			m.render = (m.render - 1 + len(m.Job.Renders)) % len(m.Job.Renders)
			m.cursor = 0
		}
	case " ", "a":
		d, ok := m.selected()
		if !ok {
			return m, nil
		}
		next := !review.EffectiveAccepted(d, m.Session.Payload())
		_, err := m.Session.SetAccepted(d.DetectionID, &next)
		m = m.afterMutation(err, fmt.Sprintf("%s %s", shortID(d.DetectionID), acceptedWord(next)))
	case "r":
		d, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.editing = true
		m.input.SetValue(review.EffectiveAssetType(d, m.Session.Payload()))
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "u":
		d, ok := m.selected()
		if !ok {
			return m, nil
		}
		_, err := m.Session.Clear(d.DetectionID)
		m = m.afterMutation(err, shortID(d.DetectionID)+" reset")
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.input.Blur()
		return m, nil
	case "enter":
		m.editing = false
		m.input.Blur()
		d, ok := m.selected()
		if !ok {
			return m, nil
		}
		label := m.input.Value()
		var relabel *string
		if label != d.Kind {
			relabel = &label
		}
		_, err := m.Session.SetRelabelAssetType(d.DetectionID, relabel)
		m = m.afterMutation(err, fmt.Sprintf("%s is %s", shortID(d.DetectionID), review.EffectiveAssetType(d, m.Session.Payload())))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) afterMutation(err error, msg string) Model {
	m.err = err
	if err == nil {
		m.statusMsg = msg
		m.statusTime = time.Now()
	}
	return m
}

func acceptedWord(b bool) string {
	if b {
		return "accepted"
	}
	return "rejected"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
