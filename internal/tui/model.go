// Package tui renders a learner's tutoring session in the terminal. The
// server owns the call; this screen only shows snapshots pushed over the
// session stream and sends the learner's start, end and mute requests.
package tui

import (
	"strings"

	"tutor-platform/internal/httpapi"
	"tutor-platform/internal/session"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Conn is the session stream as the screen sees it.
type Conn interface {
	// Next waits for the next server message.
	Next() tea.Cmd
	Send(a httpapi.StreamAction) error
	Close() error
}

// SnapshotMsg carries a pushed session snapshot.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// ServerErrorMsg carries an error the server reported for an action.
type ServerErrorMsg struct {
	Text string
}

// DisconnectedMsg is sent once when the stream closes.
type DisconnectedMsg struct {
	Err error
}

type sendFailedMsg struct {
	err error
}

// Model is the session screen.
type Model struct {
	conn    Conn
	topicID string

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	snap      session.Snapshot
	notice    string
	connected bool
	quitting  bool
}

// New returns a screen for topicID driven by conn.
func New(conn Conn, topicID string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		conn:    conn,
		topicID: topicID,
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: s,
		snap:    session.Snapshot{Phase: session.PhaseIdle},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.conn.Next())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			_ = m.conn.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Start):
			m.notice = ""
			return m, m.send(httpapi.StreamAction{Action: httpapi.ActionStart, TopicID: m.topicID})
		case key.Matches(msg, m.keys.End):
			m.notice = ""
			return m, m.send(httpapi.StreamAction{Action: httpapi.ActionEnd})
		case key.Matches(msg, m.keys.Mute):
			return m, m.send(httpapi.StreamAction{Action: httpapi.ActionMute})
		}

	case SnapshotMsg:
		m.snap = msg.Snapshot
		m.connected = true
		return m, m.conn.Next()

	case ServerErrorMsg:
		m.notice = msg.Text
		return m, m.conn.Next()

	case DisconnectedMsg:
		m.connected = false
		if msg.Err != nil && !m.quitting {
			m.notice = "disconnected: " + msg.Err.Error()
		}
		return m, tea.Quit

	case sendFailedMsg:
		m.notice = msg.err.Error()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) send(a httpapi.StreamAction) tea.Cmd {
	conn := m.conn
	return func() tea.Msg {
		if err := conn.Send(a); err != nil {
			return sendFailedMsg{err: err}
		}
		return nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	title := "Tutoring session"
	if m.snap.TopicTitle != "" {
		title += " · " + m.snap.TopicTitle
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	if sub := subtitle(m.snap); sub != "" {
		sb.WriteString(subtitleStyle.Render(sub))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(m.phaseLine())
	sb.WriteString("  ")
	sb.WriteString(timerStyle.Render(m.snap.Duration()))
	sb.WriteString("\n")

	if ind := indicators(m.snap); ind != "" {
		sb.WriteString(ind)
		sb.WriteString("\n")
	}
	if banner := statusBanner(m.snap); banner != "" {
		sb.WriteString("\n")
		sb.WriteString(banner)
		sb.WriteString("\n")
	}
	if m.notice != "" {
		sb.WriteString(errorBanner.Render(m.notice))
		sb.WriteString("\n")
	}
	if m.snap.JoinURL != "" {
		sb.WriteString(subtitleStyle.Render("Join audio: " + m.snap.JoinURL))
		sb.WriteString("\n")
	}

	return frameStyle.Render(strings.TrimRight(sb.String(), "\n")) + "\n" + m.help.View(m.keys) + "\n"
}

func (m Model) phaseLine() string {
	if !m.connected {
		return m.spinner.View() + " Connecting to server..."
	}
	switch m.snap.Phase {
	case session.PhaseConnecting:
		return m.spinner.View() + " Connecting call..."
	case session.PhaseEnding:
		return m.spinner.View() + " Ending call..."
	case session.PhaseActive:
		return recordingStyle.Render("●") + " Live"
	default:
		return "Ready (press s to start)"
	}
}

func subtitle(s session.Snapshot) string {
	var parts []string
	if s.SubjectName != "" {
		parts = append(parts, s.SubjectName)
	}
	if s.ClassName != "" {
		parts = append(parts, s.ClassName)
	}
	return strings.Join(parts, " · ")
}

func indicators(s session.Snapshot) string {
	var parts []string
	if s.IsRecording {
		parts = append(parts, recordingStyle.Render("● listening"))
	}
	if s.IsAISpeaking {
		parts = append(parts, speakingStyle.Render("♪ tutor speaking"))
	}
	if s.IsMuted {
		parts = append(parts, mutedStyle.Render("muted"))
	}
	return strings.Join(parts, "  ")
}

func statusBanner(s session.Snapshot) string {
	if s.StatusMessage == "" {
		return ""
	}
	switch s.StatusKind {
	case session.StatusError:
		return errorBanner.Render(s.StatusMessage)
	case session.StatusProgress:
		return progressBanner.Render(s.StatusMessage)
	default:
		return infoBanner.Render(s.StatusMessage)
	}
}
