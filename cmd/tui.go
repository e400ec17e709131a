// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/parhelion/pkg/channel"
	"github.com/Thermoquad/parhelion/pkg/hexload"
	"github.com/Thermoquad/parhelion/pkg/ymodem"
)

// errInterrupted is returned when the TUI is closed before the transfer ends
var errInterrupted = errors.New("transfer interrupted")

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// fileItem is one file of the batch in the file list
type fileItem struct {
	index  int
	name   string
	size   int
	offset int
	done   bool
}

// Implement list.Item interface
func (f fileItem) Title() string { return fmt.Sprintf("%d. %s", f.index, f.name) }
func (f fileItem) Description() string {
	if f.done {
		return fmt.Sprintf("%d bytes, done", f.size)
	}
	return fmt.Sprintf("%d / %d bytes", f.offset, f.size)
}
func (f fileItem) FilterValue() string { return f.name }

// transferModel is the Bubble Tea model for a running transfer
type transferModel struct {
	title    string
	connInfo string
	cancel   *channel.CancelFlag
	started  time.Time

	bar      progress.Model
	files    []fileItem
	fileList list.Model
	current  ymodem.Progress

	// Hex load counters
	records    int
	failed     int
	romRecords int
	lastLine   *hexload.LineResult

	diagLine      string
	diagReturn    bool
	events        []logEntry
	maxLogEntries int

	cancelling bool
	done       bool
	err        error
	width      int
	height     int
}

// Messages
type tickMsg time.Time
type progressMsg ymodem.Progress
type lineMsg hexload.LineResult
type diagMsg string
type logMsg string
type doneMsg struct{ err error }

func newTransferModel(title, connInfo string, flag *channel.CancelFlag) transferModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	fileList := list.New([]list.Item{}, delegate, 40, 10)
	fileList.Title = "Files"
	fileList.SetShowStatusBar(false)
	fileList.SetShowHelp(false)
	fileList.SetFilteringEnabled(false)

	return transferModel{
		title:         title,
		connInfo:      connInfo,
		cancel:        flag,
		started:       time.Now(),
		bar:           progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		fileList:      fileList,
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m transferModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m transferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			if m.cancelling && msg.String() == "ctrl+c" {
				// Second Ctrl+C leaves without waiting for the abort
				return m, tea.Quit
			}
			if !m.cancelling {
				m.cancelling = true
				m.cancel.Cancel()
				m.addLogEntry("Cancel requested", true)
			}
		case "q":
			if m.done {
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(60, msg.Width-30))
		m.fileList.SetSize(max(20, msg.Width/2), 10)

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	case progressMsg:
		return m, m.updateProgress(ymodem.Progress(msg))

	case lineMsg:
		res := hexload.LineResult(msg)
		m.records++
		if res.Failed() {
			m.failed++
		}
		if res.ROMArea {
			m.romRecords++
		}
		m.lastLine = &res

	case diagMsg:
		m.appendDiagnostics(string(msg))

	case logMsg:
		m.addLogEntry(strings.TrimRight(string(msg), "\r\n"), false)

	case doneMsg:
		m.done = true
		m.err = msg.err
		if strings.TrimSpace(m.diagLine) != "" {
			m.addLogEntry(m.diagLine, isErrorLine(m.diagLine))
			m.diagLine = ""
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m *transferModel) updateProgress(p ymodem.Progress) tea.Cmd {
	if p.File < 1 {
		return nil
	}
	m.current = p
	for len(m.files) < p.File {
		m.files = append(m.files, fileItem{index: len(m.files) + 1})
	}
	for i := range m.files[:p.File-1] {
		m.files[i].done = true
		m.files[i].offset = m.files[i].size
	}
	item := &m.files[p.File-1]
	item.name = p.Name
	item.size = p.Size
	item.offset = p.Offset
	item.done = p.Offset >= p.Size

	items := make([]list.Item, len(m.files))
	for i, f := range m.files {
		items[i] = f
	}
	return m.fileList.SetItems(items)
}

// appendDiagnostics folds the diagnostics stream into event lines. Text after
// a bare carriage return overwrites the pending line.
func (m *transferModel) appendDiagnostics(text string) {
	for _, r := range text {
		switch r {
		case '\r':
			m.diagReturn = true
		case '\n':
			if strings.TrimSpace(m.diagLine) != "" {
				m.addLogEntry(m.diagLine, isErrorLine(m.diagLine))
			}
			m.diagLine = ""
			m.diagReturn = false
		default:
			if m.diagReturn {
				m.diagLine = ""
				m.diagReturn = false
			}
			m.diagLine += string(r)
		}
	}
}

func isErrorLine(s string) bool {
	return strings.Contains(s, "ERROR") || strings.Contains(s, "abort") ||
		strings.Contains(s, "Timeout") || strings.Contains(s, "Max ")
}

func (m *transferModel) addLogEntry(message string, isError bool) {
	m.events = append(m.events, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.events) > m.maxLogEntries {
		m.events = m.events[len(m.events)-m.maxLogEntries:]
	}
}

func (m transferModel) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("PARHELION - " + strings.ToUpper(m.title)))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Elapsed %s | Press ESC to cancel",
		m.connInfo, time.Since(m.started).Truncate(time.Second))))
	s.WriteString("\n\n")

	var status strings.Builder
	switch {
	case m.current.Size > 0 || m.current.File > 0:
		status.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render(fmt.Sprintf("File %d:", m.current.File)),
			valueStyle.Render(m.current.Name)))
		status.WriteString(m.bar.ViewAs(m.current.Percentage() / 100))
		status.WriteString(fmt.Sprintf("  %d / %d bytes", m.current.Offset, m.current.Size))
	case m.lastLine != nil:
		status.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Records:"), valueStyle.Render(fmt.Sprintf("%d", m.records)),
			labelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.failed)),
			labelStyle.Render("ROM:"), warningStyle.Render(fmt.Sprintf("%d", m.romRecords))))
		status.WriteString(fmt.Sprintf("%s %s",
			labelStyle.Render("Last:"),
			valueStyle.Render(fmt.Sprintf("%s @ 0x%06X (%d bytes)", m.lastLine.Type, m.lastLine.Address, m.lastLine.Count))))
	default:
		status.WriteString(warningStyle.Render("Waiting for the other side..."))
	}
	s.WriteString(boxStyle.Render(status.String()))
	s.WriteString("\n")

	if len(m.files) > 0 {
		s.WriteString(m.fileList.View())
		s.WriteString("\n")
	}

	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 16
	if len(m.files) > 0 {
		logHeight -= 10
	}
	if logHeight < 5 {
		logHeight = 5
	}

	var events strings.Builder
	startIdx := max(0, len(m.events)-logHeight)
	if len(m.events) == 0 && m.diagLine == "" {
		events.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for _, entry := range m.events[startIdx:] {
		timestamp := headerStyle.Render(entry.timestamp.Format("15:04:05.000"))
		if entry.isError {
			events.WriteString(fmt.Sprintf("%s %s\n", timestamp, errorStyle.Render("✗ "+entry.message)))
		} else {
			events.WriteString(fmt.Sprintf("%s %s\n", timestamp, warningStyle.Render("ℹ "+entry.message)))
		}
	}
	if m.diagLine != "" {
		events.WriteString(headerStyle.Render("  " + m.diagLine))
	}
	s.WriteString(boxStyle.Width(max(20, m.width-4)).Render(events.String()))
	s.WriteString("\n")

	switch {
	case !m.done && m.cancelling:
		s.WriteString(warningStyle.Render("Cancelling..."))
	case !m.done:
	case m.err != nil:
		s.WriteString(errorStyle.Render(fmt.Sprintf("ERROR: %v", m.err)))
	default:
		s.WriteString(valueStyle.Render("✓ Done"))
	}
	s.WriteString("\n")

	return s.String()
}

// programWriter forwards written text to the program as messages
type programWriter struct {
	p    *tea.Program
	wrap func(string) tea.Msg
}

func (w programWriter) Write(b []byte) (int, error) {
	w.p.Send(w.wrap(string(b)))
	return len(b), nil
}

// runTransferTUI runs job with its output routed into the TUI
func runTransferTUI(ctx context.Context, title, connInfo string, flag *channel.CancelFlag, job transferJob) error {
	p := tea.NewProgram(newTransferModel(title, connInfo, flag))

	prevOut := logger.Out
	logger.SetOutput(programWriter{p: p, wrap: func(s string) tea.Msg { return logMsg(s) }})
	defer logger.SetOutput(prevOut)

	fe := &frontend{
		Diagnostics: programWriter{p: p, wrap: func(s string) tea.Msg { return diagMsg(s) }},
		Progress:    func(pr ymodem.Progress) { p.Send(progressMsg(pr)) },
		Line:        func(res hexload.LineResult) { p.Send(lineMsg(res)) },
		Cancel:      flag,
	}

	result := make(chan error, 1)
	go func() {
		err := job(ctx, fe)
		result <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		flag.Cancel()
		return fmt.Errorf("running TUI: %w", err)
	}

	select {
	case err := <-result:
		return err
	default:
		flag.Cancel()
		return errInterrupted
	}
}
