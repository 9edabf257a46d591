// Package tui provides the interactive board for yepdone using Bubble
// Tea. Three columns, one per due bucket; every mutation goes through
// the optimistic controller, so the board updates immediately and rolls
// back if the store disagrees.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/baiirun/yepdone/internal/buckets"
	"github.com/baiirun/yepdone/internal/controller"
	"github.com/baiirun/yepdone/internal/model"
)

// InputMode represents what kind of text input is active.
type InputMode int

const (
	InputNone    InputMode = iota
	InputCreate            // Entering new todo title
	InputComment           // Entering comment text
)

// Status icons
const (
	iconOpen    = "○"
	iconDone    = "●"
	iconPending = "◌" // optimistic create not confirmed yet
)

// Layout constants
const (
	columnGap      = 1
	contentPadding = 1
	minColumnWidth = 24
)

// notice is an out-of-band event from the controller: a rollback
// message or the loss of workspace access.
type notice struct {
	message string
	revoked bool
}

// Notices adapts a channel to the controller's Notifier. Events are
// dropped rather than blocking a mutation when the board is not
// draining.
type Notices struct {
	ch chan notice
}

func NewNotices() *Notices {
	return &Notices{ch: make(chan notice, 16)}
}

func (n *Notices) Notify(message string) {
	select {
	case n.ch <- notice{message: message}:
	default:
	}
}

func (n *Notices) AccessRevoked() {
	select {
	case n.ch <- notice{revoked: true}:
	default:
	}
}

// Model is the main Bubble Tea model for the board.
type Model struct {
	ctrl    *controller.Controller
	notices *Notices
	poll    time.Duration
	log     *log.Logger

	board  buckets.Buckets
	focus  int         // focused column index into buckets.All()
	cursor map[int]int // column index -> row

	// Input state
	inputMode  InputMode
	inputText  string
	inputLabel string

	// UI state
	width   int
	height  int
	err     error
	message string // temporary status message
	revoked bool
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	columnTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	overdueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// New creates a board model over a controller. The controller must have
// been built with the given Notices as its notifier.
func New(ctrl *controller.Controller, notices *Notices, poll time.Duration, logger *log.Logger) Model {
	if logger == nil {
		logger = log.Default()
	}
	return Model{
		ctrl:    ctrl,
		notices: notices,
		poll:    poll,
		log:     logger,
		cursor:  make(map[int]int),
	}
}

// Messages
type boardMsg struct {
	board buckets.Buckets
	err   error
}

type actionMsg struct {
	message string
	err     error
}

type noticeMsg notice

type pollMsg time.Time

// loadBoard refetches from the boundary and recategorizes.
func (m Model) loadBoard() tea.Cmd {
	return func() tea.Msg {
		if err := m.ctrl.Load(); err != nil {
			return boardMsg{err: err}
		}
		return boardMsg{board: m.ctrl.Board(time.Now())}
	}
}

// refreshView recategorizes the controller's current view without
// touching the boundary. Used after optimistic mutations.
func (m *Model) refreshView() {
	m.board = m.ctrl.Board(time.Now())
	for col := range buckets.All() {
		if n := len(m.column(col)); m.cursor[col] >= n {
			m.cursor[col] = max(0, n-1)
		}
	}
}

// waitNotice blocks on the controller's out-of-band channel.
func (m Model) waitNotice() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-m.notices.ch)
	}
}

// pollAccess schedules the next membership re-check.
func (m Model) pollAccess() tea.Cmd {
	return tea.Tick(m.poll, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m Model) column(col int) []model.Todo {
	return m.board.Get(buckets.All()[col])
}

func (m Model) selected() (model.Todo, bool) {
	todos := m.column(m.focus)
	row := m.cursor[m.focus]
	if len(todos) == 0 || row >= len(todos) {
		return model.Todo{}, false
	}
	return todos[row], true
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadBoard(), m.waitNotice(), m.pollAccess())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Clear message on any key
		m.message = ""
		m.err = nil
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.board = msg.board
		m.refreshView()
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.message = msg.message
		}
		// The controller already applied or rolled back; just re-render.
		m.refreshView()
		return m, nil

	case noticeMsg:
		if msg.revoked {
			m.revoked = true
			m.log.Warn("leaving board: workspace access revoked")
			return m, tea.Quit
		}
		m.message = msg.message
		m.refreshView()
		return m, m.waitNotice()

	case pollMsg:
		return m, tea.Batch(
			func() tea.Msg {
				m.ctrl.CheckAccess()
				return nil
			},
			m.pollAccess(),
		)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode != InputNone {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "left", "h":
		if m.focus > 0 {
			m.focus--
		}

	case "right", "l":
		if m.focus < len(buckets.All())-1 {
			m.focus++
		}

	case "up", "k":
		if m.cursor[m.focus] > 0 {
			m.cursor[m.focus]--
		}

	case "down", "j":
		if m.cursor[m.focus] < len(m.column(m.focus))-1 {
			m.cursor[m.focus]++
		}

	case "g", "home":
		m.cursor[m.focus] = 0

	case "G", "end":
		m.cursor[m.focus] = max(0, len(m.column(m.focus))-1)

	// Actions
	case " ", "x":
		return m.doToggle()
	case "d":
		return m.doDelete()
	case "H", "shift+left":
		return m.doMove(-1)
	case "L", "shift+right":
		return m.doMove(+1)

	case "n":
		return m.startInput(InputCreate, "New todo: ")
	case "c":
		if _, ok := m.selected(); ok {
			return m.startInput(InputComment, "Comment: ")
		}

	case "r":
		return m, m.loadBoard()
	}

	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inputMode = InputNone
		m.inputText = ""
		return m, nil

	case "enter":
		return m.submitInput()

	case "backspace":
		if len(m.inputText) > 0 {
			m.inputText = m.inputText[:len(m.inputText)-1]
		}

	default:
		if msg.Type == tea.KeySpace {
			m.inputText += " "
		} else if len(msg.String()) == 1 {
			m.inputText += msg.String()
		}
	}
	return m, nil
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.inputText)
	mode := m.inputMode
	m.inputMode = InputNone
	m.inputText = ""

	if text == "" {
		return m, nil
	}

	switch mode {
	case InputCreate:
		return m, func() tea.Msg {
			if err := m.ctrl.Create(text, 3, time.Now()); err != nil {
				return actionMsg{}
			}
			return actionMsg{message: "Created: " + text}
		}

	case InputComment:
		todo, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			if err := m.ctrl.AddComment(todo.ID, text, time.Now()); err != nil {
				return actionMsg{}
			}
			return actionMsg{message: "Comment added"}
		}
	}

	return m, nil
}

func (m Model) doToggle() (Model, tea.Cmd) {
	todo, ok := m.selected()
	if !ok {
		return m, nil
	}
	return m, func() tea.Msg {
		if err := m.ctrl.Toggle(todo.ID); err != nil {
			return actionMsg{}
		}
		return actionMsg{message: "Done: " + todo.Title}
	}
}

func (m Model) doDelete() (Model, tea.Cmd) {
	todo, ok := m.selected()
	if !ok {
		return m, nil
	}
	return m, func() tea.Msg {
		if err := m.ctrl.Delete(todo.ID); err != nil {
			return actionMsg{}
		}
		return actionMsg{message: "Deleted: " + todo.Title}
	}
}

// doMove reassigns the selected todo to the adjacent bucket.
func (m Model) doMove(direction int) (Model, tea.Cmd) {
	todo, ok := m.selected()
	if !ok {
		return m, nil
	}
	target := m.focus + direction
	if target < 0 || target >= len(buckets.All()) {
		return m, nil
	}
	bucket := buckets.All()[target]
	return m, func() tea.Msg {
		if err := m.ctrl.MoveToBucket(todo.ID, bucket, time.Now()); err != nil {
			return actionMsg{}
		}
		return actionMsg{message: "Moved to " + bucket.Title()}
	}
}

func (m Model) startInput(mode InputMode, label string) (Model, tea.Cmd) {
	m.inputMode = mode
	m.inputLabel = label
	m.inputText = ""
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("yepdone"))
	b.WriteString("\n\n")
	b.WriteString(m.boardView())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("h/l:column  j/k:nav  space:toggle  d:delete  H/L:move  n:new  c:comment  r:refresh  q:quit"))

	if m.inputMode != InputNone {
		b.WriteString("\n")
		b.WriteString(inputStyle.Render(m.inputLabel + m.inputText + "█"))
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	} else if m.message != "" {
		b.WriteString("\n")
		b.WriteString(messageStyle.Render(m.message))
	}

	padStyle := lipgloss.NewStyle().
		PaddingLeft(contentPadding).
		PaddingRight(contentPadding).
		PaddingTop(1)

	return padStyle.Render(b.String())
}

func (m Model) boardView() string {
	cols := buckets.All()

	width := m.width
	if width == 0 {
		width = 100
	}
	colWidth := (width - (contentPadding * 2) - (columnGap+2)*len(cols)) / len(cols)
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}

	height := m.height - 10
	if height < 6 {
		height = 12
	}

	rendered := make([]string, 0, len(cols)*2)
	for i, id := range cols {
		lines := m.renderColumn(i, id, colWidth, height)
		borderColor := lipgloss.Color("241")
		if i == m.focus {
			borderColor = lipgloss.Color("39")
		}
		rendered = append(rendered, buildBorderedBox(lines, colWidth, borderColor))
		if i < len(cols)-1 {
			rendered = append(rendered, strings.Repeat(" ", columnGap))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(col int, id buckets.ID, width, height int) []string {
	todos := m.column(col)

	var lines []string
	header := fmt.Sprintf("%s (%d)", id.Title(), len(todos))
	lines = append(lines, columnTitleStyle.Render(truncate(header, width)))
	lines = append(lines, "")

	// Keep the cursor row in the visible window.
	rowsHeight := height - 2
	start := 0
	if col == m.focus && m.cursor[col] >= rowsHeight {
		start = m.cursor[col] - rowsHeight + 1
	}
	end := min(start+rowsHeight, len(todos))

	if len(todos) == 0 {
		lines = append(lines, dimStyle.Render("nothing here"))
	}

	for i := start; i < end; i++ {
		todo := todos[i]
		selected := col == m.focus && i == m.cursor[col]
		line := m.formatTodoLine(todo, id, width, selected)
		lines = append(lines, line)
	}

	return normalizeLines(lines, height, width)
}

func (m Model) formatTodoLine(todo model.Todo, bucket buckets.ID, width int, selected bool) string {
	icon := iconOpen
	if todo.Completed {
		icon = iconDone
	}
	if model.IsTempID(todo.ID) {
		icon = iconPending
	}

	due := ""
	if when := model.ParseDueDate(todo.DueDate); when != nil {
		due = " " + when.Format("Jan 2")
	}

	titleWidth := width - 2 - lipgloss.Width(due)
	if titleWidth < 8 {
		titleWidth = 8
	}
	title := truncate(todo.Title, titleWidth)

	if selected {
		return selectedRowStyle.Width(width).Render(fmt.Sprintf("%s %s%s", icon, title, due))
	}
	dueStyled := dimStyle.Render(due)
	if bucket == buckets.OverdueToday && todo.DueDate != nil {
		dueStyled = overdueStyle.Render(due)
	}
	return fmt.Sprintf("%s %s%s", icon, title, dueStyled)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return "..."
	}
	return s[:width-3] + "..."
}

// normalizeLines ensures the slice has exactly `height` lines, each padded to `width`.
func normalizeLines(lines []string, height, width int) []string {
	result := make([]string, height)
	for i := 0; i < height; i++ {
		if i < len(lines) {
			result[i] = padToWidth(lines[i], width)
		} else {
			result[i] = strings.Repeat(" ", width)
		}
	}
	return result
}

// buildBorderedBox creates a box with rounded borders around content lines.
func buildBorderedBox(lines []string, contentWidth int, borderColor lipgloss.Color) string {
	style := lipgloss.NewStyle().Foreground(borderColor)

	topLeft := style.Render("╭")
	topRight := style.Render("╮")
	bottomLeft := style.Render("╰")
	bottomRight := style.Render("╯")
	horizontal := style.Render("─")
	vertical := style.Render("│")

	var b strings.Builder

	b.WriteString(topLeft)
	b.WriteString(strings.Repeat(horizontal, contentWidth))
	b.WriteString(topRight)
	b.WriteString("\n")

	for _, line := range lines {
		b.WriteString(vertical)
		b.WriteString(line)
		b.WriteString(vertical)
		b.WriteString("\n")
	}

	b.WriteString(bottomLeft)
	b.WriteString(strings.Repeat(horizontal, contentWidth))
	b.WriteString(bottomRight)

	return b.String()
}

// padToWidth pads a string to the specified width with spaces.
// Accounts for ANSI escape codes when calculating visible width.
func padToWidth(s string, width int) string {
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}

// Run starts the board and reports whether it exited because workspace
// access was revoked.
func Run(ctrl *controller.Controller, notices *Notices, poll time.Duration, logger *log.Logger) (revoked bool, err error) {
	m := New(ctrl, notices, poll, logger)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	if fm, ok := final.(Model); ok {
		return fm.revoked, nil
	}
	return false, nil
}
