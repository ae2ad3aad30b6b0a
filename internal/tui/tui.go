// Package tui lets a human take a seat at the table in the terminal.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/skatbot/internal/deck"
	"github.com/lox/skatbot/internal/game"
)

// TurnMsg tells the model it is the human's turn.
type TurnMsg struct {
	State    game.ObservableState
	Rejected []deck.Card
}

// RejectMsg reports that the engine refused a card.
type RejectMsg struct {
	Card deck.Card
}

// EventMsg carries a table event.
type EventMsg struct {
	Event game.Event
}

// DoneMsg ends the program once the game loop has finished.
type DoneMsg struct {
	Err error
}

// Model is the Bubble Tea model for a human seat.
type Model struct {
	logger *log.Logger
	seat   int

	// UI components
	logViewport viewport.Model
	input       textinput.Model
	focusedPane int // 0 = log, 1 = input

	gameLog []string
	cards   chan deck.Card
	quit    chan struct{}
	once    sync.Once

	// Table state
	waiting  bool
	state    game.ObservableState
	points   [game.NumSeats]int
	declarer int
	deal     int
	games    int
	quitting bool

	width  int
	height int
}

// NewModel creates the model for a human sitting in seat.
func NewModel(logger *log.Logger, seat int) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "Card number or code (e.g. 3 or CJ), q to quit"
	ti.Focus()
	ti.CharLimit = 16
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(focusColor).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &Model{
		logger:      logger.WithPrefix("tui"),
		seat:        seat,
		logViewport: vp,
		input:       ti,
		focusedPane: 1,
		cards:       make(chan deck.Card, 1),
		quit:        make(chan struct{}),
		declarer:    -1,
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Quit signals every waiting seat that the human has left. Safe to call
// more than once.
func (m *Model) Quit() {
	m.once.Do(func() { close(m.quit) })
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TurnMsg:
		m.state = msg.State.Clone()
		m.waiting = true
		m.AddLogEntry(HandInfoStyle.Render("Your turn"))

	case RejectMsg:
		m.AddLogEntry(ErrorStyle.Render(fmt.Sprintf("%s cannot be played here", msg.Card)))

	case EventMsg:
		m.apply(msg.Event)
		m.AddLogEntry(FormatEvent(msg.Event, m.seat))

	case DoneMsg:
		if msg.Err != nil {
			m.logger.Debug("game loop finished", "error", msg.Err)
		}
		m.quitting = true
		m.Quit()
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			m.Quit()
			return m, tea.Quit
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.input.Focus()
			} else {
				m.focusedPane = 0
				m.input.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				value := strings.TrimSpace(m.input.Value())
				m.input.SetValue("")
				if m.submit(value) {
					m.quitting = true
					return m, tea.Quit
				}
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit handles a line of input and reports whether the human quit.
func (m *Model) submit(value string) bool {
	switch strings.ToLower(value) {
	case "q", "quit", "exit":
		m.Quit()
		return true
	case "":
		return false
	}

	if !m.waiting {
		m.AddLogEntry(WarningStyle.Render("Not your turn"))
		return false
	}

	card, err := ParseChoice(value, m.state.HoleCards)
	if err != nil {
		m.AddLogEntry(ErrorStyle.Render(err.Error()))
		return false
	}

	select {
	case m.cards <- card:
		m.waiting = false
	default:
		m.logger.Warn("card already pending", "card", card)
	}
	return false
}

func (m *Model) apply(e game.Event) {
	switch e.Type {
	case game.EventTypeGameStart:
		m.points = [game.NumSeats]int{}
		m.games++
	case game.EventTypeDealStart:
		m.deal = e.Deal
		m.declarer = e.Declarer
	case game.EventTypeDealEnd, game.EventTypeGameEnd, game.EventTypeAborted:
		m.points = e.Points
	}
}

// ParseChoice turns the human's input into a card from hand. Input is either
// the card's 1-based position in the hand or its code.
func ParseChoice(input string, hand []deck.Card) (deck.Card, error) {
	input = strings.TrimSpace(input)
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(hand) {
			return 0, fmt.Errorf("pick a card between 1 and %d", len(hand))
		}
		return hand[n-1], nil
	}

	card, err := deck.ParseCard(input)
	if err != nil {
		return 0, err
	}
	if !deck.Contains(hand, card) {
		return 0, fmt.Errorf("%s is not in your hand", card)
	}
	return card, nil
}

// FormatEvent renders an event as one plain log line from the point of view
// of the human in seat human.
func FormatEvent(e game.Event, human int) string {
	switch e.Type {
	case game.EventTypeGameStart:
		return "=== New game ==="
	case game.EventTypeDealStart:
		return fmt.Sprintf("*** DEAL %d *** %s declared", e.Deal+1, seatName(e.Declarer, human))
	case game.EventTypeCardPlayed:
		return fmt.Sprintf("%s played %s", seatName(e.Seat, human), e.Card)
	case game.EventTypeTrickWon:
		return fmt.Sprintf("%s won the trick %s (%d points)",
			seatName(e.Seat, human), joinCards(e.Cards), deck.TotalPoints(e.Cards))
	case game.EventTypeDealEnd:
		verb := "lost"
		if e.Won {
			verb = "won"
		}
		return fmt.Sprintf("%s %s the deal: %+d", seatName(e.Declarer, human), verb, e.Score)
	case game.EventTypeGameEnd:
		return "Game over. " + formatPoints(e.Points, human)
	case game.EventTypeAborted:
		return fmt.Sprintf("%s played %s illegally, game aborted", seatName(e.Seat, human), e.Card)
	default:
		return string(e.Type)
	}
}

func seatName(seat, human int) string {
	if seat == human {
		return "You"
	}
	return fmt.Sprintf("Seat %d", seat+1)
}

func formatPoints(points [game.NumSeats]int, human int) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%s %d", seatName(i, human), p)
	}
	return "Points: " + strings.Join(parts, ", ")
}

func joinCards(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(focusColor).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1)).
		Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 25)
	paneHeight := max(m.height-actionHeight-4, 1)
	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	m.logViewport.Width = max(m.width-sidebarWidth-4, 1)
	m.logViewport.Height = paneHeight
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(m.logViewport.Width).
		Height(paneHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(focusColor)
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *Model) renderSidebarPane() string {
	var content strings.Builder

	content.WriteString(HeaderStyle.Render(fmt.Sprintf(" Game %d  Deal %d ", m.games, m.deal+1)))
	content.WriteString("\n\n")
	for i, p := range m.points {
		line := fmt.Sprintf("%s: %d", seatName(i, m.seat), p)
		if i == m.declarer {
			line += " (declarer)"
		}
		content.WriteString(line)
		content.WriteString("\n")
	}

	if len(m.state.Trick) > 0 {
		content.WriteString("\n")
		content.WriteString(InfoStyle.Render("Trick: "))
		content.WriteString(renderCards(m.state.Trick))
		content.WriteString("\n")
	}
	return content.String()
}

func (m *Model) renderActionPane() string {
	var content strings.Builder

	if m.waiting {
		content.WriteString(HandInfoStyle.Render("Hand: "))
		content.WriteString(renderHand(m.state.HoleCards))
		content.WriteString("\n")
		legal := game.LegalCards(m.state.HoleCards, m.state.Trick)
		content.WriteString(ActionsStyle.Render("Playable: " + joinCards(legal)))
		content.WriteString("\n")
	} else {
		content.WriteString(HandInfoStyle.Render("Waiting..."))
		content.WriteString("\n")
	}

	content.WriteString(m.input.View())
	content.WriteString("\n")
	if m.focusedPane == 0 {
		content.WriteString(InfoStyle.Render("Log focused: ↑↓ scroll, Tab to input"))
	} else {
		content.WriteString(InfoStyle.Render("Tab to scroll log • Enter to play • Ctrl+C to quit"))
	}
	return content.String()
}

// AddLogEntry appends a line to the game log and scrolls to it.
func (m *Model) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns the log lines so far.
func (m *Model) Log() []string {
	return append([]string{}, m.gameLog...)
}

func renderCard(c deck.Card) string {
	switch {
	case game.IsTrump(c):
		return TrumpStyle.Render(c.String())
	case c.IsRed():
		return RedCardStyle.Render(c.String())
	default:
		return BlackCardStyle.Render(c.String())
	}
}

func renderCards(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = renderCard(c)
	}
	return strings.Join(parts, " ")
}

func renderHand(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = fmt.Sprintf("%d.%s", i+1, renderCard(c))
	}
	return strings.Join(parts, " ")
}
