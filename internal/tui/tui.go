package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/user/eoc-response-sim/internal/game"
	"github.com/user/eoc-response-sim/internal/interfaces"
	"github.com/user/eoc-response-sim/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			Padding(0, 1)

	decisionStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#FF5F5F")).
			PaddingLeft(2)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FAFFF")).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

// stateChangedMsg tells the program the store has a newer snapshot
type stateChangedMsg struct{}

// Model is the bubbletea model of one operator session
type Model struct {
	store   interfaces.SessionStore
	advisor *game.Advisor
	state   types.GameState

	dirty       chan struct{}
	done        chan struct{}
	unsubscribe func()

	keys  keyMap
	help  help.Model
	timer progress.Model
	hint  string
	width int
}

// NewModel subscribes to store. Call Close once the program exits.
func NewModel(store interfaces.SessionStore) Model {
	dirty := make(chan struct{}, 1)
	unsubscribe := store.Subscribe(func(_, _ types.GameState) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})

	return Model{
		store:       store,
		advisor:     game.NewAdvisor(),
		state:       store.Snapshot(),
		dirty:       dirty,
		done:        make(chan struct{}),
		unsubscribe: unsubscribe,
		keys:        defaultKeyMap(),
		help:        help.New(),
		timer:       progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(40)),
	}
}

// Close detaches the model from the store
func (m Model) Close() {
	m.unsubscribe()
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForActivity()
}

func (m Model) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.dirty:
			return stateChangedMsg{}
		case <-m.done:
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		m.handleKey(msg)
		m.state = m.store.Snapshot()
		return m, nil

	case stateChangedMsg:
		m.state = m.store.Snapshot()
		if len(m.state.DecisionsWaiting) == 0 {
			m.hint = ""
		}
		return m, m.waitForActivity()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.timer.Width = min(60, max(10, msg.Width-30))
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	switch m.state.Phase {
	case types.PhaseMenu:
		switch {
		case key.Matches(msg, m.keys.Tutorial):
			m.store.StartTutorial()
		case key.Matches(msg, m.keys.Disaster):
			n, _ := strconv.Atoi(msg.String())
			m.store.InitializeScenario(types.DisasterTypes()[n-1])
		}

	case types.PhaseTutorial, types.PhaseActiveScenario:
		decision, waiting := m.currentDecision()
		switch {
		case key.Matches(msg, m.keys.Advice):
			m.hint = m.adviceHint()
		case key.Matches(msg, m.keys.End):
			m.store.EndScenario()
		case waiting && key.Matches(msg, m.keys.Choose):
			n, _ := strconv.Atoi(msg.String())
			if n <= len(decision.Options) {
				m.store.MakeDecision(decision.ID, n-1)
				m.hint = ""
			}
		}

	case types.PhaseEnded:
		if key.Matches(msg, m.keys.Restart) {
			m.store.Restart()
			m.hint = ""
		}
	}
}

func (m Model) currentDecision() (types.Decision, bool) {
	if len(m.state.DecisionsWaiting) == 0 {
		return types.Decision{}, false
	}
	return m.state.DecisionsWaiting[0], true
}

func (m Model) adviceHint() string {
	decision, ok := m.currentDecision()
	if !ok {
		return "No decision is waiting."
	}
	best, err := m.advisor.Best(m.state, decision.ID)
	if err != nil {
		return "The advisor has nothing to suggest."
	}
	if !best.Affordable {
		return fmt.Sprintf("Advisor: no option is affordable, option %d does the least harm.", best.Index+1)
	}
	return fmt.Sprintf("Advisor: option %d (%s).", best.Index+1, best.Option.Text)
}

func (m Model) View() string {
	var s string

	switch m.state.Phase {
	case types.PhaseMenu:
		s = m.menuView()
	case types.PhaseTutorial, types.PhaseActiveScenario:
		s = lipgloss.JoinVertical(lipgloss.Left,
			m.hudView(),
			m.decisionView(),
		)
	case types.PhaseEnded:
		s = m.endView()
	}

	return "\n" + s + "\n\n" + m.help.ShortHelpView(m.bindings()) + "\n"
}

func (m Model) bindings() []key.Binding {
	switch m.state.Phase {
	case types.PhaseMenu:
		return []key.Binding{m.keys.Tutorial, m.keys.Disaster, m.keys.Quit}
	case types.PhaseEnded:
		return []key.Binding{m.keys.Restart, m.keys.Quit}
	default:
		return []key.Binding{m.keys.Choose, m.keys.Advice, m.keys.End, m.keys.Quit}
	}
}

func (m Model) menuView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("EMERGENCY OPERATIONS CENTER"))
	b.WriteString("\n\nSelect a scenario to coordinate:\n\n")
	for i, disaster := range types.DisasterTypes() {
		tmpl, _ := game.ScenarioTemplate(disaster)
		fmt.Fprintf(&b, "  [%d] %-12s %s (severity %d)\n", i+1, disaster, tmpl.Name, tmpl.Severity)
	}
	b.WriteString("\n  [t] Guided tutorial\n")
	return b.String()
}

func (m Model) hudView() string {
	st := m.state
	var b strings.Builder

	if st.Scenario != nil {
		title := st.Scenario.Name
		if st.Tutorial {
			title += " (training)"
		}
		b.WriteString(titleStyle.Render(title))
		fmt.Fprintf(&b, "\n%s %s  %s %d/5\n",
			labelStyle.Render("type"), st.Scenario.Type,
			labelStyle.Render("severity"), st.Scenario.Severity)
		fmt.Fprintf(&b, "%s %d  %s %d  %s %d  %s %d\n",
			labelStyle.Render("affected"), st.Scenario.AffectedPopulation,
			labelStyle.Render("evacuees"), st.Scenario.Evacuees,
			labelStyle.Render("casualties"), st.Scenario.Casualties,
			labelStyle.Render("damage"), st.Scenario.DamageEstimate)
	}
	if st.CurrentZone != nil {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("zone"), *st.CurrentZone)
	}

	b.WriteString("\n")
	b.WriteString(resourcesView(st.Resources))
	fmt.Fprintf(&b, "\n%s %d\n", labelStyle.Render("score"), st.Score)

	fraction := st.TimeRemaining / game.DefaultTimeLimit
	clock := formatClock(st.TimeRemaining)
	if st.TimeRemaining <= 60 {
		clock = warnStyle.Render(clock)
	}
	fmt.Fprintf(&b, "%s %s\n", m.timer.ViewAs(min(1, max(0, fraction))), clock)

	return panelStyle.Render(b.String())
}

func resourcesView(r types.Resources) string {
	var b strings.Builder
	for _, kind := range types.ResourceKinds() {
		v, _ := r.Get(kind)
		fmt.Fprintf(&b, "%s %d  ", labelStyle.Render(string(kind)), v)
	}
	return strings.TrimRight(b.String(), " ")
}

func formatCost(cost types.ResourceAmounts) string {
	parts := make([]string, 0, len(cost))
	for _, kind := range types.ResourceKinds() {
		if amount, ok := cost[kind]; ok && amount != 0 {
			parts = append(parts, fmt.Sprintf("%s %d", kind, amount))
		}
	}
	if len(parts) == 0 {
		return "no cost"
	}
	return strings.Join(parts, ", ")
}

func formatClock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func (m Model) decisionView() string {
	decision, ok := m.currentDecision()
	if !ok {
		return "\n" + labelStyle.Render("No decisions waiting. Monitoring the situation...")
	}

	var b strings.Builder
	b.WriteString(warnStyle.Render("DECISION REQUIRED"))
	if extra := len(m.state.DecisionsWaiting) - 1; extra > 0 {
		fmt.Fprintf(&b, " %s", labelStyle.Render(fmt.Sprintf("(+%d queued)", extra)))
	}
	b.WriteString("\n" + decision.Description + "\n\n")
	for i, option := range decision.Options {
		if i >= 9 {
			break
		}
		fmt.Fprintf(&b, "[%d] %s\n    %s, effectiveness %+d\n", i+1, option.Text, formatCost(option.ResourceCost), option.EffectivenessScore)
	}
	if m.hint != "" {
		b.WriteString("\n" + hintStyle.Render(m.hint))
	}
	return "\n" + decisionStyle.Render(b.String())
}

func (m Model) endView() string {
	st := m.state
	var b strings.Builder
	b.WriteString(titleStyle.Render("SCENARIO COMPLETE"))
	b.WriteString("\n\n")
	if st.Scenario != nil {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("scenario"), st.Scenario.Name)
	}
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("final score"), st.Score)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("decisions made"), len(st.CompletedDecisions))
	if n := len(st.DecisionsWaiting); n > 0 {
		fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("left unanswered"), n)
	}
	fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render("time remaining"), formatClock(st.TimeRemaining))
	b.WriteString(resourcesView(st.Resources))
	return panelStyle.Render(b.String())
}

// Run starts the terminal UI on store and blocks until the operator quits
func Run(store interfaces.SessionStore) error {
	m := NewModel(store)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
