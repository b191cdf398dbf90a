package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/resiliate/resiliate/internal/breaker"
	"github.com/resiliate/resiliate/internal/delay"
	"github.com/resiliate/resiliate/internal/priority"
	"github.com/resiliate/resiliate/internal/probe"
	"github.com/resiliate/resiliate/internal/strategy"
	"github.com/resiliate/resiliate/pkg/resiliate"
)

type State int

const (
	StateSetup State = iota
	StateRunning
	StateSummary
)

type MainModel struct {
	state     State
	cfg       probe.Config
	snapshot  probe.Snapshot
	results   chan probe.Result
	drainDone chan struct{}
	quitting  bool

	setupModel tea.Model
	dashModel  tea.Model
	sumModel   tea.Model

	monitor *probe.Monitor
	client  *resiliate.Client
	breaker *breaker.Breaker
}

// NewModel builds the top-level TUI model. When startRunning is true,
// the setup wizard is skipped and cfg is used as-is -- the
// CLI's non-interactive "run with flags" mode.
func NewModel(cfg *probe.Config, startRunning bool) MainModel {
	if cfg == nil {
		cfg = &probe.Config{
			Method:      "GET",
			Rate:        50,
			Duration:    30 * time.Second,
			Concurrency: 10,
		}
	}

	initialState := StateSetup
	if startRunning {
		initialState = StateRunning
	}

	m := MainModel{
		state:      initialState,
		cfg:        *cfg,
		setupModel: NewSetupModel(cfg),
	}

	if startRunning {
		m.results = make(chan probe.Result, 10000)
		m.drainDone = make(chan struct{})
		m.monitor = probe.NewMonitor()
		m.breaker = breaker.New(breaker.DefaultConfig(), nil)

		client, err := resiliate.New(m.cfg.URLTemplate,
			resiliate.WithSafeMethodStrategy(mustSequential()),
			resiliate.WithCircuitBreaker(m.breaker),
		)
		if err == nil {
			m.client = client
		}
		m.dashModel = NewDashModel(m.cfg, []string{"Loaded from flags"})
	}

	return m
}

func mustSequential() strategy.Strategy {
	s, err := strategy.NewSequential(3, delay.Constant(100*time.Millisecond), nil)
	if err != nil {
		return strategy.SingleAttempt{}
	}
	return s
}

func (m MainModel) Init() tea.Cmd {
	if m.state == StateRunning {
		return tea.Batch(m.startProbing(), m.processResults(), m.tick())
	}
	return nil
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	switch m.state {
	case StateSetup:
		m.setupModel, cmd = m.setupModel.Update(msg)
		if sm, ok := m.setupModel.(*SetupModel); ok {
			if sm.current == StepDone {
				m.cfg = *sm.cfg

				p, ok := priority.Parse(sm.Priority)
				if !ok {
					p = priority.Normal
				}

				var strat strategy.Strategy
				switch sm.Strategy {
				case "single":
					strat = strategy.SingleAttempt{}
				case "parallel":
					par, err := strategy.NewParallel(3, delay.Constant(100*time.Millisecond))
					if err != nil {
						strat = strategy.SingleAttempt{}
					} else {
						strat = par
					}
				default:
					strat = mustSequential()
				}

				m.results = make(chan probe.Result, 10000)
				m.drainDone = make(chan struct{})
				m.monitor = probe.NewMonitor()
				m.breaker = breaker.New(breaker.DefaultConfig(), nil)

				var history []string
				for i, h := range sm.history {
					line := fmt.Sprintf("%s %s %s",
						lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("✓"),
						lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(fmt.Sprintf("[%d] %s", i+1, h.label)),
						lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true).Render(h.value),
					)
					history = append(history, line)
				}

				client, err := resiliate.New(m.cfg.URLTemplate,
					resiliate.WithTimeout(sm.Timeout),
					resiliate.WithPriority(p),
					resiliate.WithSafeMethodStrategy(strat),
					resiliate.WithCircuitBreaker(m.breaker),
				)
				if err == nil {
					m.client = client
				}

				m.state = StateRunning
				m.dashModel = NewDashModel(m.cfg, history)

				return m, tea.Batch(m.startProbing(), m.processResults(), m.tick())
			}
		}
	case StateRunning:
		m.dashModel, cmd = m.dashModel.Update(msg)
		switch msg.(type) {
		case tickMsg:
			m.snapshot = m.monitor.Snapshot()
			m.dashModel, _ = m.dashModel.Update(m.snapshot)
			return m, m.tick()
		case finishedMsg:
			m.state = StateSummary
			m.snapshot = m.monitor.Snapshot()
			m.sumModel = NewSummaryModel(m.snapshot)
		}
	}

	return m, cmd
}

type finishedMsg struct{}

type tickMsg time.Time

func (m MainModel) tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m MainModel) startProbing() tea.Cmd {
	return func() tea.Msg {
		if m.client == nil {
			close(m.results)
			<-m.drainDone
			return finishedMsg{}
		}

		engine := &probe.Engine{Client: m.client, Breaker: m.breaker}
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Duration)
		defer cancel()

		engine.Run(ctx, m.cfg, m.results)
		<-m.drainDone
		return finishedMsg{}
	}
}

func (m MainModel) processResults() tea.Cmd {
	return func() tea.Msg {
		defer close(m.drainDone)
		for res := range m.results {
			m.monitor.Add(res)
		}
		return nil
	}
}

func (m MainModel) View() string {
	if m.quitting {
		return "Exiting...\n"
	}

	switch m.state {
	case StateSetup:
		return m.setupModel.View()
	case StateRunning:
		return m.dashModel.View()
	case StateSummary:
		return m.sumModel.View()
	default:
		return "Unknown state"
	}
}

func (m MainModel) Snapshot() probe.Snapshot {
	return m.snapshot
}
