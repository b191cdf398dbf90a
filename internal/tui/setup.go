package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/resiliate/resiliate/internal/probe"
)

type Step int

const (
	StepURL Step = iota
	StepMethod
	StepRate
	StepDuration
	StepConcurrency
	StepTimeout
	StepPriority
	StepStrategy
	StepDone
)

type stepResult struct {
	label string
	value string
}

// SetupModel is the interactive wizard that turns user answers into a
// probe.Config plus the handful of resiliate.Client knobs (timeout,
// priority, retry strategy) a probe run needs.
type SetupModel struct {
	cfg     *probe.Config
	current Step
	history []stepResult
	form    *huh.Form

	tempRate        string
	tempDuration    string
	tempConcurrency string
	tempTimeout     string
	priority        string
	strategy        string

	url    string
	method string

	Timeout  time.Duration
	Priority string
	Strategy string
}

func NewSetupModel(cfg *probe.Config) *SetupModel {
	if cfg.Method == "" {
		cfg.Method = "GET"
	}
	m := &SetupModel{
		cfg:             cfg,
		current:         StepURL,
		history:         make([]stepResult, 0),
		tempRate:        "50",
		tempDuration:    "30s",
		tempConcurrency: "10",
		tempTimeout:     "5s",
		priority:        "normal",
		strategy:        "sequential",
		url:             cfg.URLTemplate,
		method:          cfg.Method,
	}
	m.nextForm()
	return m
}

func (m *SetupModel) nextForm() {
	neon := MakeNeonTheme()

	switch m.current {
	case StepURL:
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Target endpoint").
					Description("May contain {regex_gen:<pattern>} placeholders").
					Placeholder("https://api.example.com/items/{regex_gen:[0-9]{4}}").
					Value(&m.url).
					Validate(func(s string) error {
						if len(s) < 4 || !strings.HasPrefix(s, "http") {
							return fmt.Errorf("endpoint must start with http")
						}
						return nil
					}),
			),
		).WithTheme(neon)
	case StepMethod:
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("HTTP method").
					Options(
						huh.NewOption("GET", "GET"),
						huh.NewOption("POST", "POST"),
						huh.NewOption("PUT", "PUT"),
						huh.NewOption("DELETE", "DELETE"),
						huh.NewOption("PATCH", "PATCH"),
					).
					Value(&m.method),
			),
		).WithTheme(neon)
	case StepRate:
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Requests per second").
					Description("Target throughput per worker pool").
					Value(&m.tempRate),
			),
		).WithTheme(neon)
	case StepDuration:
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Run duration").
					Description("e.g. 10s, 1m, 5m").
					Value(&m.tempDuration).
					Validate(func(s string) error {
						if _, err := time.ParseDuration(s); err != nil {
							return fmt.Errorf("invalid duration (use 10s, 1m, etc)")
						}
						return nil
					}),
			),
		).WithTheme(neon)
	case StepConcurrency:
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Concurrency").
					Description("Simultaneous workers issuing requests").
					Value(&m.tempConcurrency),
			),
		).WithTheme(neon)
	case StepTimeout:
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Per-request timeout").
					Description("Deadline given to each attempt, e.g. 2s").
					Value(&m.tempTimeout).
					Validate(func(s string) error {
						if _, err := time.ParseDuration(s); err != nil {
							return fmt.Errorf("invalid duration (use 2s, 500ms, etc)")
						}
						return nil
					}),
			),
		).WithTheme(neon)
	case StepPriority:
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Request priority").
					Options(
						huh.NewOption("High", "high"),
						huh.NewOption("Normal", "normal"),
						huh.NewOption("Low", "low"),
					).
					Value(&m.priority),
			),
		).WithTheme(neon)
	case StepStrategy:
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Retry strategy").
					Options(
						huh.NewOption("Single attempt", "single"),
						huh.NewOption("Sequential retries", "sequential"),
						huh.NewOption("Parallel hedged attempts", "parallel"),
					).
					Value(&m.strategy),
			),
		).WithTheme(neon)
	case StepDone:
		m.form = nil
	}

	if m.form != nil {
		m.form.Init()
	}
}

func (m *SetupModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m *SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.current == StepDone {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		switch m.current {
		case StepURL:
			m.history = append(m.history, stepResult{"Target", m.url})
			m.current = StepMethod
		case StepMethod:
			m.history = append(m.history, stepResult{"Method", m.method})
			m.current = StepRate
		case StepRate:
			m.history = append(m.history, stepResult{"Rate", m.tempRate + " req/s"})
			m.current = StepDuration
		case StepDuration:
			m.history = append(m.history, stepResult{"Duration", m.tempDuration})
			m.current = StepConcurrency
		case StepConcurrency:
			m.history = append(m.history, stepResult{"Concurrency", m.tempConcurrency})
			m.current = StepTimeout
		case StepTimeout:
			m.history = append(m.history, stepResult{"Timeout", m.tempTimeout})
			m.current = StepPriority
		case StepPriority:
			m.history = append(m.history, stepResult{"Priority", m.priority})
			m.current = StepStrategy
		case StepStrategy:
			m.history = append(m.history, stepResult{"Strategy", m.strategy})

			m.cfg.URLTemplate = m.url
			m.cfg.Method = m.method
			if rate, err := strconv.ParseFloat(m.tempRate, 64); err == nil && rate > 0 {
				m.cfg.Rate = rate
			}
			if dur, err := time.ParseDuration(m.tempDuration); err == nil {
				m.cfg.Duration = dur
			}
			if workers, err := strconv.Atoi(m.tempConcurrency); err == nil && workers > 0 {
				m.cfg.Concurrency = workers
			}
			if timeout, err := time.ParseDuration(m.tempTimeout); err == nil {
				m.Timeout = timeout
			}
			m.Priority = m.priority
			m.Strategy = m.strategy

			m.current = StepDone
		}

		if m.current != StepDone {
			m.nextForm()
			return m, m.form.Init()
		}
	}

	return m, cmd
}

func (m *SetupModel) View() string {
	var s strings.Builder

	logo := logoStyle.Render(asciiLogo)
	subtitle := subtitleStyle.Render("Resilient HTTP Client Probe")
	s.WriteString(borderStyle.Render(logo + subtitle))
	s.WriteString("\n\n")

	for _, h := range m.history {
		mark := check.Render("✓")
		label := subtext.Render(h.label + ":")
		val := finalValue.Render(h.value)
		s.WriteString(fmt.Sprintf("  %s %s %s\n", mark, label, val))
	}

	if m.form != nil {
		if len(m.history) > 0 {
			s.WriteString("\n")
		}
		stepNum := len(m.history) + 1
		totalSteps := 8
		header := questionHeader.Render(fmt.Sprintf("› Step %d/%d", stepNum, totalSteps))
		s.WriteString(header + "\n")
		s.WriteString(m.form.View())
	} else {
		s.WriteString("\n" + highlight.Render("🚀 Ready! Press Enter to start..."))
	}

	return s.String()
}
