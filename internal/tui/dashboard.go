package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/resiliate/resiliate/internal/probe"
)

type DashModel struct {
	cfg      probe.Config
	snapshot probe.Snapshot
	start    time.Time
	progress progress.Model
	history  []string
	tick     int

	rpsHistory []int
}

func NewDashModel(cfg probe.Config, history []string) *DashModel {
	p := progress.New(
		progress.WithScaledGradient("#00FFFF", "#FF6B9D"),
		progress.WithoutPercentage(),
	)
	return &DashModel{
		cfg:      cfg,
		start:    time.Now(),
		progress: p,
		history:  history,
	}
}

func (m *DashModel) Init() tea.Cmd {
	return nil
}

func (m *DashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case probe.Snapshot:
		m.snapshot = msg
		m.tick++
		m.rpsHistory = append(m.rpsHistory, int(msg.RPS))
		if len(m.rpsHistory) > 20 {
			m.rpsHistory = m.rpsHistory[len(m.rpsHistory)-20:]
		}
	}
	return m, nil
}

func (m *DashModel) View() string {
	var s strings.Builder

	logoLines := strings.Split(bigAsciiLogo, "\n")
	styledLogo := ""
	for _, line := range logoLines {
		if line != "" {
			styledLogo += lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render(line) + "\n"
		}
	}
	headerContent := styledLogo + lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Italic(true).Render("  Resilient HTTP Client Probe")
	s.WriteString(headerBoxStyle.Render(headerContent))
	s.WriteString("\n\n")

	targetLine := fmt.Sprintf("🎯 %s  %s",
		targetStyle.Render(m.cfg.URLTemplate),
		metaStyle.Render(fmt.Sprintf("│ %s │ %d workers │ %.1f req/s target",
			m.cfg.Method, m.cfg.Concurrency, m.cfg.Rate)))
	s.WriteString(targetLine)
	s.WriteString("\n\n")

	elapsed := time.Since(m.start)
	pct := 0.0
	if m.cfg.Duration > 0 {
		pct = float64(elapsed) / float64(m.cfg.Duration)
	}
	if pct > 1.0 {
		pct = 1.0
	}
	remaining := m.cfg.Duration - elapsed
	if remaining < 0 {
		remaining = 0
	}

	s.WriteString(dividerStyle.Render(strings.Repeat("━", 80)))
	s.WriteString("\n")

	spinner := GetSpinnerFrame(m.tick)
	progressBar := m.progress.ViewAs(pct)
	timeInfo := fmt.Sprintf("%s  %s / %s  (remaining: %s)",
		lipgloss.NewStyle().Foreground(accentColor).Render(spinner),
		lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render(elapsed.Round(time.Second).String()),
		m.cfg.Duration.String(),
		lipgloss.NewStyle().Foreground(orangeColor).Render(remaining.Round(time.Second).String()))

	s.WriteString(progressBar)
	s.WriteString("\n")
	s.WriteString(timeInfo)
	s.WriteString("\n")
	s.WriteString(dividerStyle.Render(strings.Repeat("━", 80)))
	s.WriteString("\n\n")

	rps := fmt.Sprintf("%.1f", m.snapshot.RPS)
	spark := renderSparkline(m.rpsHistory)

	box1Content := fmt.Sprintf("%s\n%s %s\n%s",
		lipgloss.NewStyle().Foreground(purpleColor).Bold(true).Render("📈 Throughput"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("RPS:"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true).Render(rps),
		sparklineStyle.Render(spark))
	box1 := dashBoxStyle.Copy().BorderForeground(purpleColor).Width(24).Render(box1Content)

	box2Content := fmt.Sprintf("%s\n%s %s\n%s %s\n%s %s\n%s %s",
		lipgloss.NewStyle().Foreground(orangeColor).Bold(true).Render("⏱️  Latency"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("P50:"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true).Render(fmtDuration(m.snapshot.P50)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("P90:"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true).Render(fmtDuration(m.snapshot.P90)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("P99:"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true).Render(fmtDuration(m.snapshot.P99)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("Max:"),
		lipgloss.NewStyle().Foreground(yellowColor).Bold(true).Render(fmtDuration(m.snapshot.Max)))
	box2 := dashBoxStyle.Copy().BorderForeground(orangeColor).Width(24).Render(box2Content)

	total := m.snapshot.TotalRequests
	var acceptPct, rejectPct float64
	if total > 0 {
		acceptPct = float64(m.snapshot.Accepted) / float64(total) * 100.0
		rejectPct = float64(m.snapshot.Rejected) / float64(total) * 100.0
	}
	rejectColor := successText
	if rejectPct > 0 {
		rejectColor = warnText
	}
	if rejectPct > 5.0 {
		rejectColor = errText
	}

	box3Content := fmt.Sprintf("%s\n%s %s\n%s %s %s\n%s %s %s\n%s %s",
		lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render("✅ Verdicts"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("Total:"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true).Render(fmt.Sprintf("%d", total)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("Accept:"),
		successText.Bold(true).Render(fmt.Sprintf("%d", m.snapshot.Accepted)),
		successText.Render(fmt.Sprintf("(%.1f%%)", acceptPct)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("Reject:"),
		rejectColor.Bold(true).Render(fmt.Sprintf("%d", m.snapshot.Rejected)),
		rejectColor.Render(fmt.Sprintf("(%.1f%%)", rejectPct)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("Errored:"),
		errText.Bold(true).Render(fmt.Sprintf("%d", m.snapshot.Errored)))
	box3 := dashBoxStyle.Copy().BorderForeground(accentColor).Width(26).Render(box3Content)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, box1, box2, box3))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("🧯 Circuit breaker"))
	s.WriteString("\n")
	if len(m.snapshot.BreakerStates) > 0 {
		for state, count := range m.snapshot.BreakerStates {
			style := successText
			switch state {
			case "open":
				style = errText
			case "half_open":
				style = warnText
			}
			s.WriteString(fmt.Sprintf("  %s %s\n", style.Render(fmt.Sprintf("%-10s", state)), lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Render(fmt.Sprintf("%d", count))))
		}
	} else {
		s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true).Render("  Waiting for responses...") + "\n")
	}
	s.WriteString("\n")

	s.WriteString(lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("📊 Status codes"))
	s.WriteString("\n")
	if len(m.snapshot.StatusCodes) > 0 {
		type kv struct {
			Code  string
			Count int64
		}
		var sorted []kv
		for k, v := range m.snapshot.StatusCodes {
			sorted = append(sorted, kv{k, v})
		}
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				if sorted[i].Count < sorted[j].Count {
					sorted[i], sorted[j] = sorted[j], sorted[i]
				}
			}
		}

		maxCount := int64(0)
		for _, item := range sorted {
			if item.Count > maxCount {
				maxCount = item.Count
			}
		}
		const barWidth = 20
		for _, item := range sorted {
			var codeInt int
			fmt.Sscanf(item.Code, "%d", &codeInt)
			barStyle := successText
			switch {
			case codeInt >= 500:
				barStyle = errText
			case codeInt >= 400:
				barStyle = warnText
			case codeInt >= 300:
				barStyle = warnText
			}

			barLen := 0
			if maxCount > 0 {
				barLen = int(item.Count * barWidth / maxCount)
			}
			if barLen < 1 && item.Count > 0 {
				barLen = 1
			}
			bar := strings.Repeat("█", barLen) + strings.Repeat("░", barWidth-barLen)

			pctVal := 0.0
			if total > 0 {
				pctVal = float64(item.Count) / float64(total) * 100
			}
			s.WriteString(fmt.Sprintf("  %s %s %6d %s\n",
				lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(fmt.Sprintf("%-6s", item.Code)),
				barStyle.Render(bar), item.Count,
				lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(fmt.Sprintf("(%5.1f%%)", pctVal))))
		}
	} else {
		s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true).Render("  Waiting for responses...") + "\n")
	}

	return s.String()
}
