package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/resiliate/resiliate/internal/probe"
)

type SummaryModel struct {
	snapshot probe.Snapshot
}

func NewSummaryModel(snapshot probe.Snapshot) *SummaryModel {
	return &SummaryModel{snapshot: snapshot}
}

func (m *SummaryModel) Init() tea.Cmd { return nil }

func (m *SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { return m, nil }

var (
	sumHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			Bold(true).
			MarginBottom(1)

	sumStatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginRight(2)

	sumValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)
)

func (m *SummaryModel) View() string {
	var s strings.Builder

	logo := logoStyle.Render(asciiLogo)
	s.WriteString(borderStyle.Render(logo))
	s.WriteString("\n")
	s.WriteString(subtitleStyle.Render("Resilient HTTP Client Probe"))
	s.WriteString("\n\n")

	s.WriteString(sumHeaderStyle.Render("📊 Probe Summary"))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render("🚀 Traffic"))
	s.WriteString("\n")

	tData := [][]string{
		{"Total Requests", fmt.Sprintf("%d", m.snapshot.TotalRequests)},
		{"Accepted", fmt.Sprintf("%d", m.snapshot.Accepted)},
		{"Rejected", fmt.Sprintf("%d", m.snapshot.Rejected)},
		{"Errored", fmt.Sprintf("%d", m.snapshot.Errored)},
		{"Success Rate", fmt.Sprintf("%.2f%%", m.snapshot.SuccessRate)},
		{"RPS (avg)", fmt.Sprintf("%.2f", m.snapshot.RPS)},
	}
	for _, row := range tData {
		s.WriteString(fmt.Sprintf("  %s %s\n", sumStatStyle.Render(fmt.Sprintf("%-15s", row[0]+":")), sumValueStyle.Render(row[1])))
	}
	s.WriteString("\n")

	s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true).Render("Latency Distribution:"))
	s.WriteString("\n")

	lData := [][]string{
		{"Min", fmtDuration(m.snapshot.Min)},
		{"P50", fmtDuration(m.snapshot.P50)},
		{"P75", fmtDuration(m.snapshot.P75)},
		{"P90", fmtDuration(m.snapshot.P90)},
		{"P95", fmtDuration(m.snapshot.P95)},
		{"P99", fmtDuration(m.snapshot.P99)},
		{"Max", fmtDuration(m.snapshot.Max)},
	}
	for i := 0; i < len(lData); i += 2 {
		r1 := lData[i]
		s.WriteString(fmt.Sprintf("  %s %s", sumStatStyle.Render(fmt.Sprintf("%-5s", r1[0]+":")), sumValueStyle.Render(fmt.Sprintf("%-12s", r1[1]))))
		if i+1 < len(lData) {
			r2 := lData[i+1]
			s.WriteString(fmt.Sprintf("  %s %s", sumStatStyle.Render(fmt.Sprintf("%-5s", r2[0]+":")), sumValueStyle.Render(r2[1])))
		}
		s.WriteString("\n")
	}
	s.WriteString("\n")

	if len(m.snapshot.StatusCodes) > 0 {
		s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render("📊 Status Codes"))
		s.WriteString("\n")

		var codes []string
		for k := range m.snapshot.StatusCodes {
			codes = append(codes, k)
		}
		for i := 0; i < len(codes); i++ {
			for j := i + 1; j < len(codes); j++ {
				if codes[i] > codes[j] {
					codes[i], codes[j] = codes[j], codes[i]
				}
			}
		}
		for _, code := range codes {
			count := m.snapshot.StatusCodes[code]
			var codeInt int
			fmt.Sscanf(code, "%d", &codeInt)
			style := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
			if codeInt >= 400 {
				style = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
			}
			s.WriteString(fmt.Sprintf("  %s %s\n", sumStatStyle.Render(fmt.Sprintf("%-15s", "Code "+code+":")), style.Render(fmt.Sprintf("%d", count))))
		}
		s.WriteString("\n")
	}

	if len(m.snapshot.BreakerStates) > 0 {
		s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render("🧯 Circuit Breaker States"))
		s.WriteString("\n")
		for state, count := range m.snapshot.BreakerStates {
			s.WriteString(fmt.Sprintf("  %s %s\n", sumStatStyle.Render(fmt.Sprintf("%-15s", state+":")), sumValueStyle.Render(fmt.Sprintf("%d", count))))
		}
		s.WriteString("\n")
	}

	s.WriteString(highlight.Render("✨ Probe run complete"))
	s.WriteString("\n" + subtext.Render("Press Ctrl+C to exit."))

	return s.String()
}
