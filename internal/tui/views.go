package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/opensensing/pushdash/internal/authgate"
	"github.com/opensensing/pushdash/internal/interval"
	"github.com/opensensing/pushdash/internal/pushlist"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	tabStyle   = lipgloss.NewStyle().Faint(true)
	activeTab  = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

func newSensorsTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 8},
			{Title: "Sensor", Width: 32},
			{Title: "Channel", Width: 28},
		}),
		table.WithHeight(12),
	)
	t.Focus()
	return t
}

func newRulesTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Target", Width: 34},
			{Title: "Status", Width: 8},
			{Title: "Interval", Width: 12},
			{Title: "Last Push", Width: 16},
			{Title: "Total", Width: 12},
		}),
		table.WithHeight(10),
	)
	t.Focus()
	return t
}

func (m *model) rebuildSensorRows() {
	rows := make([]table.Row, 0, len(m.sensors.Rows))
	for _, sensor := range m.sensors.Rows {
		rows = append(rows, table.Row{
			strconv.FormatInt(sensor.ID, 10),
			sensor.Name,
			sensor.ChannelName,
		})
	}
	m.sensorsTable.SetRows(rows)
}

func (m *model) rebuildRuleRows() {
	rules := m.list.Rows
	if limit := pushlist.PageSize(m.list.Pagination.TotalEntries); len(rules) > limit {
		rules = rules[:limit]
	}
	rows := make([]table.Row, 0, len(rules))
	for _, rule := range rules {
		status := "paused"
		if rule.Active {
			status = "active"
		}
		rows = append(rows, table.Row{
			ruleTarget(m.cat, rule.TargetDeviceID, rule.TargetSensorID),
			status,
			interval.Format(rule.PushInterval),
			formatLastPush(rule.LastPushTime),
			formatCount(rule.PushedCount),
		})
	}
	m.rulesTable.SetRows(rows)
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.gate.State() == authgate.StateUnauthorized {
		return m.loginView()
	}

	var body string
	switch m.activeView {
	case viewOverview:
		body = m.overviewView()
	case viewSensors:
		body = m.sensorsView()
	case viewPush:
		body = m.pushView()
	}

	sections := []string{m.headerView(), body}
	if m.errorText != "" {
		sections = append(sections, errorStyle.Render(m.errorText))
	} else if m.statusText != "" {
		sections = append(sections, okStyle.Render(m.statusText))
	}
	sections = append(sections, m.helpView())
	return strings.Join(sections, "\n") + "\n"
}

func (m model) headerView() string {
	tabs := make([]string, 0, 3)
	for _, view := range []string{viewOverview, viewSensors, viewPush} {
		name := view
		if view == viewPush && m.sensorID > 0 {
			name = fmt.Sprintf("push (sensor %d)", m.sensorID)
		}
		if view == m.activeView {
			tabs = append(tabs, activeTab.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	return titleStyle.Render("pushdash") + "  " + strings.Join(tabs, "  ")
}

func (m model) helpView() string {
	switch m.activeView {
	case viewPush:
		if m.confirmDelete {
			return helpStyle.Render("y confirm delete · n cancel")
		}
		return helpStyle.Render("h/l target · +/- interval · a active · o original time · s save · enter edit · x delete · c cancel · r refresh · [/] page · tab view · q quit")
	case viewSensors:
		return helpStyle.Render("/ focus search · enter search/select · [/] page · tab view · q quit")
	default:
		return helpStyle.Render("r refresh · tab view · q quit")
	}
}

func (m model) overviewView() string {
	if m.loadingOverview {
		return m.spin.View() + " loading collection overview"
	}
	if !m.overviewLoaded {
		return labelStyle.Render("press r to load the collection overview")
	}

	left := strings.Join([]string{
		titleStyle.Render("Collection"),
		fmt.Sprintf("%s %s", labelStyle.Render("channels running:"), yesNo(m.status.ChannelsRunning)),
		fmt.Sprintf("%s %s", labelStyle.Render("sensors running:"), yesNo(m.status.SensorsRunning)),
		fmt.Sprintf("%s %.0f%%", labelStyle.Render("sensor progress:"), m.status.SensorsProgress*100),
		fmt.Sprintf("%s %s new channels, %s new sensors, %s new values",
			labelStyle.Render("last run:"),
			formatCount(m.status.NewExtractedChannels),
			formatCount(m.status.NewExtractedSensors),
			formatCount(m.status.NewExtractedSensorValues)),
		fmt.Sprintf("%s %s", labelStyle.Render("last extraction:"), formatTime(m.status.LastExtractionTime)),
	}, "\n")

	right := strings.Join([]string{
		titleStyle.Render("Statistics"),
		fmt.Sprintf("%s %s", labelStyle.Render("channels:"), formatCount(m.stats.TotalChannels)),
		fmt.Sprintf("%s %s", labelStyle.Render("sensors:"), formatCount(m.stats.TotalSensors)),
		fmt.Sprintf("%s %s", labelStyle.Render("sensor values:"), formatCount(m.stats.TotalSensorValues)),
	}, "\n")

	return lipgloss.JoinHorizontal(lipgloss.Top, boxStyle.Render(left), " ", boxStyle.Render(right))
}

func (m model) sensorsView() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("search: "))
	b.WriteString(m.searchInput.View())
	b.WriteString("\n\n")

	switch {
	case m.searching:
		b.WriteString(m.spin.View() + " searching")
	case m.searchQuery == "":
		b.WriteString(labelStyle.Render("type a sensor name and press enter"))
	case len(m.sensors.Rows) == 0:
		b.WriteString(labelStyle.Render(fmt.Sprintf("no sensors match %q", m.searchQuery)))
	default:
		b.WriteString(m.sensorsTable.View())
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(pageLine(m.sensors.Pagination.CurrentPage, m.sensors.Pagination.TotalPages, m.sensors.Pagination.TotalEntries)))
	}
	return b.String()
}

func (m model) pushView() string {
	if m.sensorID == 0 {
		return labelStyle.Render("select a sensor on the sensors view first")
	}

	var b strings.Builder
	b.WriteString(m.formView())
	b.WriteString("\n\n")

	switch {
	case m.list.Loading && !m.list.Loaded:
		b.WriteString(m.spin.View() + " loading push settings")
	case m.list.Empty():
		b.WriteString(labelStyle.Render("no push settings configured for this sensor"))
	default:
		b.WriteString(m.rulesTable.View())
		b.WriteString("\n")
		line := pageLine(m.list.Pagination.CurrentPage, m.list.Pagination.TotalPages, m.list.Pagination.TotalEntries)
		if m.list.Loading {
			line += "  " + m.spin.View()
		}
		b.WriteString(labelStyle.Render(line))
	}

	if m.confirmDelete {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render("Do you really want to delete this setting? (y/n)"))
	}
	return b.String()
}

func (m model) formView() string {
	draft := m.form.Draft

	mode := "new push setting"
	if draft.EditMode {
		mode = fmt.Sprintf("editing push setting %d", draft.RecordID)
	}

	target := "(none)"
	if draft.HasTarget {
		target = draft.Target.Title()
	}

	lines := []string{
		titleStyle.Render(mode),
		fmt.Sprintf("%s %s", labelStyle.Render("target:"), target),
		fmt.Sprintf("%s %s", labelStyle.Render("interval:"), interval.Format(draft.IntervalMinutes)),
		fmt.Sprintf("%s %s", labelStyle.Render("active:"), yesNo(draft.Active)),
		fmt.Sprintf("%s %s", labelStyle.Render("original timestamp:"), yesNo(draft.UseOriginalTime)),
	}
	if m.saving {
		lines = append(lines, m.spin.View()+" saving")
	}
	if m.deleting {
		lines = append(lines, m.spin.View()+" deleting")
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m model) loginView() string {
	lines := []string{
		titleStyle.Render("login required"),
		"",
		labelStyle.Render("username: ") + m.loginUser.View(),
		labelStyle.Render("password: ") + m.loginPass.View(),
	}
	if m.loggingIn {
		lines = append(lines, "", m.spin.View()+" logging in")
	}
	if m.loginMsg != "" {
		lines = append(lines, "", errorStyle.Render(m.loginMsg))
	}
	lines = append(lines, "", helpStyle.Render("tab switch field · enter submit · ctrl+c quit"))
	return boxStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func pageLine(current, total, entries int) string {
	if total < 1 {
		total = 1
	}
	if current < 1 {
		current = 1
	}
	return fmt.Sprintf("page %d/%d · %s entries", current, total, formatCount(int64(entries)))
}
