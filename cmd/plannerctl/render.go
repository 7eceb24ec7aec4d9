package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prisken/client-crm-sub000/internal/optimizer"
	"github.com/prisken/client-crm-sub000/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func formatDue(t *store.Task) string {
	if t.DueDate == nil {
		return "-"
	}
	return t.DueDate.Format(dateLayout)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
}

func renderTasks(tasks []*store.Task) string {
	t := newTable("ID", "Title", "Due", "Pri", "Hours", "Commission", "Prob")
	for _, task := range tasks {
		t.Row(
			shortID(task.ID),
			task.Title,
			formatDue(task),
			fmt.Sprint(task.Priority),
			fmt.Sprintf("%.2f", task.EffortHours),
			task.EstimatedCommission.StringFixed(2),
			fmt.Sprintf("%.2f", task.Probability),
		)
	}
	return t.String()
}

func renderQueue(p optimizer.Params, res optimizer.Result) string {
	g := float64(p.Granularity)
	var b strings.Builder

	if res.OverloadDetected {
		b.WriteString(dangerStyle.Render(fmt.Sprintf("OVERLOAD: %.1fh of due work, %.1fh available",
			float64(res.MandatoryUnits)/g, float64(res.CapacityUnits)/g)))
		b.WriteString("\n")
	}
	if len(res.Entries) == 0 {
		b.WriteString(mutedStyle.Render("Nothing to do."))
		return b.String()
	}

	t := newTable("#", "ID", "Title", "Due", "Hours", "Value", "")
	for i, e := range res.Entries {
		flag := ""
		if e.Mandatory {
			flag = "due"
		}
		t.Row(
			fmt.Sprint(i+1),
			shortID(e.Task.ID),
			e.Task.Title,
			formatDue(e.Task),
			fmt.Sprintf("%.1f", float64(e.EffortUnits)/g),
			fmt.Sprintf("%.2f", e.Value),
			flag,
		)
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d tasks, %.1fh of %.1fh, value %.2f, beta %.2f",
		len(res.Entries), res.TotalEffortHours, float64(res.CapacityUnits)/g, res.TotalExpectedValue, res.Beta)))
	return b.String()
}

func renderSummary(s optimizer.Summary) string {
	rows := [][2]string{
		{"Tasks", fmt.Sprint(s.TaskCount)},
		{"Hours", fmt.Sprintf("%.2f", s.TotalHours)},
		{"Expected commission", s.TotalExpectedCommission.StringFixed(2)},
		{"Commission per hour", s.AverageValuePerHour.StringFixed(2)},
		{"Efficiency", fmt.Sprintf("%.0f%%", s.Efficiency*100)},
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-20s", r[0])))
		b.WriteString(" ")
		b.WriteString(r[1])
	}
	return b.String()
}

func renderTarget(ct *store.CommissionTarget) string {
	remaining := decimal.Max(ct.Target.Sub(ct.Earned), decimal.Zero)
	return fmt.Sprintf("%s  target %s  earned %s  remaining %s",
		headerStyle.Render(ct.Month),
		ct.Target.StringFixed(2), ct.Earned.StringFixed(2), remaining.StringFixed(2))
}
