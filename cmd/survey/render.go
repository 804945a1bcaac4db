package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/godilite/survey-insights/internal/analytics"
	"github.com/godilite/survey-insights/internal/service"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func fmtMean(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// newTable builds a table whose columns from numericFrom on are right
// aligned.
func newTable(numericFrom int, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col >= numericFrom:
				return numberStyle
			default:
				return cellStyle
			}
		})
}

func questionTable(rows []analytics.AggregateRow) *table.Table {
	t := newTable(3, "Section", "Category", "Question", "Satisfaction", "Expectation", "Gap", "Respondents")
	for _, r := range rows {
		t.Row(r.Section, r.Category, r.Question,
			fmtMean(r.MeanSatisfaction), fmtMean(r.MeanExpectation), fmtMean(r.Gap),
			strconv.Itoa(r.Respondents))
	}
	return t
}

func categoryTable(rows []analytics.CategoryAverage) *table.Table {
	t := newTable(2, "Section", "Category", "Satisfaction", "Expectation", "Gap", "Questions")
	for _, r := range rows {
		t.Row(r.Section, r.Category,
			fmtMean(r.MeanSatisfaction), fmtMean(r.MeanExpectation), fmtMean(r.MeanGap),
			strconv.Itoa(r.Questions))
	}
	return t
}

func segmentTable(b service.SegmentBreakdown) *table.Table {
	t := newTable(1, b.Name, "Satisfaction", "Respondents")
	for _, s := range b.Segments {
		t.Row(s.Value, fmtMean(s.MeanSatisfaction), strconv.Itoa(s.Respondents))
	}
	return t
}

func renderNPS(w io.Writer, nps *analytics.NPSResult) {
	if nps == nil {
		fmt.Fprintln(w, "no answers to the recommendation question")
		return
	}
	fmt.Fprintf(w, "score %s (%s scale, %d answers)\n", fmtMean(nps.Score), nps.Scale, nps.Total)
	fmt.Fprintf(w, "promoters %d (%s%%)  passives %d (%s%%)  detractors %d (%s%%)\n",
		nps.Promoters, fmtMean(nps.PromoterPct),
		nps.Passives, fmtMean(nps.PassivePct),
		nps.Detractors, fmtMean(nps.DetractorPct))
}

// renderDashboard prints d as terminal tables, priorities first.
func renderDashboard(w io.Writer, d service.Dashboard) error {
	fmt.Fprintf(w, "%d respondents, generated %s\n", d.Respondents, d.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Fprintln(w, titleStyle.Render("Improvement priorities"))
	fmt.Fprintln(w, questionTable(d.Priorities).Render())

	fmt.Fprintln(w, titleStyle.Render("Categories by priority"))
	fmt.Fprintln(w, categoryTable(d.CategoryPriorities).Render())

	fmt.Fprintln(w, titleStyle.Render("Recommendation (NPS)"))
	renderNPS(w, d.NPS)

	for _, b := range d.Segments {
		if len(b.Segments) == 0 {
			continue
		}
		fmt.Fprintln(w, titleStyle.Render("By "+b.Name))
		fmt.Fprintln(w, segmentTable(b).Render())
	}
	return nil
}
