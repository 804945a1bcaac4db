package analytics

import (
	"sort"

	"github.com/godilite/survey-insights/internal/survey"
)

// AggregateRow holds the mean scores of one question. Gap is
// MeanExpectation - MeanSatisfaction; a positive gap means expectations are
// not met.
type AggregateRow struct {
	Section          string  `json:"section"`
	Category         string  `json:"category"`
	Index            int     `json:"index"`
	Question         string  `json:"question"`
	MeanSatisfaction float64 `json:"mean_satisfaction"`
	MeanExpectation  float64 `json:"mean_expectation"`
	Gap              float64 `json:"gap"`
	Respondents      int     `json:"respondents"`
}

func (r AggregateRow) Key() survey.Key {
	return survey.Key{Section: r.Section, Category: r.Category, Index: r.Index}
}

// ComputeGaps returns one row per catalog question that at least one record
// answered on both kinds, in catalog order. Questions nobody answered on
// both kinds are omitted.
func ComputeGaps(records []survey.Record, catalog *survey.Catalog) []AggregateRow {
	rows := make([]AggregateRow, 0, catalog.Len())
	if len(records) == 0 {
		return rows
	}

	for _, q := range catalog.Questions() {
		if q.Type != survey.TypePaired {
			continue
		}
		var satSum, expSum, n int
		for _, r := range records {
			sat, okSat := r.Rating(survey.KindSatisfaction, q.Key)
			exp, okExp := r.Rating(survey.KindExpectation, q.Key)
			if !okSat || !okExp {
				continue
			}
			satSum += sat
			expSum += exp
			n++
		}
		if n == 0 {
			continue
		}

		meanSat := float64(satSum) / float64(n)
		meanExp := float64(expSum) / float64(n)
		rows = append(rows, AggregateRow{
			Section:          q.Key.Section,
			Category:         q.Key.Category,
			Index:            q.Key.Index,
			Question:         q.Text,
			MeanSatisfaction: meanSat,
			MeanExpectation:  meanExp,
			Gap:              meanExp - meanSat,
			Respondents:      n,
		})
	}
	return rows
}

// RankByPriority orders rows by gap, largest first. Equal gaps keep catalog
// order so identical input always ranks identically.
func RankByPriority(rows []AggregateRow, catalog *survey.Catalog) []AggregateRow {
	out := append([]AggregateRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Gap != out[j].Gap {
			return out[i].Gap > out[j].Gap
		}
		return catalog.Order(out[i].Key()) < catalog.Order(out[j].Key())
	})
	return out
}

// CategoryAverage is the rollup of the question rows of one category.
type CategoryAverage struct {
	Section          string  `json:"section"`
	Category         string  `json:"category"`
	MeanSatisfaction float64 `json:"mean_satisfaction"`
	MeanExpectation  float64 `json:"mean_expectation"`
	MeanGap          float64 `json:"mean_gap"`
	Questions        int     `json:"questions"`
}

// ComputeCategoryAverages averages the per-question means of each category
// present in rows. It is an average of averages: every question weighs the
// same regardless of how many respondents answered it. Output follows
// catalog order; categories without rows are omitted.
func ComputeCategoryAverages(rows []AggregateRow, catalog *survey.Catalog) []CategoryAverage {
	type categoryID struct{ section, category string }

	byCategory := make(map[categoryID][]AggregateRow)
	for _, r := range rows {
		id := categoryID{r.Section, r.Category}
		byCategory[id] = append(byCategory[id], r)
	}

	out := make([]CategoryAverage, 0, len(byCategory))
	for _, s := range catalog.Sections() {
		for _, c := range s.Categories {
			members := byCategory[categoryID{s.Name, c.Name}]
			if len(members) == 0 {
				continue
			}
			var sat, exp, gap float64
			for _, m := range members {
				sat += m.MeanSatisfaction
				exp += m.MeanExpectation
				gap += m.Gap
			}
			n := float64(len(members))
			out = append(out, CategoryAverage{
				Section:          s.Name,
				Category:         c.Name,
				MeanSatisfaction: sat / n,
				MeanExpectation:  exp / n,
				MeanGap:          gap / n,
				Questions:        len(members),
			})
		}
	}
	return out
}

// RankCategories orders category averages by mean gap, largest first.
// Input produced by ComputeCategoryAverages is in catalog order, which the
// stable sort keeps for ties.
func RankCategories(averages []CategoryAverage) []CategoryAverage {
	out := append([]CategoryAverage(nil), averages...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MeanGap > out[j].MeanGap
	})
	return out
}
