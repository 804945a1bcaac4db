package service

import (
	"time"

	"github.com/godilite/survey-insights/internal/analytics"
)

// Query narrows an analysis pass. Zero times leave the window open and empty
// value lists do not filter.
type Query struct {
	Start       time.Time
	End         time.Time
	Departments []string
	Positions   []string
}

type SegmentBreakdown struct {
	Name     string                     `json:"name"`
	Segments []analytics.SegmentSummary `json:"segments"`
}

// Dashboard is the full set of views computed from one snapshot.
type Dashboard struct {
	GeneratedAt        time.Time                   `json:"generated_at"`
	Respondents        int                         `json:"respondents"`
	Questions          []analytics.AggregateRow    `json:"questions"`
	Priorities         []analytics.AggregateRow    `json:"priorities"`
	Categories         []analytics.CategoryAverage `json:"categories"`
	CategoryPriorities []analytics.CategoryAverage `json:"category_priorities"`
	NPS                *analytics.NPSResult        `json:"nps,omitempty"`
	Segments           []SegmentBreakdown          `json:"segments"`
}

// SegmentSpec describes one segment breakdown of the dashboard.
type SegmentSpec struct {
	Name      string
	Attribute string
	Options   []analytics.SegmentOption
}
