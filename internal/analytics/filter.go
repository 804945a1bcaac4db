package analytics

import (
	"slices"
	"time"

	"github.com/godilite/survey-insights/internal/survey"
)

// Filter selects records for an analysis pass.
type Filter func(survey.Record) bool

// All matches records accepted by every filter. No filters match everything.
func All(filters ...Filter) Filter {
	return func(r survey.Record) bool {
		for _, f := range filters {
			if !f(r) {
				return false
			}
		}
		return true
	}
}

// Any matches records accepted by at least one filter.
func Any(filters ...Filter) Filter {
	return func(r survey.Record) bool {
		for _, f := range filters {
			if f(r) {
				return true
			}
		}
		return false
	}
}

func Not(f Filter) Filter {
	return func(r survey.Record) bool { return !f(r) }
}

// ByAttribute matches records whose attribute equals one of values. With no
// values every record matches.
func ByAttribute(attribute string, values ...string) Filter {
	if len(values) == 0 {
		return func(survey.Record) bool { return true }
	}
	return func(r survey.Record) bool {
		v, ok := r.Demographic(attribute)
		return ok && slices.Contains(values, v)
	}
}

// SubmittedBetween matches records timestamped within [start, end]. A zero
// bound is open.
func SubmittedBetween(start, end time.Time) Filter {
	return func(r survey.Record) bool {
		ts := r.Timestamp()
		if !start.IsZero() && ts.Before(start) {
			return false
		}
		if !end.IsZero() && ts.After(end) {
			return false
		}
		return true
	}
}

// Apply returns the records accepted by all filters, in input order.
func Apply(records []survey.Record, filters ...Filter) []survey.Record {
	keep := All(filters...)
	out := make([]survey.Record, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
