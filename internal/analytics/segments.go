package analytics

import (
	"math"
	"sort"

	"github.com/godilite/survey-insights/internal/survey"
	"github.com/spf13/cast"
)

// SegmentSummary is the mean satisfaction of the respondents sharing one
// value of a demographic attribute. Small segments are reported as-is;
// Respondents lets callers decide whether the mean is meaningful.
type SegmentSummary struct {
	Attribute        string  `json:"attribute"`
	Value            string  `json:"value"`
	MeanSatisfaction float64 `json:"mean_satisfaction"`
	Respondents      int     `json:"respondents"`
}

// Ordinal orderings used by the dashboard.
var (
	PositionOrdering = []string{"Staff", "Senior Staff", "Assistant Manager", "Manager", "Senior Manager", "Director", "Executive"}
	TenureOrdering   = []string{"<1 year", "1-3 years", "3-5 years", "5-10 years", "10+ years"}
)

type segmentOptions struct {
	ordering []string
	unknown  string
	useUnkn  bool
	bucket   func(string) (string, bool)
}

type SegmentOption func(*segmentOptions)

// WithOrdering fixes the output order. Values not listed follow in the
// order they were first seen.
func WithOrdering(labels ...string) SegmentOption {
	return func(o *segmentOptions) { o.ordering = labels }
}

// WithUnknown groups records lacking the attribute under label. Without it
// such records are left out.
func WithUnknown(label string) SegmentOption {
	return func(o *segmentOptions) {
		o.unknown = label
		o.useUnkn = true
	}
}

// WithBucketer derives the segment value from the raw attribute value. A
// false result counts as a missing attribute.
func WithBucketer(fn func(string) (string, bool)) SegmentOption {
	return func(o *segmentOptions) { o.bucket = fn }
}

// SummarizeBySegment groups records by attribute and reports, per value, the
// mean of the respondents' own satisfaction means. Records that answered no
// paired question do not count toward any segment.
func SummarizeBySegment(records []survey.Record, catalog *survey.Catalog, attribute string, opts ...SegmentOption) []SegmentSummary {
	o := &segmentOptions{}
	for _, opt := range opts {
		opt(o)
	}

	paired := pairedKeys(catalog)

	type acc struct {
		sum float64
		n   int
	}
	groups := make(map[string]*acc)
	var firstSeen []string

	for _, r := range records {
		value, ok := r.Demographic(attribute)
		if ok && o.bucket != nil {
			value, ok = o.bucket(value)
		}
		if !ok {
			if !o.useUnkn {
				continue
			}
			value = o.unknown
		}

		mean, ok := satisfactionMean(r, paired)
		if !ok {
			continue
		}

		g, seen := groups[value]
		if !seen {
			g = &acc{}
			groups[value] = g
			firstSeen = append(firstSeen, value)
		}
		g.sum += mean
		g.n++
	}

	out := make([]SegmentSummary, 0, len(groups))
	for _, value := range orderValues(firstSeen, o.ordering) {
		g := groups[value]
		out = append(out, SegmentSummary{
			Attribute:        attribute,
			Value:            value,
			MeanSatisfaction: g.sum / float64(g.n),
			Respondents:      g.n,
		})
	}
	return out
}

// RecordSatisfactionMean is the mean of a record's satisfaction scores on
// paired questions.
func RecordSatisfactionMean(r survey.Record, catalog *survey.Catalog) (float64, bool) {
	return satisfactionMean(r, pairedKeys(catalog))
}

func satisfactionMean(r survey.Record, keys []survey.Key) (float64, bool) {
	var sum, n int
	for _, k := range keys {
		if s, ok := r.Rating(survey.KindSatisfaction, k); ok {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

func pairedKeys(catalog *survey.Catalog) []survey.Key {
	var keys []survey.Key
	for _, q := range catalog.Questions() {
		if q.Type == survey.TypePaired {
			keys = append(keys, q.Key)
		}
	}
	return keys
}

func orderValues(firstSeen, ordering []string) []string {
	if ordering == nil {
		out := append([]string(nil), firstSeen...)
		sort.SliceStable(out, func(i, j int) bool { return lessLabel(out[i], out[j]) })
		return out
	}

	seen := make(map[string]bool, len(firstSeen))
	for _, v := range firstSeen {
		seen[v] = true
	}
	out := make([]string, 0, len(firstSeen))
	placed := make(map[string]bool, len(ordering))
	for _, label := range ordering {
		if seen[label] && !placed[label] {
			out = append(out, label)
			placed[label] = true
		}
	}
	for _, v := range firstSeen {
		if !placed[v] {
			out = append(out, v)
		}
	}
	return out
}

// lessLabel sorts numeric labels numerically ahead of text labels, which
// sort lexicographically.
func lessLabel(a, b string) bool {
	fa, okA := numericLabel(a)
	fb, okB := numericLabel(b)
	switch {
	case okA && okB:
		if fa != fb {
			return fa < fb
		}
		return a < b
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}

// numericLabel parses a finite number; "NaN" and "Inf" stay text labels.
func numericLabel(s string) (float64, bool) {
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// TenureBucket maps years of service onto the labels of TenureOrdering.
func TenureBucket(years string) (string, bool) {
	y, err := cast.ToFloat64E(years)
	if err != nil || y < 0 {
		return "", false
	}
	switch {
	case y < 1:
		return TenureOrdering[0], true
	case y < 3:
		return TenureOrdering[1], true
	case y < 5:
		return TenureOrdering[2], true
	case y < 10:
		return TenureOrdering[3], true
	default:
		return TenureOrdering[4], true
	}
}
