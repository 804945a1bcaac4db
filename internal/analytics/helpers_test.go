package analytics

import (
	"testing"
	"time"

	"github.com/godilite/survey-insights/internal/survey"
	"github.com/stretchr/testify/require"
)

var (
	q1  = survey.Key{Section: "work", Category: "pay", Index: 1}
	q2  = survey.Key{Section: "work", Category: "pay", Index: 2}
	q3  = survey.Key{Section: "work", Category: "growth", Index: 1}
	q4  = survey.Key{Section: "people", Category: "team", Index: 1}
	nps = survey.Key{Section: "overall", Category: "recommend", Index: 1}
)

func testCatalog(t testing.TB) *survey.Catalog {
	t.Helper()
	c, err := survey.NewCatalog([]survey.Section{
		{Name: "work", Categories: []survey.Category{
			{Name: "pay", Questions: []survey.Question{{Text: "Salary is fair"}, {Text: "Raises are fair"}}},
			{Name: "growth", Questions: []survey.Question{{Text: "I can learn"}}},
		}},
		{Name: "people", Categories: []survey.Category{
			{Name: "team", Questions: []survey.Question{{Text: "Team helps"}}},
		}},
		{Name: "overall", Categories: []survey.Category{
			{Name: "recommend", Questions: []survey.Question{{Text: "Recommend?", Type: survey.TypeSingle, Scale: survey.Scale{Min: 0, Max: 10}}}},
		}},
	}, &nps)
	require.NoError(t, err)
	return c
}

type answer struct {
	key      survey.Key
	sat, exp int
}

type recordSpec struct {
	id      string
	at      time.Time
	demo    map[string]string
	answers []answer
	nps     int
}

func buildRecord(t testing.TB, c *survey.Catalog, spec recordSpec) survey.Record {
	t.Helper()
	b := survey.NewBuilder()
	if spec.id != "" {
		b.WithID(spec.id)
	}
	b.At(spec.at)
	for k, v := range spec.demo {
		b.SetDemographic(k, v)
	}
	for _, a := range spec.answers {
		if a.sat > 0 {
			b.Rate(survey.KindSatisfaction, a.key, a.sat)
		}
		if a.exp > 0 {
			b.Rate(survey.KindExpectation, a.key, a.exp)
		}
	}
	if spec.nps >= 0 {
		b.Rate(survey.KindSatisfaction, nps, spec.nps)
	}
	r, err := b.Build(c)
	require.NoError(t, err)
	return r
}

func buildRecords(t testing.TB, c *survey.Catalog, specs ...recordSpec) []survey.Record {
	t.Helper()
	out := make([]survey.Record, len(specs))
	for i, s := range specs {
		out[i] = buildRecord(t, c, s)
	}
	return out
}
