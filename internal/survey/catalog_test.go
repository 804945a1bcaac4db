package survey

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	require.NotNil(t, c)
	assert.Greater(t, c.Len(), 0)

	nps, err := c.NPSQuestion()
	require.NoError(t, err)
	assert.Equal(t, Key{Section: "overall", Category: "recommend", Index: 1}, nps.Key)
	assert.Equal(t, TypeSingle, nps.Type)
	assert.Equal(t, Scale{Min: 0, Max: 10}, nps.Scale)

	first := c.Questions()[0]
	assert.Equal(t, Key{Section: "workplace", Category: "environment", Index: 1}, first.Key)
	assert.Equal(t, TypePaired, first.Type)
	assert.Equal(t, DefaultScale, first.Scale)
}

func TestParseCatalog(t *testing.T) {
	t.Run("scalar and mapping questions", func(t *testing.T) {
		doc := []byte(`
sections:
  - name: work
    categories:
      - name: pay
        questions:
          - Salary is fair
          - text: Bonus is fair
            scale: {min: 1, max: 7}
  - name: overall
    categories:
      - name: nps
        questions:
          - text: Recommend?
            type: single
            scale: {min: 1, max: 5}
nps: {section: overall, category: nps, index: 1}
`)
		c, err := ParseCatalog(doc)
		require.NoError(t, err)
		assert.Equal(t, 3, c.Len())

		q, ok := c.Question(Key{Section: "work", Category: "pay", Index: 2})
		require.True(t, ok)
		assert.Equal(t, "Bonus is fair", q.Text)
		assert.Equal(t, Scale{Min: 1, Max: 7}, q.Scale)

		nps, err := c.NPSQuestion()
		require.NoError(t, err)
		assert.Equal(t, Scale{Min: 1, Max: 5}, nps.Scale)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseCatalog([]byte("sections: [ {"))
		assert.ErrorIs(t, err, ErrInvalidCatalog)
	})

	t.Run("no nps question", func(t *testing.T) {
		c, err := ParseCatalog([]byte(`
sections:
  - name: work
    categories:
      - name: pay
        questions: [Salary is fair]
`))
		require.NoError(t, err)
		_, err = c.NPSQuestion()
		assert.ErrorIs(t, err, ErrNoNPSQuestion)
	})
}

func TestNewCatalogValidation(t *testing.T) {
	q := func(text string) Question { return Question{Text: text} }

	cases := []struct {
		name     string
		sections []Section
		nps      *Key
	}{
		{name: "empty", sections: nil},
		{name: "bad section name", sections: []Section{{Name: "has space", Categories: []Category{{Name: "c", Questions: []Question{q("x")}}}}}},
		{name: "duplicate section", sections: []Section{
			{Name: "a", Categories: []Category{{Name: "c", Questions: []Question{q("x")}}}},
			{Name: "a", Categories: []Category{{Name: "d", Questions: []Question{q("y")}}}},
		}},
		{name: "duplicate category", sections: []Section{
			{Name: "a", Categories: []Category{{Name: "c", Questions: []Question{q("x")}}, {Name: "c", Questions: []Question{q("y")}}}},
		}},
		{name: "empty category", sections: []Section{{Name: "a", Categories: []Category{{Name: "c"}}}}},
		{name: "empty question text", sections: []Section{{Name: "a", Categories: []Category{{Name: "c", Questions: []Question{q("")}}}}}},
		{name: "unknown type", sections: []Section{{Name: "a", Categories: []Category{{Name: "c", Questions: []Question{{Text: "x", Type: "triple"}}}}}}},
		{name: "inverted scale", sections: []Section{{Name: "a", Categories: []Category{{Name: "c", Questions: []Question{{Text: "x", Scale: Scale{Min: 5, Max: 1}}}}}}}},
		{name: "ambiguous column tokens", sections: []Section{
			{Name: "a_b", Categories: []Category{{Name: "c", Questions: []Question{q("x")}}}},
			{Name: "a", Categories: []Category{{Name: "b_c", Questions: []Question{q("y")}}}},
		}},
		{
			name:     "nps key missing",
			sections: []Section{{Name: "a", Categories: []Category{{Name: "c", Questions: []Question{q("x")}}}}},
			nps:      &Key{Section: "a", Category: "c", Index: 2},
		},
		{
			name:     "nps key paired",
			sections: []Section{{Name: "a", Categories: []Category{{Name: "c", Questions: []Question{q("x")}}}}},
			nps:      &Key{Section: "a", Category: "c", Index: 1},
		},
		{
			name: "nps unsupported scale",
			sections: []Section{{Name: "a", Categories: []Category{{Name: "c", Questions: []Question{
				{Text: "x", Type: TypeSingle, Scale: Scale{Min: 1, Max: 7}},
			}}}}},
			nps: &Key{Section: "a", Category: "c", Index: 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCatalog(tc.sections, tc.nps)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestCatalogOrderAndCopies(t *testing.T) {
	c := DefaultCatalog()
	qs := c.Questions()

	for i, q := range qs {
		assert.Equal(t, i, c.Order(q.Key))
	}
	assert.Equal(t, -1, c.Order(Key{Section: "nope", Category: "x", Index: 1}))

	qs[0].Text = "mutated"
	assert.NotEqual(t, "mutated", c.Questions()[0].Text)

	sections := c.Sections()
	sections[0].Categories[0].Questions[0].Text = "mutated"
	assert.NotEqual(t, "mutated", c.Sections()[0].Categories[0].Questions[0].Text)
}

func TestResolveColumn(t *testing.T) {
	c := DefaultCatalog()
	pay := Key{Section: "compensation", Category: "pay", Index: 2}

	cases := []struct {
		column string
		field  Field
		key    Key
	}{
		{"satisfaction_compensation_pay_2", FieldSatisfaction, pay},
		{"expectation_compensation_pay_2", FieldExpectation, pay},
		{"comment_compensation_pay_2", FieldComment, pay},
		{"timestamp", FieldTimestamp, Key{}},
		{"department", FieldDemographic, Key{}},
		{"years_of_service", FieldDemographic, Key{}},
	}
	for _, tc := range cases {
		t.Run(tc.column, func(t *testing.T) {
			field, key, err := c.ResolveColumn(tc.column)
			require.NoError(t, err)
			assert.Equal(t, tc.field, field)
			assert.Equal(t, tc.key, key)
		})
	}

	t.Run("unknown question column", func(t *testing.T) {
		_, _, err := c.ResolveColumn("satisfaction_compensation_pay_9")
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "satisfaction_compensation_pay_9", verr.Field)
		assert.ErrorIs(t, err, ErrUnknownQuestion)
	})

	t.Run("columns follow catalog order", func(t *testing.T) {
		cols := c.Columns()
		assert.Equal(t, "satisfaction_workplace_environment_1", cols[0])
		assert.Equal(t, "expectation_workplace_environment_1", cols[1])
		assert.Equal(t, "comment_workplace_environment_1", cols[2])
		assert.Equal(t, "satisfaction_overall_recommend_1", cols[len(cols)-2])
		assert.NotContains(t, cols, "expectation_overall_recommend_1")
	})
}
