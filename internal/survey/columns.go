package survey

import (
	"fmt"
	"strings"
)

// Field classifies a tabular column.
type Field string

const (
	FieldSatisfaction Field = Field(KindSatisfaction)
	FieldExpectation  Field = Field(KindExpectation)
	FieldComment      Field = "comment"
	// FieldTimestamp is the submission time column.
	FieldTimestamp Field = "timestamp"
	// FieldDemographic covers every other column.
	FieldDemographic Field = "demographic"
)

// ColumnTimestamp is the name of the timestamp column.
const ColumnTimestamp = "timestamp"

var questionFields = []Field{FieldSatisfaction, FieldExpectation, FieldComment}

func RatingColumn(kind Kind, k Key) string {
	return fmt.Sprintf("%s_%s", kind, k)
}

func CommentColumn(k Key) string {
	return fmt.Sprintf("%s_%s", FieldComment, k)
}

// Kind converts a rating field back to its kind.
func (f Field) Kind() (Kind, bool) {
	switch f {
	case FieldSatisfaction:
		return KindSatisfaction, true
	case FieldExpectation:
		return KindExpectation, true
	default:
		return "", false
	}
}

// ResolveColumn classifies a column name. Question columns are resolved
// against the catalog's key tokens rather than split on underscores; a
// question-prefixed column with no matching question is an error.
func (c *Catalog) ResolveColumn(name string) (Field, Key, error) {
	if name == ColumnTimestamp {
		return FieldTimestamp, Key{}, nil
	}
	for _, f := range questionFields {
		token, ok := strings.CutPrefix(name, string(f)+"_")
		if !ok {
			continue
		}
		k, known := c.columns[token]
		if !known {
			return "", Key{}, &ValidationError{Field: name, Err: ErrUnknownQuestion}
		}
		return f, k, nil
	}
	return FieldDemographic, Key{}, nil
}

// Columns lists the question columns for c in catalog order: every
// accepted rating kind followed by the comment column of each question.
func (c *Catalog) Columns() []string {
	out := make([]string, 0, len(c.questions)*3)
	for _, q := range c.questions {
		for _, kind := range Kinds {
			if q.Accepts(kind) {
				out = append(out, RatingColumn(kind, q.Key))
			}
		}
		out = append(out, CommentColumn(q.Key))
	}
	return out
}
