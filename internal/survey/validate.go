package survey

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownQuestion = errors.New("unknown question")
	ErrOutOfScale      = errors.New("score out of scale")
	ErrKindNotAllowed  = errors.New("rating kind not accepted by question")
	ErrMissingID       = errors.New("record has no id")
)

// ValidationError identifies the offending record and field of a malformed
// submission.
type ValidationError struct {
	RecordID string
	Field    string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %q field %q: %v", e.RecordID, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks every rating and comment of r against c and returns the
// first violation as a *ValidationError. Fields are checked in column-name
// order so the reported field is stable.
func Validate(r Record, c *Catalog) error {
	if r.id == "" {
		return &ValidationError{Field: "id", Err: ErrMissingID}
	}

	keys := make([]RatingKey, 0, len(r.ratings))
	for rk := range r.ratings {
		keys = append(keys, rk)
	}
	sort.Slice(keys, func(i, j int) bool {
		return RatingColumn(keys[i].Kind, keys[i].Key) < RatingColumn(keys[j].Kind, keys[j].Key)
	})

	for _, rk := range keys {
		if err := c.checkRating(rk.Kind, rk.Key, r.ratings[rk]); err != nil {
			return &ValidationError{RecordID: r.id, Field: RatingColumn(rk.Kind, rk.Key), Err: err}
		}
	}

	commentKeys := make([]Key, 0, len(r.comments))
	for k := range r.comments {
		commentKeys = append(commentKeys, k)
	}
	sort.Slice(commentKeys, func(i, j int) bool { return commentKeys[i].String() < commentKeys[j].String() })
	for _, k := range commentKeys {
		if _, ok := c.Question(k); !ok {
			return &ValidationError{RecordID: r.id, Field: CommentColumn(k), Err: ErrUnknownQuestion}
		}
	}
	return nil
}

// ValidateAll validates records in order and stops at the first failure.
func ValidateAll(records []Record, c *Catalog) error {
	for _, r := range records {
		if err := Validate(r, c); err != nil {
			return err
		}
	}
	return nil
}

// CheckRating reports whether score is a legal answer of the given kind to
// question k, as a *ValidationError without a record id.
func (c *Catalog) CheckRating(kind Kind, k Key, score int) error {
	if err := c.checkRating(kind, k, score); err != nil {
		return &ValidationError{Field: RatingColumn(kind, k), Err: err}
	}
	return nil
}

func (c *Catalog) checkRating(kind Kind, k Key, score int) error {
	q, ok := c.Question(k)
	if !ok {
		return ErrUnknownQuestion
	}
	if !q.Accepts(kind) {
		return fmt.Errorf("%w: %s on %s question", ErrKindNotAllowed, kind, q.Type)
	}
	if !q.Scale.Contains(score) {
		return fmt.Errorf("%w: %d not in %s", ErrOutOfScale, score, q.Scale)
	}
	return nil
}
